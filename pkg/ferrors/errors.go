// Package ferrors defines the error taxonomy the prover core uses to decide
// whether a failure aborts the current dispute, is silently absorbed as
// cooperative progress from a racing peer, or terminates the process.
package ferrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the driver loop needs to react to it.
type Kind int

const (
	// Transport is an RPC failure against the settlement chain or the rollup node.
	Transport Kind = iota
	// NotFound means a queried index lies beyond the chain tip; not an error to the scanner.
	NotFound
	// CorruptWitness means the assembled witness is internally inconsistent or incomplete.
	CorruptWitness
	// Race means a revert matched one of the cooperative-progress filters in spec §4.6.3.
	Race
	// Submission means an on-chain revert or tx-wait failure unrelated to a racing peer.
	Submission
	// Inconsistent means the dispute's inputs or on-chain state contradict each other,
	// e.g. the witness doesn't cover state the transitioner reports as changed, the
	// suspect index has no predecessor, or the transitioner stays unresolved after init.
	Inconsistent
	// Fatal means misconfiguration or unrecoverable boot failure; the process should exit.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case NotFound:
		return "not_found"
	case CorruptWitness:
		return "corrupt_witness"
	case Race:
		return "race"
	case Submission:
		return "submission"
	case Inconsistent:
		return "inconsistent"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers up the stack can
// branch on classification without string-matching.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

// Is reports whether the first *Error found in err's chain (err itself or
// something it wraps) carries the given Kind. A *Error nested inside another
// *Error is not consulted: the outermost classification wins.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind == kind
	}
	return false
}
