// Package driverloop implements C8: the cooperative supervisor that polls
// the scanner (C7) and, on a hit, assembles a witness (C4) and drives it
// through the phase driver (C6), the same StopWaiter.CallIteratively
// polling shape nitro's BatchPoster.Start uses (spec.md §4.8).
package driverloop

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/nitro/util/stopwaiter"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
)

type scanner interface {
	Scan(ctx context.Context, cursor fraudtypes.GlobalIndex) (fraudtypes.GlobalIndex, bool, error)
}

type assembler interface {
	Assemble(ctx context.Context, index fraudtypes.GlobalIndex) (*fraudtypes.FraudProofData, error)
}

type phaseDriver interface {
	Run(ctx context.Context, bundle *fraudtypes.FraudProofData) (fraudtypes.GlobalIndex, error)
}

// Loop owns the process-lifetime cursor: the only mutable state the core
// shares across disputes (spec.md §5).
type Loop struct {
	stopwaiter.StopWaiter

	scanner         scanner
	assembler       assembler
	phaseDriver     phaseDriver
	pollingInterval time.Duration
	cursor          fraudtypes.GlobalIndex
	log             log.Logger
}

func New(s scanner, a assembler, d phaseDriver, pollingInterval time.Duration, fromIndex fraudtypes.GlobalIndex) *Loop {
	return &Loop{
		scanner:         s,
		assembler:       a,
		phaseDriver:     d,
		pollingInterval: pollingInterval,
		cursor:          fromIndex,
		log:             log.New("component", "driverloop"),
	}
}

// Start launches the polling loop in a background goroutine. Call
// StopAndWait (inherited from stopwaiter.StopWaiter) to shut it down.
func (l *Loop) Start(ctx context.Context) {
	l.StopWaiter.Start(ctx, l)
	l.CallIteratively(func(ctx context.Context) time.Duration {
		l.tick(ctx)
		return l.pollingInterval
	})
}

// tick runs one scanner poll and, on a hit, one phase-driver pass. Any
// unhandled error is logged and swallowed: the cursor is left unchanged so
// the same dispute is retried on the next tick (spec.md §4.8).
func (l *Loop) tick(ctx context.Context) {
	index, found, err := l.scanner.Scan(ctx, l.cursor)
	if err != nil {
		l.log.Error("scanner poll failed", "cursor", l.cursor, "err", err)
		return
	}
	if !found {
		return
	}

	bundle, err := l.assembler.Assemble(ctx, index)
	if err != nil {
		l.log.Error("witness assembly failed", "index", index, "err", err)
		return
	}

	nextCursor, err := l.phaseDriver.Run(ctx, bundle)
	if err != nil {
		l.log.Error("phase driver failed", "index", index, "err", err)
		return
	}

	l.log.Info("dispute driven to completion", "index", index, "nextCursor", nextCursor)
	l.cursor = nextCursor
}

// Cursor returns the loop's current scanner cursor.
func (l *Loop) Cursor() fraudtypes.GlobalIndex { return l.cursor }
