package driverloop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
)

type fakeScanner struct {
	index fraudtypes.GlobalIndex
	found bool
	err   error
}

func (f fakeScanner) Scan(ctx context.Context, cursor fraudtypes.GlobalIndex) (fraudtypes.GlobalIndex, bool, error) {
	return f.index, f.found, f.err
}

type fakeAssembler struct {
	bundle *fraudtypes.FraudProofData
	err    error
}

func (f fakeAssembler) Assemble(ctx context.Context, index fraudtypes.GlobalIndex) (*fraudtypes.FraudProofData, error) {
	return f.bundle, f.err
}

type fakePhaseDriver struct {
	next fraudtypes.GlobalIndex
	err  error
}

func (f fakePhaseDriver) Run(ctx context.Context, bundle *fraudtypes.FraudProofData) (fraudtypes.GlobalIndex, error) {
	return f.next, f.err
}

func TestTickAdvancesCursorOnFullSuccess(t *testing.T) {
	l := New(
		fakeScanner{index: 5, found: true},
		fakeAssembler{bundle: &fraudtypes.FraudProofData{}},
		fakePhaseDriver{next: 6},
		time.Second,
		0,
	)
	l.tick(context.Background())
	require.Equal(t, fraudtypes.GlobalIndex(6), l.Cursor())
}

func TestTickLeavesCursorUnchangedOnScanMiss(t *testing.T) {
	l := New(
		fakeScanner{found: false},
		fakeAssembler{},
		fakePhaseDriver{},
		time.Second,
		3,
	)
	l.tick(context.Background())
	require.Equal(t, fraudtypes.GlobalIndex(3), l.Cursor())
}

func TestTickLeavesCursorUnchangedOnPhaseDriverError(t *testing.T) {
	l := New(
		fakeScanner{index: 5, found: true},
		fakeAssembler{bundle: &fraudtypes.FraudProofData{}},
		fakePhaseDriver{err: errors.New("submission failed")},
		time.Second,
		3,
	)
	l.tick(context.Background())
	require.Equal(t, fraudtypes.GlobalIndex(3), l.Cursor())
}

func TestTickLeavesCursorUnchangedOnAssemblerError(t *testing.T) {
	l := New(
		fakeScanner{index: 5, found: true},
		fakeAssembler{err: errors.New("rpc down")},
		fakePhaseDriver{next: 6},
		time.Second,
		3,
	)
	l.tick(context.Background())
	require.Equal(t, fraudtypes.GlobalIndex(3), l.Cursor())
}
