// Package scanner implements C7: a cheap, pure-read linear cursor over
// global transaction indices that locates the first disagreement between
// the settlement chain's posted state root and the rollup node's own view
// of the state root it produced (spec.md §4.7).
package scanner

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
)

type settlementView interface {
	GetStateRootBatchHeader(ctx context.Context, index fraudtypes.GlobalIndex) (*fraudtypes.StateRootBatchHeader, error)
	GetStateRoot(ctx context.Context, index fraudtypes.GlobalIndex) (common.Hash, error)
}

type rollupView interface {
	GetStateRoot(ctx context.Context, rollupBlock uint64) (common.Hash, error)
}

// Scanner walks the global index space looking for the first index whose
// settlement-chain state root disagrees with the rollup node's own.
type Scanner struct {
	l1          settlementView
	l2          rollupView
	blockOffset uint64
	log         log.Logger
}

func New(l1 settlementView, l2 rollupView, blockOffset uint64) *Scanner {
	return &Scanner{l1: l1, l2: l2, blockOffset: blockOffset, log: log.New("component", "scanner")}
}

// Scan starts at cursor and advances until the settlement chain runs out of
// posted batches, returning the first mismatching index and true, or false
// if every index from cursor through the chain tip agrees.
func (s *Scanner) Scan(ctx context.Context, cursor fraudtypes.GlobalIndex) (fraudtypes.GlobalIndex, bool, error) {
	for {
		if _, err := s.l1.GetStateRootBatchHeader(ctx, cursor); err != nil {
			if ferrors.Is(err, ferrors.NotFound) {
				return 0, false, nil
			}
			return 0, false, err
		}

		settlementRoot, err := s.l1.GetStateRoot(ctx, cursor)
		if err != nil {
			return 0, false, err
		}
		rollupRoot, err := s.l2.GetStateRoot(ctx, uint64(cursor)+s.blockOffset)
		if err != nil {
			return 0, false, err
		}

		if settlementRoot != rollupRoot {
			s.log.Info("state root mismatch located", "index", cursor, "settlementRoot", settlementRoot, "rollupRoot", rollupRoot)
			return cursor, true, nil
		}
		cursor++
	}
}
