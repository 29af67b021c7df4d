package scanner

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
)

type fakeSettlementView struct {
	roots map[fraudtypes.GlobalIndex]common.Hash
}

func (f fakeSettlementView) GetStateRootBatchHeader(ctx context.Context, index fraudtypes.GlobalIndex) (*fraudtypes.StateRootBatchHeader, error) {
	if _, ok := f.roots[index]; !ok {
		return nil, ferrors.New(ferrors.NotFound, "beyond chain tip")
	}
	return &fraudtypes.StateRootBatchHeader{}, nil
}

func (f fakeSettlementView) GetStateRoot(ctx context.Context, index fraudtypes.GlobalIndex) (common.Hash, error) {
	return f.roots[index], nil
}

type fakeRollupView struct {
	roots map[uint64]common.Hash
	err   error
}

func (f fakeRollupView) GetStateRoot(ctx context.Context, rollupBlock uint64) (common.Hash, error) {
	if f.err != nil {
		return common.Hash{}, f.err
	}
	return f.roots[rollupBlock], nil
}

func TestScanReturnsFirstMismatch(t *testing.T) {
	agree := common.HexToHash("0xaa")
	mismatch := common.HexToHash("0xbb")

	l1 := fakeSettlementView{roots: map[fraudtypes.GlobalIndex]common.Hash{
		0: agree, 1: agree, 2: agree,
	}}
	l2 := fakeRollupView{roots: map[uint64]common.Hash{
		1: agree, 2: agree, 3: mismatch,
	}}

	s := New(l1, l2, 1)
	idx, found, err := s.Scan(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, fraudtypes.GlobalIndex(2), idx)
}

func TestScanReturnsNoMismatchAtChainTip(t *testing.T) {
	agree := common.HexToHash("0xaa")
	l1 := fakeSettlementView{roots: map[fraudtypes.GlobalIndex]common.Hash{0: agree, 1: agree}}
	l2 := fakeRollupView{roots: map[uint64]common.Hash{1: agree, 2: agree}}

	s := New(l1, l2, 1)
	_, found, err := s.Scan(context.Background(), 0)
	require.NoError(t, err)
	require.False(t, found)
}

func TestScanPropagatesRollupTransportError(t *testing.T) {
	l1 := fakeSettlementView{roots: map[fraudtypes.GlobalIndex]common.Hash{0: common.HexToHash("0xaa")}}
	l2 := fakeRollupView{err: ferrors.Wrap(ferrors.Transport, "rpc down", assertErr)}

	s := New(l1, l2, 1)
	_, _, err := s.Scan(context.Background(), 0)
	require.Error(t, err)
	require.True(t, ferrors.Is(err, ferrors.Transport))
}

var assertErr = ferrors.New(ferrors.Transport, "boom")
