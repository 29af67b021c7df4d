package witness

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
)

type fakeSettlementView struct {
	statePre  fraudtypes.StateRootBatchProof
	statePost fraudtypes.StateRootBatchProof
	txProof   fraudtypes.TransactionBatchProof
	err       error
}

func (f *fakeSettlementView) GetStateRootBatchProof(ctx context.Context, index fraudtypes.GlobalIndex) (fraudtypes.StateRootBatchProof, error) {
	if f.err != nil {
		return fraudtypes.StateRootBatchProof{}, f.err
	}
	if index == 6 {
		return f.statePre, nil
	}
	return f.statePost, nil
}

func (f *fakeSettlementView) GetTransactionBatchProof(ctx context.Context, index fraudtypes.GlobalIndex) (fraudtypes.TransactionBatchProof, error) {
	if f.err != nil {
		return fraudtypes.TransactionBatchProof{}, f.err
	}
	return f.txProof, nil
}

type fakeRollupView struct {
	diff fraudtypes.StateDiffProof
	err  error
}

func (f *fakeRollupView) GetStateDiffProof(ctx context.Context, rollupBlock uint64) (fraudtypes.StateDiffProof, error) {
	if f.err != nil {
		return fraudtypes.StateDiffProof{}, f.err
	}
	return f.diff, nil
}

// proofCollector implements ethdb.KeyValueWriter, gathering the nodes
// (*trie.Trie).Prove hands it in insertion order.
type proofCollector [][]byte

func (p *proofCollector) Put(key, value []byte) error {
	*p = append(*p, value)
	return nil
}

func (p *proofCollector) Delete(key []byte) error { return nil }

// buildGethTrieWithOneEntry builds a one-entry reference trie with go-ethereum
// directly and returns its root plus the proof nodes for that entry.
func buildGethTrieWithOneEntry(t *testing.T, key, value []byte) (common.Hash, [][]byte) {
	t.Helper()
	tdb := triedb.NewDatabase(rawdb.NewDatabase(memorydb.New()), nil)
	tr, err := trie.New(trie.TrieID(common.Hash{}), tdb)
	require.NoError(t, err)
	require.NoError(t, tr.Update(key, value))
	root := tr.Hash()

	var collected proofCollector
	require.NoError(t, tr.Prove(key, &collected))
	return root, collected
}

func TestAssembleHappyPath(t *testing.T) {
	addr := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	acctKey := crypto.Keccak256(addr.Bytes())
	acctRoot, acctProof := buildGethTrieWithOneEntry(t, acctKey, []byte("account-value"))

	slotKey := crypto.Keccak256(common.HexToHash("0x01").Bytes())
	storageRoot, storageProof := buildGethTrieWithOneEntry(t, slotKey, []byte("storage-value"))

	sv := &fakeSettlementView{
		statePre:  fraudtypes.StateRootBatchProof{StateRoot: acctRoot},
		statePost: fraudtypes.StateRootBatchProof{StateRoot: common.HexToHash("0xbb")},
		txProof:   fraudtypes.TransactionBatchProof{},
	}
	rv := &fakeRollupView{
		diff: fraudtypes.StateDiffProof{
			AccountStateProofs: []fraudtypes.AccountStateProof{
				{
					Address:      addr,
					StorageRoot:  storageRoot,
					AccountProof: acctProof,
					StorageProof: []fraudtypes.StorageStateProof{
						{Key: common.HexToHash("0x01"), Proof: storageProof},
					},
				},
			},
		},
	}

	a := New(sv, rv, 1)
	bundle, err := a.Assemble(context.Background(), fraudtypes.GlobalIndex(7))
	require.NoError(t, err)
	require.Equal(t, acctRoot, bundle.StateTrie.Root())
	require.Contains(t, bundle.StorageTries, addr)
	require.Equal(t, storageRoot, bundle.StorageTries[addr].Root())
}

func TestAssembleRejectsIndexZero(t *testing.T) {
	a := New(&fakeSettlementView{}, &fakeRollupView{}, 1)
	_, err := a.Assemble(context.Background(), fraudtypes.GlobalIndex(0))
	require.Error(t, err)
	require.True(t, ferrors.Is(err, ferrors.Inconsistent))
}

func TestAssemblePropagatesSettlementError(t *testing.T) {
	sv := &fakeSettlementView{err: ferrors.New(ferrors.Transport, "boom")}
	a := New(sv, &fakeRollupView{}, 1)
	_, err := a.Assemble(context.Background(), fraudtypes.GlobalIndex(7))
	require.True(t, ferrors.Is(err, ferrors.Transport))
}
