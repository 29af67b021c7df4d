package phasedriver

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/statemanager"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/transitioner"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
)

func TestIsRaceMessageMatchesPhaseGuard(t *testing.T) {
	require.True(t, isRaceMessage("execution reverted: Function must be called during the correct phase"))
}

func TestIsRaceMessageMatchesEachCommitInvalidationMessage(t *testing.T) {
	for _, m := range commitInvalidationMessages {
		require.True(t, isRaceMessage("execution reverted: "+m), "expected %q to be classified as a race", m)
	}
}

func TestIsRaceMessageMatchesEachFinalizeRaceMessage(t *testing.T) {
	for _, m := range finalizeRaceMessages {
		require.True(t, isRaceMessage("execution reverted: "+m), "expected %q to be classified as a race", m)
	}
}

func TestIsRaceMessageRejectsUnrelatedRevert(t *testing.T) {
	require.False(t, isRaceMessage("execution reverted: insufficient balance"))
}

func TestHashTransactionDeterministic(t *testing.T) {
	tx := fraudtypes.OVMTransaction{
		Timestamp:     big.NewInt(1),
		BlockNumber:   big.NewInt(2),
		L1QueueOrigin: 0,
		L1TxOrigin:    common.HexToAddress("0x1"),
		Entrypoint:    common.HexToAddress("0x2"),
		GasLimit:      big.NewInt(21000),
		Data:          []byte{0xde, 0xad},
	}
	a, err := hashTransaction(tx)
	require.NoError(t, err)
	b, err := hashTransaction(tx)
	require.NoError(t, err)
	require.Equal(t, a, b)

	tx.Data = []byte{0xbe, 0xef}
	c, err := hashTransaction(tx)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestToVerifierConversionsPreserveFields(t *testing.T) {
	p := fraudtypes.StateRootBatchProof{
		StateRoot: common.HexToHash("0xaa"),
		StateRootBatchHeader: fraudtypes.StateRootBatchHeader{
			BatchIndex:        big.NewInt(1),
			BatchRoot:         common.HexToHash("0xbb"),
			BatchSize:         big.NewInt(2),
			PrevTotalElements: big.NewInt(3),
			ExtraData:         []byte("extra"),
		},
		StateRootProof: fraudtypes.MerkleInclusionProof{
			Index:    big.NewInt(4),
			Siblings: [][32]byte{common.HexToHash("0xcc")},
		},
	}
	converted := toVerifierStateRootBatchProof(p)
	require.Equal(t, [32]byte(p.StateRoot), converted.StateRoot)
	require.Equal(t, p.StateRootBatchHeader.BatchIndex, converted.StateRootBatchHeader.BatchIndex)
	require.Equal(t, [32]byte(p.StateRootBatchHeader.BatchRoot), converted.StateRootBatchHeader.BatchRoot)
	require.Equal(t, p.StateRootProof.Index, converted.StateRootProof.Index)
	require.Equal(t, p.StateRootProof.Siblings, converted.StateRootProof.Siblings)
}

func TestResolveCodeCarrierUsesSentinelForEmptyCode(t *testing.T) {
	d := &Driver{
		codeView:    fakeCodeView{code: nil},
		blockOffset: 1,
	}
	bundle := &fraudtypes.FraudProofData{Index: 5}
	addr, err := d.resolveCodeCarrier(context.Background(), bundle, common.HexToAddress("0x1"))
	require.NoError(t, err)
	require.Equal(t, SentinelCodeCarrier, addr)
}

type fakeCodeView struct {
	code []byte
	err  error
}

func (f fakeCodeView) GetCode(ctx context.Context, address common.Address, rollupBlock uint64) ([]byte, error) {
	return f.code, f.err
}

// fakeTransitioner backs the transitionerContract interface with
// test-supplied return values, letting accountSubLoopIteration/
// storageSubLoopIteration run against scripted commit races without a live
// chain (spec.md §8 scenarios 3 and 6).
type fakeTransitioner struct {
	phase    transitioner.Phase
	phaseErr error

	accountCommitted    []transitioner.AccountCommitted
	accountCommittedErr error
	storageCommitted    []transitioner.StorageSlotCommitted
	storageCommittedErr error

	commitContractStateErr error
	commitStorageSlotErr   error
}

func (f *fakeTransitioner) Phase(opts *bind.CallOpts) (transitioner.Phase, error) {
	return f.phase, f.phaseErr
}

func (f *fakeTransitioner) StateManager(opts *bind.CallOpts) (common.Address, error) {
	panic("not needed by these tests")
}

func (f *fakeTransitioner) ProveContractState(opts *bind.TransactOpts, address, codeContractAddress common.Address, stateTrieWitness []byte) (*types.Transaction, error) {
	panic("not needed by these tests")
}

func (f *fakeTransitioner) ProveStorageSlot(opts *bind.TransactOpts, address common.Address, key common.Hash, storageTrieWitness []byte) (*types.Transaction, error) {
	panic("not needed by these tests")
}

func (f *fakeTransitioner) ApplyTransaction(opts *bind.TransactOpts, tx transitioner.OVMTransaction) (*types.Transaction, error) {
	panic("not needed by these tests")
}

func (f *fakeTransitioner) CommitContractState(opts *bind.TransactOpts, address common.Address, stateTrieWitness []byte) (*types.Transaction, error) {
	if f.commitContractStateErr != nil {
		return nil, f.commitContractStateErr
	}
	return types.NewTransaction(0, address, nil, 0, nil, nil), nil
}

func (f *fakeTransitioner) CommitStorageSlot(opts *bind.TransactOpts, address common.Address, key common.Hash, storageTrieWitness []byte) (*types.Transaction, error) {
	if f.commitStorageSlotErr != nil {
		return nil, f.commitStorageSlotErr
	}
	return types.NewTransaction(0, address, nil, 0, nil, nil), nil
}

func (f *fakeTransitioner) CompleteTransition(opts *bind.TransactOpts) (*types.Transaction, error) {
	panic("not needed by these tests")
}

func (f *fakeTransitioner) FilterAccountCommitted(ctx context.Context) ([]transitioner.AccountCommitted, error) {
	return f.accountCommitted, f.accountCommittedErr
}

func (f *fakeTransitioner) FilterStorageSlotCommitted(ctx context.Context) ([]transitioner.StorageSlotCommitted, error) {
	return f.storageCommitted, f.storageCommittedErr
}

// fakeStateManager backs the stateManagerContract interface.
type fakeStateManager struct {
	uncommittedAccounts int64
	uncommittedSlots    int64

	changed    map[common.Address]bool
	committed  map[common.Address]bool
	hasAccount map[common.Address]bool

	slotChanged   map[common.Hash]bool
	slotCommitted map[common.Hash]bool
}

func (f *fakeStateManager) HasAccount(opts *bind.CallOpts, address common.Address) (bool, error) {
	return f.hasAccount[address], nil
}

func (f *fakeStateManager) WasAccountChanged(opts *bind.CallOpts, address common.Address) (bool, error) {
	return f.changed[address], nil
}

func (f *fakeStateManager) WasAccountCommitted(opts *bind.CallOpts, address common.Address) (bool, error) {
	return f.committed[address], nil
}

func (f *fakeStateManager) WasStorageSlotChanged(opts *bind.CallOpts, address common.Address, key common.Hash) (bool, error) {
	return f.slotChanged[key], nil
}

func (f *fakeStateManager) WasStorageSlotCommitted(opts *bind.CallOpts, address common.Address, key common.Hash) (bool, error) {
	return f.slotCommitted[key], nil
}

func (f *fakeStateManager) GetAccount(opts *bind.CallOpts, address common.Address) (statemanager.Account, error) {
	return statemanager.Account{}, nil
}

func (f *fakeStateManager) GetStorageSlotValue(opts *bind.CallOpts, address common.Address, key common.Hash) (common.Hash, error) {
	return common.Hash{}, nil
}

func (f *fakeStateManager) GetTotalUncommittedAccounts(opts *bind.CallOpts) (*big.Int, error) {
	return big.NewInt(f.uncommittedAccounts), nil
}

func (f *fakeStateManager) GetTotalUncommittedStorageSlots(opts *bind.CallOpts) (*big.Int, error) {
	return big.NewInt(f.uncommittedSlots), nil
}

// fakeTrie backs fraudtypes.Trie; Put is a no-op and Prove returns a fixed
// (possibly empty) node list, enough for mpt.EncodeProof to wrap.
type fakeTrie struct{}

func (fakeTrie) Root() common.Hash                 { return common.Hash{} }
func (fakeTrie) Put(key, value []byte) error        { return nil }
func (fakeTrie) Prove(key []byte) ([][]byte, error) { return nil, nil }

// TestAccountSubLoopIterationAbsorbsCommitInvalidationRace covers spec.md §8
// scenario 3: a peer's commit invalidates this driver's in-flight
// commitContractState proof. The sub-loop must treat the revert as a race
// (not an error) and report "not yet done" so runPostExecution's loop
// retries on the next iteration.
func TestAccountSubLoopIterationAbsorbsCommitInvalidationRace(t *testing.T) {
	target := common.HexToAddress("0x1")
	d := &Driver{auth: &bind.TransactOpts{}}
	bundle := &fraudtypes.FraudProofData{
		Diff:      fraudtypes.StateDiffProof{AccountStateProofs: []fraudtypes.AccountStateProof{{Address: target}}},
		StateTrie: fakeTrie{},
	}
	trans := &fakeTransitioner{
		commitContractStateErr: errors.New("execution reverted: already been proven"),
	}
	stateManager := &fakeStateManager{
		uncommittedAccounts: 1,
		changed:             map[common.Address]bool{target: true},
		committed:           map[common.Address]bool{target: false},
	}

	done, err := d.accountSubLoopIteration(context.Background(), bundle, trans, stateManager)
	require.NoError(t, err)
	require.False(t, done)
}

// TestAccountSubLoopIterationInconsistentWhenNoTargetFound covers spec.md §8
// scenario 6: the commit counter claims outstanding work but no account in
// the bundle is actually changed-and-uncommitted — a corrupt witness.
func TestAccountSubLoopIterationInconsistentWhenNoTargetFound(t *testing.T) {
	target := common.HexToAddress("0x1")
	d := &Driver{auth: &bind.TransactOpts{}}
	bundle := &fraudtypes.FraudProofData{
		Diff:      fraudtypes.StateDiffProof{AccountStateProofs: []fraudtypes.AccountStateProof{{Address: target}}},
		StateTrie: fakeTrie{},
	}
	trans := &fakeTransitioner{}
	stateManager := &fakeStateManager{
		uncommittedAccounts: 1,
		changed:             map[common.Address]bool{target: false},
	}

	done, err := d.accountSubLoopIteration(context.Background(), bundle, trans, stateManager)
	require.Error(t, err)
	require.True(t, ferrors.Is(err, ferrors.Inconsistent))
	require.False(t, done)
}

// TestStorageSubLoopIterationAbsorbsCommitInvalidationRace is the storage
// analogue of TestAccountSubLoopIterationAbsorbsCommitInvalidationRace.
func TestStorageSubLoopIterationAbsorbsCommitInvalidationRace(t *testing.T) {
	account := common.HexToAddress("0x1")
	key := common.HexToHash("0x2")
	d := &Driver{auth: &bind.TransactOpts{}}
	bundle := &fraudtypes.FraudProofData{
		Diff: fraudtypes.StateDiffProof{AccountStateProofs: []fraudtypes.AccountStateProof{
			{Address: account, StorageProof: []fraudtypes.StorageStateProof{{Key: key}}},
		}},
		StorageTries: map[common.Address]fraudtypes.Trie{account: fakeTrie{}},
	}
	trans := &fakeTransitioner{
		commitStorageSlotErr: errors.New("execution reverted: Invalid root hash"),
	}
	stateManager := &fakeStateManager{
		uncommittedSlots: 1,
		slotChanged:      map[common.Hash]bool{key: true},
		slotCommitted:    map[common.Hash]bool{key: false},
	}

	done, err := d.storageSubLoopIteration(context.Background(), bundle, trans, stateManager)
	require.NoError(t, err)
	require.False(t, done)
}

// TestStorageSubLoopIterationInconsistentWhenNoTargetFound is the storage
// analogue of TestAccountSubLoopIterationInconsistentWhenNoTargetFound.
func TestStorageSubLoopIterationInconsistentWhenNoTargetFound(t *testing.T) {
	account := common.HexToAddress("0x1")
	key := common.HexToHash("0x2")
	d := &Driver{auth: &bind.TransactOpts{}}
	bundle := &fraudtypes.FraudProofData{
		Diff: fraudtypes.StateDiffProof{AccountStateProofs: []fraudtypes.AccountStateProof{
			{Address: account, StorageProof: []fraudtypes.StorageStateProof{{Key: key}}},
		}},
		StorageTries: map[common.Address]fraudtypes.Trie{account: fakeTrie{}},
	}
	trans := &fakeTransitioner{}
	stateManager := &fakeStateManager{
		uncommittedSlots: 1,
		slotChanged:      map[common.Hash]bool{key: false},
	}

	done, err := d.storageSubLoopIteration(context.Background(), bundle, trans, stateManager)
	require.Error(t, err)
	require.True(t, ferrors.Is(err, ferrors.Inconsistent))
	require.False(t, done)
}
