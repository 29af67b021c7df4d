// Package phasedriver implements C6, the core of the fraud-proof driver: the
// single-threaded state machine that drives one dispute's state transitioner
// from PRE_EXECUTION through POST_EXECUTION to COMPLETE, then finalizes it on
// the verifier (spec.md §4.6).
package phasedriver

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/nitro/util/headerreader"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/fraudverifier"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/statemanager"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/transitioner"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/deployer"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/mpt"
)

// SentinelCodeCarrier is submitted in place of a deployed code carrier for an
// account whose rollup code is empty (an externally-owned account or a
// not-yet-deployed contract) — testable scenario 4 of spec.md §8.
var SentinelCodeCarrier = common.HexToAddress("0x0000c0De0000C0DE0000c0de0000C0DE0000c0De")

// codeView is the subset of l2view.View the phase driver needs to decide
// whether an account needs a deployed code carrier.
type codeView interface {
	GetCode(ctx context.Context, address common.Address, rollupBlock uint64) ([]byte, error)
}

// transitionerContract is the subset of *transitioner.Transitioner the phase
// driver needs, broken out so tests can drive the three-phase state machine
// against a fake rather than a live chain (spec.md §8 scenarios 2, 3, 6).
type transitionerContract interface {
	Phase(opts *bind.CallOpts) (transitioner.Phase, error)
	StateManager(opts *bind.CallOpts) (common.Address, error)
	ProveContractState(opts *bind.TransactOpts, address, codeContractAddress common.Address, stateTrieWitness []byte) (*types.Transaction, error)
	ProveStorageSlot(opts *bind.TransactOpts, address common.Address, key common.Hash, storageTrieWitness []byte) (*types.Transaction, error)
	ApplyTransaction(opts *bind.TransactOpts, tx transitioner.OVMTransaction) (*types.Transaction, error)
	CommitContractState(opts *bind.TransactOpts, address common.Address, stateTrieWitness []byte) (*types.Transaction, error)
	CommitStorageSlot(opts *bind.TransactOpts, address common.Address, key common.Hash, storageTrieWitness []byte) (*types.Transaction, error)
	CompleteTransition(opts *bind.TransactOpts) (*types.Transaction, error)
	FilterAccountCommitted(ctx context.Context) ([]transitioner.AccountCommitted, error)
	FilterStorageSlotCommitted(ctx context.Context) ([]transitioner.StorageSlotCommitted, error)
}

// stateManagerContract is the subset of *statemanager.StateManager the phase
// driver needs.
type stateManagerContract interface {
	HasAccount(opts *bind.CallOpts, address common.Address) (bool, error)
	WasAccountChanged(opts *bind.CallOpts, address common.Address) (bool, error)
	WasAccountCommitted(opts *bind.CallOpts, address common.Address) (bool, error)
	WasStorageSlotChanged(opts *bind.CallOpts, address common.Address, key common.Hash) (bool, error)
	WasStorageSlotCommitted(opts *bind.CallOpts, address common.Address, key common.Hash) (bool, error)
	GetAccount(opts *bind.CallOpts, address common.Address) (statemanager.Account, error)
	GetStorageSlotValue(opts *bind.CallOpts, address common.Address, key common.Hash) (common.Hash, error)
	GetTotalUncommittedAccounts(opts *bind.CallOpts) (*big.Int, error)
	GetTotalUncommittedStorageSlots(opts *bind.CallOpts) (*big.Int, error)
}

// fraudVerifierContract is the subset of *fraudverifier.FraudVerifier the
// phase driver needs.
type fraudVerifierContract interface {
	GetStateTransitioner(opts *bind.CallOpts, preStateRoot, txHash [32]byte) (common.Address, error)
	InitializeFraudVerification(opts *bind.TransactOpts, preStateRootProof fraudverifier.StateRootBatchProof, transactionProof fraudverifier.TransactionBatchProof) (*types.Transaction, error)
	FinalizeFraudVerification(opts *bind.TransactOpts, preStateRootProof, postStateRootProof fraudverifier.StateRootBatchProof, txHash [32]byte) (*types.Transaction, error)
}

// Driver drives one dispute at a time; nothing it holds is shared across
// disputes except its collaborators (spec.md §5).
type Driver struct {
	verifier          fraudVerifierContract
	backend           bind.ContractBackend
	parentChainReader *headerreader.HeaderReader
	auth              *bind.TransactOpts
	codeView          codeView
	codeDeployer      *deployer.Deployer
	blockOffset       uint64
	deployGasLimit    uint64
	runGasLimit       uint64
	log               log.Logger

	// newTransitioner/newStateManager bind the per-dispute contract instances
	// Run resolves addresses for. Factored out (rather than calling
	// transitioner.New/statemanager.New directly) so tests can substitute
	// fakes without a live chain.
	newTransitioner func(address common.Address, backend bind.ContractBackend) (transitionerContract, error)
	newStateManager func(address common.Address, backend bind.ContractBackend) (stateManagerContract, error)
}

// New binds a Driver to its collaborators. deployGasLimit/runGasLimit are
// proverconfig.Config's DeployGasLimit/RunGasLimit.
func New(
	verifier *fraudverifier.FraudVerifier,
	backend bind.ContractBackend,
	parentChainReader *headerreader.HeaderReader,
	auth *bind.TransactOpts,
	codeView codeView,
	codeDeployer *deployer.Deployer,
	blockOffset, deployGasLimit, runGasLimit uint64,
) *Driver {
	return &Driver{
		verifier:          verifier,
		backend:           backend,
		parentChainReader: parentChainReader,
		auth:              auth,
		codeView:          codeView,
		codeDeployer:      codeDeployer,
		blockOffset:       blockOffset,
		deployGasLimit:    deployGasLimit,
		runGasLimit:       runGasLimit,
		log:               log.New("component", "phasedriver"),
		newTransitioner: func(address common.Address, backend bind.ContractBackend) (transitionerContract, error) {
			return transitioner.New(address, backend)
		},
		newStateManager: func(address common.Address, backend bind.ContractBackend) (stateManagerContract, error) {
			return statemanager.New(address, backend)
		},
	}
}

// transactOpts returns a fresh TransactOpts clone carrying ctx and gasLimit,
// so each submission can set its own gas limit without mutating the shared
// auth.
func (d *Driver) transactOpts(ctx context.Context, gasLimit uint64) *bind.TransactOpts {
	opts := *d.auth
	opts.Context = ctx
	opts.GasLimit = gasLimit
	return &opts
}

// Run drives bundle's dispute through every phase the transitioner is
// currently in, then returns the cursor value the driver loop should advance
// to (spec.md §4.6.2(f)). A non-nil error means the caller must not advance
// the cursor: the same dispute is retried on the next poll.
func (d *Driver) Run(ctx context.Context, bundle *fraudtypes.FraudProofData) (fraudtypes.GlobalIndex, error) {
	txHash, err := hashTransaction(bundle.TxProof.Transaction)
	if err != nil {
		return 0, ferrors.Wrap(ferrors.Fatal, "hashing disputed transaction", err)
	}
	preStateRoot := bundle.Pre.StateRoot

	transitionerAddr, err := d.initialize(ctx, bundle, preStateRoot, txHash)
	if err != nil {
		return 0, err
	}

	trans, err := d.newTransitioner(transitionerAddr, d.backend)
	if err != nil {
		return 0, ferrors.Wrap(ferrors.Fatal, "binding state transitioner", err)
	}
	stateManagerAddr, err := trans.StateManager(&bind.CallOpts{Context: ctx})
	if err != nil {
		return 0, ferrors.Wrap(ferrors.Transport, "fetching state manager address", err)
	}
	stateManager, err := d.newStateManager(stateManagerAddr, d.backend)
	if err != nil {
		return 0, ferrors.Wrap(ferrors.Fatal, "binding state manager", err)
	}

	if err := d.runPreExecution(ctx, bundle, trans, stateManager); err != nil {
		return 0, err
	}
	if err := d.runPostExecution(ctx, bundle, trans, stateManager); err != nil {
		return 0, err
	}
	if err := d.runComplete(ctx, bundle, trans, txHash); err != nil {
		return 0, err
	}

	return fraudtypes.GlobalIndex(bundle.Pre.StateRootBatchHeader.PrevTotalElements.Uint64()), nil
}

// initialize implements spec.md §4.6.2(a): create the transitioner instance
// for this dispute if nobody has, then resolve its address either way.
func (d *Driver) initialize(ctx context.Context, bundle *fraudtypes.FraudProofData, preStateRoot, txHash common.Hash) (common.Address, error) {
	addr, err := d.verifier.GetStateTransitioner(&bind.CallOpts{Context: ctx}, preStateRoot, txHash)
	if err != nil {
		return common.Address{}, ferrors.Wrap(ferrors.Transport, "fetching state transitioner", err)
	}
	if addr != (common.Address{}) {
		return addr, nil
	}

	tx, err := d.verifier.InitializeFraudVerification(
		d.transactOpts(ctx, d.deployGasLimit),
		toVerifierStateRootBatchProof(bundle.Pre),
		toVerifierTransactionBatchProof(bundle.TxProof),
	)
	if submitErr := d.submit(ctx, tx, err); submitErr != nil && !ferrors.Is(submitErr, ferrors.Race) {
		return common.Address{}, submitErr
	}

	addr, err = d.verifier.GetStateTransitioner(&bind.CallOpts{Context: ctx}, preStateRoot, txHash)
	if err != nil {
		return common.Address{}, ferrors.Wrap(ferrors.Transport, "re-fetching state transitioner", err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, ferrors.New(ferrors.Inconsistent, "transitioner still unresolved after initialization")
	}
	return addr, nil
}

// runPreExecution implements spec.md §4.6.2(c). A phase-guard revert on
// applyTransaction (or any of the proofs) is swallowed and control falls
// through to POST_EXECUTION, exactly as the spec prescribes.
func (d *Driver) runPreExecution(ctx context.Context, bundle *fraudtypes.FraudProofData, trans transitionerContract, stateManager stateManagerContract) error {
	phase, err := trans.Phase(&bind.CallOpts{Context: ctx})
	if err != nil {
		return ferrors.Wrap(ferrors.Transport, "fetching transitioner phase", err)
	}
	if phase != transitioner.PreExecution {
		return nil
	}

	for _, acc := range bundle.Diff.AccountStateProofs {
		has, err := stateManager.HasAccount(&bind.CallOpts{Context: ctx}, acc.Address)
		if err != nil {
			return ferrors.Wrap(ferrors.Transport, "checking hasAccount", err)
		}
		if has {
			continue
		}

		carrier, err := d.resolveCodeCarrier(ctx, bundle, acc.Address)
		if err != nil {
			return err
		}

		proof, err := mpt.EncodeProof(acc.AccountProof)
		if err != nil {
			return err
		}
		tx, err := trans.ProveContractState(d.transactOpts(ctx, d.deployGasLimit), acc.Address, carrier, proof)
		if submitErr := d.submit(ctx, tx, err); submitErr != nil && !ferrors.Is(submitErr, ferrors.Race) {
			return submitErr
		}

		for _, slot := range acc.StorageProof {
			storageProof, err := mpt.EncodeProof(slot.Proof)
			if err != nil {
				return err
			}
			tx, err := trans.ProveStorageSlot(d.transactOpts(ctx, d.deployGasLimit), acc.Address, slot.Key, storageProof)
			if submitErr := d.submit(ctx, tx, err); submitErr != nil && !ferrors.Is(submitErr, ferrors.Race) {
				return submitErr
			}
		}
	}

	tx, err := trans.ApplyTransaction(d.transactOpts(ctx, d.runGasLimit), toTransitionerTransaction(bundle.TxProof.Transaction))
	if submitErr := d.submit(ctx, tx, err); submitErr != nil && !ferrors.Is(submitErr, ferrors.Race) {
		return submitErr
	}
	return nil
}

// resolveCodeCarrier implements the code-carrier half of spec.md §4.6.2(c):
// deploy the rollup's runtime bytecode through C5 if the account has any,
// otherwise use the fixed sentinel carrier (scenario 4 of spec.md §8).
func (d *Driver) resolveCodeCarrier(ctx context.Context, bundle *fraudtypes.FraudProofData, address common.Address) (common.Address, error) {
	rollupBlock := uint64(bundle.Index) + d.blockOffset - 1
	code, err := d.codeView.GetCode(ctx, address, rollupBlock)
	if err != nil {
		return common.Address{}, err
	}
	if len(code) == 0 {
		return SentinelCodeCarrier, nil
	}
	return d.codeDeployer.Deploy(ctx, code)
}

// runPostExecution implements spec.md §4.6.2(d): two interleaved sub-loops,
// each re-reading the committed-event log on every iteration (spec.md §5),
// until their uncommitted counters both reach zero.
func (d *Driver) runPostExecution(ctx context.Context, bundle *fraudtypes.FraudProofData, trans transitionerContract, stateManager stateManagerContract) error {
	phase, err := trans.Phase(&bind.CallOpts{Context: ctx})
	if err != nil {
		return ferrors.Wrap(ferrors.Transport, "fetching transitioner phase", err)
	}
	if phase != transitioner.PostExecution {
		return nil
	}

	for {
		accountsDone, err := d.accountSubLoopIteration(ctx, bundle, trans, stateManager)
		if err != nil {
			return err
		}
		storageDone, err := d.storageSubLoopIteration(ctx, bundle, trans, stateManager)
		if err != nil {
			return err
		}
		if accountsDone && storageDone {
			break
		}
	}

	tx, err := trans.CompleteTransition(d.transactOpts(ctx, d.deployGasLimit))
	if submitErr := d.submit(ctx, tx, err); submitErr != nil && !ferrors.Is(submitErr, ferrors.Race) {
		return submitErr
	}
	return nil
}

// accountSubLoopIteration runs one iteration of spec.md §4.6.2(d)'s account
// sub-loop, reporting whether the counter has already reached zero.
func (d *Driver) accountSubLoopIteration(ctx context.Context, bundle *fraudtypes.FraudProofData, trans transitionerContract, stateManager stateManagerContract) (bool, error) {
	opts := &bind.CallOpts{Context: ctx}
	uncommitted, err := stateManager.GetTotalUncommittedAccounts(opts)
	if err != nil {
		return false, ferrors.Wrap(ferrors.Transport, "fetching uncommitted account count", err)
	}
	if uncommitted.Sign() == 0 {
		return true, nil
	}

	committed, err := trans.FilterAccountCommitted(ctx)
	if err != nil {
		return false, ferrors.Wrap(ferrors.Transport, "filtering AccountCommitted", err)
	}
	committedAddrs := make(map[common.Address]bool, len(committed))
	for _, ev := range committed {
		committedAddrs[ev.Address] = true
	}

	for _, acc := range bundle.Diff.AccountStateProofs {
		if !committedAddrs[acc.Address] {
			continue
		}
		account, err := stateManager.GetAccount(opts, acc.Address)
		if err != nil {
			return false, ferrors.Wrap(ferrors.Transport, "fetching committed account state", err)
		}
		encoded, err := mpt.EncodeAccount(account.Nonce, account.Balance, account.StorageRoot, account.CodeHash)
		if err != nil {
			return false, err
		}
		if err := bundle.StateTrie.Put(crypto.Keccak256(acc.Address.Bytes()), encoded); err != nil {
			return false, err
		}
	}

	var target *fraudtypes.AccountStateProof
	for i := range bundle.Diff.AccountStateProofs {
		acc := &bundle.Diff.AccountStateProofs[i]
		changed, err := stateManager.WasAccountChanged(opts, acc.Address)
		if err != nil {
			return false, ferrors.Wrap(ferrors.Transport, "checking wasAccountChanged", err)
		}
		if !changed {
			continue
		}
		alreadyCommitted, err := stateManager.WasAccountCommitted(opts, acc.Address)
		if err != nil {
			return false, ferrors.Wrap(ferrors.Transport, "checking wasAccountCommitted", err)
		}
		if !alreadyCommitted {
			target = acc
			break
		}
	}
	if target == nil {
		return false, ferrors.New(ferrors.Inconsistent, "no uncommitted changed account despite positive counter")
	}

	proof, err := bundle.StateTrie.Prove(crypto.Keccak256(target.Address.Bytes()))
	if err != nil {
		return false, err
	}
	encodedProof, err := mpt.EncodeProof(proof)
	if err != nil {
		return false, err
	}
	tx, err := trans.CommitContractState(d.transactOpts(ctx, d.deployGasLimit), target.Address, encodedProof)
	if submitErr := d.submit(ctx, tx, err); submitErr != nil && !ferrors.Is(submitErr, ferrors.Race) {
		return false, submitErr
	}
	return false, nil
}

// storageSubLoopIteration is the storage-slot analogue of
// accountSubLoopIteration, keyed on (address, slotKey).
func (d *Driver) storageSubLoopIteration(ctx context.Context, bundle *fraudtypes.FraudProofData, trans transitionerContract, stateManager stateManagerContract) (bool, error) {
	opts := &bind.CallOpts{Context: ctx}
	uncommitted, err := stateManager.GetTotalUncommittedStorageSlots(opts)
	if err != nil {
		return false, ferrors.Wrap(ferrors.Transport, "fetching uncommitted storage slot count", err)
	}
	if uncommitted.Sign() == 0 {
		return true, nil
	}

	committed, err := trans.FilterStorageSlotCommitted(ctx)
	if err != nil {
		return false, ferrors.Wrap(ferrors.Transport, "filtering StorageSlotCommitted", err)
	}
	type slotKey struct {
		address common.Address
		key     common.Hash
	}
	committedSlots := make(map[slotKey]bool, len(committed))
	for _, ev := range committed {
		committedSlots[slotKey{ev.Address, ev.Key}] = true
	}

	for _, acc := range bundle.Diff.AccountStateProofs {
		storageTrie, ok := bundle.StorageTries[acc.Address]
		if !ok {
			continue
		}
		for _, slot := range acc.StorageProof {
			if !committedSlots[slotKey{acc.Address, slot.Key}] {
				continue
			}
			value, err := stateManager.GetStorageSlotValue(opts, acc.Address, slot.Key)
			if err != nil {
				return false, ferrors.Wrap(ferrors.Transport, "fetching committed storage value", err)
			}
			encoded, err := mpt.EncodeStorageValue(value)
			if err != nil {
				return false, err
			}
			if err := storageTrie.Put(crypto.Keccak256(slot.Key.Bytes()), encoded); err != nil {
				return false, err
			}
		}
	}

	var targetAddr common.Address
	var targetSlot *fraudtypes.StorageStateProof
	for _, acc := range bundle.Diff.AccountStateProofs {
		for i := range acc.StorageProof {
			slot := &acc.StorageProof[i]
			changed, err := stateManager.WasStorageSlotChanged(opts, acc.Address, slot.Key)
			if err != nil {
				return false, ferrors.Wrap(ferrors.Transport, "checking wasStorageSlotChanged", err)
			}
			if !changed {
				continue
			}
			alreadyCommitted, err := stateManager.WasStorageSlotCommitted(opts, acc.Address, slot.Key)
			if err != nil {
				return false, ferrors.Wrap(ferrors.Transport, "checking wasStorageSlotCommitted", err)
			}
			if !alreadyCommitted {
				targetAddr = acc.Address
				targetSlot = slot
				break
			}
		}
		if targetSlot != nil {
			break
		}
	}
	if targetSlot == nil {
		return false, ferrors.New(ferrors.Inconsistent, "no uncommitted changed storage slot despite positive counter")
	}

	storageTrie, ok := bundle.StorageTries[targetAddr]
	if !ok {
		return false, ferrors.New(ferrors.Inconsistent, "no local storage trie for account with changed slot")
	}
	proof, err := storageTrie.Prove(crypto.Keccak256(targetSlot.Key.Bytes()))
	if err != nil {
		return false, err
	}
	encodedProof, err := mpt.EncodeProof(proof)
	if err != nil {
		return false, err
	}
	tx, err := trans.CommitStorageSlot(d.transactOpts(ctx, d.deployGasLimit), targetAddr, targetSlot.Key, encodedProof)
	if submitErr := d.submit(ctx, tx, err); submitErr != nil && !ferrors.Is(submitErr, ferrors.Race) {
		return false, submitErr
	}
	return false, nil
}

// runComplete implements spec.md §4.6.2(e).
func (d *Driver) runComplete(ctx context.Context, bundle *fraudtypes.FraudProofData, trans transitionerContract, txHash common.Hash) error {
	phase, err := trans.Phase(&bind.CallOpts{Context: ctx})
	if err != nil {
		return ferrors.Wrap(ferrors.Transport, "fetching transitioner phase", err)
	}
	if phase != transitioner.Complete {
		return nil
	}

	tx, err := d.verifier.FinalizeFraudVerification(
		d.transactOpts(ctx, d.deployGasLimit),
		toVerifierStateRootBatchProof(bundle.Pre),
		toVerifierStateRootBatchProof(bundle.Post),
		txHash,
	)
	if submitErr := d.submit(ctx, tx, err); submitErr != nil && !ferrors.Is(submitErr, ferrors.Race) {
		return submitErr
	}
	return nil
}
