// This file is a trimmed hand binding around a per-dispute state
// transitioner contract: it re-executes the disputed transaction in a
// sandboxed environment, reading witnessed state and writing resulting
// state, gated by the three-phase protocol of spec.md §4.6.1.
package transitioner

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Phase mirrors the transitioner's on-chain phase enum (spec.md §4.6.1).
type Phase uint8

const (
	PreExecution Phase = iota
	PostExecution
	Complete
)

const transitionerABIJSON = `[
	{"constant":true,"inputs":[],"name":"phase","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"stateManager","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[
		{"name":"_address","type":"address"},
		{"name":"_codeContractAddress","type":"address"},
		{"name":"_stateTrieWitness","type":"bytes"}
	],"name":"proveContractState","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[
		{"name":"_address","type":"address"},
		{"name":"_key","type":"bytes32"},
		{"name":"_storageTrieWitness","type":"bytes"}
	],"name":"proveStorageSlot","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[
		{"components":[
			{"name":"timestamp","type":"uint256"},
			{"name":"blockNumber","type":"uint256"},
			{"name":"l1QueueOrigin","type":"uint8"},
			{"name":"l1TxOrigin","type":"address"},
			{"name":"entrypoint","type":"address"},
			{"name":"gasLimit","type":"uint256"},
			{"name":"data","type":"bytes"}
		],"name":"_transaction","type":"tuple"}
	],"name":"applyTransaction","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[
		{"name":"_address","type":"address"},
		{"name":"_stateTrieWitness","type":"bytes"}
	],"name":"commitContractState","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[
		{"name":"_address","type":"address"},
		{"name":"_key","type":"bytes32"},
		{"name":"_storageTrieWitness","type":"bytes"}
	],"name":"commitStorageSlot","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"completeTransition","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"_address","type":"address"}],"name":"AccountCommitted","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"_address","type":"address"},{"indexed":true,"name":"_key","type":"bytes32"}],"name":"StorageSlotCommitted","type":"event"}
]`

// OVMTransaction is the ABI-tuple shape applyTransaction expects.
type OVMTransaction struct {
	Timestamp     *big.Int
	BlockNumber   *big.Int
	L1QueueOrigin uint8
	L1TxOrigin    common.Address
	Entrypoint    common.Address
	GasLimit      *big.Int
	Data          []byte
}

// AccountCommitted mirrors the AccountCommitted event.
type AccountCommitted struct {
	Address common.Address
	Raw     types.Log
}

// StorageSlotCommitted mirrors the StorageSlotCommitted event.
type StorageSlotCommitted struct {
	Address common.Address
	Key     common.Hash
	Raw     types.Log
}

// Transitioner is a low-level binding around a state transitioner contract
// instance.
type Transitioner struct {
	address  common.Address
	raw      *bind.BoundContract
	parsed   abi.ABI
	filterer bind.ContractFilterer
}

// New binds Transitioner to an already deployed contract.
func New(address common.Address, backend bind.ContractBackend) (*Transitioner, error) {
	parsed, err := abi.JSON(strings.NewReader(transitionerABIJSON))
	if err != nil {
		return nil, err
	}
	return &Transitioner{
		address:  address,
		raw:      bind.NewBoundContract(address, parsed, backend, backend, backend),
		parsed:   parsed,
		filterer: backend,
	}, nil
}

func (t *Transitioner) Address() common.Address { return t.address }

// Phase returns the transitioner's current phase.
func (t *Transitioner) Phase(opts *bind.CallOpts) (Phase, error) {
	var out []interface{}
	if err := t.raw.Call(opts, &out, "phase"); err != nil {
		return 0, err
	}
	return Phase(*abi.ConvertType(out[0], new(uint8)).(*uint8)), nil
}

// StateManager returns the address of this transitioner's state manager.
func (t *Transitioner) StateManager(opts *bind.CallOpts) (common.Address, error) {
	var out []interface{}
	if err := t.raw.Call(opts, &out, "stateManager"); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// ProveContractState submits an account's inclusion proof against the
// pre-state root, carried at codeContractAddress (spec.md §4.6.2(c)).
func (t *Transitioner) ProveContractState(opts *bind.TransactOpts, address, codeContractAddress common.Address, stateTrieWitness []byte) (*types.Transaction, error) {
	return t.raw.Transact(opts, "proveContractState", address, codeContractAddress, stateTrieWitness)
}

// ProveStorageSlot submits a storage slot's inclusion proof against the
// pre-state root.
func (t *Transitioner) ProveStorageSlot(opts *bind.TransactOpts, address common.Address, key common.Hash, storageTrieWitness []byte) (*types.Transaction, error) {
	return t.raw.Transact(opts, "proveStorageSlot", address, key, storageTrieWitness)
}

// ApplyTransaction replays the disputed transaction, advancing the
// transitioner from PRE_EXECUTION to POST_EXECUTION.
func (t *Transitioner) ApplyTransaction(opts *bind.TransactOpts, tx OVMTransaction) (*types.Transaction, error) {
	return t.raw.Transact(opts, "applyTransaction", tx)
}

// CommitContractState commits a changed account's post-execution state,
// proven against the submitter's current view of the working root.
func (t *Transitioner) CommitContractState(opts *bind.TransactOpts, address common.Address, stateTrieWitness []byte) (*types.Transaction, error) {
	return t.raw.Transact(opts, "commitContractState", address, stateTrieWitness)
}

// CommitStorageSlot commits a changed storage slot's post-execution value.
func (t *Transitioner) CommitStorageSlot(opts *bind.TransactOpts, address common.Address, key common.Hash, storageTrieWitness []byte) (*types.Transaction, error) {
	return t.raw.Transact(opts, "commitStorageSlot", address, key, storageTrieWitness)
}

// CompleteTransition advances the transitioner to COMPLETE once every
// changed account and storage slot has been committed.
func (t *Transitioner) CompleteTransition(opts *bind.TransactOpts) (*types.Transaction, error) {
	return t.raw.Transact(opts, "completeTransition")
}

// FilterAccountCommitted returns every AccountCommitted event emitted by
// this transitioner instance since genesis. The phase driver re-reads this
// on every POST_EXECUTION iteration (spec.md §4.6.2(d), §5) rather than
// caching it, so that a peer's commit is observed before the next proof is
// computed.
func (t *Transitioner) FilterAccountCommitted(ctx context.Context) ([]AccountCommitted, error) {
	logs, err := t.filterer.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{t.address},
		Topics:    [][]common.Hash{{t.parsed.Events["AccountCommitted"].ID}},
	})
	if err != nil {
		return nil, err
	}
	events := make([]AccountCommitted, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) < 2 {
			continue
		}
		events = append(events, AccountCommitted{
			Address: common.BytesToAddress(l.Topics[1].Bytes()),
			Raw:     l,
		})
	}
	return events, nil
}

// FilterStorageSlotCommitted is the storage-slot analogue of
// FilterAccountCommitted.
func (t *Transitioner) FilterStorageSlotCommitted(ctx context.Context) ([]StorageSlotCommitted, error) {
	logs, err := t.filterer.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{t.address},
		Topics:    [][]common.Hash{{t.parsed.Events["StorageSlotCommitted"].ID}},
	})
	if err != nil {
		return nil, err
	}
	events := make([]StorageSlotCommitted, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) < 3 {
			continue
		}
		events = append(events, StorageSlotCommitted{
			Address: common.BytesToAddress(l.Topics[1].Bytes()),
			Key:     l.Topics[2],
			Raw:     l,
		})
	}
	return events, nil
}
