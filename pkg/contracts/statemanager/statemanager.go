// This file is a trimmed hand binding around a per-dispute state manager
// contract: the transitioner's scratchpad for proven and committed account
// and storage state (spec.md §4.6.1, §4.6.2(d)).
package statemanager

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

const stateManagerABIJSON = `[
	{"constant":true,"inputs":[{"name":"_address","type":"address"}],"name":"hasAccount","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"},{"name":"_key","type":"bytes32"}],"name":"hasStorageSlot","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"}],"name":"wasAccountChanged","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"}],"name":"wasAccountCommitted","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"},{"name":"_key","type":"bytes32"}],"name":"wasStorageSlotChanged","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"},{"name":"_key","type":"bytes32"}],"name":"wasStorageSlotCommitted","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"}],"name":"getAccountNonce","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"}],"name":"getAccountBalance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"}],"name":"getAccountStorageRoot","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"}],"name":"getAccountCodeHash","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_address","type":"address"},{"name":"_key","type":"bytes32"}],"name":"getStorageSlotValue","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"getTotalUncommittedAccounts","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"getTotalUncommittedStorageSlots","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Account is the state manager's canonical post-execution account record,
// the four fields RLP-encoded into the local state trie (spec.md §4.6.2(d),
// §6).
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
}

// StateManager is a low-level binding around a state manager contract
// instance.
type StateManager struct {
	raw *bind.BoundContract
}

// New binds StateManager to an already deployed contract.
func New(address common.Address, backend bind.ContractBackend) (*StateManager, error) {
	parsed, err := abi.JSON(strings.NewReader(stateManagerABIJSON))
	if err != nil {
		return nil, err
	}
	return &StateManager{raw: bind.NewBoundContract(address, parsed, backend, backend, backend)}, nil
}

func (s *StateManager) callBool(opts *bind.CallOpts, method string, params ...interface{}) (bool, error) {
	var out []interface{}
	if err := s.raw.Call(opts, &out, method, params...); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (s *StateManager) callBigInt(opts *bind.CallOpts, method string, params ...interface{}) (*big.Int, error) {
	var out []interface{}
	if err := s.raw.Call(opts, &out, method, params...); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (s *StateManager) callHash(opts *bind.CallOpts, method string, params ...interface{}) (common.Hash, error) {
	var out []interface{}
	if err := s.raw.Call(opts, &out, method, params...); err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

// HasAccount reports whether an account has already been proven.
func (s *StateManager) HasAccount(opts *bind.CallOpts, address common.Address) (bool, error) {
	return s.callBool(opts, "hasAccount", address)
}

// HasStorageSlot reports whether a storage slot has already been proven.
func (s *StateManager) HasStorageSlot(opts *bind.CallOpts, address common.Address, key common.Hash) (bool, error) {
	return s.callBool(opts, "hasStorageSlot", address, key)
}

// WasAccountChanged reports whether applyTransaction changed this account.
func (s *StateManager) WasAccountChanged(opts *bind.CallOpts, address common.Address) (bool, error) {
	return s.callBool(opts, "wasAccountChanged", address)
}

// WasAccountCommitted reports whether this account's post-execution state
// has already been committed by some prover.
func (s *StateManager) WasAccountCommitted(opts *bind.CallOpts, address common.Address) (bool, error) {
	return s.callBool(opts, "wasAccountCommitted", address)
}

// WasStorageSlotChanged is the storage-slot analogue of WasAccountChanged.
func (s *StateManager) WasStorageSlotChanged(opts *bind.CallOpts, address common.Address, key common.Hash) (bool, error) {
	return s.callBool(opts, "wasStorageSlotChanged", address, key)
}

// WasStorageSlotCommitted is the storage-slot analogue of WasAccountCommitted.
func (s *StateManager) WasStorageSlotCommitted(opts *bind.CallOpts, address common.Address, key common.Hash) (bool, error) {
	return s.callBool(opts, "wasStorageSlotCommitted", address, key)
}

// GetAccount reads an account's current {nonce, balance, storageRoot,
// codeHash}, the canonical RLP shape the phase driver puts into the local
// state trie (spec.md §4.6.2(d.2)).
func (s *StateManager) GetAccount(opts *bind.CallOpts, address common.Address) (Account, error) {
	nonce, err := s.callBigInt(opts, "getAccountNonce", address)
	if err != nil {
		return Account{}, err
	}
	balance, err := s.callBigInt(opts, "getAccountBalance", address)
	if err != nil {
		return Account{}, err
	}
	storageRoot, err := s.callHash(opts, "getAccountStorageRoot", address)
	if err != nil {
		return Account{}, err
	}
	codeHash, err := s.callHash(opts, "getAccountCodeHash", address)
	if err != nil {
		return Account{}, err
	}
	return Account{Nonce: nonce.Uint64(), Balance: balance, StorageRoot: storageRoot, CodeHash: codeHash}, nil
}

// GetStorageSlotValue reads a storage slot's current post-execution value.
func (s *StateManager) GetStorageSlotValue(opts *bind.CallOpts, address common.Address, key common.Hash) (common.Hash, error) {
	return s.callHash(opts, "getStorageSlotValue", address, key)
}

// GetTotalUncommittedAccounts returns the account sub-loop's termination
// counter.
func (s *StateManager) GetTotalUncommittedAccounts(opts *bind.CallOpts) (*big.Int, error) {
	return s.callBigInt(opts, "getTotalUncommittedAccounts")
}

// GetTotalUncommittedStorageSlots returns the storage sub-loop's
// termination counter.
func (s *StateManager) GetTotalUncommittedStorageSlots(opts *bind.CallOpts) (*big.Int, error) {
	return s.callBigInt(opts, "getTotalUncommittedStorageSlots")
}
