// This file is a trimmed hand binding around the settlement-chain canonical
// transaction chain contract, the transaction-chain analogue of
// pkg/contracts/commitmentchain (spec.md §4.1, §6).
package transactionchain

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

const transactionChainABIJSON = `[
	{"constant":true,"inputs":[],"name":"getTotalElements","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_batchIndex","type":"uint256"}],"name":"getTransactionBatchLeaves","outputs":[{"components":[
		{"components":[
			{"name":"timestamp","type":"uint256"},
			{"name":"blockNumber","type":"uint256"},
			{"name":"l1QueueOrigin","type":"uint8"},
			{"name":"l1TxOrigin","type":"address"},
			{"name":"entrypoint","type":"address"},
			{"name":"gasLimit","type":"uint256"},
			{"name":"data","type":"bytes"}
		],"name":"transaction","type":"tuple"},
		{"components":[
			{"name":"isSequenced","type":"bool"},
			{"name":"queueIndex","type":"uint256"},
			{"name":"timestamp","type":"uint256"},
			{"name":"blockNumber","type":"uint256"}
		],"name":"chainElement","type":"tuple"}
	],"name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"_batchIndex","type":"uint256"},
		{"indexed":false,"name":"_batchRoot","type":"bytes32"},
		{"indexed":false,"name":"_batchSize","type":"uint256"},
		{"indexed":false,"name":"_prevTotalElements","type":"uint256"},
		{"indexed":false,"name":"_extraData","type":"bytes"}
	],"name":"TransactionBatchAppended","type":"event"}
]`

// TransactionBatchAppended mirrors spec.md's StateRootBatchHeader, reused
// verbatim for the transaction chain's batch-append events.
type TransactionBatchAppended struct {
	BatchIndex        *big.Int
	BatchRoot         common.Hash
	BatchSize         *big.Int
	PrevTotalElements *big.Int
	ExtraData         []byte
	Raw               types.Log
}

// CanonicalTransactionChain is a low-level binding around the canonical
// transaction chain contract.
type CanonicalTransactionChain struct {
	address  common.Address
	raw      *bind.BoundContract
	parsed   abi.ABI
	filterer bind.ContractFilterer
}

// New binds CanonicalTransactionChain to an already deployed contract.
func New(address common.Address, backend bind.ContractBackend) (*CanonicalTransactionChain, error) {
	parsed, err := abi.JSON(strings.NewReader(transactionChainABIJSON))
	if err != nil {
		return nil, err
	}
	return &CanonicalTransactionChain{
		address:  address,
		raw:      bind.NewBoundContract(address, parsed, backend, backend, backend),
		parsed:   parsed,
		filterer: backend,
	}, nil
}

// OVMTransaction mirrors fraudtypes.OVMTransaction in the ABI-tuple shape.
type OVMTransaction struct {
	Timestamp     *big.Int
	BlockNumber   *big.Int
	L1QueueOrigin uint8
	L1TxOrigin    common.Address
	Entrypoint    common.Address
	GasLimit      *big.Int
	Data          []byte
}

// TransactionChainElement mirrors fraudtypes.TransactionChainElement.
type TransactionChainElement struct {
	IsSequenced bool
	QueueIndex  *big.Int
	Timestamp   *big.Int
	BlockNumber *big.Int
}

// TransactionBatchLeaf pairs a leaf's transaction payload with the chain
// element that was actually hashed into the batch tree.
type TransactionBatchLeaf struct {
	Transaction  OVMTransaction
	ChainElement TransactionChainElement
}

// GetTransactionBatchLeaves returns every leaf committed in the batch at
// batchIndex, in tree order.
func (c *CanonicalTransactionChain) GetTransactionBatchLeaves(opts *bind.CallOpts, batchIndex *big.Int) ([]TransactionBatchLeaf, error) {
	var out []interface{}
	if err := c.raw.Call(opts, &out, "getTransactionBatchLeaves", batchIndex); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]TransactionBatchLeaf)).(*[]TransactionBatchLeaf), nil
}

// GetTotalElements returns the number of transactions appended so far.
func (c *CanonicalTransactionChain) GetTotalElements(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := c.raw.Call(opts, &out, "getTotalElements"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// FilterTransactionBatchAppended returns every TransactionBatchAppended
// event in ascending block order.
func (c *CanonicalTransactionChain) FilterTransactionBatchAppended(ctx context.Context) ([]TransactionBatchAppended, error) {
	logs, err := c.filterer.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{c.parsed.Events["TransactionBatchAppended"].ID}},
	})
	if err != nil {
		return nil, err
	}
	events := make([]TransactionBatchAppended, 0, len(logs))
	for _, l := range logs {
		var ev TransactionBatchAppended
		if err := c.parsed.UnpackIntoInterface(&ev, "TransactionBatchAppended", l.Data); err != nil {
			return nil, err
		}
		ev.BatchIndex = new(big.Int).SetBytes(l.Topics[1].Bytes())
		ev.Raw = l
		events = append(events, ev)
	}
	return events, nil
}
