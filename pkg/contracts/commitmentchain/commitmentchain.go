// This file is a trimmed hand binding around the settlement-chain state
// commitment chain contract, in the shape go-ethereum's abigen produces,
// limited to the methods and events the prover core needs (spec.md §4.1, §6).
package commitmentchain

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

const commitmentChainABIJSON = `[
	{"constant":true,"inputs":[],"name":"getTotalBatches","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_batchIndex","type":"uint256"}],"name":"getStateRootBatchLeaves","outputs":[{"name":"","type":"bytes32[]"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"_batchIndex","type":"uint256"},
		{"indexed":false,"name":"_batchRoot","type":"bytes32"},
		{"indexed":false,"name":"_batchSize","type":"uint256"},
		{"indexed":false,"name":"_prevTotalElements","type":"uint256"},
		{"indexed":false,"name":"_extraData","type":"bytes"}
	],"name":"StateBatchAppended","type":"event"}
]`

// StateBatchAppended mirrors the StateBatchAppended event; its fields are
// exactly spec.md's StateRootBatchHeader.
type StateBatchAppended struct {
	BatchIndex        *big.Int
	BatchRoot         common.Hash
	BatchSize         *big.Int
	PrevTotalElements *big.Int
	ExtraData         []byte
	Raw               types.Log
}

// StateCommitmentChain is a low-level binding around the state commitment
// chain contract.
type StateCommitmentChain struct {
	address  common.Address
	raw      *bind.BoundContract
	parsed   abi.ABI
	filterer bind.ContractFilterer
}

// New binds StateCommitmentChain to an already deployed contract.
func New(address common.Address, backend bind.ContractBackend) (*StateCommitmentChain, error) {
	parsed, err := abi.JSON(strings.NewReader(commitmentChainABIJSON))
	if err != nil {
		return nil, err
	}
	return &StateCommitmentChain{
		address:  address,
		raw:      bind.NewBoundContract(address, parsed, backend, backend, backend),
		parsed:   parsed,
		filterer: backend,
	}, nil
}

// GetTotalBatches returns the number of batches appended so far.
func (c *StateCommitmentChain) GetTotalBatches(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := c.raw.Call(opts, &out, "getTotalBatches"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// GetStateRootBatchLeaves returns every leaf (state root) committed in the
// batch at batchIndex, in the order the canonical batch Merkle tree was
// built from, so pkg/merkle can rederive the sibling path for any index
// within the batch.
func (c *StateCommitmentChain) GetStateRootBatchLeaves(opts *bind.CallOpts, batchIndex *big.Int) ([]common.Hash, error) {
	var out []interface{}
	if err := c.raw.Call(opts, &out, "getStateRootBatchLeaves", batchIndex); err != nil {
		return nil, err
	}
	raw := abi.ConvertType(out[0], new([][32]byte)).(*[][32]byte)
	leaves := make([]common.Hash, len(*raw))
	for i, b := range *raw {
		leaves[i] = common.Hash(b)
	}
	return leaves, nil
}

// FilterStateBatchAppended returns every StateBatchAppended event in
// ascending block order, the derivation policy spec.md §4.1 scans linearly
// to locate the batch enclosing a given global index.
func (c *StateCommitmentChain) FilterStateBatchAppended(ctx context.Context) ([]StateBatchAppended, error) {
	logs, err := c.filterer.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{c.parsed.Events["StateBatchAppended"].ID}},
	})
	if err != nil {
		return nil, err
	}
	events := make([]StateBatchAppended, 0, len(logs))
	for _, l := range logs {
		var ev StateBatchAppended
		if err := c.parsed.UnpackIntoInterface(&ev, "StateBatchAppended", l.Data); err != nil {
			return nil, err
		}
		ev.BatchIndex = new(big.Int).SetBytes(l.Topics[1].Bytes())
		ev.Raw = l
		events = append(events, ev)
	}
	return events, nil
}
