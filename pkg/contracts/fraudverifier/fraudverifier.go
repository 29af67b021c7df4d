// This file is a trimmed hand binding around the settlement-chain fraud
// verifier contract: it instantiates transitioners, binds them to
// (preStateRoot, txHash) pairs, and finalizes a completed transitioner by
// invalidating the fraudulent post-state-root (spec.md §4.6.1, §6).
package fraudverifier

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const fraudVerifierABIJSON = `[
	{"inputs":[
		{"components":[
			{"name":"stateRoot","type":"bytes32"},
			{"components":[
				{"name":"batchIndex","type":"uint256"},
				{"name":"batchRoot","type":"bytes32"},
				{"name":"batchSize","type":"uint256"},
				{"name":"prevTotalElements","type":"uint256"},
				{"name":"extraData","type":"bytes"}
			],"name":"stateRootBatchHeader","type":"tuple"},
			{"components":[
				{"name":"index","type":"uint256"},
				{"name":"siblings","type":"bytes32[]"}
			],"name":"stateRootProof","type":"tuple"}
		],"name":"_preStateRootProof","type":"tuple"},
		{"components":[
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
			],"name":"transactionChainElement","type":"tuple"},
			{"components":[
				{"name":"batchIndex","type":"uint256"},
				{"name":"batchRoot","type":"bytes32"},
				{"name":"batchSize","type":"uint256"},
				{"name":"prevTotalElements","type":"uint256"},
				{"name":"extraData","type":"bytes"}
			],"name":"transactionBatchHeader","type":"tuple"},
			{"components":[
				{"name":"index","type":"uint256"},
				{"name":"siblings","type":"bytes32[]"}
			],"name":"transactionProof","type":"tuple"}
		],"name":"_transactionProof","type":"tuple"}
	],"name":"initializeFraudVerification","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[
		{"components":[
			{"name":"stateRoot","type":"bytes32"},
			{"components":[
				{"name":"batchIndex","type":"uint256"},
				{"name":"batchRoot","type":"bytes32"},
				{"name":"batchSize","type":"uint256"},
				{"name":"prevTotalElements","type":"uint256"},
				{"name":"extraData","type":"bytes"}
			],"name":"stateRootBatchHeader","type":"tuple"},
			{"components":[
				{"name":"index","type":"uint256"},
				{"name":"siblings","type":"bytes32[]"}
			],"name":"stateRootProof","type":"tuple"}
		],"name":"_preStateRootProof","type":"tuple"},
		{"components":[
			{"name":"stateRoot","type":"bytes32"},
			{"components":[
				{"name":"batchIndex","type":"uint256"},
				{"name":"batchRoot","type":"bytes32"},
				{"name":"batchSize","type":"uint256"},
				{"name":"prevTotalElements","type":"uint256"},
				{"name":"extraData","type":"bytes"}
			],"name":"stateRootBatchHeader","type":"tuple"},
			{"components":[
				{"name":"index","type":"uint256"},
				{"name":"siblings","type":"bytes32[]"}
			],"name":"stateRootProof","type":"tuple"}
		],"name":"_postStateRootProof","type":"tuple"},
		{"name":"_txHash","type":"bytes32"}
	],"name":"finalizeFraudVerification","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[
		{"name":"_preStateRoot","type":"bytes32"},
		{"name":"_txHash","type":"bytes32"}
	],"name":"getStateTransitioner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

// MerkleInclusionProof mirrors fraudtypes.MerkleInclusionProof in the shape
// the ABI tuple expects.
type MerkleInclusionProof struct {
	Index    *big.Int
	Siblings [][32]byte
}

// StateRootBatchHeader mirrors fraudtypes.StateRootBatchHeader.
type StateRootBatchHeader struct {
	BatchIndex        *big.Int
	BatchRoot         [32]byte
	BatchSize         *big.Int
	PrevTotalElements *big.Int
	ExtraData         []byte
}

// StateRootBatchProof mirrors fraudtypes.StateRootBatchProof.
type StateRootBatchProof struct {
	StateRoot            [32]byte
	StateRootBatchHeader StateRootBatchHeader
	StateRootProof       MerkleInclusionProof
}

// OVMTransaction mirrors fraudtypes.OVMTransaction.
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

// TransactionBatchProof mirrors fraudtypes.TransactionBatchProof.
type TransactionBatchProof struct {
	Transaction             OVMTransaction
	TransactionChainElement TransactionChainElement
	TransactionBatchHeader  StateRootBatchHeader
	TransactionProof        MerkleInclusionProof
}

// FraudVerifier is a low-level binding around the fraud verifier contract.
type FraudVerifier struct {
	raw *bind.BoundContract
}

// New binds FraudVerifier to an already deployed contract.
func New(address common.Address, backend bind.ContractBackend) (*FraudVerifier, error) {
	parsed, err := abi.JSON(strings.NewReader(fraudVerifierABIJSON))
	if err != nil {
		return nil, err
	}
	return &FraudVerifier{raw: bind.NewBoundContract(address, parsed, backend, backend, backend)}, nil
}

// GetStateTransitioner resolves the transitioner instance for a
// (preStateRoot, txHash) pair, or the zero address if none has been
// initialized yet.
func (f *FraudVerifier) GetStateTransitioner(opts *bind.CallOpts, preStateRoot [32]byte, txHash [32]byte) (common.Address, error) {
	var out []interface{}
	if err := f.raw.Call(opts, &out, "getStateTransitioner", preStateRoot, txHash); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// InitializeFraudVerification creates the transitioner instance for this
// dispute.
func (f *FraudVerifier) InitializeFraudVerification(opts *bind.TransactOpts, preStateRootProof StateRootBatchProof, transactionProof TransactionBatchProof) (*types.Transaction, error) {
	return f.raw.Transact(opts, "initializeFraudVerification", preStateRootProof, transactionProof)
}

// FinalizeFraudVerification invalidates the fraudulent post-state-root once
// the transitioner has reached COMPLETE.
func (f *FraudVerifier) FinalizeFraudVerification(opts *bind.TransactOpts, preStateRootProof, postStateRootProof StateRootBatchProof, txHash [32]byte) (*types.Transaction, error) {
	return f.raw.Transact(opts, "finalizeFraudVerification", preStateRootProof, postStateRootProof, txHash)
}
