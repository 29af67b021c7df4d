package phasedriver

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/fraudverifier"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/transitioner"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
)

// toVerifierStateRootBatchProof converts the witness-level proof into the
// ABI-tuple shape fraudverifier's binding expects.
func toVerifierStateRootBatchProof(p fraudtypes.StateRootBatchProof) fraudverifier.StateRootBatchProof {
	return fraudverifier.StateRootBatchProof{
		StateRoot: p.StateRoot,
		StateRootBatchHeader: fraudverifier.StateRootBatchHeader{
			BatchIndex:        p.StateRootBatchHeader.BatchIndex,
			BatchRoot:         p.StateRootBatchHeader.BatchRoot,
			BatchSize:         p.StateRootBatchHeader.BatchSize,
			PrevTotalElements: p.StateRootBatchHeader.PrevTotalElements,
			ExtraData:         p.StateRootBatchHeader.ExtraData,
		},
		StateRootProof: fraudverifier.MerkleInclusionProof{
			Index:    p.StateRootProof.Index,
			Siblings: p.StateRootProof.Siblings,
		},
	}
}

// toVerifierTransactionBatchProof is the transaction-chain analogue of
// toVerifierStateRootBatchProof.
func toVerifierTransactionBatchProof(p fraudtypes.TransactionBatchProof) fraudverifier.TransactionBatchProof {
	return fraudverifier.TransactionBatchProof{
		Transaction: fraudverifier.OVMTransaction{
			Timestamp:     p.Transaction.Timestamp,
			BlockNumber:   p.Transaction.BlockNumber,
			L1QueueOrigin: p.Transaction.L1QueueOrigin,
			L1TxOrigin:    p.Transaction.L1TxOrigin,
			Entrypoint:    p.Transaction.Entrypoint,
			GasLimit:      p.Transaction.GasLimit,
			Data:          p.Transaction.Data,
		},
		TransactionChainElement: fraudverifier.TransactionChainElement{
			IsSequenced: p.TransactionChainElement.IsSequenced,
			QueueIndex:  p.TransactionChainElement.QueueIndex,
			Timestamp:   p.TransactionChainElement.Timestamp,
			BlockNumber: p.TransactionChainElement.BlockNumber,
		},
		TransactionBatchHeader: fraudverifier.StateRootBatchHeader{
			BatchIndex:        p.TransactionBatchHeader.BatchIndex,
			BatchRoot:         p.TransactionBatchHeader.BatchRoot,
			BatchSize:         p.TransactionBatchHeader.BatchSize,
			PrevTotalElements: p.TransactionBatchHeader.PrevTotalElements,
			ExtraData:         p.TransactionBatchHeader.ExtraData,
		},
		TransactionProof: fraudverifier.MerkleInclusionProof{
			Index:    p.TransactionProof.Index,
			Siblings: p.TransactionProof.Siblings,
		},
	}
}

// toTransitionerTransaction converts the witness-level OVM transaction into
// the ABI-tuple shape applyTransaction expects.
func toTransitionerTransaction(tx fraudtypes.OVMTransaction) transitioner.OVMTransaction {
	return transitioner.OVMTransaction{
		Timestamp:     tx.Timestamp,
		BlockNumber:   tx.BlockNumber,
		L1QueueOrigin: tx.L1QueueOrigin,
		L1TxOrigin:    tx.L1TxOrigin,
		Entrypoint:    tx.Entrypoint,
		GasLimit:      tx.GasLimit,
		Data:          tx.Data,
	}
}

// hashTransaction derives the txHash half of a transitioner's
// (preStateRoot, txHash) key. spec.md §4.6.1 names this as hash(txp.transaction)
// without fixing an encoding; this keys it by keccak256 over the transaction's
// canonical RLP, the same wire encoding §6 already fixes for every other
// on-chain-submitted structure.
func hashTransaction(tx fraudtypes.OVMTransaction) (common.Hash, error) {
	buf, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(buf), nil
}
