// Package witness implements C4: assembling one dispute's self-contained
// FraudProofData bundle from the settlement-chain and rollup-node views
// (spec.md §4.4). The phase driver never talks to C1/C2 directly once it
// holds a bundle; everything it needs to drive the dispute to completion is
// already in fraudtypes.FraudProofData.
package witness

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/mpt"
)

// settlementView is the subset of l1view.View the assembler needs.
type settlementView interface {
	GetStateRootBatchProof(ctx context.Context, index fraudtypes.GlobalIndex) (fraudtypes.StateRootBatchProof, error)
	GetTransactionBatchProof(ctx context.Context, index fraudtypes.GlobalIndex) (fraudtypes.TransactionBatchProof, error)
}

// rollupView is the subset of l2view.View the assembler needs.
type rollupView interface {
	GetStateDiffProof(ctx context.Context, rollupBlock uint64) (fraudtypes.StateDiffProof, error)
}

// Assembler builds FraudProofData bundles for suspect indices the scanner
// reports.
type Assembler struct {
	l1          settlementView
	l2          rollupView
	blockOffset uint64
	builder     *mpt.Builder
}

// New binds an Assembler to its collaborators. blockOffset is
// proverconfig.Config.BlockOffset, translating a global transaction index
// into the rollup block that produced it.
func New(l1 settlementView, l2 rollupView, blockOffset uint64) *Assembler {
	return &Assembler{l1: l1, l2: l2, blockOffset: blockOffset, builder: mpt.NewBuilder()}
}

// Assemble runs the six steps of spec.md §4.4 for suspect index i. All four
// RPCs must succeed; if any fails, the partial result is discarded and the
// error is returned as-is (already typed by the originating view).
func (a *Assembler) Assemble(ctx context.Context, i fraudtypes.GlobalIndex) (*fraudtypes.FraudProofData, error) {
	if i == 0 {
		return nil, ferrors.New(ferrors.Inconsistent, "suspect index 0 has no predecessor state root")
	}

	pre, err := a.l1.GetStateRootBatchProof(ctx, i-1)
	if err != nil {
		return nil, err
	}
	post, err := a.l1.GetStateRootBatchProof(ctx, i)
	if err != nil {
		return nil, err
	}
	txp, err := a.l1.GetTransactionBatchProof(ctx, i)
	if err != nil {
		return nil, err
	}
	sdp, err := a.l2.GetStateDiffProof(ctx, uint64(i)+a.blockOffset-1)
	if err != nil {
		return nil, err
	}

	stateTrie, err := a.builder.Build(pre.StateRoot, accountProofLists(sdp)...)
	if err != nil {
		return nil, err
	}

	storageTries := make(map[common.Address]fraudtypes.Trie, len(sdp.AccountStateProofs))
	for _, acc := range sdp.AccountStateProofs {
		storageTrie, err := a.builder.Build(acc.StorageRoot, storageProofLists(acc)...)
		if err != nil {
			return nil, err
		}
		storageTries[acc.Address] = storageTrie
	}

	return &fraudtypes.FraudProofData{
		Index:        i,
		Pre:          pre,
		Post:         post,
		TxProof:      txp,
		Diff:         sdp,
		StateTrie:    stateTrie,
		StorageTries: storageTries,
	}, nil
}

func accountProofLists(sdp fraudtypes.StateDiffProof) [][][]byte {
	lists := make([][][]byte, len(sdp.AccountStateProofs))
	for i, a := range sdp.AccountStateProofs {
		lists[i] = a.AccountProof
	}
	return lists
}

func storageProofLists(a fraudtypes.AccountStateProof) [][][]byte {
	lists := make([][][]byte, len(a.StorageProof))
	for i, s := range a.StorageProof {
		lists[i] = s.Proof
	}
	return lists
}
