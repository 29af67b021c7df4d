package phasedriver

import (
	"context"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
)

// phaseGuardMessage is the revert every write-path function shares when
// called outside its required phase (spec.md §4.6.2(c), last paragraph).
const phaseGuardMessage = "Function must be called during the correct phase"

// alreadyProvenMessage is the revert proveContractState/proveStorageSlot
// raise on a re-submission once a peer has already proven the same fact.
const alreadyProvenMessage = "already been proven"

// commitInvalidationMessages are the reverts a commitContractState/
// commitStorageSlot submission can hit once a peer's commit has changed the
// on-chain working root out from under the local proof (spec.md §4.6.2(d.6)).
// alreadyProvenMessage is included: a slot or account a peer has already
// proven invalidates a stale proof the same way a root change does.
var commitInvalidationMessages = []string{
	alreadyProvenMessage,
	"invalid opcode",
	"Invalid root hash",
	"wasn't changed or has already been committed",
}

// finalizeRaceMessages are the two reverts finalizeFraudVerification raises
// once a peer has already finalized this dispute (spec.md §4.6.2(e)).
var finalizeRaceMessages = []string{
	"Invalid batch header.",
	"Index out of bounds.",
}

// raceMessages is the full set spec.md §4.6.3 treats as "made obsolete by a
// peer": the phase guard, the four commit-invalidation messages, and the two
// finalize-race messages. Any revert not in this set is re-raised.
var raceMessages = append(append([]string{phaseGuardMessage}, commitInvalidationMessages...), finalizeRaceMessages...)

func isRaceMessage(reason string) bool {
	for _, m := range raceMessages {
		if strings.Contains(reason, m) {
			return true
		}
	}
	return false
}

// revertReason re-executes tx as a call at the block it (failed to) mine in,
// to recover the revert string a plain receipt doesn't carry — the same
// technique arbnode.EnsureTxSucceeded uses to turn a bare "status failed"
// receipt into an actionable error message.
func revertReason(ctx context.Context, backend bind.ContractBackend, sender common.Address, tx *types.Transaction, blockNumber *big.Int) string {
	callMsg := ethereum.CallMsg{
		From:       sender,
		To:         tx.To(),
		Gas:        tx.Gas(),
		GasPrice:   tx.GasPrice(),
		GasFeeCap:  tx.GasFeeCap(),
		GasTipCap:  tx.GasTipCap(),
		Value:      tx.Value(),
		Data:       tx.Data(),
		AccessList: tx.AccessList(),
	}
	_, err := backend.CallContract(ctx, callMsg, blockNumber)
	if err == nil {
		return ""
	}
	return err.Error()
}

// submit waits for tx to be mined and classifies any failure. A successful
// receipt returns nil. A failed receipt is re-executed as a call to recover
// its revert reason (ferrors.Submission by default); a reason matching
// raceMessages returns ferrors.Race instead, which the caller treats as
// cooperative progress, not an error to abort the dispute over.
func (d *Driver) submit(ctx context.Context, tx *types.Transaction, err error) error {
	if err != nil {
		if isRaceMessage(err.Error()) {
			return ferrors.Wrap(ferrors.Race, "submission raced by a peer", err)
		}
		return ferrors.Wrap(ferrors.Submission, "submitting transaction", err)
	}

	receipt, err := d.parentChainReader.WaitForTxApproval(ctx, tx)
	if err != nil {
		return ferrors.Wrap(ferrors.Submission, "waiting for transaction", err)
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return nil
	}

	sender, senderErr := d.parentChainReader.Client().TransactionSender(ctx, tx, receipt.BlockHash, receipt.TransactionIndex)
	if senderErr != nil {
		sender = d.auth.From
	}
	reason := revertReason(ctx, d.parentChainReader.Client(), sender, tx, receipt.BlockNumber)
	if isRaceMessage(reason) {
		return ferrors.New(ferrors.Race, "submission raced by a peer: "+reason)
	}
	return ferrors.New(ferrors.Submission, "transaction reverted: "+reason)
}
