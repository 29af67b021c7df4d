// Package deployer implements C5: submitting a contract-creation
// transaction that carries a code payload verbatim as on-chain runtime
// bytecode (spec.md §4.5). The fraud-proof driver uses this during
// PRE_EXECUTION to give the StateTransitioner an address it can call
// EXTCODECOPY against for code the driver only holds off-chain.
package deployer

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/offchainlabs/nitro/util/headerreader"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
)

// codeCarrierInitPrefix is the 13-byte init code spec.md §4.5 prescribes to
// make an arbitrary runtime payload deployable: PUSH1 0x0D CODESIZE SUB
// DUP1 PUSH1 0x0D PUSH1 0x00 CODECOPY PUSH1 0x00 RETURN. It copies
// everything past itself into memory and returns it as the new account's
// code, so the deployed bytecode is exactly the carrier's payload.
var codeCarrierInitPrefix = common.Hex2Bytes("600D380380600D6000396000f3")

// Deployer submits code-carrier deployments on the settlement chain.
type Deployer struct {
	parentChainReader *headerreader.HeaderReader
	auth              *bind.TransactOpts
	gasLimit          uint64
}

// New builds a Deployer that signs with auth and waits for receipts
// through parentChainReader, the same parent-chain wait primitive
// deploy.DeployLegacyOnParentChain uses for its own contract deployments.
func New(parentChainReader *headerreader.HeaderReader, auth *bind.TransactOpts, gasLimit uint64) *Deployer {
	return &Deployer{parentChainReader: parentChainReader, auth: auth, gasLimit: gasLimit}
}

// emptyConstructorABI has no inputs, so bind.DeployContract appends nothing
// past the bytecode it is given; it exists only to satisfy DeployContract's
// signature for a constructor-less payload.
var emptyConstructorABI = abi.ABI{}

// Deploy submits codeCarrierInitPrefix+code as a contract-creation
// transaction and blocks until it is mined, returning the resulting
// account's address. A revert or a receipt the chain never confirms
// surfaces as ferrors.Submission (spec.md §4.6.3 treats deploy failures
// the same as any other submission failure).
func (d *Deployer) Deploy(ctx context.Context, code []byte) (common.Address, error) {
	initCode := make([]byte, 0, len(codeCarrierInitPrefix)+len(code))
	initCode = append(initCode, codeCarrierInitPrefix...)
	initCode = append(initCode, code...)

	opts := *d.auth
	opts.Context = ctx
	opts.GasLimit = d.gasLimit

	addr, tx, _, err := bind.DeployContract(&opts, emptyConstructorABI, initCode, d.parentChainReader.Client())
	if err != nil {
		return common.Address{}, ferrors.Wrap(ferrors.Submission, "submitting code carrier deployment", err)
	}

	receipt, err := d.parentChainReader.WaitForTxApproval(ctx, tx)
	if err != nil {
		return common.Address{}, ferrors.Wrap(ferrors.Submission, "waiting for code carrier deployment", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Address{}, ferrors.New(ferrors.Submission, "code carrier deployment reverted")
	}
	if receipt.ContractAddress == (common.Address{}) {
		return addr, nil
	}
	return receipt.ContractAddress, nil
}
