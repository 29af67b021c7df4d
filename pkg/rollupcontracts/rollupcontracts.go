// Package rollupcontracts resolves the fixed set of settlement-chain
// contract addresses the prover core needs through the on-chain
// address-manager contract, once at process startup (spec.md §6).
package rollupcontracts

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/addressmanager"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
)

const (
	stateCommitmentChainName  = "StateCommitmentChain"
	canonicalTransactionChain = "CanonicalTransactionChain"
	fraudVerifierName         = "FraudVerifier"
)

// Addresses is the fixed set of settlement-chain contract addresses the
// core resolves once and shares across every dispute (spec.md §5: the
// resolved addresses are not per-dispute state).
type Addresses struct {
	StateCommitmentChain  common.Address
	CanonicalTransactionChain common.Address
	FraudVerifier         common.Address
}

// Resolve looks up every name the core needs through addressManagerAddr's
// address-manager contract.
func Resolve(ctx context.Context, addressManagerAddr common.Address, backend bind.ContractBackend) (Addresses, error) {
	am, err := addressmanager.NewAddressManager(addressManagerAddr, backend)
	if err != nil {
		return Addresses{}, ferrors.Wrap(ferrors.Fatal, "binding address manager", err)
	}

	opts := &bind.CallOpts{Context: ctx}

	stateCommitmentChainAddr, err := am.GetAddress(opts, stateCommitmentChainName)
	if err != nil {
		return Addresses{}, ferrors.Wrap(ferrors.Transport, "resolving StateCommitmentChain", err)
	}
	canonicalTransactionChainAddr, err := am.GetAddress(opts, canonicalTransactionChain)
	if err != nil {
		return Addresses{}, ferrors.Wrap(ferrors.Transport, "resolving CanonicalTransactionChain", err)
	}
	fraudVerifierAddr, err := am.GetAddress(opts, fraudVerifierName)
	if err != nil {
		return Addresses{}, ferrors.Wrap(ferrors.Transport, "resolving FraudVerifier", err)
	}

	return Addresses{
		StateCommitmentChain:      stateCommitmentChainAddr,
		CanonicalTransactionChain: canonicalTransactionChainAddr,
		FraudVerifier:             fraudVerifierAddr,
	}, nil
}
