// This file is a trimmed hand binding around the settlement-chain
// address-manager contract, in the shape go-ethereum's abigen produces,
// limited to the single method the prover core needs (spec.md §6).
package addressmanager

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

const addressManagerABIJSON = `[{"constant":true,"inputs":[{"name":"_name","type":"string"}],"name":"getAddress","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

// AddressManager is a low-level binding around the address-manager contract.
type AddressManager struct {
	raw  *bind.BoundContract
	addr common.Address
}

// NewAddressManager binds AddressManager to an already deployed contract.
func NewAddressManager(address common.Address, backend bind.ContractBackend) (*AddressManager, error) {
	parsed, err := abi.JSON(strings.NewReader(addressManagerABIJSON))
	if err != nil {
		return nil, err
	}
	return &AddressManager{
		raw:  bind.NewBoundContract(address, parsed, backend, backend, backend),
		addr: address,
	}, nil
}

// Address returns the address-manager contract's own address.
func (am *AddressManager) Address() common.Address { return am.addr }

// GetAddress resolves a named settlement-chain contract, e.g.
// "StateCommitmentChain", "CanonicalTransactionChain", or "FraudVerifier".
func (am *AddressManager) GetAddress(opts *bind.CallOpts, name string) (common.Address, error) {
	var out []interface{}
	err := am.raw.Call(opts, &out, "getAddress", name)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}
