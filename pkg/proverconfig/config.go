// Package proverconfig loads the fraud-proof driver's configuration from CLI
// flags and environment, following the koanf/pflag pattern the rest of the
// Nitro config tree uses for its flag sets.
package proverconfig

import (
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/offchainlabs/nitro/cmd/util/confighelpers"
)

// Config enumerates every configuration field named in spec.md §6.
type Config struct {
	L2RpcUrl    string `koanf:"l2-rpc-url"`
	L1RpcUrl    string `koanf:"l1-rpc-url"`
	L1WalletKey string `koanf:"l1-wallet-key"`

	AddressManagerAddr string `koanf:"address-manager-address"`

	DeployGasLimit  uint64        `koanf:"deploy-gas-limit"`
	RunGasLimit     uint64        `koanf:"run-gas-limit"`
	PollingInterval time.Duration `koanf:"polling-interval"`
	BlockOffset     uint64        `koanf:"block-offset"`
	FromIndex       uint64        `koanf:"from-index"`
}

// Defaults mirror spec.md §6 exactly.
var Defaults = Config{
	DeployGasLimit:  4_000_000,
	RunGasLimit:     95_000_000,
	PollingInterval: 5 * time.Second,
	BlockOffset:     1,
	FromIndex:       0,
}

func addOptions(f *flag.FlagSet) {
	f.String("l2-rpc-url", Defaults.L2RpcUrl, "rollup node RPC endpoint")
	f.String("l1-rpc-url", Defaults.L1RpcUrl, "settlement chain RPC endpoint")
	f.String("l1-wallet-key", Defaults.L1WalletKey, "hex-encoded private key for the submitter identity")
	f.String("address-manager-address", Defaults.AddressManagerAddr, "settlement-chain address of the address-manager contract")
	f.Uint64("deploy-gas-limit", Defaults.DeployGasLimit, "gas limit for commit/deploy submissions")
	f.Uint64("run-gas-limit", Defaults.RunGasLimit, "gas limit for applyTransaction")
	f.Duration("polling-interval", Defaults.PollingInterval, "time between scanner polls")
	f.Uint64("block-offset", Defaults.BlockOffset, "offset between global transaction index and rollup block number")
	f.Uint64("from-index", Defaults.FromIndex, "initial scanner cursor")
}

// Parse loads a Config from the given argv, with flags taking precedence
// over any values confighelpers.BeginCommonParse pulls from a config file or
// environment.
func Parse(args []string) (*Config, error) {
	f := flag.NewFlagSet("fraudprover", flag.ContinueOnError)
	addOptions(f)

	k, err := confighelpers.BeginCommonParse(f, args)
	if err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	config := Defaults
	if err := confighelpers.EndCommonParse(k, &config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.L1RpcUrl == "" {
		return fmt.Errorf("l1-rpc-url is required")
	}
	if c.L2RpcUrl == "" {
		return fmt.Errorf("l2-rpc-url is required")
	}
	if c.L1WalletKey == "" {
		return fmt.Errorf("l1-wallet-key is required")
	}
	if c.AddressManagerAddr == "" {
		return fmt.Errorf("address-manager-address is required")
	}
	return nil
}
