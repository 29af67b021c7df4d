// Command fraudprover runs the fraud-proof driver loop: it watches the
// settlement chain and rollup node for a state-root disagreement and, on a
// hit, drives the on-chain dispute through to finalization (spec.md §4.8).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"

	"github.com/offchainlabs/nitro/util/headerreader"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/fraudverifier"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/deployer"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/driverloop"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/l1view"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/l2view"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/phasedriver"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/proverconfig"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/rollupcontracts"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/rpcdial"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/scanner"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/witness"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file loaded", "err", err)
	}

	logger := log.New("component", "main")

	if err := run(logger); err != nil {
		logger.Crit("fraudprover exited", "err", err)
		os.Exit(1)
	}
}

func run(logger log.Logger) error {
	config, err := proverconfig.Parse(os.Args[1:])
	if err != nil {
		return ferrors.Wrap(ferrors.Fatal, "parsing configuration", err)
	}
	if err := config.Validate(); err != nil {
		return ferrors.Wrap(ferrors.Fatal, "validating configuration", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	l1Client, err := rpcdial.Eth(ctx, config.L1RpcUrl)
	if err != nil {
		return ferrors.Wrap(ferrors.Fatal, "dialing settlement chain RPC", err)
	}

	parentChainReader, err := headerreader.New(ctx, l1Client, func() *headerreader.Config { return &headerreader.DefaultConfig })
	if err != nil {
		return ferrors.Wrap(ferrors.Fatal, "constructing settlement chain header reader", err)
	}
	parentChainReader.Start(ctx)
	defer parentChainReader.StopAndWait()

	privateKey, err := crypto.HexToECDSA(config.L1WalletKey)
	if err != nil {
		return ferrors.Wrap(ferrors.Fatal, "parsing submitter private key", err)
	}
	chainID, err := l1Client.ChainID(ctx)
	if err != nil {
		return ferrors.Wrap(ferrors.Fatal, "fetching settlement chain id", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return ferrors.Wrap(ferrors.Fatal, "constructing submitter transactor", err)
	}

	addrs, err := rollupcontracts.Resolve(ctx, common.HexToAddress(config.AddressManagerAddr), l1Client)
	if err != nil {
		return err
	}
	logger.Info("resolved settlement-chain contracts",
		"stateCommitmentChain", addrs.StateCommitmentChain,
		"canonicalTransactionChain", addrs.CanonicalTransactionChain,
		"fraudVerifier", addrs.FraudVerifier,
	)

	l1, err := l1view.New(addrs.StateCommitmentChain, addrs.CanonicalTransactionChain, l1Client)
	if err != nil {
		return err
	}
	l2, err := l2view.New(ctx, config.L2RpcUrl)
	if err != nil {
		return err
	}

	verifier, err := fraudverifier.New(addrs.FraudVerifier, l1Client)
	if err != nil {
		return ferrors.Wrap(ferrors.Fatal, "binding fraud verifier", err)
	}

	codeDeployer := deployer.New(parentChainReader, auth, config.DeployGasLimit)
	driver := phasedriver.New(verifier, l1Client, parentChainReader, auth, l2, codeDeployer, config.BlockOffset, config.DeployGasLimit, config.RunGasLimit)
	assembler := witness.New(l1, l2, config.BlockOffset)
	scan := scanner.New(l1, l2, config.BlockOffset)

	loop := driverloop.New(scan, assembler, driver, config.PollingInterval, fraudtypes.GlobalIndex(config.FromIndex))
	loop.Start(ctx)

	<-ctx.Done()
	loop.StopAndWait()
	return nil
}
