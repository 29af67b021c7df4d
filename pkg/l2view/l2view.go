// Package l2view is the read-only adapter over the rollup node (C2): it
// returns the rollup's state roots and state-diff proofs (pre-execution
// account and storage witnesses for a given transaction), plus the rollup's
// view of an account's code at a given block (spec.md §4.2, §6).
package l2view

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/fraudtypes"
	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/rpcdial"
)

// getStateDiffProofMethod is the non-standard rollup-node RPC extension
// spec.md §6 requires: a per-block witness covering every account and
// storage slot read or written by that block's single transaction.
const getStateDiffProofMethod = "rollup_getStateDiffProof"

// wireAccountStateProof, wireStorageStateProof and wireStateDiffProof are
// the over-the-wire shapes getStateDiffProofMethod returns; hex-encoded
// fields are decoded into fraudtypes.StateDiffProof by View.GetStateDiffProof.
type wireAccountStateProof struct {
	Address      common.Address          `json:"address"`
	Nonce        hexutil.Uint64          `json:"nonce"`
	Balance      *hexutil.Big            `json:"balance"`
	CodeHash     common.Hash             `json:"codeHash"`
	StorageRoot  common.Hash             `json:"storageRoot"`
	AccountProof []hexutil.Bytes         `json:"accountProof"`
	StorageProof []wireStorageStateProof `json:"storageProof"`
}

type wireStorageStateProof struct {
	Key   common.Hash     `json:"key"`
	Value common.Hash     `json:"value"`
	Proof []hexutil.Bytes `json:"proof"`
}

type wireStateDiffProof struct {
	Header struct {
		BatchIndex        *hexutil.Big   `json:"batchIndex"`
		BatchRoot         common.Hash    `json:"batchRoot"`
		BatchSize         *hexutil.Big   `json:"batchSize"`
		PrevTotalElements *hexutil.Big   `json:"prevTotalElements"`
		ExtraData         hexutil.Bytes  `json:"extraData"`
	} `json:"header"`
	AccountStateProofs []wireAccountStateProof `json:"accountStateProofs"`
}

// View is the rollup-node read adapter.
type View struct {
	ethClient *ethclient.Client
	rpcClient *rpc.Client
	log       log.Logger
}

// New dials the rollup node's JSON-RPC endpoint, retrying connection
// bootstrap up to 10 times with 1-second spacing before giving up
// (spec.md §4.8).
func New(ctx context.Context, rpcURL string) (*View, error) {
	ethClient, err := rpcdial.Eth(ctx, rpcURL)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.Fatal, "dialing rollup node", err)
	}
	rpcClient, err := rpcdial.RPC(ctx, rpcURL)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.Fatal, "dialing rollup node rpc", err)
	}
	return &View{ethClient: ethClient, rpcClient: rpcClient, log: log.New("component", "l2view")}, nil
}

// GetStateRoot returns the rollup's state root at rollupBlock.
func (v *View) GetStateRoot(ctx context.Context, rollupBlock uint64) (common.Hash, error) {
	header, err := v.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(rollupBlock))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return common.Hash{}, ferrors.New(ferrors.NotFound, "rollup block beyond chain tip")
		}
		return common.Hash{}, ferrors.Wrap(ferrors.Transport, "fetching rollup header", err)
	}
	return header.Root, nil
}

// GetCode returns the rollup's runtime bytecode for address at rollupBlock,
// or an empty slice for an externally-owned account.
func (v *View) GetCode(ctx context.Context, address common.Address, rollupBlock uint64) ([]byte, error) {
	code, err := v.ethClient.CodeAt(ctx, address, new(big.Int).SetUint64(rollupBlock))
	if err != nil {
		return nil, ferrors.Wrap(ferrors.Transport, "fetching rollup code", err)
	}
	return code, nil
}

// GetStateDiffProof returns the minimal witness for every account and slot
// read or written while executing rollupBlock's single transaction,
// requesting it via the rollup node's non-standard RPC extension. A node
// that lacks the extension (JSON-RPC code -32601) surfaces as a Transport
// error whose message names the missing method; ferrors has no separate
// Unsupported kind, so callers cannot tell it apart by kind alone.
func (v *View) GetStateDiffProof(ctx context.Context, rollupBlock uint64) (fraudtypes.StateDiffProof, error) {
	var wire wireStateDiffProof
	err := v.rpcClient.CallContext(ctx, &wire, getStateDiffProofMethod, fmt.Sprintf("0x%x", rollupBlock))
	if err != nil {
		if isMethodNotFound(err) {
			return fraudtypes.StateDiffProof{}, ferrors.Wrap(ferrors.Transport, "rollup node lacks "+getStateDiffProofMethod, err)
		}
		return fraudtypes.StateDiffProof{}, ferrors.Wrap(ferrors.Transport, "fetching state diff proof", err)
	}

	accountProofs := make([]fraudtypes.AccountStateProof, len(wire.AccountStateProofs))
	for i, a := range wire.AccountStateProofs {
		storageProofs := make([]fraudtypes.StorageStateProof, len(a.StorageProof))
		for j, s := range a.StorageProof {
			storageProofs[j] = fraudtypes.StorageStateProof{
				Key:   s.Key,
				Value: s.Value,
				Proof: hexBytesToBytes(s.Proof),
			}
		}
		accountProofs[i] = fraudtypes.AccountStateProof{
			Address:      a.Address,
			Nonce:        uint64(a.Nonce),
			Balance:      (*big.Int)(a.Balance),
			CodeHash:     a.CodeHash,
			StorageRoot:  a.StorageRoot,
			AccountProof: hexBytesToBytes(a.AccountProof),
			StorageProof: storageProofs,
		}
	}

	return fraudtypes.StateDiffProof{
		Header: fraudtypes.StateRootBatchHeader{
			BatchIndex:        (*big.Int)(wire.Header.BatchIndex),
			BatchRoot:         wire.Header.BatchRoot,
			BatchSize:         (*big.Int)(wire.Header.BatchSize),
			PrevTotalElements: (*big.Int)(wire.Header.PrevTotalElements),
			ExtraData:         wire.Header.ExtraData,
		},
		AccountStateProofs: accountProofs,
	}, nil
}

func hexBytesToBytes(in []hexutil.Bytes) [][]byte {
	out := make([][]byte, len(in))
	for i, b := range in {
		out[i] = b
	}
	return out
}

func isMethodNotFound(err error) bool {
	type rpcError interface {
		ErrorCode() int
	}
	var re rpcError
	if errors.As(err, &re) {
		return re.ErrorCode() == -32601
	}
	return false
}
