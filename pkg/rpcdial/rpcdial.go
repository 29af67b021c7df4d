// Package rpcdial dials a JSON-RPC endpoint with the bounded retry policy
// spec.md §4.8 requires for connection bootstrap: up to maxDialAttempts
// attempts, spaced dialRetryDelay apart, before giving up. The retry shape
// (a generic until-succeeds loop selecting on ctx.Done() vs. time.After
// between attempts) follows nitro's util/retry.UntilSucceeds and
// util/rpcclient.RpcClient.Start, bounded to a fixed attempt count instead
// of retrying forever or until a node.Node loopback connects: rpcclient
// itself is built around an in-process *node.Node/JWT-auth connection,
// which doesn't fit a plain external L1/L2 RPC URL.
package rpcdial

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
)

const maxDialAttempts = 10

// dialRetryDelay is a var, not a const, so tests can shrink it.
var dialRetryDelay = time.Second

// Eth dials url as an *ethclient.Client, retrying on failure.
func Eth(ctx context.Context, url string) (*ethclient.Client, error) {
	return untilConnected(ctx, url, func(ctx context.Context) (*ethclient.Client, error) {
		return ethclient.DialContext(ctx, url)
	})
}

// RPC dials url as a raw *rpc.Client, retrying on failure.
func RPC(ctx context.Context, url string) (*rpc.Client, error) {
	return untilConnected(ctx, url, func(ctx context.Context) (*rpc.Client, error) {
		return rpc.DialContext(ctx, url)
	})
}

func untilConnected[T any](ctx context.Context, url string, dial func(context.Context) (T, error)) (T, error) {
	var lastErr error
	for attempt := 1; attempt <= maxDialAttempts; attempt++ {
		client, err := dial(ctx)
		if err == nil {
			return client, nil
		}
		lastErr = err
		log.Warn("rpc dial failed", "url", url, "attempt", attempt, "maxAttempts", maxDialAttempts, "err", err)
		if attempt == maxDialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return zeroVal[T](), ferrors.Wrap(ferrors.Transport, "dial canceled waiting to retry "+url, ctx.Err())
		case <-time.After(dialRetryDelay):
		}
	}
	return zeroVal[T](), ferrors.Wrap(ferrors.Transport, fmt.Sprintf("dialing %s after %d attempts", url, maxDialAttempts), lastErr)
}

func zeroVal[T any]() T {
	var result T
	return result
}
