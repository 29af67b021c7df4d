package rpcdial

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/ferrors"
)

func withFastRetry(t *testing.T) {
	prev := dialRetryDelay
	dialRetryDelay = time.Millisecond
	t.Cleanup(func() { dialRetryDelay = prev })
}

func TestUntilConnectedSucceedsAfterTransientFailures(t *testing.T) {
	withFastRetry(t)

	attempts := 0
	got, err := untilConnected(context.Background(), "ws://peer", func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, ferrors.New(ferrors.Transport, "connection refused")
		}
		return 42, nil
	})

	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.Equal(t, 3, attempts)
}

func TestUntilConnectedGivesUpAfterMaxAttempts(t *testing.T) {
	withFastRetry(t)

	attempts := 0
	_, err := untilConnected(context.Background(), "ws://peer", func(ctx context.Context) (int, error) {
		attempts++
		return 0, ferrors.New(ferrors.Transport, "connection refused")
	})

	require.Error(t, err)
	require.True(t, ferrors.Is(err, ferrors.Transport))
	require.Equal(t, maxDialAttempts, attempts)
}

func TestUntilConnectedStopsOnContextCancellation(t *testing.T) {
	dialRetryDelay = time.Hour
	t.Cleanup(func() { dialRetryDelay = time.Second })

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	done := make(chan struct{})

	var err error
	go func() {
		_, err = untilConnected(ctx, "ws://peer", func(ctx context.Context) (int, error) {
			attempts++
			return 0, ferrors.New(ferrors.Transport, "connection refused")
		})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("untilConnected did not observe context cancellation")
	}

	require.Error(t, err)
	require.True(t, ferrors.Is(err, ferrors.Transport))
	require.Equal(t, 1, attempts)
}
