package retrier

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func fastRetrier(maxRetries int) *Retrier {
	return New(
		WithInitialInterval(time.Millisecond),
		WithMaxInterval(5*time.Millisecond),
		WithMaxRetries(maxRetries),
	)
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := fastRetrier(5).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDoReturnsLastErrorOnExhaustion(t *testing.T) {
	attempts := 0
	lastErr := errors.New("still broken")

	err := fastRetrier(2).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return lastErr
	})

	require.ErrorIs(t, err, lastErr)
	require.Equal(t, 3, attempts) // first attempt plus two retries
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := New(WithInitialInterval(time.Hour), WithMaxRetries(5)).Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("fail once, then wait")
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}

func TestDoWithData(t *testing.T) {
	attempts := 0
	v, err := DoWithData(fastRetrier(3), context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	require.Equal(t, 42, v)
}
