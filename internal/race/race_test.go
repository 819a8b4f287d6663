package race

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_OperationWins(t *testing.T) {
	got, err := Run(context.Background(), time.Second, "op", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestRun_OperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), time.Second, "op", func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestRun_TimerWinsAndCancelsOperation(t *testing.T) {
	released := make(chan struct{})

	start := time.Now()
	got, err := Run(context.Background(), 20*time.Millisecond, "account a@example.com", func(ctx context.Context) (int, error) {
		defer close(released)
		<-ctx.Done()
		return 7, ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, got, "loser's result is discarded")
	assert.Less(t, time.Since(start), time.Second)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "account a@example.com", te.Label)
	assert.Equal(t, 20*time.Millisecond, te.Budget)
	assert.Equal(t, "account a@example.com timed out after 20ms", err.Error())

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("operation context was not canceled after timeout")
	}
}

func TestRun_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := Run(ctx, time.Minute, "op", func(ctx context.Context) (struct{}, error) {
			<-ctx.Done()
			return struct{}{}, ctx.Err()
		})
		errCh <- err
	}()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after parent cancellation")
	}
}

func TestRun_AlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Run(ctx, time.Second, "op", func(ctx context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRun_ZeroBudgetDisablesTimer(t *testing.T) {
	got, err := Run(context.Background(), 0, "op", func(ctx context.Context) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}
