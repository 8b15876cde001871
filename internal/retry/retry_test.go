package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoRetriesThenSucceeds(t *testing.T) {
	p := New(0, time.Millisecond, 5*time.Millisecond, 2, 5, nil, nil)
	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDoExhaustsBudget(t *testing.T) {
	p := New(0, time.Millisecond, time.Millisecond, 2, 2, nil, nil)
	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("always fails")
	})
	require.Error(t, err)
	require.Equal(t, 2, attempts)
}

func TestDoTruncationNotRetried(t *testing.T) {
	p := New(0, time.Millisecond, time.Millisecond, 2, 5, nil, nil)
	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return ErrMaxTokensExceeded
	})
	require.ErrorIs(t, err, ErrMaxTokensExceeded)
	require.Equal(t, 1, attempts)
}

func TestDoFatalClassifierShortCircuits(t *testing.T) {
	fatalErr := errors.New("boom")
	classify := func(err error) Kind {
		if errors.Is(err, fatalErr) {
			return KindFatal
		}
		return KindRetryable
	}
	p := New(0, time.Millisecond, time.Millisecond, 2, 5, classify, nil)
	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return fatalErr
	})
	require.ErrorIs(t, err, fatalErr)
	require.Equal(t, 1, attempts)
}

func TestDoHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(time.Hour, time.Millisecond, time.Millisecond, 2, 5, nil, nil)
	err := p.Do(ctx, func(ctx context.Context) error {
		t.Fatal("f should not run before predelay observes cancellation")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
