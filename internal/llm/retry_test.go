package llm

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nithinv16/dukaaon-extractor/internal/common"
)

func testRetrier(t *testing.T) (*Retrier, *[]time.Duration) {
	t.Helper()
	var delays []time.Duration
	r := NewRetrier(slog.Default())
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return r, &delays
}

func TestRetrierSucceedsAfterTransientFailures(t *testing.T) {
	r, delays := testRetrier(t)

	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return common.TransientError("upstream busy", errors.New("status 503"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *delays, "backoff doubles per attempt")
}

func TestRetrierExhaustsBudgetOnPersistentTransient(t *testing.T) {
	r, _ := testRetrier(t)

	calls := 0
	transient := common.TransientError("throttled", errors.New("status 429"))
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return transient
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, common.ErrTransient)
}

func TestRetrierFailsFastOnNonTransient(t *testing.T) {
	r, delays := testRetrier(t)

	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("invalid request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestRetrierStopsOnContextCancel(t *testing.T) {
	r := NewRetrier(slog.Default())
	r.sleep = func(ctx context.Context, _ time.Duration) error { return context.Canceled }

	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return common.TransientError("busy", nil)
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"wrapped sentinel", common.TransientError("busy", nil), true},
		{"throttling text", errors.New("ThrottlingException: rate exceeded"), true},
		{"http 429", errors.New("openai status 429: too many requests"), true},
		{"http 503", errors.New("status 503 service unavailable"), true},
		{"timeout", errors.New("context deadline exceeded"), true},
		{"validation", errors.New("invalid schema"), false},
		{"http 400", errors.New("openai status 400: bad request"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}
