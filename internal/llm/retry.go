package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nithinv16/dukaaon-extractor/internal/common"
)

// Retrier is the single retry policy used by every external-service call:
// up to MaxAttempts attempts with BaseDelay * 2^attempt between them, retried
// only when the error is transient. All other errors return immediately.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool
	Logger      *slog.Logger

	// sleep is injectable for tests; defaults to a context-aware timer.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetrier(logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Retryable:   IsTransient,
		Logger:      logger,
	}
}

// Do runs op until it succeeds, the retry budget is exhausted, or a
// non-retryable error occurs. The last error is returned.
func (r *Retrier) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := r.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	wait := r.sleep
	if wait == nil {
		wait = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := r.BaseDelay * (1 << attempt)
			r.Logger.Warn("retry.backoff",
				"op", name,
				"attempt", attempt+1,
				"delay_ms", delay.Milliseconds(),
				"error", lastErr,
			)
			if err := wait(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	r.Logger.Error("retry.exhausted", "op", name, "attempts", attempts, "error", lastErr)
	return lastErr
}

// transientSignatures are the error strings treated as retryable; everything
// else fails fast.
var transientSignatures = []string{
	"throttl",
	"rate limit",
	"too many requests",
	"status 429",
	"status 500",
	"status 502",
	"status 503",
	"service unavailable",
	"internal server error",
	"timeout",
	"deadline exceeded",
	"connection reset",
}

// IsTransient reports whether err matches the fixed set of transient-error
// signatures (throttling, service-unavailable, internal error, timeout).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrTransient) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
