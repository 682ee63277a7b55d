package ai

import (
	"context"
	"time"

	"github.com/yama-lei/plantodo/internal"
)

// Retryer wraps a TextGenerator with a per-attempt timeout, bounded
// retries and exponential backoff. The delay before attempt n (0-based,
// after the first failure) is BaseDelay * 2^n; a timed-out attempt
// counts as a failed one. A cancelled parent context aborts immediately;
// the caller is expected to take its fallback path on any returned
// error.
type Retryer struct {
	Gen       TextGenerator
	Attempts  int
	BaseDelay time.Duration
	Timeout   time.Duration // per attempt; 0 disables
	Logger    internal.Logger
}

func NewRetryer(gen TextGenerator, timeout time.Duration, logger internal.Logger) *Retryer {
	return &Retryer{Gen: gen, Attempts: 3, BaseDelay: time.Second, Timeout: timeout, Logger: logger}
}

func (r *Retryer) attempt(ctx context.Context, prompt string, opts Options) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.Gen.Generate(ctx, prompt, opts)
}

func (r *Retryer) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := r.BaseDelay << (i - 1)
			r.Logger.Warnf("generation attempt %d/%d failed, retrying in %v: %v", i, attempts, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", internal.UpstreamError("generation cancelled", ctx.Err())
			}
		}

		text, err := r.attempt(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", internal.UpstreamError("generation cancelled", ctx.Err())
		}
	}
	r.Logger.Errorf("generation failed after %d attempts: %v", attempts, lastErr)
	return "", lastErr
}

var _ TextGenerator = (*Retryer)(nil)
