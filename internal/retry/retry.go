// Package retry implements a bounded exponential-backoff retry policy that
// classifies failures into three kinds — retryable, truncation, fatal — and
// only backs off and retries the first.
package retry

import (
	"context"
	"errors"
	"time"

	"archivist/internal/logging"
)

// Kind classifies a failure so Policy knows whether to retry it.
type Kind int

const (
	// KindRetryable covers transport errors and provider-signalled transient
	// failures: wait and retry.
	KindRetryable Kind = iota
	// KindTruncation covers model-signalled max-token overruns: retrying
	// identical input cannot help, so the caller drops the unit of work.
	KindTruncation
	// KindFatal covers anything uncategorised: logged and surfaced
	// immediately, no retry.
	KindFatal
)

// Classifier maps an arbitrary error to a Kind. Callers supply one per
// ModelProvider variant since transport errors differ by SDK.
type Classifier func(err error) Kind

// ErrMaxTokensExceeded is returned by provider calls that overran the
// model's context window; Policy treats it as KindTruncation without the
// caller needing a custom Classifier entry.
var ErrMaxTokensExceeded = errors.New("max tokens exceeded")

// DefaultClassifier treats ErrMaxTokensExceeded (wrapped or not) as
// truncation and everything else as retryable; fatal errors are the
// classifier's responsibility to identify explicitly since "uncategorised"
// cannot be inferred from the error alone for a default.
func DefaultClassifier(err error) Kind {
	if errors.Is(err, ErrMaxTokensExceeded) {
		return KindTruncation
	}
	return KindRetryable
}

// Policy is a bounded exponential-backoff retry loop. Predelay applies once,
// before the first attempt; DelayMin floors to one second when zero; each
// retryable failure multiplies the current backoff by BackoffExponent,
// clamped to DelayMax, and consumes one of Retries attempts. Reaching zero
// attempts surfaces the last error.
type Policy struct {
	Predelay        time.Duration
	DelayMin        time.Duration
	DelayMax        time.Duration
	BackoffExponent float64
	Retries         int

	Classify Classifier
	Log      logging.Logger
}

// New builds a Policy with the teacher-idiom defaults: delay_min floors to
// 1s when given zero, retries floors to 1 so the function is always called
// at least once.
func New(predelay, delayMin, delayMax time.Duration, backoffExponent float64, retries int, classify Classifier, log logging.Logger) *Policy {
	if delayMin <= 0 {
		delayMin = time.Second
	}
	if retries < 1 {
		retries = 1
	}
	if backoffExponent < 1 {
		backoffExponent = 1
	}
	if classify == nil {
		classify = DefaultClassifier
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Policy{
		Predelay:        predelay,
		DelayMin:        delayMin,
		DelayMax:        delayMax,
		BackoffExponent: backoffExponent,
		Retries:         retries,
		Classify:        classify,
		Log:             log,
	}
}

// Do runs f under the policy. A KindTruncation or KindFatal error from f is
// surfaced immediately without retrying; a KindRetryable error is retried
// (honouring predelay before the very first attempt, then exponential
// backoff between subsequent attempts) until the attempt budget is
// exhausted, at which point the last error is returned.
func (p *Policy) Do(ctx context.Context, f func(ctx context.Context) error) error {
	backoff := p.DelayMin
	budget := p.Retries

	if p.Predelay > 0 {
		if err := sleep(ctx, p.Predelay); err != nil {
			return err
		}
	}

	for {
		err := f(ctx)
		if err == nil {
			return nil
		}

		kind := p.Classify(err)
		if kind != KindRetryable {
			p.Log.Warn("retry: non-retryable failure", map[string]any{"kind": int(kind), "error": err.Error()})
			return err
		}

		budget--
		if budget <= 0 {
			p.Log.Error("retry: exhausted attempt budget", err, nil)
			return err
		}

		p.Log.Warn("retry: retryable failure, backing off", map[string]any{
			"error":          err.Error(),
			"remaining_tries": budget,
			"backoff_seconds": backoff.Seconds(),
		})
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = time.Duration(float64(backoff) * p.BackoffExponent)
		if p.DelayMax > 0 && backoff > p.DelayMax {
			backoff = p.DelayMax
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
