// Package retry provides a bounded exponential-backoff executor shared by
// every fallible external call in the notifier. Callers parameterize the
// policy (attempt budget, base backoff, retryable error codes) and the
// executor decides, per failure, whether to wait and go again or to
// propagate immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// Coded is implemented by errors that carry a provider error code, notably
// smithy-go's APIError for the AWS SDK. Classification goes through this
// interface so the executor stays SDK-agnostic.
type Coded interface {
	error
	ErrorCode() string
}

// every AWS SDK v2 operation error satisfies Coded
var _ Coded = (*smithy.GenericAPIError)(nil)

// Policy is a value object describing one retry discipline.
type Policy struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	RetryableCodes map[string]struct{}
}

// NewPolicy builds a policy from a list of retryable error codes.
func NewPolicy(maxAttempts int, backoffBase time.Duration, codes ...string) Policy {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return Policy{MaxAttempts: maxAttempts, BackoffBase: backoffBase, RetryableCodes: set}
}

// Retryable reports whether err carries a code in the policy's retryable set.
func (p Policy) Retryable(err error) bool {
	var coded Coded
	if !errors.As(err, &coded) {
		return false
	}
	_, ok := p.RetryableCodes[coded.ErrorCode()]
	return ok
}

// ExhaustedError reports that every attempt in the budget was consumed.
// It wraps the last underlying cause.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: exhausted all %d retry attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Executor runs operations under a policy. The sleep function is injectable
// for tests; the default waits on a timer or ctx cancellation.
type Executor struct {
	policy Policy
	log    zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewExecutor(policy Policy, log zerolog.Logger) *Executor {
	return &Executor{policy: policy, log: log, sleep: sleepCtx}
}

// WithSleep replaces the backoff wait implementation. Test hook.
func (e *Executor) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Executor {
	e.sleep = fn
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do invokes op up to the policy's attempt budget. A failure with a
// retryable code sleeps BackoffBase * 2^attempt and goes again; any other
// failure propagates at once. When the budget runs out the last cause is
// wrapped in an ExhaustedError.
func Do[T any](ctx context.Context, e *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var last error
	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		e.log.Debug().Str("op", op).Int("attempt", attempt+1).Msg("attempt started")
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		last = err
		if !e.policy.Retryable(err) {
			e.log.Error().Str("op", op).Int("attempt", attempt+1).Err(err).Msg("non-retryable failure")
			return zero, err
		}
		if attempt == e.policy.MaxAttempts-1 {
			break
		}
		wait := e.policy.BackoffBase << uint(attempt)
		e.log.Warn().Str("op", op).Int("attempt", attempt+1).Dur("wait", wait).Err(err).Msg("throttled, backing off")
		if serr := e.sleep(ctx, wait); serr != nil {
			return zero, serr
		}
	}
	e.log.Error().Str("op", op).Int("attempts", e.policy.MaxAttempts).Err(last).Msg("retry budget exhausted")
	return zero, &ExhaustedError{Op: op, Attempts: e.policy.MaxAttempts, Last: last}
}
