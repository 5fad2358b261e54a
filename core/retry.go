package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
)

// RequestPhase is the lifecycle position of one annotation request.
type RequestPhase int

// Request phases.
const (
	Pending RequestPhase = iota
	Retrying
	Succeeded
	FailedPermanently
)

func (p RequestPhase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Retrying:
		return "retrying"
	case Succeeded:
		return "succeeded"
	case FailedPermanently:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// RequestState tracks a single in-flight request.
// Retries counts the retries already scheduled; Attempts counts the calls made.
type RequestState struct {
	Phase    RequestPhase
	Retries  int
	Attempts int
	Err      *schema.CallError
}

// Next applies the result of one call. A nil error moves to Succeeded. A retryable
// error moves to Retrying(n+1) while the retry budget lasts, everything else is final.
func (s RequestState) Next(err *schema.CallError, maxRetries int) RequestState {
	next := RequestState{Retries: s.Retries, Attempts: s.Attempts + 1, Err: err}
	switch {
	case s.Phase == Succeeded || s.Phase == FailedPermanently:
		return s
	case err == nil:
		next.Phase = Succeeded
	case err.Retryable() && s.Retries < maxRetries:
		next.Phase = Retrying
		next.Retries = s.Retries + 1
	default:
		next.Phase = FailedPermanently
	}
	return next
}

// Cancel ends a started request because the run was cancelled.
func (s RequestState) Cancel(cause error) RequestState {
	return RequestState{
		Phase:    FailedPermanently,
		Retries:  s.Retries,
		Attempts: s.Attempts,
		Err:      &schema.CallError{Kind: schema.FailureCancelled, Err: cause},
	}
}

// Done reports whether the state is terminal.
func (s RequestState) Done() bool {
	return s.Phase == Succeeded || s.Phase == FailedPermanently
}

// delaySchedule produces the wait before each retry of one request.
type delaySchedule struct {
	exp *backoff.ExponentialBackOff
	max time.Duration
}

func newDelaySchedule(policy contract.RetryPolicy, jitter float64) *delaySchedule {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialBackoff
	exp.Multiplier = policy.Multiplier
	exp.MaxInterval = policy.MaxBackoff
	exp.RandomizationFactor = jitter
	exp.Reset()
	return &delaySchedule{exp: exp, max: policy.MaxBackoff}
}

// next returns the delay for the upcoming retry. A server hint raises the delay to at least
// the hint. The result never exceeds the configured cap.
func (d *delaySchedule) next(hint time.Duration) time.Duration {
	delay := d.exp.NextBackOff()
	if delay == backoff.Stop || delay < 0 {
		delay = d.max
	}
	delay = max(delay, hint)
	if d.max > 0 {
		delay = min(delay, d.max)
	}
	return delay
}

// classifyError converts an annotation error into a CallError. parent is the run
// context: if it is done the request was cancelled rather than failed.
func classifyError(parent context.Context, err error) *schema.CallError {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		return &schema.CallError{Kind: schema.FailureCancelled, Err: err}
	}
	var callErr *schema.CallError
	if errors.As(err, &callErr) {
		return callErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &schema.CallError{Kind: schema.FailureTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &schema.CallError{Kind: schema.FailureTimeout, Err: err}
		}
		return &schema.CallError{Kind: schema.FailureNetwork, Err: err}
	}
	return &schema.CallError{Kind: schema.FailureClient, Err: err}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
