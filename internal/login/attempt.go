package login

import (
	"context"
	"errors"
)

// Outcome tags how a step ended.
type Outcome string

const (
	Succeeded       Outcome = "succeeded"
	FailedRecovered Outcome = "failed_recovered"
	FailedFatal     Outcome = "failed_fatal"
	// Skipped marks a best-effort step whose error was logged and ignored.
	Skipped Outcome = "skipped"
)

// Tier is one way of performing a step.
type Tier func(ctx context.Context) error

// Result is the outcome of a two-tier attempt. Primary holds the error that
// caused the fallback to run; Fallback holds the fallback's own error.
type Result struct {
	Outcome  Outcome
	Primary  error
	Fallback error
}

// Err returns the error that ended the attempt, or nil if it succeeded in
// either tier.
func (r Result) Err() error {
	if r.Outcome != FailedFatal {
		return nil
	}
	return errors.Join(r.Primary, r.Fallback)
}

// Attempt runs primary and, only if it fails, fallback exactly once.
// There is no backoff and no further retry.
func Attempt(ctx context.Context, primary, fallback Tier) Result {
	err := primary(ctx)
	if err == nil {
		return Result{Outcome: Succeeded}
	}
	if ctx.Err() != nil {
		return Result{Outcome: FailedFatal, Primary: err}
	}
	if ferr := fallback(ctx); ferr != nil {
		return Result{Outcome: FailedFatal, Primary: err, Fallback: ferr}
	}
	return Result{Outcome: FailedRecovered, Primary: err}
}
