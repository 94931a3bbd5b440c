// Package besteffort runs secondary work whose failure must never fail the
// primary operation: audit writes, session bookkeeping, analytics tracking and
// audit shipping. Failures are logged, counted, and handed back as an Outcome
// value for callers and tests to inspect. They are never returned as errors.
package besteffort

import (
	"fmt"
	"log/slog"

	"github.com/servicehub/backoffice/internal/telemetry"
)

// Status is the terminal state of a best-effort operation.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome reports what happened to a best-effort operation. Err is set only
// when Status is StatusFailed.
type Outcome struct {
	Status Status
	Err    error
}

// Done returns a successful outcome.
func Done() Outcome { return Outcome{Status: StatusDone} }

// Skipped returns an outcome for work that had nothing to do.
func Skipped() Outcome { return Outcome{Status: StatusSkipped} }

// Failed returns a failed outcome carrying err.
func Failed(err error) Outcome { return Outcome{Status: StatusFailed, Err: err} }

// OK reports whether the operation did not fail.
func (o Outcome) OK() bool { return o.Status != StatusFailed }

// Do runs fn synchronously. A returned error or a panic becomes a failed
// outcome which is logged and counted under operation. An empty status from a
// successful fn means StatusDone.
func Do(operation string, fn func() (Status, error)) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = fail(operation, fmt.Errorf("panic: %v", r))
		}
	}()

	status, err := fn()
	if err != nil {
		return fail(operation, err)
	}
	if status == "" {
		status = StatusDone
	}
	return Outcome{Status: status}
}

// Go runs fn in a new goroutine. A panic is recovered, logged and counted
// rather than taking the process down.
func Go(operation string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				fail(operation, fmt.Errorf("panic: %v", r))
			}
		}()
		fn()
	}()
}

func fail(operation string, err error) Outcome {
	slog.Error("best-effort operation failed", "operation", operation, "error", err)
	telemetry.BestEffortFailuresTotal.WithLabelValues(operation).Inc()
	return Failed(err)
}
