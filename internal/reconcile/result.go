package reconcile

import (
	"fmt"
	"math"
	"time"
)

// Result represents the outcome of one reconciliation attempt.
type Result struct {
	Success       bool
	At            time.Time
	AveragedValue float64 // NaN on failure
	Message       string
}

// failure builds a failed Result.
func failure(at time.Time, format string, args ...any) Result {
	return Result{
		Success:       false,
		At:            at,
		AveragedValue: math.NaN(),
		Message:       fmt.Sprintf(format, args...),
	}
}

// String formats the result for log lines.
func (r Result) String() string {
	if r.Success {
		return fmt.Sprintf("success avg=%.4f at=%s", r.AveragedValue, r.At.Format(time.RFC3339))
	}
	return fmt.Sprintf("failed at=%s: %s", r.At.Format(time.RFC3339), r.Message)
}
