package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"sensorfusion/internal/quorum"
	"sensorfusion/internal/reconcile"
	"sensorfusion/internal/sensor"
)

const (
	DefaultInterval     = 5 * time.Second
	DefaultGateInterval = 250 * time.Millisecond
)

// Coordinator is the client's view of the reconcile coordinator.
type Coordinator interface {
	IsInProgress(ctx context.Context) (bool, error)
	Reconcile(ctx context.Context) (reconcile.Result, error)
}

// Options configures a Loop.
type Options struct {
	Tolerance     float64
	Required      int // 0 means majority
	Interval      time.Duration
	Watch         bool
	GateInterval  time.Duration
	SensorTimeout time.Duration
	Verbose       bool
}

// DefaultOptions returns the single-shot defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:     quorum.DefaultTolerance,
		Interval:      DefaultInterval,
		GateInterval:  DefaultGateInterval,
		SensorTimeout: quorum.DefaultPerSensorTimeout,
	}
}

// Round is what one pass of the loop observed.
type Round struct {
	Number   int
	Readings []quorum.Reading
	Decision quorum.Decision

	// Set only when the first read was rejected.
	Escalated bool
	Reconcile reconcile.Result
	Reread    []quorum.Reading

	// Value is the accepted value, or the plain mean of the re-read.
	Value float64
}

// Loop reads every sensor, fuses the readings and escalates to the
// coordinator when they disagree.
type Loop struct {
	nodeID   string
	ids      []string
	byID     map[string]sensor.Endpoint
	coord    Coordinator
	reporter Reporter
	opts     Options
}

// NewLoop creates a loop. A nil reporter discards output.
func NewLoop(nodeID string, sensors []sensor.Endpoint, coord Coordinator, reporter Reporter, opts Options) (*Loop, error) {
	if len(sensors) == 0 {
		return nil, fmt.Errorf("client requires at least one sensor")
	}
	if coord == nil {
		return nil, fmt.Errorf("client requires a coordinator")
	}
	if opts.Tolerance < 0 {
		return nil, fmt.Errorf("tolerance must be non-negative, got %v", opts.Tolerance)
	}
	if opts.GateInterval <= 0 {
		opts.GateInterval = DefaultGateInterval
	}
	if reporter == nil {
		reporter = NopReporter{}
	}

	return &Loop{
		nodeID:   nodeID,
		ids:      sensor.IDs(sensors),
		byID:     sensor.Index(sensors),
		coord:    coord,
		reporter: reporter,
		opts:     opts,
	}, nil
}

// Run executes rounds until done. In single-shot mode (or when Interval <= 0)
// it returns after one round. Cancellation is a clean exit and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	for n := 1; ; n++ {
		if _, err := l.round(ctx, n); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if !l.opts.Watch || l.opts.Interval <= 0 {
			return nil
		}

		timer := time.NewTimer(l.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce executes a single round.
func (l *Loop) RunOnce(ctx context.Context) (Round, error) {
	return l.round(ctx, 1)
}

func (l *Loop) round(ctx context.Context, n int) (Round, error) {
	r := Round{Number: n, Value: math.NaN()}

	if err := l.gate(ctx, n); err != nil {
		return r, err
	}

	readings, err := l.readAll(ctx)
	if err != nil {
		return r, err
	}
	r.Readings = readings
	r.Decision = quorum.Evaluate(valuesOf(readings), l.opts.Tolerance, l.opts.Required)
	l.debugf("round %d: readings=%v mean=%.4f inliers=%d/%d", n, valuesOf(readings), r.Decision.Mean, len(r.Decision.Inliers), r.Decision.Required)

	if v, ok := r.Decision.Value(); ok {
		r.Value = v
		l.reporter.Accepted(n, readings, r.Decision)
		return r, nil
	}

	l.reporter.Rejected(n, readings, r.Decision)
	r.Escalated = true

	res, err := l.coord.Reconcile(ctx)
	if ctx.Err() != nil {
		// Interrupted, not failed; nothing to report.
		return r, ctx.Err()
	}
	if err != nil {
		res = reconcile.Result{
			Success:       false,
			At:            time.Now().UTC(),
			AveragedValue: math.NaN(),
			Message:       fmt.Sprintf("reconcile call failed: %v", err),
		}
	}
	r.Reconcile = res
	l.reporter.Reconciled(n, res)

	if err := l.gate(ctx, n); err != nil {
		return r, err
	}

	reread, err := l.readAll(ctx)
	if err != nil {
		return r, err
	}
	r.Reread = reread
	r.Value = quorum.Mean(valuesOf(reread))
	l.reporter.Reread(n, reread, r.Value)

	return r, nil
}

// gate waits until no reconciliation is in progress. It never reads sensors.
func (l *Loop) gate(ctx context.Context, n int) error {
	waited := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		busy, err := l.coord.IsInProgress(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("check reconcile progress: %w", err)
		}
		if !busy {
			return nil
		}

		if !waited {
			l.reporter.Waiting(n)
			waited = true
		}

		timer := time.NewTimer(l.opts.GateInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Loop) readAll(ctx context.Context) ([]quorum.Reading, error) {
	readFn := func(ctx context.Context, sensorID string) (float64, error) {
		return l.byID[sensorID].GetLatest(ctx)
	}

	res := quorum.DoRead(ctx, l.ids, len(l.ids), l.opts.SensorTimeout, readFn)
	if !res.Success {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.New("read sensors: " + res.ErrorMessage)
	}
	return res.Readings, nil
}

func (l *Loop) debugf(format string, args ...any) {
	if !l.opts.Verbose {
		return
	}
	log.Printf("[%s] "+format, append([]any{l.nodeID}, args...)...)
}

func valuesOf(readings []quorum.Reading) []float64 {
	values := make([]float64, len(readings))
	for i, rd := range readings {
		values[i] = rd.Value
	}
	return values
}
