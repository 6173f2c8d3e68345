package reconcile

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sensorfusion/internal/quorum"
	"sensorfusion/internal/sensor"
)

// Coordinator owns the reconciliation protocol against a fixed set of sensors.
type Coordinator struct {
	nodeID        string
	ids           []string
	sensors       map[string]sensor.Endpoint
	sensorTimeout time.Duration

	// token is a one-slot semaphore; holding it means owning the attempt.
	token      chan struct{}
	inProgress atomic.Bool

	now func() time.Time
}

// NewCoordinator creates a coordinator for sensors. sensorTimeout bounds each
// sensor call (quorum.DefaultPerSensorTimeout when <= 0).
func NewCoordinator(nodeID string, sensors []sensor.Endpoint, sensorTimeout time.Duration) (*Coordinator, error) {
	if len(sensors) == 0 {
		return nil, fmt.Errorf("coordinator requires at least one sensor")
	}

	byID := sensor.Index(sensors)
	if len(byID) != len(sensors) {
		return nil, fmt.Errorf("duplicate sensor ids in %v", sensor.IDs(sensors))
	}

	return &Coordinator{
		nodeID:        nodeID,
		ids:           sensor.IDs(sensors),
		sensors:       byID,
		sensorTimeout: sensorTimeout,
		token:         make(chan struct{}, 1),
		now:           time.Now,
	}, nil
}

// Sensors returns the ids of the sensors this coordinator reconciles.
func (c *Coordinator) Sensors() []string {
	return append([]string(nil), c.ids...)
}

// IsInProgress reports whether an attempt currently holds the token.
// It never blocks.
func (c *Coordinator) IsInProgress() bool {
	return c.inProgress.Load()
}

// Reconcile waits for exclusive ownership, then fetches the latest value of
// every sensor, averages all of them and appends the average to every sensor.
//
// It never returns an error: failures, panics and cancellation all produce a
// Result with Success=false and a NaN average. Write-backs applied before a
// failure are not rolled back.
func (c *Coordinator) Reconcile(ctx context.Context) (res Result) {
	if err := ctx.Err(); err != nil {
		return failure(c.now().UTC(), "reconcile cancelled: %v", err)
	}

	select {
	case c.token <- struct{}{}:
	case <-ctx.Done():
		return failure(c.now().UTC(), "reconcile cancelled while waiting: %v", ctx.Err())
	}
	c.inProgress.Store(true)

	attemptID := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] Reconcile %s panic: %v", c.nodeID, attemptID, r)
			res = failure(c.now().UTC(), "reconcile failed: %v", r)
		}
		c.inProgress.Store(false)
		<-c.token
	}()

	log.Printf("[%s] Reconcile %s started: sensors=%v", c.nodeID, attemptID, c.ids)
	res = c.reconcile(ctx)

	switch {
	case res.Success:
		log.Printf("[%s] Reconcile %s completed: avg=%.4f", c.nodeID, attemptID, res.AveragedValue)
	case ctx.Err() != nil:
		log.Printf("[%s] Reconcile %s cancelled", c.nodeID, attemptID)
	default:
		log.Printf("[%s] Reconcile %s failed: %s", c.nodeID, attemptID, res.Message)
	}
	return res
}

// reconcile runs one fetch/average/write-back round. Caller holds the token.
func (c *Coordinator) reconcile(ctx context.Context) Result {
	n := len(c.ids)

	readFn := func(ctx context.Context, sensorID string) (value float64, err error) {
		err = guard(func() error {
			value, err = c.sensors[sensorID].GetLatest(ctx)
			return err
		})
		return value, err
	}

	read := quorum.DoRead(ctx, c.ids, n, c.sensorTimeout, readFn)
	if !read.Success {
		if ctx.Err() != nil {
			return failure(c.now().UTC(), "reconcile cancelled: %v", ctx.Err())
		}
		return failure(c.now().UTC(), "reconcile failed: fetch latest: %s", read.ErrorMessage)
	}

	avg := quorum.Mean(read.Values())
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return failure(c.now().UTC(), "reconcile failed: non-finite average of %v", read.Values())
	}

	writeFn := func(ctx context.Context, sensorID string) error {
		return guard(func() error {
			return c.sensors[sensorID].AppendReconciled(ctx, avg)
		})
	}

	write := quorum.DoWrite(ctx, c.ids, n, c.sensorTimeout, writeFn)
	if !write.Success {
		if ctx.Err() != nil {
			return failure(c.now().UTC(), "reconcile cancelled after %d/%d write-backs: %v", write.Acks, n, ctx.Err())
		}
		return failure(c.now().UTC(), "reconcile failed: write back (%d/%d applied): %s", write.Acks, n, write.ErrorMessage)
	}

	return Result{
		Success:       true,
		At:            c.now().UTC(),
		AveragedValue: avg,
		Message:       fmt.Sprintf("Reconciled %d sensors to average of latest readings.", n),
	}
}

// guard converts a panic inside a sensor call into an error. Sensor calls run
// on fan-out goroutines where Reconcile's own recover cannot reach.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
