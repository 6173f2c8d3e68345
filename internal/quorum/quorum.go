package quorum

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultPerSensorTimeout is the default timeout for each sensor RPC.
	DefaultPerSensorTimeout = 2 * time.Second
)

// Reading is a single value returned by one sensor.
type Reading struct {
	SensorID   string
	Value      float64
	ObservedAt time.Time
}

// WriteResult represents the result of a fan-out write.
type WriteResult struct {
	Success      bool
	Acks         int
	Required     int
	Sensors      int
	ErrorMessage string
}

// ReadResult represents the result of a fan-out read.
type ReadResult struct {
	Success      bool
	Responses    int
	Required     int
	Sensors      int
	Readings     []Reading // in the order of the sensors argument
	ErrorMessage string
}

// Values returns the raw values of the readings in sensor order.
func (r ReadResult) Values() []float64 {
	values := make([]float64, len(r.Readings))
	for i, rd := range r.Readings {
		values[i] = rd.Value
	}
	return values
}

// SensorWriteFunc performs a write against a single sensor.
type SensorWriteFunc func(ctx context.Context, sensorID string) error

// SensorReadFunc reads the latest value from a single sensor.
type SensorReadFunc func(ctx context.Context, sensorID string) (float64, error)

// DoWrite fans a write out to all sensors in parallel and succeeds when at
// least required sensors acknowledge it. required <= 0 means majority.
// Writes that succeed are never rolled back, even when the result fails.
// DoWrite returns only after every sensor call has returned, including when
// ctx is cancelled.
func DoWrite(ctx context.Context, sensors []string, required int, timeout time.Duration, writeFn SensorWriteFunc) WriteResult {
	if len(sensors) == 0 {
		return WriteResult{
			Success:      false,
			ErrorMessage: "no sensors provided",
		}
	}

	if required <= 0 {
		required = Majority(len(sensors))
	}

	if required > len(sensors) {
		return WriteResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("required=%d exceeds sensor count=%d", required, len(sensors)),
		}
	}

	if timeout <= 0 {
		timeout = DefaultPerSensorTimeout
	}

	var (
		mu   sync.Mutex
		acks int
		errs []error
		wg   sync.WaitGroup
	)

	sensorCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, sensorID := range sensors {
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()

			err := writeFn(sensorCtx, sid)
			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				acks++
			} else {
				errs = append(errs, fmt.Errorf("sensor %s: %w", sid, err))
			}
		}(sensorID)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// In-flight sensor calls see sensorCtx; wait for them so no call
		// outlives the fan-out.
		cancel()
		<-done
		mu.Lock()
		defer mu.Unlock()
		return WriteResult{
			Success:      false,
			Acks:         acks,
			Required:     required,
			Sensors:      len(sensors),
			ErrorMessage: fmt.Sprintf("context cancelled: %v", ctx.Err()),
		}
	}

	mu.Lock()
	defer mu.Unlock()

	if acks >= required {
		return WriteResult{
			Success:  true,
			Acks:     acks,
			Required: required,
			Sensors:  len(sensors),
		}
	}

	errMsg := fmt.Sprintf("write quorum not met: acks=%d required=%d sensors=%d", acks, required, len(sensors))
	if len(errs) > 0 {
		errMsg += fmt.Sprintf(" errors=%v", errs[:min(3, len(errs))])
	}

	return WriteResult{
		Success:      false,
		Acks:         acks,
		Required:     required,
		Sensors:      len(sensors),
		ErrorMessage: errMsg,
	}
}

// DoRead fans a read out to all sensors in parallel and succeeds when at
// least required sensors respond. required <= 0 means majority. Like DoWrite,
// it never returns while a sensor call is still running.
func DoRead(ctx context.Context, sensors []string, required int, timeout time.Duration, readFn SensorReadFunc) ReadResult {
	if len(sensors) == 0 {
		return ReadResult{
			Success:      false,
			ErrorMessage: "no sensors provided",
		}
	}

	if required <= 0 {
		required = Majority(len(sensors))
	}

	if required > len(sensors) {
		return ReadResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("required=%d exceeds sensor count=%d", required, len(sensors)),
		}
	}

	if timeout <= 0 {
		timeout = DefaultPerSensorTimeout
	}

	var (
		mu        sync.Mutex
		responses int
		slots     = make([]*Reading, len(sensors))
		errs      []error
		wg        sync.WaitGroup
	)

	sensorCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for i, sensorID := range sensors {
		wg.Add(1)
		go func(idx int, sid string) {
			defer wg.Done()

			value, err := readFn(sensorCtx, sid)
			observedAt := time.Now()
			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				responses++
				slots[idx] = &Reading{SensorID: sid, Value: value, ObservedAt: observedAt}
			} else {
				errs = append(errs, fmt.Errorf("sensor %s: %w", sid, err))
			}
		}(i, sensorID)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// In-flight sensor calls see sensorCtx; wait for them so no call
		// outlives the fan-out.
		cancel()
		<-done
		mu.Lock()
		defer mu.Unlock()
		return ReadResult{
			Success:      false,
			Responses:    responses,
			Required:     required,
			Sensors:      len(sensors),
			ErrorMessage: fmt.Sprintf("context cancelled: %v", ctx.Err()),
		}
	}

	mu.Lock()
	defer mu.Unlock()

	readings := make([]Reading, 0, responses)
	for _, slot := range slots {
		if slot != nil {
			readings = append(readings, *slot)
		}
	}

	if responses >= required {
		return ReadResult{
			Success:   true,
			Responses: responses,
			Required:  required,
			Sensors:   len(sensors),
			Readings:  readings,
		}
	}

	errMsg := fmt.Sprintf("read quorum not met: responses=%d required=%d sensors=%d", responses, required, len(sensors))
	if len(errs) > 0 {
		errMsg += fmt.Sprintf(" errors=%v", errs[:min(3, len(errs))])
	}

	return ReadResult{
		Success:      false,
		Responses:    responses,
		Required:     required,
		Sensors:      len(sensors),
		Readings:     readings,
		ErrorMessage: errMsg,
	}
}
