package sensor

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"sensorfusion/internal/storage"
)

// DefaultValue is reported by GetLatest before anything has been stored.
const DefaultValue = 20.0

// Service implements Endpoint for the local node.
type Service struct {
	sensorID string
	store    storage.Store
	sampling atomic.Bool
	now      func() time.Time
}

// NewService creates a sensor service over store. Sampling starts enabled.
func NewService(sensorID string, store storage.Store) *Service {
	s := &Service{
		sensorID: sensorID,
		store:    store,
		now:      time.Now,
	}
	s.sampling.Store(true)
	return s
}

// ID returns the sensor id.
func (s *Service) ID() string {
	return s.sensorID
}

// Sampling reports whether the sampler should record new values.
func (s *Service) Sampling() bool {
	return s.sampling.Load()
}

// Start enables sampling.
func (s *Service) Start(ctx context.Context) error {
	s.sampling.Store(true)
	log.Printf("[%s] Sampling enabled", s.sensorID)
	return nil
}

// Stop disables sampling. Reconciled writes are still accepted.
func (s *Service) Stop(ctx context.Context) error {
	s.sampling.Store(false)
	log.Printf("[%s] Sampling disabled", s.sensorID)
	return nil
}

// GetLatest returns the newest stored value, sampled or reconciled.
func (s *Service) GetLatest(ctx context.Context) (float64, error) {
	r, err := s.store.Latest(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest: %w", err)
	}
	if r == nil {
		return DefaultValue, nil
	}
	return r.Value, nil
}

// GetSnapshot returns the values recorded in [now-lookback, now].
func (s *Service) GetSnapshot(ctx context.Context, lookback time.Duration) (Snapshot, error) {
	if lookback < 0 {
		return Snapshot{}, fmt.Errorf("lookback must not be negative: %s", lookback)
	}

	to := s.now().UTC()
	from := to.Add(-lookback)

	readings, err := s.store.Range(ctx, from, to)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = r.Value
	}

	return Snapshot{
		SensorID: s.sensorID,
		From:     from,
		To:       to,
		Values:   values,
	}, nil
}

// AppendReconciled stores value tagged as a reconciled baseline.
func (s *Service) AppendReconciled(ctx context.Context, value float64) error {
	err := s.store.Append(ctx, storage.Reading{
		SensorID:   s.sensorID,
		Timestamp:  s.now().UTC(),
		Value:      value,
		Reconciled: true,
	})
	if err != nil {
		return fmt.Errorf("append reconciled: %w", err)
	}
	log.Printf("[%s] Appended reconciled value=%.4f", s.sensorID, value)
	return nil
}

// record stores a sampled value.
func (s *Service) record(ctx context.Context, value float64) error {
	return s.store.Append(ctx, storage.Reading{
		SensorID:  s.sensorID,
		Timestamp: s.now().UTC(),
		Value:     value,
	})
}
