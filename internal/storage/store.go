package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reading is a single stored sensor value.
type Reading struct {
	ID         string
	SensorID   string
	Timestamp  time.Time
	Value      float64
	Reconciled bool // written by the coordinator rather than sampled
}

// Store defines the interface for a single sensor's reading history.
type Store interface {
	// Append stores a reading. Missing ID, SensorID or Timestamp are filled in.
	Append(ctx context.Context, r Reading) error
	// Latest returns the most recent reading, or nil if the store is empty.
	Latest(ctx context.Context) (*Reading, error)
	// Range returns readings with from <= Timestamp <= to, oldest first.
	Range(ctx context.Context, from, to time.Time) ([]Reading, error)
	// Close releases the underlying resources.
	Close() error
}

// normalize fills in the defaults shared by every Store implementation.
func normalize(r Reading, sensorID string) Reading {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.SensorID == "" {
		r.SensorID = sensorID
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return r
}

// InMemoryStore is an in-memory implementation of Store.
// It's thread-safe and keeps readings in append order.
type InMemoryStore struct {
	mu       sync.RWMutex
	readings []Reading
	sensorID string
}

// NewInMemoryStore creates a new in-memory store for one sensor.
func NewInMemoryStore(sensorID string) *InMemoryStore {
	return &InMemoryStore{
		readings: make([]Reading, 0),
		sensorID: sensorID,
	}
}

// Append stores a reading.
func (s *InMemoryStore) Append(ctx context.Context, r Reading) error {
	r = normalize(r, s.sensorID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = append(s.readings, r)
	return nil
}

// Latest returns the reading with the greatest timestamp.
// Ties go to the reading appended last.
func (s *InMemoryStore) Latest(ctx context.Context) (*Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.readings) == 0 {
		return nil, nil
	}

	latest := s.readings[0]
	for _, r := range s.readings[1:] {
		if !r.Timestamp.Before(latest.Timestamp) {
			latest = r
		}
	}

	// Return a copy to avoid external modifications
	copy := latest
	return &copy, nil
}

// Range returns readings within [from, to], oldest first.
func (s *InMemoryStore) Range(ctx context.Context, from, to time.Time) ([]Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Reading, 0)
	for _, r := range s.readings {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
