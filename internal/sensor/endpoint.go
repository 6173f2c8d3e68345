package sensor

import (
	"context"
	"time"
)

// Snapshot is a window of a sensor's readings.
type Snapshot struct {
	SensorID string
	From     time.Time
	To       time.Time
	Values   []float64 // oldest first
}

// Endpoint is the four-operation surface of one sensor node, plus its id.
type Endpoint interface {
	ID() string
	GetLatest(ctx context.Context) (float64, error)
	GetSnapshot(ctx context.Context, lookback time.Duration) (Snapshot, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	AppendReconciled(ctx context.Context, value float64) error
}

// IDs returns the ids of the given endpoints in order.
func IDs(endpoints []Endpoint) []string {
	ids := make([]string, len(endpoints))
	for i, ep := range endpoints {
		ids[i] = ep.ID()
	}
	return ids
}

// Index maps endpoint ids to endpoints.
func Index(endpoints []Endpoint) map[string]Endpoint {
	m := make(map[string]Endpoint, len(endpoints))
	for _, ep := range endpoints {
		m[ep.ID()] = ep
	}
	return m
}
