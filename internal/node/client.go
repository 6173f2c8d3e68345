package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"sensorfusion/internal/api"
	"sensorfusion/internal/client"
	"sensorfusion/internal/reconcile"
	"sensorfusion/internal/sensor"
)

// ClientManager manages gRPC connections to sensor and coordinator nodes.
type ClientManager struct {
	mu    sync.RWMutex
	conns map[string]*grpc.ClientConn
}

// NewClientManager creates a new client manager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		conns: make(map[string]*grpc.ClientConn),
	}
}

// conn returns the connection for addr, creating it if it doesn't exist.
// Connections are established lazily on first RPC.
func (cm *ClientManager) conn(addr string) (*grpc.ClientConn, error) {
	cm.mu.RLock()
	cc, exists := cm.conns[addr]
	cm.mu.RUnlock()

	if exists {
		return cc, nil
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Double-check after acquiring write lock
	if cc, exists := cm.conns[addr]; exists {
		return cc, nil
	}

	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}

	cm.conns[addr] = cc
	return cc, nil
}

// GetSensorClient returns a Sensor client for the given address.
func (cm *ClientManager) GetSensorClient(addr string) (api.SensorClient, error) {
	cc, err := cm.conn(addr)
	if err != nil {
		return nil, err
	}
	return api.NewSensorClient(cc), nil
}

// GetCoordinatorClient returns a Coordinator client for the given address.
func (cm *ClientManager) GetCoordinatorClient(addr string) (api.CoordinatorClient, error) {
	cc, err := cm.conn(addr)
	if err != nil {
		return nil, err
	}
	return api.NewCoordinatorClient(cc), nil
}

// Close closes all client connections.
func (cm *ClientManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var firstErr error
	for addr, cc := range cm.conns {
		if err := cc.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", addr, err)
		}
	}
	cm.conns = make(map[string]*grpc.ClientConn)
	return firstErr
}

// RemoteSensor is a sensor.Endpoint reached over gRPC.
type RemoteSensor struct {
	id   string
	addr string
	cm   *ClientManager
}

var _ sensor.Endpoint = (*RemoteSensor)(nil)

// NewRemoteSensor creates an endpoint for the sensor id served at addr.
func NewRemoteSensor(id, addr string, cm *ClientManager) *RemoteSensor {
	return &RemoteSensor{id: id, addr: addr, cm: cm}
}

func (r *RemoteSensor) ID() string { return r.id }

func (r *RemoteSensor) Addr() string { return r.addr }

func (r *RemoteSensor) GetLatest(ctx context.Context) (float64, error) {
	c, err := r.cm.GetSensorClient(r.addr)
	if err != nil {
		return 0, err
	}
	v, err := c.GetLatest(ctx, &emptypb.Empty{})
	if err != nil {
		return 0, fmt.Errorf("sensor %s GetLatest: %w", r.id, err)
	}
	return v.GetValue(), nil
}

func (r *RemoteSensor) GetSnapshot(ctx context.Context, lookback time.Duration) (sensor.Snapshot, error) {
	c, err := r.cm.GetSensorClient(r.addr)
	if err != nil {
		return sensor.Snapshot{}, err
	}
	pb, err := c.GetSnapshot(ctx, durationpb.New(lookback))
	if err != nil {
		return sensor.Snapshot{}, fmt.Errorf("sensor %s GetSnapshot: %w", r.id, err)
	}
	snap, err := protoToSnapshot(pb)
	if err != nil {
		return sensor.Snapshot{}, fmt.Errorf("sensor %s GetSnapshot: %w", r.id, err)
	}
	return snap, nil
}

func (r *RemoteSensor) Start(ctx context.Context) error {
	c, err := r.cm.GetSensorClient(r.addr)
	if err != nil {
		return err
	}
	if _, err := c.Start(ctx, &emptypb.Empty{}); err != nil {
		return fmt.Errorf("sensor %s Start: %w", r.id, err)
	}
	return nil
}

func (r *RemoteSensor) Stop(ctx context.Context) error {
	c, err := r.cm.GetSensorClient(r.addr)
	if err != nil {
		return err
	}
	if _, err := c.Stop(ctx, &emptypb.Empty{}); err != nil {
		return fmt.Errorf("sensor %s Stop: %w", r.id, err)
	}
	return nil
}

func (r *RemoteSensor) AppendReconciled(ctx context.Context, value float64) error {
	c, err := r.cm.GetSensorClient(r.addr)
	if err != nil {
		return err
	}
	if _, err := c.AppendReconciled(ctx, wrapperspb.Double(value)); err != nil {
		return fmt.Errorf("sensor %s AppendReconciled: %w", r.id, err)
	}
	return nil
}

// RemoteCoordinator is the client's view of a coordinator reached over gRPC.
type RemoteCoordinator struct {
	addr string
	cm   *ClientManager
}

var _ client.Coordinator = (*RemoteCoordinator)(nil)

// NewRemoteCoordinator creates a coordinator handle for addr.
func NewRemoteCoordinator(addr string, cm *ClientManager) *RemoteCoordinator {
	return &RemoteCoordinator{addr: addr, cm: cm}
}

func (r *RemoteCoordinator) IsInProgress(ctx context.Context) (bool, error) {
	c, err := r.cm.GetCoordinatorClient(r.addr)
	if err != nil {
		return false, err
	}
	v, err := c.IsReconInProgress(ctx, &emptypb.Empty{})
	if err != nil {
		return false, fmt.Errorf("coordinator IsReconInProgress: %w", err)
	}
	return v.GetValue(), nil
}

func (r *RemoteCoordinator) Reconcile(ctx context.Context) (reconcile.Result, error) {
	c, err := r.cm.GetCoordinatorClient(r.addr)
	if err != nil {
		return reconcile.Result{}, err
	}
	pb, err := c.Reconcile(ctx, &emptypb.Empty{})
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("coordinator Reconcile: %w", err)
	}
	return protoToResult(pb)
}
