package it

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"sensorfusion/internal/client"
	"sensorfusion/internal/node"
	"sensorfusion/internal/reconcile"
	"sensorfusion/internal/sensor"
	"sensorfusion/internal/storage"
)

// Cluster is an in-process deployment of sensors and a coordinator, each
// served over a real gRPC listener on 127.0.0.1.
type Cluster struct {
	mu          sync.Mutex
	sensors     []*SensorNode
	coordinator *CoordinatorNode
	clients     *node.ClientManager

	// Observe, when set, wraps each sensor's service before it is served.
	Observe func(sensor.Endpoint) sensor.Endpoint
}

// SensorNode is one running sensor.
type SensorNode struct {
	ID      string
	Addr    string
	Service *sensor.Service
	store   storage.Store
	node    *node.Node
}

// CoordinatorNode is the running coordinator.
type CoordinatorNode struct {
	Addr        string
	Coordinator *reconcile.Coordinator
	Trigger     *reconcile.Trigger
	node        *node.Node
}

// NewCluster creates an empty cluster.
func NewCluster() *Cluster {
	return &Cluster{
		clients: node.NewClientManager(),
	}
}

// StartSensor starts a sensor backed by store, seeded with value as its
// latest reading.
func (c *Cluster) StartSensor(ctx context.Context, id string, store storage.Store, value float64) (*SensorNode, error) {
	svc := sensor.NewService(id, store)
	if err := svc.AppendReconciled(ctx, value); err != nil {
		return nil, fmt.Errorf("failed to seed sensor %s: %w", id, err)
	}

	var served sensor.Endpoint = svc
	if c.Observe != nil {
		served = c.Observe(svc)
	}

	n := node.NewSensorNode(id, "127.0.0.1:0", served)
	addr, err := c.serve(ctx, n, id)
	if err != nil {
		return nil, err
	}

	sn := &SensorNode{ID: id, Addr: addr, Service: svc, store: store, node: n}
	c.mu.Lock()
	c.sensors = append(c.sensors, sn)
	c.mu.Unlock()
	return sn, nil
}

// StartSensors starts one in-memory sensor per value, with ids S1..Sn.
func (c *Cluster) StartSensors(ctx context.Context, values ...float64) error {
	for i, v := range values {
		id := fmt.Sprintf("S%d", i+1)
		if _, err := c.StartSensor(ctx, id, storage.NewInMemoryStore(id), v); err != nil {
			c.Stop()
			return err
		}
	}
	return nil
}

// StartCoordinator starts the coordinator over every running sensor. A
// period <= 0 leaves the scheduled trigger stopped.
func (c *Cluster) StartCoordinator(ctx context.Context, period time.Duration) (*CoordinatorNode, error) {
	coord, err := reconcile.NewCoordinator("coordinator", c.Endpoints(), time.Second)
	if err != nil {
		return nil, err
	}

	n := node.NewCoordinatorNode("coordinator", "127.0.0.1:0", coord)
	addr, err := c.serve(ctx, n, "coordinator")
	if err != nil {
		return nil, err
	}

	cn := &CoordinatorNode{Addr: addr, Coordinator: coord, node: n}
	if period > 0 {
		cn.Trigger = reconcile.NewTrigger("coordinator", coord, period)
		cn.Trigger.Start(context.Background())
	}

	c.mu.Lock()
	c.coordinator = cn
	c.mu.Unlock()
	return cn, nil
}

// serve binds n, serves it in the background and waits for it to be ready.
func (c *Cluster) serve(ctx context.Context, n *node.Node, id string) (string, error) {
	if err := n.Listen(); err != nil {
		return "", fmt.Errorf("failed to listen for %s: %w", id, err)
	}
	go n.Start()

	addr := n.Addr()
	if err := c.waitForReady(ctx, addr, 10*time.Second); err != nil {
		n.Stop()
		return "", fmt.Errorf("%s failed to become ready: %w", id, err)
	}
	return addr, nil
}

// waitForReady waits for a node to be ready by checking the health service
func (c *Cluster) waitForReady(ctx context.Context, addr string, timeout time.Duration) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()
	health := healthpb.NewHealthClient(conn)

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		healthCtx, cancel := context.WithTimeout(ctx, time.Second)
		resp, err := health.Check(healthCtx, &healthpb.HealthCheckRequest{})
		cancel()
		if err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return fmt.Errorf("timeout waiting for %s to be ready", addr)
			}
		}
	}
}

// Endpoints returns gRPC endpoints for every running sensor.
func (c *Cluster) Endpoints() []sensor.Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	eps := make([]sensor.Endpoint, len(c.sensors))
	for i, s := range c.sensors {
		eps[i] = node.NewRemoteSensor(s.ID, s.Addr, c.clients)
	}
	return eps
}

// CoordinatorClient returns the client's gRPC view of the coordinator.
func (c *Cluster) CoordinatorClient() client.Coordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return node.NewRemoteCoordinator(c.coordinator.Addr, c.clients)
}

// GetSensor returns a sensor by ID
func (c *Cluster) GetSensor(id string) *SensorNode {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.sensors {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// KillSensor stops a specific sensor's server
func (c *Cluster) KillSensor(id string) error {
	s := c.GetSensor(id)
	if s == nil {
		return fmt.Errorf("sensor %s not found", id)
	}
	s.node.Stop()
	return nil
}

// Stop stops every node in the cluster
func (c *Cluster) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.coordinator != nil {
		if c.coordinator.Trigger != nil {
			c.coordinator.Trigger.Stop()
		}
		c.coordinator.node.Stop()
		c.coordinator = nil
	}
	for _, s := range c.sensors {
		s.node.Stop()
		s.store.Close()
	}
	c.sensors = nil
	c.clients.Close()
}
