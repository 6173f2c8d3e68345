package node

import (
	"fmt"
	"log"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"sensorfusion/internal/api"
	"sensorfusion/internal/reconcile"
	"sensorfusion/internal/sensor"
)

// Node hosts one gRPC server: either a sensor or the coordinator.
type Node struct {
	nodeID     string
	listenAddr string
	services   []string
	register   func(grpc.ServiceRegistrar)

	mu         sync.Mutex
	lis        net.Listener
	grpcServer *grpc.Server
	health     *health.Server
}

// NewSensorNode creates a node serving the Sensor service for ep.
func NewSensorNode(nodeID, listenAddr string, ep sensor.Endpoint) *Node {
	return &Node{
		nodeID:     nodeID,
		listenAddr: listenAddr,
		services:   []string{api.SensorServiceName},
		register: func(s grpc.ServiceRegistrar) {
			api.RegisterSensorServer(s, NewSensorServer(ep, nodeID))
		},
	}
}

// NewCoordinatorNode creates a node serving the Coordinator service.
func NewCoordinatorNode(nodeID, listenAddr string, coord *reconcile.Coordinator) *Node {
	return &Node{
		nodeID:     nodeID,
		listenAddr: listenAddr,
		services:   []string{api.CoordinatorServiceName},
		register: func(s grpc.ServiceRegistrar) {
			api.RegisterCoordinatorServer(s, NewCoordinatorServer(coord, nodeID))
		},
	}
}

// Listen binds the listen address. It is called by Start when needed and
// lets callers learn the bound address of ":0" before serving.
func (n *Node) Listen() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lis != nil {
		return nil
	}

	lis, err := net.Listen("tcp", n.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.listenAddr, err)
	}
	n.lis = lis

	n.grpcServer = grpc.NewServer()
	n.register(n.grpcServer)

	n.health = health.NewServer()
	healthpb.RegisterHealthServer(n.grpcServer, n.health)

	// Enable gRPC reflection for grpcurl
	reflection.Register(n.grpcServer)

	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (n *Node) Addr() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lis != nil {
		return n.lis.Addr().String()
	}
	return n.listenAddr
}

// Start starts the gRPC server and blocks until it stops.
func (n *Node) Start() error {
	if err := n.Listen(); err != nil {
		return err
	}

	n.mu.Lock()
	lis, srv, hs := n.lis, n.grpcServer, n.health
	n.mu.Unlock()

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, svc := range n.services {
		hs.SetServingStatus(svc, healthpb.HealthCheckResponse_SERVING)
	}

	log.Printf("[%s] Starting node on %s", n.nodeID, lis.Addr())

	if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

// Stop gracefully stops the node.
func (n *Node) Stop() {
	n.mu.Lock()
	srv, hs := n.grpcServer, n.health
	n.mu.Unlock()

	if hs != nil {
		hs.Shutdown()
	}
	if srv != nil {
		log.Printf("[%s] Stopping node", n.nodeID)
		srv.GracefulStop()
	}
}
