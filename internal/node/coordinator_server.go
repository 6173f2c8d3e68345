package node

import (
	"context"
	"log"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"sensorfusion/internal/api"
	"sensorfusion/internal/reconcile"
)

// CoordinatorServer implements the Coordinator gRPC service.
type CoordinatorServer struct {
	api.UnimplementedCoordinatorServer
	coord  *reconcile.Coordinator
	nodeID string
}

// NewCoordinatorServer creates a new coordinator server instance.
func NewCoordinatorServer(coord *reconcile.Coordinator, nodeID string) *CoordinatorServer {
	return &CoordinatorServer{
		coord:  coord,
		nodeID: nodeID,
	}
}

// Reconcile blocks until this caller's attempt finishes. Failures are carried
// in the result, not as RPC errors.
func (s *CoordinatorServer) Reconcile(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	log.Printf("[%s] Reconcile request", s.nodeID)
	return resultToProto(s.coord.Reconcile(ctx)), nil
}

// IsReconInProgress reports the in-progress flag without blocking.
func (s *CoordinatorServer) IsReconInProgress(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.coord.IsInProgress()), nil
}
