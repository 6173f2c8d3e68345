package node

import (
	"context"
	"log"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"sensorfusion/internal/api"
	"sensorfusion/internal/sensor"
)

// SensorServer implements the Sensor gRPC service over a sensor endpoint.
type SensorServer struct {
	api.UnimplementedSensorServer
	sensor sensor.Endpoint
	nodeID string
}

// NewSensorServer creates a new gRPC server instance.
func NewSensorServer(ep sensor.Endpoint, nodeID string) *SensorServer {
	return &SensorServer{
		sensor: ep,
		nodeID: nodeID,
	}
}

// GetLatest handles GetLatest requests.
func (s *SensorServer) GetLatest(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.DoubleValue, error) {
	v, err := s.sensor.GetLatest(ctx)
	if err != nil {
		log.Printf("[%s] GetLatest failed: %v", s.nodeID, err)
		return nil, status.Errorf(codes.Unavailable, "read latest: %v", err)
	}
	return wrapperspb.Double(v), nil
}

// GetSnapshot handles GetSnapshot requests.
func (s *SensorServer) GetSnapshot(ctx context.Context, req *durationpb.Duration) (*structpb.Struct, error) {
	if err := req.CheckValid(); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "lookback: %v", err)
	}
	lookback := req.AsDuration()
	log.Printf("[%s] GetSnapshot request: lookback=%s", s.nodeID, lookback)

	if lookback < 0 {
		return nil, status.Error(codes.InvalidArgument, "lookback cannot be negative")
	}

	snap, err := s.sensor.GetSnapshot(ctx, lookback)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "snapshot: %v", err)
	}
	return snapshotToProto(snap), nil
}

// Start handles Start requests.
func (s *SensorServer) Start(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.sensor.Start(ctx); err != nil {
		return nil, status.Errorf(codes.Internal, "start sampling: %v", err)
	}
	return &emptypb.Empty{}, nil
}

// Stop handles Stop requests.
func (s *SensorServer) Stop(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.sensor.Stop(ctx); err != nil {
		return nil, status.Errorf(codes.Internal, "stop sampling: %v", err)
	}
	return &emptypb.Empty{}, nil
}

// AppendReconciled handles AppendReconciled requests.
func (s *SensorServer) AppendReconciled(ctx context.Context, req *wrapperspb.DoubleValue) (*emptypb.Empty, error) {
	v := req.GetValue()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, status.Errorf(codes.InvalidArgument, "reconciled value must be finite, got %v", v)
	}

	if err := s.sensor.AppendReconciled(ctx, v); err != nil {
		log.Printf("[%s] AppendReconciled failed: value=%.4f err=%v", s.nodeID, v, err)
		return nil, status.Errorf(codes.Unavailable, "append reconciled: %v", err)
	}
	return &emptypb.Empty{}, nil
}
