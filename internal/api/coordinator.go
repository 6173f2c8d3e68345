package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const CoordinatorServiceName = "sensorfusion.Coordinator"

// CoordinatorServer is the server API for the Coordinator service.
//
// Reconcile may block while another reconciliation holds the coordinator; it
// returns a Struct with fields success, at (RFC 3339), averaged_value (null
// when not a number) and message. IsReconInProgress never blocks.
type CoordinatorServer interface {
	Reconcile(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	IsReconInProgress(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
}

// UnimplementedCoordinatorServer can be embedded to have forward compatible implementations.
type UnimplementedCoordinatorServer struct{}

func (UnimplementedCoordinatorServer) Reconcile(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Reconcile not implemented")
}
func (UnimplementedCoordinatorServer) IsReconInProgress(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method IsReconInProgress not implemented")
}

// CoordinatorServiceDesc is the grpc.ServiceDesc for the Coordinator service.
var CoordinatorServiceDesc = grpc.ServiceDesc{
	ServiceName: CoordinatorServiceName,
	HandlerType: (*CoordinatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(CoordinatorServiceName, "Reconcile", CoordinatorServer.Reconcile),
		unaryMethod(CoordinatorServiceName, "IsReconInProgress", CoordinatorServer.IsReconInProgress),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sensorfusion/coordinator.proto",
}

func RegisterCoordinatorServer(s grpc.ServiceRegistrar, srv CoordinatorServer) {
	s.RegisterService(&CoordinatorServiceDesc, srv)
}

// CoordinatorClient is the client API for the Coordinator service.
type CoordinatorClient interface {
	Reconcile(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	IsReconInProgress(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type coordinatorClient struct {
	cc grpc.ClientConnInterface
}

func NewCoordinatorClient(cc grpc.ClientConnInterface) CoordinatorClient {
	return &coordinatorClient{cc}
}

func (c *coordinatorClient) Reconcile(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullName(CoordinatorServiceName, "Reconcile"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinatorClient) IsReconInProgress(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullName(CoordinatorServiceName, "IsReconInProgress"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
