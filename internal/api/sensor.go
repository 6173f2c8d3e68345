package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const SensorServiceName = "sensorfusion.Sensor"

// SensorServer is the server API for the Sensor service.
//
// GetSnapshot returns a Struct with fields sensor_id, from, to (RFC 3339) and
// values (list of numbers, oldest first).
type SensorServer interface {
	GetLatest(context.Context, *emptypb.Empty) (*wrapperspb.DoubleValue, error)
	GetSnapshot(context.Context, *durationpb.Duration) (*structpb.Struct, error)
	Start(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Stop(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	AppendReconciled(context.Context, *wrapperspb.DoubleValue) (*emptypb.Empty, error)
}

// UnimplementedSensorServer can be embedded to have forward compatible implementations.
type UnimplementedSensorServer struct{}

func (UnimplementedSensorServer) GetLatest(context.Context, *emptypb.Empty) (*wrapperspb.DoubleValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetLatest not implemented")
}
func (UnimplementedSensorServer) GetSnapshot(context.Context, *durationpb.Duration) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSnapshot not implemented")
}
func (UnimplementedSensorServer) Start(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Start not implemented")
}
func (UnimplementedSensorServer) Stop(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Stop not implemented")
}
func (UnimplementedSensorServer) AppendReconciled(context.Context, *wrapperspb.DoubleValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method AppendReconciled not implemented")
}

// SensorServiceDesc is the grpc.ServiceDesc for the Sensor service.
var SensorServiceDesc = grpc.ServiceDesc{
	ServiceName: SensorServiceName,
	HandlerType: (*SensorServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(SensorServiceName, "GetLatest", SensorServer.GetLatest),
		unaryMethod(SensorServiceName, "GetSnapshot", SensorServer.GetSnapshot),
		unaryMethod(SensorServiceName, "Start", SensorServer.Start),
		unaryMethod(SensorServiceName, "Stop", SensorServer.Stop),
		unaryMethod(SensorServiceName, "AppendReconciled", SensorServer.AppendReconciled),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sensorfusion/sensor.proto",
}

func RegisterSensorServer(s grpc.ServiceRegistrar, srv SensorServer) {
	s.RegisterService(&SensorServiceDesc, srv)
}

// SensorClient is the client API for the Sensor service.
type SensorClient interface {
	GetLatest(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.DoubleValue, error)
	GetSnapshot(ctx context.Context, in *durationpb.Duration, opts ...grpc.CallOption) (*structpb.Struct, error)
	Start(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Stop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	AppendReconciled(ctx context.Context, in *wrapperspb.DoubleValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type sensorClient struct {
	cc grpc.ClientConnInterface
}

func NewSensorClient(cc grpc.ClientConnInterface) SensorClient {
	return &sensorClient{cc}
}

func (c *sensorClient) GetLatest(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.DoubleValue, error) {
	out := new(wrapperspb.DoubleValue)
	if err := c.cc.Invoke(ctx, fullName(SensorServiceName, "GetLatest"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sensorClient) GetSnapshot(ctx context.Context, in *durationpb.Duration, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullName(SensorServiceName, "GetSnapshot"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sensorClient) Start(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, fullName(SensorServiceName, "Start"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sensorClient) Stop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, fullName(SensorServiceName, "Stop"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sensorClient) AppendReconciled(ctx context.Context, in *wrapperspb.DoubleValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, fullName(SensorServiceName, "AppendReconciled"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
