// Package api declares the sensorfusion gRPC services. Messages are protobuf
// well-known types, so the service descriptors and typed clients are written
// by hand instead of generated.
package api
