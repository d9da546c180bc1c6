// Package grpcserver exposes the standard gRPC health service. A Check call
// reports SERVING while the storage layer answers its ping.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/tinyapp/internal/grpcserver/interceptor"
)

func newServer(handler *HealthHandler) *grpc.Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor([]string{
				"/grpc.health.v1.Health/Check",
			}),
		),
	)
	healthpb.RegisterHealthServer(server, handler)

	return server
}

// NewGRPCServer listens on addr and returns a server ready to Serve the listener.
func NewGRPCServer(addr string, handler *HealthHandler) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	return newServer(handler), lis, nil
}
