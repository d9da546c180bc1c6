package grpcserver

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
)

// ServiceName is the health service name answered besides the empty,
// server-wide one.
const ServiceName = "tinyapp"

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	healthpb.UnimplementedHealthServer
	svc pinger
}

func NewHealthHandler(svc pinger) *HealthHandler {
	return &HealthHandler{svc: svc}
}

func (h *HealthHandler) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if req.GetService() != "" && req.GetService() != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}

	if err := h.svc.Ping(ctx); err != nil {
		logger.Log.Debugln("Error calling the `h.svc.Ping()`: ", zap.Error(err))
		return &healthpb.HealthCheckResponse{
			Status: healthpb.HealthCheckResponse_NOT_SERVING,
		}, nil
	}

	return &healthpb.HealthCheckResponse{
		Status: healthpb.HealthCheckResponse_SERVING,
	}, nil
}
