// Package interceptor holds the unary interceptors of the gRPC server.
package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
)

// UnaryLoggingInterceptor logs the listed methods with their caller,
// duration and resulting status code. Other methods pass through silently.
func UnaryLoggingInterceptor(loggedMethods []string) grpc.UnaryServerInterceptor {
	logged := make(map[string]struct{}, len(loggedMethods))
	for _, m := range loggedMethods {
		logged[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := logged[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		st, _ := status.FromError(err)

		caller := "unknown"
		if p, ok := peer.FromContext(ctx); ok {
			caller = p.Addr.String()
		}

		logger.Log.Infow(
			"gRPC request",
			"method", info.FullMethod,
			"peer", caller,
			"duration", time.Since(start),
			"code", st.Code().String(),
		)

		return resp, err
	}
}
