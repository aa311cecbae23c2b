package grpc

import (
	"context"
	"time"

	"store_service/internal/domain"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor logs every unary call with its status code and latency.
func LoggingInterceptor(logger *logrus.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		entry := logger.WithFields(logrus.Fields{
			"method":     info.FullMethod,
			"code":       status.Code(err).String(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
		if err != nil {
			entry.Warnf("gRPC call failed: %v", err)
		} else {
			entry.Info("gRPC call completed")
		}
		return resp, err
	}
}

// NewServer builds a gRPC server exposing the order service, the standard
// health service and reflection.
func NewServer(uc domain.OrderUseCase, logger *logrus.Logger) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger)))
	RegisterOrderServiceServer(server, NewOrderHandler(uc, logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	reflection.Register(server)
	logger.Info("gRPC order, health and reflection services registered")
	return server, healthServer
}
