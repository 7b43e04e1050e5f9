// Package health публикует состояние заданий выгрузки через стандартный
// сервис grpc.health.v1. Имя сервиса совпадает с ID задания, пустое имя
// означает процесс целиком.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Reporter хранит статусы и реализует job.HealthReporter.
type Reporter struct {
	hs     *grpchealth.Server
	logger *zap.Logger
}

// NewReporter создаёт Reporter. Процесс сразу считается работающим,
// задания из jobIDs тоже: до первого запуска сбоев у них нет.
func NewReporter(logger *zap.Logger, jobIDs ...string) *Reporter {
	r := &Reporter{hs: grpchealth.NewServer(), logger: logger}
	r.hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, id := range jobIDs {
		r.hs.SetServingStatus(id, healthpb.HealthCheckResponse_SERVING)
	}
	return r
}

// ReportJob обновляет статус задания после запуска.
func (r *Reporter) ReportJob(jobID string, healthy bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	r.hs.SetServingStatus(jobID, st)
}

// Register подключает сервис здоровья к gRPC-серверу.
func (r *Reporter) Register(s grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(s, r.hs)
}

// Shutdown переводит все сервисы в NOT_SERVING перед остановкой.
func (r *Reporter) Shutdown() {
	r.hs.Shutdown()
}

// NewServer создаёт gRPC-сервер с сервисом здоровья и журналом вызовов.
func NewServer(r *Reporter, logger *zap.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(logger)))
	r.Register(s)
	return s
}

// LoggingInterceptor пишет в журнал каждый unary-вызов.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("gRPC call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
