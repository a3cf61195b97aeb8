package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	Port         int
	Env          string
	CallerTokens map[string]string
}

// Server serves gRPC and HTTP on one port.
type Server struct {
	config     Config
	grpcServer *grpc.Server
	health     *health.Server
	httpRouter *gin.Engine
	logger     zerolog.Logger
}

func New(config Config, predictor Predictor, reloader Reloader, metricsClient metrics.Client, logger zerolog.Logger) *Server {
	auth := callerAuth(config.CallerTokens)
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor(logger),
			metricsInterceptor(metricsClient),
			authInterceptor(auth),
		),
	)
	grpcServer.RegisterService(&ServiceDesc, grpcHandler{predictor: predictor})
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	return &Server{
		config:     config,
		grpcServer: grpcServer,
		health:     healthServer,
		httpRouter: newRouter(config.Env, predictor, reloader, auth, metricsClient, logger),
		logger:     logger,
	}
}

// Handler exposes the HTTP routes.
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Run listens on the configured port until ctx is done, then drains both protocols.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	mux := cmux.New(listener)
	httpListener := mux.Match(cmux.HTTP1Fast())
	grpcListener := mux.Match(cmux.HTTP2(), cmux.Any())
	httpServer := &http.Server{Handler: s.httpRouter, ReadHeaderTimeout: 5 * time.Second}

	eps := make(chan error, 3)
	go func() { eps <- s.grpcServer.Serve(grpcListener) }()
	go func() { eps <- httpServer.Serve(httpListener) }()
	go func() { eps <- mux.Serve() }()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("HTTP and gRPC servers started via cmux")

	select {
	case <-ctx.Done():
	case err := <-eps:
		if err != nil && !isClosed(err) {
			s.shutdown(httpServer, listener)
			return err
		}
	}
	s.shutdown(httpServer, listener)
	return nil
}

func (s *Server) shutdown(httpServer *http.Server, listener net.Listener) {
	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("http server shutdown")
	}
	s.grpcServer.GracefulStop()
	_ = listener.Close()
	s.logger.Info().Msg("servers stopped")
}

func isClosed(err error) bool {
	return errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, cmux.ErrListenerClosed)
}
