package server

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/handlers/models"
	"github.com/Meesho/BharatMLStack/onscene/handlers/onscene"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	ServiceName          = "onscene.OnSceneService"
	PredictOnSceneMethod = "/" + ServiceName + "/PredictOnScene"
	healthServicePrefix  = "/grpc.health.v1.Health/"
)

// Predictor is the prediction service as seen by the transports.
type Predictor interface {
	PredictOnScene(ctx context.Context, req *models.OnSceneRequest) (*models.OnSceneResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Predictor)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PredictOnScene", Handler: predictOnSceneHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func predictOnSceneHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(models.OnSceneRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Predictor).PredictOnScene(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PredictOnSceneMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Predictor).PredictOnScene(ctx, req.(*models.OnSceneRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// grpcHandler is the only place service errors become gRPC statuses.
type grpcHandler struct {
	predictor Predictor
}

func (h grpcHandler) PredictOnScene(ctx context.Context, req *models.OnSceneRequest) (*models.OnSceneResponse, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(RequestIDHeader); len(ids) > 0 {
			ctx = onscene.ContextWithRequestID(ctx, ids[0])
		}
	}
	resp, err := h.predictor.PredictOnScene(ctx, req)
	if err != nil {
		return nil, onsceneerrors.GRPCStatus(err)
	}
	return resp, nil
}

func recoveryInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("method", info.FullMethod).
					Msgf("recovered in grpc handler: %v, stack: %s", r, string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func authInterceptor(auth callerAuth) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !auth.enabled() || strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		callerID := first(md.Get(CallerIDHeader))
		if callerID == "" {
			return nil, status.Errorf(codes.Unauthenticated, "%s header is missing", CallerIDHeader)
		}
		if !auth.authorized(callerID, first(md.Get(AuthTokenHeader))) {
			return nil, status.Error(codes.Unauthenticated, "invalid auth token")
		}
		return handler(ctx, req)
	}
}

func metricsInterceptor(metricsClient metrics.Client) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		startTime := time.Now()
		resp, err := handler(ctx, req)
		callerID := "unknown"
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if id := first(md.Get(CallerIDHeader)); id != "" {
				callerID = id
			}
		}
		tags := []string{
			metrics.BuildTag("method", info.FullMethod),
			metrics.BuildTag("caller_id", callerID),
			metrics.BuildTag("status", status.Code(err).String()),
		}
		metricsClient.Incr("onscene.grpc.request.count", tags)
		metricsClient.Timing("onscene.grpc.request.latency_ms", time.Since(startTime), tags)
		return resp, err
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
