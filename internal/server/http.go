package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/handlers/models"
	"github.com/Meesho/BharatMLStack/onscene/handlers/onscene"
	"github.com/Meesho/BharatMLStack/onscene/handlers/registry"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const healthPath = "/health/self"

// Reloader re-reads the model configuration.
type Reloader interface {
	Reload(ctx context.Context) (*registry.Snapshot, error)
}

func newRouter(env string, predictor Predictor, reloader Reloader, auth callerAuth, metricsClient metrics.Client, logger zerolog.Logger) *gin.Engine {
	if env == "prod" || env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(httpRecovery(logger), httpMetrics(metricsClient), httpAuth(auth))

	router.GET(healthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "true"})
	})

	api := router.Group("/api/v1")
	api.POST("/onscene/predict", func(c *gin.Context) {
		var req models.OnSceneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, onsceneerrors.Wrap(onsceneerrors.KindRequestValidation, err, "invalid request body"))
			return
		}
		ctx := c.Request.Context()
		if id := c.GetHeader(RequestIDHeader); id != "" {
			ctx = onscene.ContextWithRequestID(ctx, id)
		}
		resp, err := predictor.PredictOnScene(ctx, &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	router.POST("/admin/reload", func(c *gin.Context) {
		snapshot, err := reloader.Reload(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"factual_model_version": snapshot.Service.FactualModelVersion,
			"shadow_model_versions": snapshot.Service.ShadowModelVersions,
		})
	})
	return router
}

// writeError is the only place service errors become HTTP responses.
func writeError(c *gin.Context, err error) {
	c.JSON(onsceneerrors.HTTPStatus(err), gin.H{
		"error": onsceneerrors.PublicMessage(err),
		"code":  onsceneerrors.KindOf(err).String(),
	})
}

func httpRecovery(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("path", c.Request.URL.Path).
					Msgf("recovered in http handler: %v, stack: %s", r, string(debug.Stack()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

func httpMetrics(metricsClient metrics.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		tags := []string{
			metrics.BuildTag("path", c.FullPath()),
			metrics.BuildTag("status", http.StatusText(c.Writer.Status())),
		}
		metricsClient.Incr("onscene.http.request.count", tags)
		metricsClient.Timing("onscene.http.request.latency_ms", time.Since(startTime), tags)
	}
}

func httpAuth(auth callerAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.enabled() || c.Request.URL.Path == healthPath {
			c.Next()
			return
		}
		callerID := c.GetHeader(CallerIDHeader)
		if callerID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": CallerIDHeader + " header is missing"})
			return
		}
		if !auth.authorized(callerID, c.GetHeader(AuthTokenHeader)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid auth token"})
			return
		}
		c.Next()
	}
}
