package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/handlers/config"
	"github.com/Meesho/BharatMLStack/onscene/handlers/external/featurestore"
	extkafka "github.com/Meesho/BharatMLStack/onscene/handlers/external/kafka"
	"github.com/Meesho/BharatMLStack/onscene/handlers/external/modelstore"
	"github.com/Meesho/BharatMLStack/onscene/handlers/features"
	"github.com/Meesho/BharatMLStack/onscene/handlers/model"
	"github.com/Meesho/BharatMLStack/onscene/handlers/onscene"
	"github.com/Meesho/BharatMLStack/onscene/handlers/registry"
	"github.com/Meesho/BharatMLStack/onscene/handlers/users"
	"github.com/Meesho/BharatMLStack/onscene/internal/server"
	"github.com/Meesho/BharatMLStack/onscene/pkg/circuitbreaker"
	"github.com/Meesho/BharatMLStack/onscene/pkg/configs"
	"github.com/Meesho/BharatMLStack/onscene/pkg/etcd"
	"github.com/Meesho/BharatMLStack/onscene/pkg/kafka"
	"github.com/Meesho/BharatMLStack/onscene/pkg/logger"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/rs/zerolog"
)

const pingTimeout = 2 * time.Second

// App is the service context: every long-lived component, built once from AppConfigs.
type App struct {
	Configs  *configs.AppConfigs
	Logger   zerolog.Logger
	Metrics  metrics.Client
	Registry *registry.Registry
	Router   *registry.Router
	Service  *onscene.Service

	etcd    *etcd.Client
	closers []func() error
}

// New wires the service and loads the initial model configuration. A configuration that
// cannot be loaded fails startup.
func New(ctx context.Context, appConfigs *configs.AppConfigs, log zerolog.Logger, metricsClient metrics.Client) (*App, error) {
	c := appConfigs.Configs
	app := &App{Configs: appConfigs, Logger: log, Metrics: metricsClient}

	if err := app.initRegistry(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if _, err := app.Registry.Reload(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("initial model configuration: %w", err)
	}

	lookup := app.initUserLookup(ctx)

	sink, err := app.initShadowSink()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Router = registry.NewRouter(registry.RouterConfig{
		ShadowDeadline:      time.Duration(c.ShadowDeadlineMs) * time.Millisecond,
		ShadowSamplePercent: c.ShadowSamplePercent,
	}, sink, metricsClient, logger.For(log, "router"))

	app.Service = onscene.NewService(lookup, app.Registry, features.NewAssembler(), app.Router,
		time.Duration(c.RequestDeadlineMs)*time.Millisecond, metricsClient, logger.For(log, "onscene"))
	return app, nil
}

func (a *App) initRegistry(ctx context.Context) error {
	c := a.Configs.Configs
	reader, err := a.configReader()
	if err != nil {
		return err
	}
	store, err := modelstore.New(ctx, a.Configs)
	if err != nil {
		return fmt.Errorf("model store: %w", err)
	}
	loader := model.NewLoader(store, model.Tolerance{
		Error: c.ModelValidation_ErrorTol,
		Warn:  c.ModelValidation_WarnTol,
	}, a.Metrics, logger.For(a.Logger, "model_loader"))
	a.Registry = registry.New(reader, c.ServiceConfigName, loader, a.Metrics, logger.For(a.Logger, "registry"))
	return nil
}

func (a *App) configReader() (config.Reader, error) {
	c := a.Configs.Configs
	if c.ConfigSource != configs.ConfigSourceEtcd {
		return config.NewLocalReader(c.ConfigDir), nil
	}
	client, err := etcd.New(a.Configs, logger.For(a.Logger, "etcd"))
	if err != nil {
		return nil, err
	}
	a.etcd = client
	a.closers = append(a.closers, client.Close)
	return config.NewRemoteReader(client, c.ETCD_BASE_PATH), nil
}

func (a *App) initUserLookup(ctx context.Context) *users.Lookup {
	c := a.Configs.Configs
	store := featurestore.NewRedisStore(a.Configs)
	a.closers = append(a.closers, store.Close)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		a.Logger.Warn().Err(err).Str("endpoint", c.FeatureStore_Endpoint).Msg("feature store is not reachable yet")
	}

	breaker := circuitbreaker.New(featurestore.BreakerConfigFrom(a.Configs), a.Metrics, logger.For(a.Logger, "circuitbreaker"))
	var client featurestore.Client = featurestore.NewStoreClient(store, featurestore.ConfigFrom(a.Configs), breaker,
		a.Metrics, logger.For(a.Logger, "featurestore"))
	if c.FeatureStore_CacheSizeBytes > 0 {
		client = featurestore.NewCachedClient(client, c.FeatureStore_CacheSizeBytes, c.FeatureStore_CacheTTLSec,
			a.Metrics, logger.For(a.Logger, "featurestore_cache"))
	}
	return users.NewLookup(client, logger.For(a.Logger, "users"))
}

func (a *App) initShadowSink() (registry.ShadowSink, error) {
	sinks := registry.MultiSink{registry.NewMetricsSink(a.Metrics)}
	if a.Configs.Configs.Kafka_BootstrapServers == "" {
		a.Logger.Info().Msg("kafka is not configured, shadow events go to metrics only")
		return sinks, nil
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(a.Configs), logger.For(a.Logger, "kafka"))
	if err != nil {
		return nil, fmt.Errorf("shadow event producer: %w", err)
	}
	a.closers = append(a.closers, func() error {
		producer.Close()
		return nil
	})
	return append(sinks, extkafka.NewShadowSink(producer, a.Metrics, logger.For(a.Logger, "shadow_sink"))), nil
}

// Watch reloads the model configuration whenever its etcd documents change. It is a
// no-op for local configuration or when the watcher is disabled.
func (a *App) Watch(ctx context.Context) {
	c := a.Configs.Configs
	if a.etcd == nil || !c.ETCD_WATCHER_ENABLED {
		return
	}
	a.etcd.WatchPrefix(ctx, c.ETCD_BASE_PATH, func(ctx context.Context) error {
		_, err := a.Registry.Reload(ctx)
		return err
	})
	a.Logger.Info().Str("prefix", c.ETCD_BASE_PATH).Msg("watching model configuration")
}

// NewServer builds the gRPC + HTTP server over the prediction service.
func (a *App) NewServer() *server.Server {
	c := a.Configs.Configs
	return server.New(server.Config{
		Port:         c.ApplicationPort,
		Env:          c.ApplicationEnv,
		CallerTokens: c.CallerTokens(),
	}, a.Service, a.Registry, a.Metrics, logger.For(a.Logger, "server"))
}

// Close waits for in-flight shadows, then releases clients in reverse order of creation.
func (a *App) Close() error {
	if a.Router != nil {
		a.Router.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// CheckConfig loads the service configuration and every model it references without
// starting anything else.
func CheckConfig(ctx context.Context, appConfigs *configs.AppConfigs, log zerolog.Logger, metricsClient metrics.Client) (*registry.Snapshot, error) {
	app := &App{Configs: appConfigs, Logger: log, Metrics: metricsClient}
	defer app.Close()
	if err := app.initRegistry(ctx); err != nil {
		return nil, err
	}
	return app.Registry.Build(ctx)
}
