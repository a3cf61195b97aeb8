package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Meesho/BharatMLStack/onscene/handlers/config"
	"github.com/Meesho/BharatMLStack/onscene/handlers/model"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type ArtifactLoader interface {
	Load(ctx context.Context, modelVersion string) (*model.Artifact, error)
}

// Entry is one configured semantic version with its document and loaded artifact.
type Entry struct {
	Version  string
	Config   config.OnSceneModelConfig
	Artifact *model.Artifact
}

// Snapshot is an immutable view of the service config. Every version it names has an
// entry.
type Snapshot struct {
	Service config.OnSceneModelServiceConfig
	entries map[string]*Entry
}

func NewSnapshot(service config.OnSceneModelServiceConfig, entries map[string]*Entry) (*Snapshot, error) {
	for _, version := range service.Versions() {
		if e, ok := entries[version]; !ok || e == nil || e.Artifact == nil {
			return nil, onsceneerrors.New(onsceneerrors.KindInvalidVersion, "model %s is not loaded", version)
		}
	}
	return &Snapshot{Service: service, entries: entries}, nil
}

// Factual returns the entry whose predictions are served.
func (s *Snapshot) Factual() (*Entry, error) {
	if s == nil {
		return nil, onsceneerrors.New(onsceneerrors.KindInvalidVersion, "no model configuration loaded")
	}
	version := s.Service.FactualModelVersion
	if err := config.VerifyVersion(version); err != nil {
		return nil, err
	}
	e, ok := s.entries[version]
	if !ok {
		return nil, onsceneerrors.New(onsceneerrors.KindInvalidVersion, "factual model %s is not loaded", version)
	}
	return e, nil
}

// Shadows returns the shadow entries in configured order.
func (s *Snapshot) Shadows() []*Entry {
	if s == nil {
		return nil
	}
	out := make([]*Entry, 0, len(s.Service.ShadowModelVersions))
	for _, version := range s.Service.ShadowModelVersions {
		out = append(out, s.entries[version])
	}
	return out
}

// Registry owns the current snapshot and a process-lifetime cache of artifacts keyed by
// model version.
type Registry struct {
	reader            config.Reader
	serviceConfigName string
	loader            ArtifactLoader
	metrics           metrics.Client
	logger            zerolog.Logger

	loads     singleflight.Group
	mu        sync.RWMutex
	artifacts map[string]*model.Artifact

	swapMu  sync.Mutex
	current atomic.Pointer[Snapshot]
}

func New(reader config.Reader, serviceConfigName string, loader ArtifactLoader, metricsClient metrics.Client, logger zerolog.Logger) *Registry {
	return &Registry{
		reader:            reader,
		serviceConfigName: serviceConfigName,
		loader:            loader,
		metrics:           metricsClient,
		logger:            logger,
		artifacts:         make(map[string]*model.Artifact),
	}
}

// Current returns the snapshot requests should use, or nil before the first reload.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Reload reads the service config, loads every model it names and swaps it in. On
// failure the current snapshot stays.
func (r *Registry) Reload(ctx context.Context) (*Snapshot, error) {
	snapshot, err := r.Build(ctx)
	if err != nil {
		r.metrics.Incr("onscene.registry.reload.count", []string{metrics.BuildTag("status", onsceneerrors.KindOf(err).String())})
		r.logger.Error().Err(err).Msg("model registry reload failed, keeping current configuration")
		return nil, err
	}
	r.Swap(snapshot)
	r.metrics.Incr("onscene.registry.reload.count", []string{metrics.BuildTag("status", "ok")})
	return snapshot, nil
}

// Build loads a snapshot for the current config documents without publishing it.
func (r *Registry) Build(ctx context.Context) (*Snapshot, error) {
	set, err := config.LoadModelSet(ctx, r.reader, r.serviceConfigName)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]*Entry, len(set.Models))
	for version, cfg := range set.Models {
		artifact, err := r.Artifact(ctx, cfg.ModelVersion)
		if err != nil {
			return nil, err
		}
		entries[version] = &Entry{Version: version, Config: cfg, Artifact: artifact}
	}
	return NewSnapshot(set.Service, entries)
}

// Swap publishes snapshot. Requests that already hold the previous one keep it.
func (r *Registry) Swap(snapshot *Snapshot) {
	if snapshot == nil {
		return
	}
	r.swapMu.Lock()
	defer r.swapMu.Unlock()
	previous := r.current.Swap(snapshot)
	event := r.logger.Info().
		Str("factual_version", snapshot.Service.FactualModelVersion).
		Strs("shadow_versions", snapshot.Service.ShadowModelVersions)
	if previous != nil {
		event = event.Str("previous_factual_version", previous.Service.FactualModelVersion)
	}
	event.Msg("model configuration swapped")
}

// Artifact returns the cached artifact for modelVersion, loading it on first use.
// Concurrent first uses share one load.
func (r *Registry) Artifact(ctx context.Context, modelVersion string) (*model.Artifact, error) {
	r.mu.RLock()
	artifact, ok := r.artifacts[modelVersion]
	r.mu.RUnlock()
	if ok {
		return artifact, nil
	}
	v, err, _ := r.loads.Do(modelVersion, func() (any, error) {
		r.mu.RLock()
		cached, ok := r.artifacts[modelVersion]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}
		// the load is shared by every waiter and outlives the first caller
		loaded, err := r.loader.Load(context.WithoutCancel(ctx), modelVersion)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.artifacts[modelVersion] = loaded
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Artifact), nil
}
