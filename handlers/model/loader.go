package model

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/handlers/external/modelstore"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/rs/zerolog"
)

const (
	modelRegistryDir = "models"
	modelName        = "ON_SCENE"
	metadataFile     = "metadata.json"
	xgbRegressor     = "XGBRegressor"
)

// Metadata describes the files of one model version in the store.
type Metadata struct {
	ModelName      string `json:"model_name"`
	ModelClass     string `json:"model_class"`
	ModelFile      string `json:"model_file"`
	PipelineFile   string `json:"pipeline_file"`
	ValidationFile string `json:"validation_file,omitempty"`
	Description    string `json:"description,omitempty"`
}

// Loader builds artifacts out of <store>/models/ON_SCENE/<model_version>/.
type Loader struct {
	store     modelstore.Store
	tolerance Tolerance
	metrics   metrics.Client
	logger    zerolog.Logger
}

func NewLoader(store modelstore.Store, tolerance Tolerance, metricsClient metrics.Client, logger zerolog.Logger) *Loader {
	return &Loader{store: store, tolerance: tolerance, metrics: metricsClient, logger: logger}
}

func versionDir(modelVersion string) string {
	return path.Join(modelRegistryDir, modelName, modelVersion)
}

func (l *Loader) Load(ctx context.Context, modelVersion string) (*Artifact, error) {
	startTime := time.Now()
	dir := versionDir(modelVersion)

	raw, err := l.read(ctx, dir, metadataFile)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceInternal, err, "invalid metadata for model %s", modelVersion)
	}
	if meta.ModelName != modelName || meta.ModelClass != xgbRegressor || meta.ModelFile == "" || meta.PipelineFile == "" {
		return nil, onsceneerrors.New(onsceneerrors.KindServiceInternal,
			"model %s metadata is not an %s %s with model and pipeline files", modelVersion, modelName, xgbRegressor)
	}

	raw, err = l.read(ctx, dir, meta.ModelFile)
	if err != nil {
		return nil, err
	}
	regressor, err := ParseXGBoostJSON(raw)
	if err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceInternal, err, "cannot load regressor for model %s", modelVersion)
	}

	raw, err = l.read(ctx, dir, meta.PipelineFile)
	if err != nil {
		return nil, err
	}
	pipeline, err := ParsePipeline(raw)
	if err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceInternal, err, "cannot load pipeline for model %s", modelVersion)
	}
	if pipeline.OutputDim() != regressor.NumFeatures() {
		return nil, onsceneerrors.New(onsceneerrors.KindServiceInternal,
			"model %s pipeline emits %d features, regressor expects %d", modelVersion, pipeline.OutputDim(), regressor.NumFeatures())
	}

	artifact := NewArtifact(modelVersion, regressor, pipeline, l.logger)

	if meta.ValidationFile != "" {
		raw, err = l.read(ctx, dir, meta.ValidationFile)
		if err != nil {
			return nil, err
		}
		set, err := ParseValidationSet(raw)
		if err != nil {
			return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceInternal, err, "cannot load validation set for model %s", modelVersion)
		}
		if err := artifact.Validate(set, l.tolerance); err != nil {
			return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceInternal, err, "model %s failed validation", modelVersion)
		}
	}

	elapsed := time.Since(startTime)
	l.metrics.Timing("onscene.model.load_ms", elapsed, []string{metrics.BuildTag("model_version", modelVersion)})
	l.logger.Info().Str("model_version", modelVersion).Dur("took", elapsed).Msg("model loaded")
	return artifact, nil
}

func (l *Loader) read(ctx context.Context, dir, file string) ([]byte, error) {
	raw, err := l.store.Read(ctx, path.Join(dir, file))
	if errors.Is(err, modelstore.ErrNotFound) {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindInvalidVersion, err, "model artifact %s missing", path.Join(dir, file))
	}
	if err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceUnavailable, err, "cannot read %s", path.Join(dir, file))
	}
	return raw, nil
}
