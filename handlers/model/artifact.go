package model

import (
	"math"

	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/matrix"
	"github.com/rs/zerolog"
)

// maxMinutes bounds a prediction so that shaping stays within int64 minutes.
const maxMinutes = 1 << 53

// RegressorFunc adapts a function to Regressor with unknown input width.
type RegressorFunc func(x matrix.Matrix) ([]float64, error)

func (f RegressorFunc) Predict(x matrix.Matrix) ([]float64, error) { return f(x) }
func (f RegressorFunc) NumFeatures() int                           { return 0 }

// Artifact is a trained regressor whose target is log(minutes) together with its
// preprocessing pipeline. It is immutable and safe for concurrent use.
type Artifact struct {
	version   string
	regressor Regressor
	pipeline  Transformer
	logger    zerolog.Logger
}

func NewArtifact(version string, regressor Regressor, pipeline Transformer, logger zerolog.Logger) *Artifact {
	return &Artifact{
		version:   version,
		regressor: regressor,
		pipeline:  pipeline,
		logger:    logger.With().Str("model_version", version).Logger(),
	}
}

func (a *Artifact) Version() string { return a.version }

// Transform runs the preprocessing pipeline over the raw features.
func (a *Artifact) Transform(frame *matrix.Frame) (matrix.Matrix, error) {
	x, err := a.pipeline.Transform(frame)
	if err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceInternal, err, "feature pipeline failed for model %s", a.version)
	}
	return x, nil
}

// Predict returns exp(regressor(x)) per row, in minutes.
func (a *Artifact) Predict(x matrix.Matrix) ([]float64, error) {
	rows := x.Rows()
	if rows == 0 {
		return []float64{}, nil
	}
	if n := a.regressor.NumFeatures(); n > 0 && x.Cols() != n {
		return nil, onsceneerrors.New(onsceneerrors.KindServiceInternal,
			"model %s expects %d features, got %d", a.version, n, x.Cols())
	}
	logMinutes, err := a.regressor.Predict(x)
	if err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceInternal, err, "regressor failed for model %s", a.version)
	}
	if len(logMinutes) != rows {
		return nil, onsceneerrors.New(onsceneerrors.KindServiceInternal,
			"regressor for model %s returned %d values for %d rows", a.version, len(logMinutes), rows)
	}
	minutes := make([]float64, rows)
	for i, v := range logMinutes {
		minutes[i] = math.Exp(v)
		if math.IsNaN(minutes[i]) || minutes[i] > maxMinutes {
			return nil, onsceneerrors.New(onsceneerrors.KindServiceInternal,
				"model %s produced an out of range prediction at row %d", a.version, i)
		}
	}
	return minutes, nil
}
