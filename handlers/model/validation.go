package model

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Meesho/BharatMLStack/onscene/pkg/matrix"
)

// ValidationSet is a held-out, already transformed test set plus the metric recorded at
// training time.
type ValidationSet struct {
	Features [][]float64 `json:"features"`
	// Targets are log(minutes)
	Targets      []float64 `json:"targets"`
	ExpectedRMSE float64   `json:"expected_rmse"`
}

type Tolerance struct {
	Error float64
	Warn  float64
}

func ParseValidationSet(data []byte) (*ValidationSet, error) {
	var set ValidationSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("invalid validation set: %w", err)
	}
	if len(set.Features) == 0 || len(set.Features) != len(set.Targets) {
		return nil, fmt.Errorf("validation set has %d rows and %d targets", len(set.Features), len(set.Targets))
	}
	if set.ExpectedRMSE <= 0 {
		return nil, fmt.Errorf("validation set expected_rmse must be positive")
	}
	return &set, nil
}

func (s *ValidationSet) matrix() (*matrix.Dense, error) {
	cols := len(s.Features[0])
	data := make([]float64, 0, len(s.Features)*cols)
	for i, row := range s.Features {
		if len(row) != cols {
			return nil, fmt.Errorf("validation row %d has %d values, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return matrix.NewDense(len(s.Features), cols, data)
}

// Validate re-scores the held-out set and compares the RMSE on the log target with the
// recorded one. Drift above tol.Error fails; drift above tol.Warn is logged.
func (a *Artifact) Validate(set *ValidationSet, tol Tolerance) error {
	x, err := set.matrix()
	if err != nil {
		return err
	}
	predicted, err := a.regressor.Predict(x)
	if err != nil {
		return err
	}
	if len(predicted) != len(set.Targets) {
		return fmt.Errorf("regressor returned %d values for %d validation rows", len(predicted), len(set.Targets))
	}
	var sq float64
	for i, p := range predicted {
		d := p - set.Targets[i]
		sq += d * d
	}
	rmse := math.Sqrt(sq / float64(len(predicted)))
	drift := math.Abs(rmse-set.ExpectedRMSE) / set.ExpectedRMSE

	switch {
	case drift > tol.Error:
		return fmt.Errorf("model %s validation rmse %.5f differs from recorded %.5f by %.2f%%",
			a.version, rmse, set.ExpectedRMSE, drift*100)
	case drift > tol.Warn:
		a.logger.Warn().
			Float64("rmse", rmse).
			Float64("expected_rmse", set.ExpectedRMSE).
			Float64("drift", drift).
			Msg("model validation drift above warning tolerance")
	default:
		a.logger.Info().Float64("rmse", rmse).Msg("model validation passed")
	}
	return nil
}
