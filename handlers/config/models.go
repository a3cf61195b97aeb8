package config

import (
	"slices"

	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// OnSceneModelConfig is the per-model document, named after the semantic version.
type OnSceneModelConfig struct {
	ModelName string `mapstructure:"model_name" json:"model_name" validate:"required"`
	// ModelVersion is the artifact version in the model store, which may differ from the
	// semantic version the document is named after.
	ModelVersion         string `mapstructure:"model_version" json:"model_version" validate:"required"`
	Description          string `mapstructure:"description" json:"description"`
	PredictionAdjustment int64  `mapstructure:"prediction_adjustment" json:"prediction_adjustment"`
	MinimumOnSceneTime   int64  `mapstructure:"minimum_on_scene_time" json:"minimum_on_scene_time" validate:"gte=0"`
}

// OnSceneModelServiceConfig selects the factual model and its shadows.
type OnSceneModelServiceConfig struct {
	FactualModelVersion string   `mapstructure:"factual_model_version" json:"factual_model_version" validate:"required"`
	ShadowModelVersions []string `mapstructure:"shadow_model_versions" json:"shadow_model_versions" validate:"unique,dive,required"`
}

// Versions returns the factual version followed by the shadows.
func (c OnSceneModelServiceConfig) Versions() []string {
	return append([]string{c.FactualModelVersion}, c.ShadowModelVersions...)
}

// ParseServiceConfig decodes and validates a service document.
func ParseServiceConfig(raw map[string]any) (OnSceneModelServiceConfig, error) {
	var cfg OnSceneModelServiceConfig
	if len(raw) == 0 {
		return cfg, onsceneerrors.New(onsceneerrors.KindConfigNotFound, "service config is empty")
	}
	if err := decode(raw, &cfg); err != nil {
		return cfg, onsceneerrors.Wrap(onsceneerrors.KindInvalidVersion, err, "cannot decode service config")
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, onsceneerrors.Wrap(onsceneerrors.KindInvalidVersion, err, "invalid service config")
	}
	for _, v := range cfg.Versions() {
		if err := VerifyVersion(v); err != nil {
			return cfg, err
		}
	}
	if slices.Contains(cfg.ShadowModelVersions, cfg.FactualModelVersion) {
		return cfg, onsceneerrors.New(onsceneerrors.KindInvalidVersion,
			"factual version %s is also listed as a shadow", cfg.FactualModelVersion)
	}
	return cfg, nil
}

// ParseModelConfig decodes and validates a per-model document.
func ParseModelConfig(raw map[string]any) (OnSceneModelConfig, error) {
	var cfg OnSceneModelConfig
	if len(raw) == 0 {
		return cfg, onsceneerrors.New(onsceneerrors.KindConfigNotFound, "model config is empty")
	}
	if err := decode(raw, &cfg); err != nil {
		return cfg, onsceneerrors.Wrap(onsceneerrors.KindInvalidVersion, err, "cannot decode model config")
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, onsceneerrors.Wrap(onsceneerrors.KindInvalidVersion, err, "invalid model config")
	}
	return cfg, nil
}

func decode(raw map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
