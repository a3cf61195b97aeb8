package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig(t *testing.T) {
	t.Setenv("FEATURE_STORE_ENDPOINT", "localhost:6379")
	t.Setenv("MODEL_STORE_PATH", "s3://models/onscene")
	t.Setenv("SHADOW_SAMPLE_PERCENT", "25")
	t.Setenv("EVENT_STREAMING_API_TOKEN", "secret")

	appConfigs := &AppConfigs{}
	require.NoError(t, InitConfig(appConfigs))

	cfg := appConfigs.Configs
	assert.Equal(t, "localhost:6379", cfg.FeatureStore_Endpoint)
	assert.Equal(t, "s3://models/onscene", cfg.ModelStore_Path)
	assert.Equal(t, 25, cfg.ShadowSamplePercent)
	assert.Equal(t, "secret", cfg.EventStreamingAPIToken)
	assert.Equal(t, "on_scene_model_service", cfg.ServiceConfigName)
	assert.Equal(t, ConfigSourceLocal, cfg.ConfigSource)
	assert.Equal(t, 1000, cfg.RequestDeadlineMs)
	assert.InDelta(t, 0.05, cfg.ModelValidation_ErrorTol, 1e-9)
}

func TestInitConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing feature store endpoint",
			env:  map[string]string{"MODEL_STORE_PATH": "/models"},
		},
		{
			name: "missing model store path",
			env:  map[string]string{"FEATURE_STORE_ENDPOINT": "localhost:6379"},
		},
		{
			name: "etcd source without server",
			env: map[string]string{
				"FEATURE_STORE_ENDPOINT": "localhost:6379",
				"MODEL_STORE_PATH":       "/models",
				"CONFIG_SOURCE":          "etcd",
			},
		},
		{
			name: "sample percent out of range",
			env: map[string]string{
				"FEATURE_STORE_ENDPOINT": "localhost:6379",
				"MODEL_STORE_PATH":       "/models",
				"SHADOW_SAMPLE_PERCENT":  "120",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FEATURE_STORE_ENDPOINT", "")
			t.Setenv("MODEL_STORE_PATH", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Error(t, InitConfig(&AppConfigs{}))
		})
	}
}

func TestCallerTokens(t *testing.T) {
	cfg := Configs{AuthCallerTokens: "dispatch:abc, triage:xyz,broken,:nocaller"}
	assert.Equal(t, map[string]string{"dispatch": "abc", "triage": "xyz"}, cfg.CallerTokens())
	assert.Empty(t, (&Configs{}).CallerTokens())
}
