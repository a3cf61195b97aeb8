package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockKV struct {
	mock.Mock
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	value, _ := args.Get(0).([]byte)
	return value, args.Bool(1), args.Error(2)
}

func TestVerifyVersion(t *testing.T) {
	tests := []struct {
		version string
		valid   bool
	}{
		{"v1", true},
		{"v1.0", true},
		{"v12.34", true},
		{"v1.", false},
		{"v1.0.1", false},
		{"1.0", false},
		{"v", false},
		{"v1a", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := VerifyVersion(tt.version)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, onsceneerrors.Is(err, onsceneerrors.KindInvalidVersion))
		})
	}
}

func TestModelConfigName(t *testing.T) {
	name, err := ModelConfigName("v2.0")
	require.NoError(t, err)
	assert.Equal(t, "on_scene_model_v2p0", name)

	name, err = ModelConfigName("v1")
	require.NoError(t, err)
	assert.Equal(t, "on_scene_model_v1", name)

	_, err = ModelConfigName("latest")
	assert.Error(t, err)
}

func TestParseServiceConfig(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		wantKind onsceneerrors.Kind
		wantErr  bool
		want     OnSceneModelServiceConfig
	}{
		{
			name: "factual only",
			raw:  map[string]any{"factual_model_version": "v1"},
			want: OnSceneModelServiceConfig{FactualModelVersion: "v1"},
		},
		{
			name: "with shadows",
			raw:  map[string]any{"factual_model_version": "v1", "shadow_model_versions": []any{"v2", "v2.1"}},
			want: OnSceneModelServiceConfig{FactualModelVersion: "v1", ShadowModelVersions: []string{"v2", "v2.1"}},
		},
		{
			name:     "empty document",
			raw:      map[string]any{},
			wantErr:  true,
			wantKind: onsceneerrors.KindConfigNotFound,
		},
		{
			name:     "missing factual",
			raw:      map[string]any{"shadow_model_versions": []any{"v2"}},
			wantErr:  true,
			wantKind: onsceneerrors.KindInvalidVersion,
		},
		{
			name:     "duplicate shadows",
			raw:      map[string]any{"factual_model_version": "v1", "shadow_model_versions": []any{"v2", "v2"}},
			wantErr:  true,
			wantKind: onsceneerrors.KindInvalidVersion,
		},
		{
			name:     "factual among shadows",
			raw:      map[string]any{"factual_model_version": "v1", "shadow_model_versions": []any{"v1"}},
			wantErr:  true,
			wantKind: onsceneerrors.KindInvalidVersion,
		},
		{
			name:     "bad version syntax",
			raw:      map[string]any{"factual_model_version": "v1.0.0"},
			wantErr:  true,
			wantKind: onsceneerrors.KindInvalidVersion,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServiceConfig(tt.raw)
			if tt.wantErr {
				assert.True(t, onsceneerrors.Is(err, tt.wantKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseModelConfig(t *testing.T) {
	cfg, err := ParseModelConfig(map[string]any{
		"model_name":            "ON_SCENE",
		"model_version":         "v2.0",
		"description":           "minimal features",
		"prediction_adjustment": float64(5),
		"minimum_on_scene_time": 25,
	})
	require.NoError(t, err)
	assert.Equal(t, OnSceneModelConfig{
		ModelName:            "ON_SCENE",
		ModelVersion:         "v2.0",
		Description:          "minimal features",
		PredictionAdjustment: 5,
		MinimumOnSceneTime:   25,
	}, cfg)

	_, err = ParseModelConfig(map[string]any{"model_name": "ON_SCENE", "model_version": "v1", "minimum_on_scene_time": -1})
	assert.Error(t, err)

	_, err = ParseModelConfig(map[string]any{"model_name": "ON_SCENE"})
	assert.Error(t, err)
}

func TestLocalReader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "on_scene_model_service.json"),
		[]byte(`{"factual_model_version": "v1", "shadow_model_versions": ["v2"]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "on_scene_model_v1.yaml"),
		[]byte("model_name: ON_SCENE\nmodel_version: v1.0\nprediction_adjustment: 0\nminimum_on_scene_time: 10\n"), 0o600))

	reader := NewLocalReader(dir)

	raw, err := reader.Read(context.Background(), "on_scene_model_service")
	require.NoError(t, err)
	assert.Equal(t, "v1", raw["factual_model_version"])

	raw, err = reader.Read(context.Background(), "on_scene_model_v1")
	require.NoError(t, err)
	assert.Equal(t, "v1.0", raw["model_version"])

	_, err = reader.Read(context.Background(), "on_scene_model_v9")
	assert.True(t, onsceneerrors.Is(err, onsceneerrors.KindConfigNotFound))
}

func TestRemoteReader(t *testing.T) {
	ctx := context.Background()

	t.Run("known key", func(t *testing.T) {
		kv := &mockKV{}
		kv.On("Get", ctx, "/config/onscene/on_scene_model_service").
			Return([]byte(`{"factual_model_version":"v1"}`), true, nil)
		raw, err := NewRemoteReader(kv, "/config/onscene").Read(ctx, "on_scene_model_service")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"factual_model_version": "v1"}, raw)
		kv.AssertExpectations(t)
	})

	t.Run("unknown key is empty", func(t *testing.T) {
		kv := &mockKV{}
		kv.On("Get", ctx, "/config/onscene/missing").Return(nil, false, nil)
		raw, err := NewRemoteReader(kv, "/config/onscene").Read(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, raw)
		assert.NotNil(t, raw)
	})

	t.Run("backend failure", func(t *testing.T) {
		kv := &mockKV{}
		kv.On("Get", ctx, "/config/onscene/x").Return(nil, false, stderrors.New("etcd down"))
		_, err := NewRemoteReader(kv, "/config/onscene").Read(ctx, "x")
		assert.True(t, onsceneerrors.Is(err, onsceneerrors.KindServiceUnavailable))
	})
}

type mapReader map[string]map[string]any

func (m mapReader) Read(_ context.Context, name string) (map[string]any, error) {
	raw, ok := m[name]
	if !ok {
		return nil, onsceneerrors.New(onsceneerrors.KindConfigNotFound, "%s", name)
	}
	return raw, nil
}

func TestLoadModelSet(t *testing.T) {
	reader := mapReader{
		"on_scene_model_service": {"factual_model_version": "v1", "shadow_model_versions": []any{"v2.0"}},
		"on_scene_model_v1":      {"model_name": "ON_SCENE", "model_version": "v1.0", "minimum_on_scene_time": 20},
		"on_scene_model_v2p0":    {"model_name": "ON_SCENE", "model_version": "v2.0", "prediction_adjustment": 3},
	}
	set, err := LoadModelSet(context.Background(), reader, "on_scene_model_service")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2.0"}, set.Service.Versions())
	assert.Equal(t, int64(20), set.Models["v1"].MinimumOnSceneTime)
	assert.Equal(t, int64(3), set.Models["v2.0"].PredictionAdjustment)

	delete(reader, "on_scene_model_v2p0")
	_, err = LoadModelSet(context.Background(), reader, "on_scene_model_service")
	assert.True(t, onsceneerrors.Is(err, onsceneerrors.KindConfigNotFound))
}
