package model

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Meesho/BharatMLStack/onscene/handlers/external/modelstore"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoColumnPipeline = `{"steps": [
	{"name": "risk", "type": "passthrough", "column": "risk_score"},
	{"name": "size", "type": "passthrough", "column": "team_size"}
]}`

func writeModel(t *testing.T, root, version string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, "models", "ON_SCENE", version)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
}

func metadataJSON(t *testing.T, meta Metadata) string {
	t.Helper()
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	return string(raw)
}

func validMetadata() Metadata {
	return Metadata{ModelName: "ON_SCENE", ModelClass: "XGBRegressor", ModelFile: "model.json", PipelineFile: "pipeline.json"}
}

func newTestLoader(root string, recorder metrics.Client) *Loader {
	return NewLoader(modelstore.NewLocalStore(root), Tolerance{Error: 0.05, Warn: 0.01}, recorder, zerolog.Nop())
}

func TestLoaderLoad(t *testing.T) {
	root := t.TempDir()
	meta := validMetadata()
	meta.ValidationFile = "validation.json"
	writeModel(t, root, "v1.0", map[string]string{
		"metadata.json":   metadataJSON(t, meta),
		"model.json":      twoStumps,
		"pipeline.json":   twoColumnPipeline,
		"validation.json": `{"features": [[0.2, 20], [0.7, 5]], "targets": [2.15, 3.35], "expected_rmse": 0.1}`,
	})
	recorder := metrics.NewRecorder()

	artifact, err := newTestLoader(root, recorder).Load(context.Background(), "v1.0")
	require.NoError(t, err)
	assert.Equal(t, "v1.0", artifact.Version())
	assert.Len(t, recorder.Events("onscene.model.load_ms"), 1)
}

func TestLoaderErrors(t *testing.T) {
	root := t.TempDir()
	writeModel(t, root, "v2", map[string]string{
		"metadata.json": metadataJSON(t, validMetadata()),
		"model.json":    twoStumps,
		"pipeline.json": `{"steps": [{"name": "risk", "type": "passthrough", "column": "risk_score"}]}`,
	})
	badClass := validMetadata()
	badClass.ModelClass = "LGBMRegressor"
	writeModel(t, root, "v3", map[string]string{"metadata.json": metadataJSON(t, badClass)})
	writeModel(t, root, "v4", map[string]string{"metadata.json": metadataJSON(t, validMetadata()), "model.json": twoStumps})
	drifting := validMetadata()
	drifting.ValidationFile = "validation.json"
	writeModel(t, root, "v5", map[string]string{
		"metadata.json":   metadataJSON(t, drifting),
		"model.json":      twoStumps,
		"pipeline.json":   twoColumnPipeline,
		"validation.json": `{"features": [[0.2, 20]], "targets": [2.25], "expected_rmse": 0.5}`,
	})

	tests := []struct {
		version string
		kind    onsceneerrors.Kind
	}{
		{"v9", onsceneerrors.KindInvalidVersion},
		{"v2", onsceneerrors.KindServiceInternal},
		{"v3", onsceneerrors.KindServiceInternal},
		{"v4", onsceneerrors.KindInvalidVersion},
		{"v5", onsceneerrors.KindServiceInternal},
	}
	loader := newTestLoader(root, metrics.Noop{})
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			_, err := loader.Load(context.Background(), tt.version)
			assert.Equal(t, tt.kind, onsceneerrors.KindOf(err))
		})
	}
}
