package modelstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(*params.Bucket, *params.Key)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "models", "ON_SCENE", "v1.0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(`{}`), 0o600))

	store := NewLocalStore(root)
	data, err := store.Read(context.Background(), "models/ON_SCENE/v1.0/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	_, err = store.Read(context.Background(), "models/ON_SCENE/v9/metadata.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Read(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound, "keys cannot escape the root")
}

func TestS3Store(t *testing.T) {
	client := &mockS3{}
	client.On("GetObject", "ml-models", "registry/models/ON_SCENE/v1.0/model.json").
		Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("xgb"))}, nil)
	client.On("GetObject", "ml-models", "registry/models/ON_SCENE/v2/model.json").
		Return(nil, &types.NoSuchKey{})
	client.On("GetObject", "ml-models", "registry/models/ON_SCENE/v3/model.json").
		Return(nil, errors.New("access denied"))

	store := NewS3StoreWithClient(client, "ml-models", "registry")

	data, err := store.Read(context.Background(), "models/ON_SCENE/v1.0/model.json")
	require.NoError(t, err)
	assert.Equal(t, "xgb", string(data))

	_, err = store.Read(context.Background(), "models/ON_SCENE/v2/model.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Read(context.Background(), "models/ON_SCENE/v3/model.json")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
