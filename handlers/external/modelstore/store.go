package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Meesho/BharatMLStack/onscene/pkg/configs"
)

// ErrNotFound is returned when an object does not exist in the store.
var ErrNotFound = errors.New("model store object not found")

// Store reads model artifacts by slash separated key relative to the store root.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// New picks the backend from MODEL_STORE_PATH: s3://bucket/prefix or a local directory.
func New(ctx context.Context, configs *configs.AppConfigs) (Store, error) {
	path := configs.Configs.ModelStore_Path
	if path == "" {
		return nil, fmt.Errorf("model store path is empty")
	}
	if rest, ok := strings.CutPrefix(path, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		return NewS3Store(ctx, S3Config{
			AccessKeyID:     configs.Configs.ModelStore_S3AccessKeyID,
			SecretAccessKey: configs.Configs.ModelStore_S3SecretAccessKey,
			Region:          configs.Configs.ModelStore_S3Region,
			Endpoint:        configs.Configs.ModelStore_S3Endpoint,
		}, bucket, prefix)
	}
	return NewLocalStore(path), nil
}

// LocalStore reads from a directory tree.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Read(_ context.Context, key string) ([]byte, error) {
	clean := filepath.Clean("/" + key)
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}
