package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/etcd"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
)

// Reader loads a named configuration document as a plain nested mapping.
type Reader interface {
	Read(ctx context.Context, name string) (map[string]any, error)
}

// LocalReader reads <dir>/<name>.{json,yaml,yml}.
type LocalReader struct {
	dir string
}

func NewLocalReader(dir string) *LocalReader {
	return &LocalReader{dir: dir}
}

func (r *LocalReader) Read(_ context.Context, name string) (map[string]any, error) {
	candidates := []struct {
		ext    string
		parser koanf.Parser
	}{
		{".json", json.Parser()},
		{".yaml", yaml.Parser()},
		{".yml", yaml.Parser()},
	}
	for _, c := range candidates {
		p := filepath.Join(r.dir, name+c.ext)
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, onsceneerrors.Wrap(onsceneerrors.KindConfigNotFound, err, "cannot stat config %s", p)
		}
		k := koanf.New(".")
		if err := k.Load(file.Provider(p), c.parser); err != nil {
			return nil, onsceneerrors.Wrap(onsceneerrors.KindConfigNotFound, err, "cannot parse config %s", p)
		}
		return k.Raw(), nil
	}
	return nil, onsceneerrors.New(onsceneerrors.KindConfigNotFound, "config %s not found in %s", name, r.dir)
}

// RemoteReader reads JSON documents from etcd. An unknown key is an empty document.
type RemoteReader struct {
	kv       etcd.KV
	basePath string
}

func NewRemoteReader(kv etcd.KV, basePath string) *RemoteReader {
	return &RemoteReader{kv: kv, basePath: basePath}
}

// Key is the etcd key holding document name.
func (r *RemoteReader) Key(name string) string {
	return path.Join(r.basePath, name)
}

func (r *RemoteReader) Read(ctx context.Context, name string) (map[string]any, error) {
	value, found, err := r.kv.Get(ctx, r.Key(name))
	if err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceUnavailable, err, "cannot read config %s", name)
	}
	if !found || len(value) == 0 {
		return map[string]any{}, nil
	}
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(value), json.Parser()); err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindInvalidVersion, err, "cannot parse config %s", name)
	}
	return k.Raw(), nil
}
