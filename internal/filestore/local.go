package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
)

type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(cfg config.FileStoreConfig) (Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return &localStore{dir: cfg.Dir}, nil
}

func (s *localStore) Type() string {
	return "local"
}

func (s *localStore) Location(key string) string {
	clean, err := cleanKey(key)
	if err != nil {
		return filepath.Join(s.dir, key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean))
}

// Save writes to a temp file beside the target and renames it, so readers
// never see a partial file.
func (s *localStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	target := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.dir, filepath.FromSlash(clean)))
}
