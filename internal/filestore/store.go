package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
)

const ContentTypeJSON = "application/json"

// Store persists pipeline outputs under flat or slash separated keys.
type Store interface {
	Type() string
	Save(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Location describes where key ends up, for logs and summaries.
	Location(key string) string
}

type Factory func(cfg config.FileStoreConfig) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.FileStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
	return factory(cfg)
}

// SaveJSON writes v indented under key.
func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Save(ctx, key, bytes.NewReader(data), int64(len(data)), ContentTypeJSON)
}

// JSONKey returns "<stem>.json" for a source file name.
func JSONKey(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base)) + ".json"
}

func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", fmt.Errorf("file key is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", fmt.Errorf("invalid file key: %s", key)
		}
	}
	return key, nil
}
