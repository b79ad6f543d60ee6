package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/textutil"
)

// Section is a heading found while loading. Position is the rune offset
// of the heading text in Content.
type Section struct {
	Title    string `json:"title"`
	Position int    `json:"position"`
	Level    int    `json:"level"`
}

type RawDocument struct {
	FilePath    string    `json:"file_path"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	Content     string    `json:"content"`
	PageCount   *int      `json:"page_count,omitempty"`
	WordCount   int       `json:"word_count"`
	RawSections []Section `json:"raw_sections"`
	LoadedAt    time.Time `json:"loaded_at"`
}

func (d *RawDocument) CharCount() int {
	return len([]rune(d.Content))
}

type Loader interface {
	Extensions() []string
	Load(ctx context.Context, path string) (*RawDocument, error)
}

type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

func NewRegistry(loaders ...Loader) *Registry {
	r := &Registry{loaders: map[string]Loader{}}
	for _, l := range loaders {
		r.Register(l)
	}
	return r
}

// Default returns a registry with every built-in format.
func Default() *Registry {
	return NewRegistry(
		NewMarkdownLoader(),
		NewHTMLLoader(),
		NewDOCXLoader(),
		NewPDFLoader(),
		NewTextLoader(),
	)
}

func (r *Registry) Register(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range l.Extensions() {
		r.loaders[normalizeExt(ext)] = l
	}
}

func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Supports(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaders[normalizeExt(filepath.Ext(path))]
	return ok
}

func (r *Registry) Load(ctx context.Context, path string) (*RawDocument, error) {
	if _, err := statFile(path); err != nil {
		return nil, err
	}
	ext := normalizeExt(filepath.Ext(path))
	r.mu.RLock()
	l, ok := r.loaders[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s): %s", appErr.ErrUnsupportedFormat, ext, strings.Join(r.Extensions(), ", "), path)
	}
	start := time.Now()
	doc, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("document loaded",
		zap.String("path", path),
		zap.String("type", doc.FileType),
		zap.Int("sections", len(doc.RawSections)),
		zap.Duration("cost", time.Since(start)),
	)
	return doc, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func statFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", appErr.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", appErr.ErrNotAFile, path)
	}
	return info, nil
}

// validatePath runs the checks every loader shares and returns the file
// info of path.
func validatePath(path string, exts []string) (os.FileInfo, error) {
	info, err := statFile(path)
	if err != nil {
		return nil, err
	}
	ext := normalizeExt(filepath.Ext(path))
	for _, e := range exts {
		if e == ext {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (supported: %s): %s", appErr.ErrUnsupportedFormat, ext, strings.Join(exts, ", "), path)
}

func newDocument(path string, info os.FileInfo, fileType string, content string, sections []Section) *RawDocument {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if sections == nil {
		sections = []Section{}
	}
	return &RawDocument{
		FilePath:    abs,
		FileName:    filepath.Base(path),
		FileType:    fileType,
		FileSize:    info.Size(),
		Content:     content,
		WordCount:   textutil.CountWords(content),
		RawSections: sections,
		LoadedAt:    time.Now(),
	}
}
