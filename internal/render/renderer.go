package render

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	defaultCacheSize = 256
)

type Option func(r *Renderer)

func WithCacheSize(size int) Option {
	return func(r *Renderer) {
		if size > 0 {
			r.cacheSize = size
		}
	}
}

// WithCacheTTL bounds how long a compiled template is reused. Zero keeps
// entries until evicted by size.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Renderer) {
		r.cacheTTL = ttl
	}
}

// Renderer loads templates from a root directory and renders them against
// a variable map.
type Renderer struct {
	root      string
	set       *pongo2.TemplateSet
	cache     *expirable.LRU[string, *pongo2.Template]
	cacheSize int
	cacheTTL  time.Duration
}

func New(root string, opts ...Option) (*Renderer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve template root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open template root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template root %s is not a directory", abs)
	}
	loader, err := pongo2.NewLocalFileSystemLoader(abs)
	if err != nil {
		return nil, fmt.Errorf("init template loader: %w", err)
	}
	r := &Renderer{
		root:      abs,
		set:       newSet("files", loader),
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = expirable.NewLRU[string, *pongo2.Template](r.cacheSize, nil, r.cacheTTL)
	return r, nil
}

func newSet(name string, loader pongo2.TemplateLoader) *pongo2.TemplateSet {
	set := pongo2.NewSet(name, loader)
	set.Options.TrimBlocks = true
	set.Options.LStripBlocks = true
	return set
}

func (r *Renderer) Root() string {
	return r.root
}

func (r *Renderer) Render(name string, vars map[string]interface{}) (string, error) {
	tpl, err := r.load(name)
	if err != nil {
		return "", err
	}
	return execute(name, tpl, vars)
}

func (r *Renderer) RenderString(text string, vars map[string]interface{}) (string, error) {
	tpl, err := r.set.FromString(text)
	if err != nil {
		return "", &TemplateSyntaxError{Err: err}
	}
	return execute("", tpl, vars)
}

func (r *Renderer) load(name string) (*pongo2.Template, error) {
	key := filepath.ToSlash(filepath.Clean(name))
	if tpl, ok := r.cache.Get(key); ok {
		return tpl, nil
	}
	if err := r.checkExists(key); err != nil {
		return nil, err
	}
	tpl, err := r.set.FromFile(key)
	if err != nil {
		return nil, &TemplateSyntaxError{Name: name, Err: err}
	}
	r.cache.Add(key, tpl)
	return tpl, nil
}

func (r *Renderer) checkExists(name string) error {
	notFound := &TemplateNotFoundError{Name: name, Root: r.root}
	if name == "" || name == "." || filepath.IsAbs(name) {
		return notFound
	}
	full := filepath.Join(r.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(r.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return notFound
	}
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return notFound
	}
	return nil
}

func execute(name string, tpl *pongo2.Template, vars map[string]interface{}) (string, error) {
	out, err := tpl.Execute(pongo2.Context(vars))
	if err != nil {
		if name == "" {
			return "", fmt.Errorf("render inline template: %w", err)
		}
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return out, nil
}

// Watch drops the template cache whenever files under the root change. It
// blocks until ctx is done.
func (r *Renderer) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	defer watcher.Close()
	err = filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch template root: %w", err)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("root", r.root))
	logger.Info("watching templates")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			r.onEvent(watcher, event)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("template watcher error", zap.Error(werr))
		}
	}
}

func (r *Renderer) onEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && watcher != nil {
			_ = watcher.Add(event.Name)
		}
	}
	rel, err := filepath.Rel(r.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	// compiled parents embed their includes, so any change drops everything
	if n := r.cache.Len(); n > 0 {
		r.cache.Purge()
		logutil.GetLogger(context.Background()).Debug("template cache invalidated",
			zap.String("template", filepath.ToSlash(rel)), zap.String("op", event.Op.String()), zap.Int("dropped", n))
	}
}
