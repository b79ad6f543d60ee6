package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chnghia/atomic-inference-boilerplate/internal/filestore"
	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schema"
)

const DefaultWorkers = 4

// DocumentExtractor is the single file step Batch fans out.
type DocumentExtractor interface {
	Extract(ctx context.Context, path string) (*schema.ExtractedDocument, error)
}

type Summary struct {
	TotalFiles          int      `json:"total_files"`
	Successful          int      `json:"successful"`
	Failed              int      `json:"failed"`
	TotalChunks         int      `json:"total_chunks"`
	TotalTokens         int      `json:"total_tokens"`
	AvgProcessingTimeMS float64  `json:"avg_processing_time_ms"`
	FileTypes           []string `json:"file_types"`
}

type ItemResult struct {
	Path      string                    `json:"path"`
	Document  *schema.ExtractedDocument `json:"-"`
	Error     string                    `json:"error,omitempty"`
	Output    string                    `json:"output,omitempty"`
	SaveError string                    `json:"save_error,omitempty"`
}

func (r ItemResult) OK() bool {
	return r.Document != nil
}

type BatchResult struct {
	RunID      string       `json:"run_id"`
	Directory  string       `json:"directory"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Items      []ItemResult `json:"items"`
	Summary    Summary      `json:"summary"`
}

type Batch struct {
	extractor  DocumentExtractor
	store      filestore.Store
	workers    int
	extensions []string
}

type BatchOption func(b *Batch)

// WithOutput persists each successful document as <stem>.json.
func WithOutput(store filestore.Store) BatchOption {
	return func(b *Batch) {
		b.store = store
	}
}

func WithWorkers(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithExtensions(exts []string) BatchOption {
	return func(b *Batch) {
		b.extensions = exts
	}
}

func NewBatch(extractor DocumentExtractor, opts ...BatchOption) (*Batch, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	b := &Batch{extractor: extractor, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Run extracts every matching file under dir. A failing file is recorded
// in its ItemResult and never stops the others; only an unreadable
// directory or a cancelled context fails the run.
func (b *Batch) Run(ctx context.Context, dir string) (*BatchResult, error) {
	res := &BatchResult{RunID: uuid.NewString(), Directory: dir, StartedAt: time.Now()}
	logger := logutil.GetLogger(ctx).With(zap.String("run_id", res.RunID), zap.String("dir", dir))

	files, err := ListDocuments(dir, b.extensions)
	if err != nil {
		return nil, err
	}
	logger.Info("batch started", zap.Int("files", len(files)), zap.Int("workers", b.workers))

	res.Items = make([]ItemResult, len(files))
	g := new(errgroup.Group)
	g.SetLimit(b.workers)
	for i, path := range files {
		g.Go(func() error {
			item := ItemResult{Path: path}
			if err := ctx.Err(); err != nil {
				item.Error = err.Error()
				res.Items[i] = item
				return nil
			}
			doc, err := b.extractor.Extract(ctx, path)
			if err != nil {
				item.Error = err.Error()
				logger.Warn("document failed", zap.String("path", path), zap.Error(err))
				res.Items[i] = item
				return nil
			}
			item.Document = doc
			if b.store != nil {
				key := outputKey(dir, path)
				if err := filestore.SaveJSON(ctx, b.store, key, doc); err != nil {
					item.SaveError = err.Error()
					logger.Error("save result failed", zap.String("key", key), zap.Error(err))
				} else {
					item.Output = b.store.Location(key)
				}
			}
			res.Items[i] = item
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Summary = Summarize(res.Items)
	res.FinishedAt = time.Now()
	logger.Info("batch complete",
		zap.Int("successful", res.Summary.Successful),
		zap.Int("total", res.Summary.TotalFiles),
		zap.Duration("cost", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

// outputKey mirrors the file's folder under dir so that same-stem files in
// different folders keep separate results.
func outputKey(dir, file string) string {
	key := filestore.JSONKey(file)
	rel, err := filepath.Rel(dir, filepath.Dir(file))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return key
	}
	return filepath.ToSlash(filepath.Join(rel, key))
}

func Summarize(items []ItemResult) Summary {
	s := Summary{TotalFiles: len(items), FileTypes: []string{}}
	types := map[string]struct{}{}
	var totalMS int64
	for _, item := range items {
		if !item.OK() {
			s.Failed++
			continue
		}
		s.Successful++
		s.TotalChunks += item.Document.ChunkCount
		s.TotalTokens += item.Document.TotalTokens
		totalMS += item.Document.ProcessingTimeMS
		types[item.Document.FileType] = struct{}{}
	}
	if s.Successful > 0 {
		s.AvgProcessingTimeMS = float64(totalMS) / float64(s.Successful)
	}
	for t := range types {
		s.FileTypes = append(s.FileTypes, t)
	}
	sort.Strings(s.FileTypes)
	return s
}

// ListDocuments walks dir recursively and returns files whose extension is
// in exts, sorted. Extensions match with or without the leading dot.
func ListDocuments(dir string, exts []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory %s", appErr.ErrFileNotFound, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", appErr.ErrInvalid, dir)
	}
	allowed := map[string]struct{}{}
	for _, e := range exts {
		allowed[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))] = struct{}{}
	}
	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if _, ok := allowed[ext]; ok || len(allowed) == 0 {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
