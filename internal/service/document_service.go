package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/filestore"
	"github.com/chnghia/atomic-inference-boilerplate/internal/loader"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pipeline"
	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schema"
)

type ExtractResult struct {
	Document *schema.ExtractedDocument `json:"document"`
	// Output is where the JSON was written, empty when not saved.
	Output string `json:"output,omitempty"`
}

type DocumentService struct {
	loaders   *loader.Registry
	extractor *pipeline.Extractor
	batch     *pipeline.Batch
	output    filestore.Store
}

// NewDocumentService wires the document pipeline. output may be nil, which
// disables saving.
func NewDocumentService(loaders *loader.Registry, extractor *pipeline.Extractor, batch *pipeline.Batch, output filestore.Store) *DocumentService {
	return &DocumentService{loaders: loaders, extractor: extractor, batch: batch, output: output}
}

func (s *DocumentService) Load(ctx context.Context, path string) (*loader.RawDocument, error) {
	return s.loaders.Load(ctx, path)
}

func (s *DocumentService) Extract(ctx context.Context, path string, save bool) (*ExtractResult, error) {
	doc, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	res := &ExtractResult{Document: doc}
	if !save {
		return res, nil
	}
	if s.output == nil {
		return nil, fmt.Errorf("%w: no output store configured", appErr.ErrInvalid)
	}
	key := filestore.JSONKey(doc.FileName)
	if err := filestore.SaveJSON(ctx, s.output, key, doc); err != nil {
		return nil, err
	}
	res.Output = s.output.Location(key)
	logutil.GetLogger(ctx).Info("extraction saved", zap.String("file", doc.FileName), zap.String("output", res.Output))
	return res, nil
}

// WithUpload copies r into a scratch directory under its original file
// name, calls fn with the local path and removes the copy afterwards.
func (s *DocumentService) WithUpload(ctx context.Context, name string, r io.Reader, fn func(path string) error) error {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fmt.Errorf("%w: upload has no file name", appErr.ErrInvalid)
	}
	if !s.loaders.Supports(base) {
		return fmt.Errorf("%w: %s", appErr.ErrUnsupportedFormat, filepath.Ext(base))
	}
	dir, err := os.MkdirTemp("", "atomic-upload-")
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logutil.GetLogger(ctx).Warn("remove upload dir failed", zap.String("dir", dir), zap.Error(err))
		}
	}()
	path := filepath.Join(dir, base)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return fn(path)
}

// Pipeline exposes the batch pipeline for scheduling.
func (s *DocumentService) Pipeline() *pipeline.Batch {
	return s.batch
}

func (s *DocumentService) Batch(ctx context.Context, dir, reportPath string) (*pipeline.BatchResult, error) {
	if s.batch == nil {
		return nil, fmt.Errorf("%w: batch pipeline not configured", appErr.ErrInvalid)
	}
	res, err := s.batch.Run(ctx, dir)
	if err != nil {
		return nil, err
	}
	if reportPath != "" {
		if err := pipeline.SaveReport(reportPath, res); err != nil {
			return res, err
		}
	}
	return res, nil
}
