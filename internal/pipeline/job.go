package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// BatchJob runs a batch over a fixed directory on a schedule and, when
// reportPath is set, rewrites the xlsx report after every run.
type BatchJob struct {
	batch      *Batch
	dir        string
	reportPath string
	onResult   func(*BatchResult)
}

func NewBatchJob(batch *Batch, dir, reportPath string, onResult func(*BatchResult)) *BatchJob {
	return &BatchJob{batch: batch, dir: dir, reportPath: reportPath, onResult: onResult}
}

func (j *BatchJob) Name() string {
	return "batch_extract"
}

func (j *BatchJob) Run(ctx context.Context) error {
	res, err := j.batch.Run(ctx, j.dir)
	if err != nil {
		return err
	}
	if j.reportPath != "" {
		if err := SaveReport(j.reportPath, res); err != nil {
			return err
		}
		logutil.GetLogger(ctx).Info("batch report written", zap.String("path", j.reportPath))
	}
	if j.onResult != nil {
		j.onResult(res)
	}
	return nil
}

// SaveReport writes the xlsx report to path.
func SaveReport(path string, res *BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteReport(f, res); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
