package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/handler"
	"github.com/chnghia/atomic-inference-boilerplate/internal/job"
	"github.com/chnghia/atomic-inference-boilerplate/internal/middleware"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pipeline"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schedule"
)

const cacheCleanupSpec = "@daily"

func newRunCmd(withApp appRunner) *cobra.Command {
	var allowPaths bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the http api",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			return runServer(ctx, a, allowPaths)
		}),
	}
	cmd.Flags().BoolVar(&allowPaths, "allow-paths", false, "let document requests name files on the server disk")
	return cmd
}

func runServer(ctx context.Context, a *app, allowPaths bool) error {
	cfg := a.cfg
	logger := logutil.GetLogger(ctx)

	if cfg.Templates.Watch {
		go func() {
			if err := a.renderer.Watch(ctx); err != nil {
				logger.Error("template watch stopped", zap.Error(err))
			}
		}()
	}

	sched := schedule.NewCronScheduler()
	scheduled := false
	if cfg.Batch.Schedule != "" && cfg.Batch.InputDir != "" {
		batchJob := pipeline.NewBatchJob(a.documents.Pipeline(), cfg.Batch.InputDir, cfg.Batch.ReportPath, nil)
		if err := sched.AddJob(batchJob, cfg.Batch.Schedule); err != nil {
			return err
		}
		scheduled = true
	}
	if a.cacheRepo != nil {
		if err := sched.AddJob(job.NewEmbeddingCacheCleanupJob(a.cacheRepo, cfg.Memory.CacheKeepDays), cacheCleanupSpec); err != nil {
			return err
		}
		scheduled = true
	}
	if scheduled {
		sched.Start(ctx)
		defer sched.Stop()
	}

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(a.auth),
		Units:     handler.NewUnitHandler(a.inference),
		Documents: handler.NewDocumentHandler(a.documents, int64(cfg.UploadLimitMB)<<20, allowPaths),
		Memories:  handler.NewMemoryHandler(a.memories),
		Agents:    handler.NewAgentHandler(a.agents),
		AuthCfg:   cfg.Auth,
		RateLimit: middleware.RateLimitPerWindow(cfg.RateLimit.Limit, time.Duration(cfg.RateLimit.WindowSec)*time.Second),
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening", zap.String("addr", addr), zap.Bool("auth", cfg.Auth.Enabled()))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}
