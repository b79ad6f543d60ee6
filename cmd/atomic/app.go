package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/ai"
	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
	"github.com/chnghia/atomic-inference-boilerplate/internal/db"
	"github.com/chnghia/atomic-inference-boilerplate/internal/embedcache"
	"github.com/chnghia/atomic-inference-boilerplate/internal/filestore"
	"github.com/chnghia/atomic-inference-boilerplate/internal/loader"
	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pipeline"
	"github.com/chnghia/atomic-inference-boilerplate/internal/render"
	"github.com/chnghia/atomic-inference-boilerplate/internal/repo"
	"github.com/chnghia/atomic-inference-boilerplate/internal/service"
)

// app is every long lived component a command may need, built once from
// the loaded config.
type app struct {
	cfg       *config.Config
	renderer  *render.Renderer
	client    *ai.Client
	catalog   *service.Catalog
	db        *sqlx.DB
	cacheRepo *repo.EmbeddingCacheRepo
	store     memory.Store
	output    filestore.Store

	inference *service.InferenceService
	documents *service.DocumentService
	memories  *service.MemoryService
	agents    *service.AgentService
	auth      *service.AuthService
}

func aiSettings(cfg config.AIConfig) (ai.Settings, error) {
	s := ai.DefaultSettings()
	if cfg.DefaultProvider != "" {
		s.DefaultProvider = strings.ToLower(cfg.DefaultProvider)
	}
	mode, err := ai.ParseMode(cfg.Mode)
	if err != nil {
		return s, err
	}
	s.Mode = mode
	if cfg.TimeoutSec > 0 {
		s.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	s.RateLimit = cfg.RateLimit
	s.RateBurst = cfg.RateBurst
	s.TransportRetries = cfg.TransportRetries
	for name, p := range cfg.Providers {
		s.Providers[strings.ToLower(name)] = ai.ProviderArgs{APIKey: p.APIKey, BaseURL: p.BaseURL, Headers: p.Headers}
	}
	return s, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	logger := logutil.GetLogger(ctx)

	settings, err := aiSettings(cfg.AI)
	if err != nil {
		return nil, err
	}
	if cfg.AI.DefaultModel != "" {
		ai.SetDefaultModel(cfg.AI.DefaultModel)
	}
	a.client, err = ai.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("init ai client: %w", err)
	}
	a.renderer, err = render.New(cfg.TemplateDir,
		render.WithCacheSize(cfg.Templates.CacheSize),
		render.WithCacheTTL(time.Duration(cfg.Templates.CacheTTLSec)*time.Second),
	)
	if err != nil {
		return nil, err
	}
	a.catalog, err = service.NewCatalog(a.renderer, a.client, cfg.AI.DefaultModel)
	if err != nil {
		return nil, err
	}

	if needsDatabase(cfg) {
		a.db, err = db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := db.ApplyMigrations(ctx, a.db.DB); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	a.store, err = a.newMemoryStore(settings)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.output, err = filestore.New(cfg.FileStore)
	if err != nil {
		a.Close()
		return nil, err
	}

	loaders := loader.Default()
	var extractOpts []pipeline.ExtractorOption
	if a.store != nil {
		extractOpts = append(extractOpts, pipeline.WithMemory(a.store))
	}
	extractor, err := pipeline.NewExtractor(loaders, a.catalog.PipelineUnits(), extractOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	batch, err := pipeline.NewBatch(extractor,
		pipeline.WithOutput(a.output),
		pipeline.WithWorkers(cfg.Batch.Workers),
		pipeline.WithExtensions(cfg.Batch.Extensions),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.inference = service.NewInferenceService(a.catalog, a.store, cfg.Memory.TopK)
	a.documents = service.NewDocumentService(loaders, extractor, batch, a.output)
	a.memories = service.NewMemoryService(a.store, cfg.Memory.TopK)
	a.auth = service.NewAuthService(cfg.Auth)
	a.agents, err = service.NewAgentService(a.catalog, a.store, 0, cfg.Memory.TopK)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("app ready",
		zap.String("default_model", ai.DefaultModel()),
		zap.String("memory", cfg.Memory.Type),
		zap.String("file_store", a.output.Type()),
		zap.Bool("database", a.db != nil),
	)
	return a, nil
}

func needsDatabase(cfg *config.Config) bool {
	return cfg.Memory.Type == "pg" || (cfg.Memory.PersistCache && cfg.Memory.Type != "none" && cfg.Memory.Type != "naive")
}

func (a *app) newEmbedder(settings ai.Settings) (ai.IEmbedder, error) {
	mc := a.cfg.Memory
	embedder, err := ai.NewEmbedders(settings, mc.EmbedModels)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	if a.db != nil && mc.PersistCache {
		a.cacheRepo = repo.NewEmbeddingCacheRepo(a.db)
		embedder = embedcache.WrapStore(embedder, a.cacheRepo)
	}
	return embedcache.WrapLRU(embedder, mc.CacheSize, time.Duration(mc.CacheTTLSec)*time.Second), nil
}

func (a *app) newMemoryStore(settings ai.Settings) (memory.Store, error) {
	mc := a.cfg.Memory
	switch mc.Type {
	case "none":
		return nil, nil
	case "naive":
		return memory.NewNaiveStore(), nil
	case "semantic":
		embedder, err := a.newEmbedder(settings)
		if err != nil {
			return nil, err
		}
		return memory.NewSemanticStore(embedder)
	case "pg":
		embedder, err := a.newEmbedder(settings)
		if err != nil {
			return nil, err
		}
		return memory.NewPGStore(repo.NewMemoryRepo(a.db), embedder, mc.Collection)
	}
	return nil, fmt.Errorf("unknown memory type: %s", mc.Type)
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logutil.GetLogger(context.Background()).Warn("close db failed", zap.Error(err))
		}
		a.db = nil
	}
}
