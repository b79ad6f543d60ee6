package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/xxxsen/common/logger"
)

const EnvPrefix = "ATOMIC"

type Config struct {
	Port          int              `json:"port"`
	CORSOrigins   []string         `json:"cors_origins"`
	UploadLimitMB int              `json:"upload_limit_mb"`
	TemplateDir   string           `json:"template_dir"`
	Templates     TemplateConfig   `json:"templates"`
	Auth          AuthConfig       `json:"auth"`
	RateLimit     RateLimitConfig  `json:"rate_limit"`
	LogConfig     logger.LogConfig `json:"log_config"`
	AI            AIConfig         `json:"ai"`
	Memory        MemoryConfig     `json:"memory"`
	Database      DatabaseConfig   `json:"database"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Batch         BatchConfig      `json:"batch"`
}

type TemplateConfig struct {
	CacheSize   int  `json:"cache_size"`
	CacheTTLSec int  `json:"cache_ttl_sec"`
	Watch       bool `json:"watch"`
}

// AuthConfig enables bearer auth on the HTTP API when either a JWT secret or
// a bcrypt hashed API key is set.
type AuthConfig struct {
	JWTSecret   string `json:"jwt_secret"`
	JWTTTLHours int    `json:"jwt_ttl_hours"`
	APIKeyHash  string `json:"api_key_hash"`
}

func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != "" || a.APIKeyHash != ""
}

type RateLimitConfig struct {
	Limit     int `json:"limit"`
	WindowSec int `json:"window_sec"`
}

type ProviderConfig struct {
	APIKey  string            `json:"api_key"`
	BaseURL string            `json:"base_url"`
	Headers map[string]string `json:"headers"`
}

type AIConfig struct {
	DefaultModel     string                    `json:"default_model"`
	DefaultProvider  string                    `json:"default_provider"`
	Mode             string                    `json:"mode"`
	TimeoutSec       int                       `json:"timeout_sec"`
	RateLimit        float64                   `json:"rate_limit"`
	RateBurst        int                       `json:"rate_burst"`
	TransportRetries int                       `json:"transport_retries"`
	Providers        map[string]ProviderConfig `json:"providers"`
}

type MemoryConfig struct {
	Type          string   `json:"type"`
	EmbedModels   []string `json:"embed_models"`
	Collection    string   `json:"collection"`
	TopK          int      `json:"top_k"`
	CacheSize     int      `json:"cache_size"`
	CacheTTLSec   int      `json:"cache_ttl_sec"`
	PersistCache  bool     `json:"persist_cache"`
	CacheKeepDays int      `json:"cache_keep_days"`
}

type DatabaseConfig struct {
	DSN          string `json:"dsn"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Password     string `json:"password"`
	DBName       string `json:"dbname"`
	SSLMode      string `json:"sslmode"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func (d DatabaseConfig) Configured() bool {
	return d.DSN != "" || d.Host != ""
}

type FileStoreConfig struct {
	Type string   `json:"type"`
	Dir  string   `json:"dir"`
	S3   S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	PathStyle bool   `json:"path_style"`
}

type BatchConfig struct {
	Workers    int      `json:"workers"`
	Extensions []string `json:"extensions"`
	Schedule   string   `json:"schedule"`
	InputDir   string   `json:"input_dir"`
	ReportPath string   `json:"report_path"`
}

// envBindings maps well known provider variables onto config keys. Every
// other key can be overridden with ATOMIC_<KEY> where dots become "_".
var envBindings = map[string]string{
	"ai.default_model":                "DEFAULT_MODEL",
	"ai.providers.openai.api_key":     "OPENAI_API_KEY",
	"ai.providers.openai.base_url":    "OPENAI_API_BASE",
	"ai.providers.anthropic.api_key":  "ANTHROPIC_API_KEY",
	"ai.providers.gemini.api_key":     "GEMINI_API_KEY",
	"ai.providers.openrouter.api_key": "OPENROUTER_API_KEY",
	"ai.providers.ollama.base_url":    "OLLAMA_API_BASE",
	"database.dsn":                    "DATABASE_URL",
	"file_store.s3.secret_id":         "AWS_ACCESS_KEY_ID",
	"file_store.s3.secret_key":        "AWS_SECRET_ACCESS_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("upload_limit_mb", 20)
	v.SetDefault("template_dir", "templates")
	v.SetDefault("templates.cache_size", 128)
	v.SetDefault("templates.cache_ttl_sec", 300)
	v.SetDefault("templates.watch", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_ttl_hours", 72)
	v.SetDefault("auth.api_key_hash", "")
	v.SetDefault("rate_limit.limit", 60)
	v.SetDefault("rate_limit.window_sec", 60)
	v.SetDefault("log_config.level", "info")
	v.SetDefault("log_config.console", true)
	v.SetDefault("ai.default_provider", "openai")
	v.SetDefault("ai.mode", "md_json")
	v.SetDefault("ai.timeout_sec", 60)
	v.SetDefault("ai.rate_limit", 0)
	v.SetDefault("ai.rate_burst", 1)
	v.SetDefault("ai.transport_retries", 2)
	v.SetDefault("memory.type", "naive")
	v.SetDefault("memory.collection", "default")
	v.SetDefault("memory.top_k", 5)
	v.SetDefault("memory.cache_size", 1024)
	v.SetDefault("memory.cache_ttl_sec", 3600)
	v.SetDefault("memory.persist_cache", false)
	v.SetDefault("memory.cache_keep_days", 30)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("file_store.type", "local")
	v.SetDefault("file_store.dir", "output")
	v.SetDefault("file_store.s3.region", "us-east-1")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.extensions", []string{".pdf", ".docx", ".md", ".html", ".txt"})
}

// Load reads path (json, toml or yaml by extension) over the defaults and
// applies environment overrides. An empty path loads defaults and env only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	// decode with the json tags so file keys and struct tags share one name
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("port is required")
	}
	if c.TemplateDir == "" {
		return fmt.Errorf("template_dir is required")
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.Batch.Schedule != "" && c.Batch.InputDir == "" {
		return fmt.Errorf("batch.input_dir is required when batch.schedule is set")
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = 1
	}
	switch c.Memory.Type {
	case "none", "naive":
	case "semantic":
		if len(c.Memory.EmbedModels) == 0 {
			return fmt.Errorf("memory.embed_models is required for semantic memory")
		}
	case "pg":
		if len(c.Memory.EmbedModels) == 0 {
			return fmt.Errorf("memory.embed_models is required for pg memory")
		}
		if !c.Database.Configured() {
			return fmt.Errorf("database is required for pg memory")
		}
	default:
		return fmt.Errorf("memory.type must be none, naive, semantic or pg")
	}
	if c.Memory.PersistCache && !c.Database.Configured() {
		return fmt.Errorf("database is required for memory.persist_cache")
	}
	switch c.FileStore.Type {
	case "local":
		if c.FileStore.Dir == "" {
			return fmt.Errorf("file_store.dir is required for local store")
		}
	case "s3":
		if c.FileStore.S3.Bucket == "" {
			return fmt.Errorf("file_store.s3.bucket is required for s3 store")
		}
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}
	return nil
}
