package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Paths       PathsConfig
	Transcriber TranscriberConfig
	Renderer    RendererConfig
	Pipeline    PipelineConfig
	Store       StoreConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Events      EventsConfig
	Webhook     WebhookConfig
	Tracing     TracingConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	PublicBaseURL   string // prefix for media URLs handed to the renderer
	MaxUploadBytes  int64
	UploadRPS       int // per-IP upload rate, 0 disables limiting
	UploadBurst     int
}

// PathsConfig holds filesystem locations shared with the external tools.
// Relative directories are resolved against ProjectRoot.
type PathsConfig struct {
	ProjectRoot string // working directory of both tools
	UploadDir   string // uploaded videos, watermarks and render props
	PublicDir   string // where the transcriber writes <stem>.json
	OutputDir   string // rendered videos
}

// TranscriberConfig holds the speech-transcription tool invocation
type TranscriberConfig struct {
	Command string
	Script  string
	Model   string
	Timeout time.Duration // 0 waits forever
}

// RendererConfig holds the video renderer invocation
type RendererConfig struct {
	Command     string
	BaseArgs    []string // arguments placed before the entry point
	Entry       string
	Composition string
	Concurrency int
	FPS         float64 // frame rate of the composition, used to check caption visibility
	Timeout     time.Duration // 0 waits forever
}

// PipelineConfig holds job scheduling configuration
type PipelineConfig struct {
	MaxConcurrentJobs int // 0 runs every submitted job immediately
}

// StoreConfig selects the job store backend
type StoreConfig struct {
	Backend string // memory, redis
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	JobTTL    time.Duration // 0 keeps jobs forever
}

// StorageConfig holds object storage configuration for the artifact archive
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// EventsConfig holds message broker configuration for job lifecycle events
type EventsConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
	Exchange string
}

// WebhookConfig holds HTTP callbacks notified when a job finishes
type WebhookConfig struct {
	URLs       []string
	Secret     string // signs payloads with HMAC-SHA256 when set
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration // doubled after each failed attempt
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// MetricsConfig holds Prometheus exposition configuration
type MetricsConfig struct {
	Port int // 0 serves /metrics on the API router
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// Defaults always decode
	_ = v.Unmarshal(&config)
	return &config
}

// Validate checks values that would otherwise fail late inside a job
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid store backend %q", c.Store.Backend)
	}
	if c.Pipeline.MaxConcurrentJobs < 0 {
		return fmt.Errorf("pipeline.maxConcurrentJobs must not be negative")
	}
	if c.Renderer.FPS <= 0 {
		return fmt.Errorf("renderer.fps must be positive")
	}
	if c.Renderer.Concurrency < 1 {
		return fmt.Errorf("renderer.concurrency must be at least 1")
	}
	if c.Transcriber.Command == "" || c.Renderer.Command == "" {
		return fmt.Errorf("transcriber and renderer commands are required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "5m")
	v.SetDefault("server.writeTimeout", "5m")
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("server.publicBaseURL", "http://localhost:8000")
	v.SetDefault("server.maxUploadBytes", 2*1024*1024*1024) // 2GB
	v.SetDefault("server.uploadRPS", 0)
	v.SetDefault("server.uploadBurst", 5)

	// Path defaults
	v.SetDefault("paths.projectRoot", ".")
	v.SetDefault("paths.uploadDir", "server/uploads")
	v.SetDefault("paths.publicDir", "public")
	v.SetDefault("paths.outputDir", "server/out")

	// Transcriber defaults
	v.SetDefault("transcriber.command", "python3")
	v.SetDefault("transcriber.script", "python-transcribe.py")
	v.SetDefault("transcriber.model", "medium")
	v.SetDefault("transcriber.timeout", "0s")

	// Renderer defaults
	v.SetDefault("renderer.command", "npx")
	v.SetDefault("renderer.baseArgs", []string{"remotion", "render"})
	v.SetDefault("renderer.entry", "src/index.ts")
	v.SetDefault("renderer.composition", "CaptionedVideo")
	v.SetDefault("renderer.concurrency", 1)
	v.SetDefault("renderer.fps", 30)
	v.SetDefault("renderer.timeout", "0s")

	// Pipeline defaults
	v.SetDefault("pipeline.maxConcurrentJobs", 0)

	// Store defaults
	v.SetDefault("store.backend", "memory")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.keyPrefix", "captioner")
	v.SetDefault("redis.jobTTL", "0s")

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "captions")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.host", "localhost")
	v.SetDefault("events.port", 5672)
	v.SetDefault("events.user", "guest")
	v.SetDefault("events.password", "guest")
	v.SetDefault("events.vhost", "/")
	v.SetDefault("events.exchange", "captioner.jobs")

	// Webhook defaults
	v.SetDefault("webhook.urls", []string{})
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.maxRetries", 3)
	v.SetDefault("webhook.retryDelay", "1s")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "captioner")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.port", 0)
}
