// Package config loads uow-worker settings from a YAML file with UOW_*
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jdziat/simple-uow/pkg/codec"
	"github.com/jdziat/simple-uow/pkg/security"
	"github.com/jdziat/simple-uow/pkg/storage"
	"github.com/jdziat/simple-uow/pkg/worker"
)

// Backend names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BusMemory = "memory"
	BusRedis  = "redis"
	BusNATS   = "nats"

	BlobMemory = "memory"
	BlobMinIO  = "minio"
)

// Config is the full uow-worker configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Bus      BusConfig      `yaml:"bus"`
	Blob     BlobConfig     `yaml:"blob"`
	Worker   WorkerConfig   `yaml:"worker"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig selects the metadata store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Pool names a storage pool preset.
	Pool        string `yaml:"pool"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// BusConfig selects the job bus.
type BusConfig struct {
	Kind   string      `yaml:"kind"`
	Frames string      `yaml:"frames"`
	Source string      `yaml:"source"`
	Buffer int         `yaml:"buffer"`
	Redis  RedisConfig `yaml:"redis"`
	NATS   NATSConfig  `yaml:"nats"`
}

// RedisConfig holds Redis bus settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// NATSConfig holds NATS bus settings.
type NATSConfig struct {
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	QueueGroup string `yaml:"queue_group"`
}

// BlobConfig selects the blob store.
type BlobConfig struct {
	Kind  string      `yaml:"kind"`
	MinIO MinIOConfig `yaml:"minio"`
}

// MinIOConfig holds MinIO blob store settings.
type MinIOConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	UseSSL        bool          `yaml:"use_ssl"`
	Region        string        `yaml:"region"`
	Bucket        string        `yaml:"bucket"`
	Prefix        string        `yaml:"prefix"`
	PresignExpiry time.Duration `yaml:"presign_expiry"`
	CreateBucket  bool          `yaml:"create_bucket"`
}

// WorkerConfig holds worker settings.
type WorkerConfig struct {
	ID            string             `yaml:"id"`
	Concurrency   int                `yaml:"concurrency"`
	JobTimeout    time.Duration      `yaml:"job_timeout"`
	RateLimit     float64            `yaml:"rate_limit"`
	RateBurst     int                `yaml:"rate_burst"`
	SweepSchedule string             `yaml:"sweep_schedule"`
	StaleAfter    time.Duration      `yaml:"stale_after"`
	RunRetention  time.Duration      `yaml:"run_retention"`
	Retry         worker.RetryConfig `yaml:"retry"`
}

// HTTPConfig holds the API listener settings. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that runs entirely in memory.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:      DriverSQLite,
			DSN:         "file:uow.db?_busy_timeout=5000",
			Pool:        "default",
			AutoMigrate: true,
		},
		Bus: BusConfig{
			Kind:   BusMemory,
			Frames: codec.FrameJSON,
			Source: "simple-uow",
			Buffer: 128,
			Redis:  RedisConfig{Addr: "localhost:6379"},
			NATS:   NATSConfig{URL: "nats://localhost:4222", Subject: "simple-uow.jobs"},
		},
		Blob: BlobConfig{
			Kind:  BlobMemory,
			MinIO: MinIOConfig{Bucket: "simple-uow", PresignExpiry: 15 * time.Minute},
		},
		Worker: WorkerConfig{
			Concurrency:   10,
			SweepSchedule: worker.DefaultSweepSchedule,
			StaleAfter:    worker.DefaultStaleAfter,
			Retry:         worker.DefaultRetryConfig(),
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.Parse(data); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over c. Unknown keys are rejected.
func (c *Config) Parse(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from UOW_* environment variables.
func (c *Config) ApplyEnv() {
	c.Database.Driver = getenv("UOW_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getenv("UOW_DB_DSN", c.Database.DSN)
	c.Database.Pool = getenv("UOW_DB_POOL", c.Database.Pool)
	c.Database.AutoMigrate = getenvBool("UOW_DB_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.Bus.Kind = getenv("UOW_BUS_KIND", c.Bus.Kind)
	c.Bus.Frames = getenv("UOW_BUS_FRAMES", c.Bus.Frames)
	c.Bus.Source = getenv("UOW_BUS_SOURCE", c.Bus.Source)
	c.Bus.Buffer = getenvInt("UOW_BUS_BUFFER", c.Bus.Buffer)
	c.Bus.Redis.Addr = getenv("UOW_REDIS_ADDR", c.Bus.Redis.Addr)
	c.Bus.Redis.Password = getenv("UOW_REDIS_PASSWORD", c.Bus.Redis.Password)
	c.Bus.Redis.DB = getenvInt("UOW_REDIS_DB", c.Bus.Redis.DB)
	c.Bus.Redis.Key = getenv("UOW_REDIS_KEY", c.Bus.Redis.Key)
	c.Bus.NATS.URL = getenv("UOW_NATS_URL", c.Bus.NATS.URL)
	c.Bus.NATS.Subject = getenv("UOW_NATS_SUBJECT", c.Bus.NATS.Subject)
	c.Bus.NATS.QueueGroup = getenv("UOW_NATS_QUEUE_GROUP", c.Bus.NATS.QueueGroup)

	c.Blob.Kind = getenv("UOW_BLOB_KIND", c.Blob.Kind)
	c.Blob.MinIO.Endpoint = getenv("UOW_MINIO_ENDPOINT", c.Blob.MinIO.Endpoint)
	c.Blob.MinIO.AccessKey = getenv("UOW_MINIO_ACCESS_KEY", c.Blob.MinIO.AccessKey)
	c.Blob.MinIO.SecretKey = getenv("UOW_MINIO_SECRET_KEY", c.Blob.MinIO.SecretKey)
	c.Blob.MinIO.UseSSL = getenvBool("UOW_MINIO_USE_SSL", c.Blob.MinIO.UseSSL)
	c.Blob.MinIO.Region = getenv("UOW_MINIO_REGION", c.Blob.MinIO.Region)
	c.Blob.MinIO.Bucket = getenv("UOW_MINIO_BUCKET", c.Blob.MinIO.Bucket)
	c.Blob.MinIO.Prefix = getenv("UOW_MINIO_PREFIX", c.Blob.MinIO.Prefix)
	c.Blob.MinIO.CreateBucket = getenvBool("UOW_MINIO_CREATE_BUCKET", c.Blob.MinIO.CreateBucket)

	c.Worker.ID = getenv("UOW_WORKER_ID", c.Worker.ID)
	c.Worker.Concurrency = getenvInt("UOW_WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.JobTimeout = getenvDuration("UOW_WORKER_JOB_TIMEOUT", c.Worker.JobTimeout)
	c.Worker.RateLimit = getenvFloat("UOW_WORKER_RATE_LIMIT", c.Worker.RateLimit)
	c.Worker.RateBurst = getenvInt("UOW_WORKER_RATE_BURST", c.Worker.RateBurst)
	c.Worker.SweepSchedule = getenv("UOW_WORKER_SWEEP_SCHEDULE", c.Worker.SweepSchedule)
	c.Worker.StaleAfter = getenvDuration("UOW_WORKER_STALE_AFTER", c.Worker.StaleAfter)
	c.Worker.RunRetention = getenvDuration("UOW_WORKER_RUN_RETENTION", c.Worker.RunRetention)

	c.HTTP.Addr = getenv("UOW_HTTP_ADDR", c.HTTP.Addr)
	c.Log.Level = getenv("UOW_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("UOW_LOG_FORMAT", c.Log.Format)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if _, err := storage.PoolPreset(c.Database.Pool); err != nil {
		errs = append(errs, fmt.Errorf("database.pool: %w", err))
	}

	switch c.Bus.Kind {
	case BusMemory:
	case BusRedis:
		if c.Bus.Redis.Addr == "" {
			errs = append(errs, errors.New("bus.redis.addr is required"))
		}
	case BusNATS:
		if c.Bus.NATS.URL == "" || c.Bus.NATS.Subject == "" {
			errs = append(errs, errors.New("bus.nats.url and bus.nats.subject are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("bus.kind: unsupported bus %q", c.Bus.Kind))
	}
	switch c.Bus.Frames {
	case "", codec.FrameJSON, codec.FrameMsgpack:
	default:
		errs = append(errs, fmt.Errorf("bus.frames: unsupported frame codec %q", c.Bus.Frames))
	}

	switch c.Blob.Kind {
	case BlobMemory:
	case BlobMinIO:
		if c.Blob.MinIO.Endpoint == "" {
			errs = append(errs, errors.New("blob.minio.endpoint is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.kind: unsupported blob store %q", c.Blob.Kind))
	}

	if c.Worker.Concurrency < 1 || c.Worker.Concurrency > security.MaxConcurrency {
		errs = append(errs, fmt.Errorf("worker.concurrency must be between 1 and %d", security.MaxConcurrency))
	}
	if c.Worker.RateLimit < 0 {
		errs = append(errs, errors.New("worker.rate_limit must not be negative"))
	}
	if c.Worker.RunRetention < 0 {
		errs = append(errs, errors.New("worker.run_retention must not be negative"))
	}
	if c.Worker.SweepSchedule != "" {
		if _, err := worker.ParseSchedule(c.Worker.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("worker.sweep_schedule: %w", err))
		}
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unsupported format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Handler returns a slog handler writing to w at the configured level.
func (c LogConfig) Handler(w io.Writer) slog.Handler {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: unsupported level %q", s)
	}
	return level, nil
}
