// Command uow-worker consumes jobs from the configured bus, runs them through
// the built-in units of work and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jdziat/simple-uow/pkg/adapter"
	"github.com/jdziat/simple-uow/pkg/blob"
	"github.com/jdziat/simple-uow/pkg/bus"
	"github.com/jdziat/simple-uow/pkg/codec"
	"github.com/jdziat/simple-uow/pkg/config"
	"github.com/jdziat/simple-uow/pkg/core"
	"github.com/jdziat/simple-uow/pkg/httpapi"
	"github.com/jdziat/simple-uow/pkg/registry"
	"github.com/jdziat/simple-uow/pkg/runner"
	"github.com/jdziat/simple-uow/pkg/storage"
	"github.com/jdziat/simple-uow/pkg/worker"
	"github.com/jdziat/simple-uow/uows/hash"
	"github.com/jdziat/simple-uow/uows/ocrtext"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := slog.New(cfg.Log.Handler(os.Stderr))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("uow-worker exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return err
	}

	blobs, err := openBlobStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	jobs, closeBus, err := openBus(cfg.Bus, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	reg, err := buildRegistry(blobs)
	if err != nil {
		return err
	}
	logger.Info("units of work registered", "uows", reg.Names())

	opts := []worker.WorkerOption{
		worker.Concurrency(cfg.Worker.Concurrency),
		worker.WithWorkerID(cfg.Worker.ID),
		worker.WithJobTimeout(cfg.Worker.JobTimeout),
		worker.WithStorageRetry(cfg.Worker.Retry),
		worker.WithRunLedger(store),
		worker.WithLogger(logger),
	}
	if cfg.Worker.RateLimit > 0 {
		opts = append(opts, worker.WithRateLimit(cfg.Worker.RateLimit, cfg.Worker.RateBurst))
	}
	if cfg.Worker.SweepSchedule != "" {
		opts = append(opts,
			worker.WithSweeper(cfg.Worker.SweepSchedule, cfg.Worker.StaleAfter),
			worker.WithRunRetention(cfg.Worker.RunRetention),
		)
	}
	w := worker.NewWorker(jobs, runner.NewSyncRunner(reg), store, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := w.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.HTTP.Addr != "" {
		api := httpapi.NewServer(reg,
			httpapi.WithPublisher(jobs),
			httpapi.WithResultApplier(w),
			httpapi.WithFileReader(store),
			httpapi.WithBlobStore(blobs),
			httpapi.WithRunReader(store),
			httpapi.WithLogger(logger),
		)
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("http api listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig) (*storage.GormStorage, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		dialector = sqlite.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool, err := storage.PoolPreset(cfg.Pool)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewGormStorageWithPool(db, storage.WithPoolConfig(pool))
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return store, nil
}

func openBlobStore(ctx context.Context, cfg config.BlobConfig) (core.BlobStore, error) {
	if cfg.Kind != config.BlobMinIO {
		return blob.NewMemoryStorage(), nil
	}
	return blob.NewMinIOStorage(ctx, blob.MinIOConfig{
		Endpoint:      cfg.MinIO.Endpoint,
		AccessKey:     cfg.MinIO.AccessKey,
		SecretKey:     cfg.MinIO.SecretKey,
		UseSSL:        cfg.MinIO.UseSSL,
		Region:        cfg.MinIO.Region,
		Bucket:        cfg.MinIO.Bucket,
		Prefix:        cfg.MinIO.Prefix,
		PresignExpiry: cfg.MinIO.PresignExpiry,
		CreateBucket:  cfg.MinIO.CreateBucket,
	})
}

// jobBus is consumed by the worker and published to by POST /jobs.
type jobBus interface {
	core.Bus
	core.Subscriber
}

// openBus returns the configured bus and a function releasing its
// connection.
func openBus(cfg config.BusConfig, logger *slog.Logger) (jobBus, func(), error) {
	opts := []bus.Option{
		bus.WithSource(cfg.Source),
		bus.WithFrameCodec(codec.GetFrameCodec(cfg.Frames)),
		bus.WithLogger(logger),
	}

	switch cfg.Kind {
	case config.BusRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b, err := bus.NewRedisBus(client, cfg.Redis.Key, opts...)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return b, func() { _ = client.Close() }, nil

	case config.BusNATS:
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name("uow-worker"))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to nats: %w", err)
		}
		if cfg.NATS.QueueGroup != "" {
			opts = append(opts, bus.WithQueueGroup(cfg.NATS.QueueGroup))
		}
		b, err := bus.NewNATSBus(conn, cfg.NATS.Subject, opts...)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return b, conn.Close, nil

	default:
		b := bus.NewMemoryBus(cfg.Buffer)
		return b, b.Close, nil
	}
}

func buildRegistry(blobs core.BlobStore) (*registry.Registry, error) {
	reg := registry.New()

	hashEP, err := hash.New(blobs).Entrypoint()
	if err != nil {
		return nil, err
	}
	ocrEP, err := ocrtext.Entrypoint()
	if err != nil {
		return nil, err
	}

	for _, ep := range []adapter.Entrypoint{hashEP, ocrEP} {
		if err := reg.Add(ep); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
