package bus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jdziat/simple-uow/pkg/codec"
	"github.com/jdziat/simple-uow/pkg/core"
)

// Config holds settings shared by the remote buses.
type Config struct {
	Source      string
	Frames      codec.FrameCodec
	QueueGroup  string
	PollTimeout time.Duration
	RetryDelay  time.Duration
	Logger      *slog.Logger
}

// DefaultConfig returns the default bus configuration.
func DefaultConfig() Config {
	return Config{
		Source:      core.DefaultEventSource,
		Frames:      codec.GetFrameCodec(codec.FrameJSON),
		QueueGroup:  "simple-uow-workers",
		PollTimeout: 5 * time.Second,
		RetryDelay:  time.Second,
		Logger:      slog.Default(),
	}
}

// Option configures a bus.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithSource sets the CloudEvent source attribute of published jobs.
func WithSource(source string) Option {
	return optionFunc(func(c *Config) {
		if source != "" {
			c.Source = source
		}
	})
}

// WithFrameCodec sets the envelope serialization.
func WithFrameCodec(fc codec.FrameCodec) Option {
	return optionFunc(func(c *Config) {
		if fc != nil {
			c.Frames = fc
		}
	})
}

// WithQueueGroup sets the NATS queue group workers join.
func WithQueueGroup(group string) Option {
	return optionFunc(func(c *Config) {
		if group != "" {
			c.QueueGroup = group
		}
	})
}

// WithPollTimeout sets how long a Redis consumer blocks per BLPOP and how
// often a NATS subscriber checks its connection.
func WithPollTimeout(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		if d > 0 {
			c.PollTimeout = d
		}
	})
}

// WithRetryDelay sets the pause after a transport error before consuming again.
func WithRetryDelay(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		if d > 0 {
			c.RetryDelay = d
		}
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	})
}

func newConfig(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return cfg
}

// encodeJob wraps job in a CloudEvent frame.
func (c Config) encodeJob(job core.Job) ([]byte, error) {
	event, err := core.NewJobCloudEvent(c.Source, job)
	if err != nil {
		return nil, err
	}
	return c.Frames.Encode(&event)
}

// decodeJob unwraps a CloudEvent frame.
func (c Config) decodeJob(data []byte) (core.Job, error) {
	event, err := c.Frames.Decode(data)
	if err != nil {
		return core.Job{}, err
	}
	return event.DecodeJob()
}

// deliver decodes a frame and hands the job to fn, logging failures. It
// returns fn's error. Undecodable frames are dropped and yield nil.
func (c Config) deliver(ctx context.Context, transport string, data []byte, fn func(context.Context, core.Job) error) error {
	job, err := c.decodeJob(data)
	if err != nil {
		c.Logger.Warn("dropping undecodable frame", "transport", transport, "codec", c.Frames.Name(), "error", err)
		return nil
	}
	err = fn(ctx, job)
	switch {
	case err == nil:
	case interrupted(ctx, err):
		c.Logger.Debug("job delivery interrupted", "transport", transport, "job_id", job.JobID, "uow", job.UoW, "error", err)
	default:
		c.Logger.Error("job handler failed", "transport", transport, "job_id", job.JobID, "uow", job.UoW, "error", err)
	}
	return err
}

// interrupted reports whether err is ctx's own cancellation, meaning the
// job was never handed off.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}
