package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jdziat/simple-uow/pkg/core"
)

// NATSBus publishes jobs to a NATS subject.
type NATSBus struct {
	conn    *nats.Conn
	subject string
	config  Config
}

// NewNATSBus wires an existing NATS connection to subject.
func NewNATSBus(conn *nats.Conn, subject string, opts ...Option) (*NATSBus, error) {
	if conn == nil {
		return nil, errors.New("uow: nats connection is required")
	}
	if subject == "" {
		return nil, errors.New("uow: nats subject is required")
	}
	return &NATSBus{conn: conn, subject: subject, config: newConfig(opts)}, nil
}

// Subject returns the subject jobs are published to.
func (b *NATSBus) Subject() string {
	return b.subject
}

// Publish sends the job's frame and flushes, bounded by ctx's deadline.
func (b *NATSBus) Publish(ctx context.Context, job core.Job) error {
	data, err := b.config.encodeJob(job)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		timeout := time.Until(deadline)
		if timeout <= 0 {
			timeout = time.Millisecond
		}
		return b.conn.FlushTimeout(timeout)
	}
	return b.conn.Flush()
}

// Subscribe joins the configured queue group so each job reaches one worker.
// Messages are handled one at a time. On return the subscription is drained.
func (b *NATSBus) Subscribe(ctx context.Context, fn func(context.Context, core.Job) error) error {
	sub, err := b.conn.QueueSubscribe(b.subject, b.config.QueueGroup, func(msg *nats.Msg) {
		_ = b.config.deliver(ctx, "nats", msg.Data, fn)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	defer func() {
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			b.config.Logger.Warn("nats drain failed", "subject", b.subject, "error", err)
		}
	}()

	ticker := time.NewTicker(b.config.PollTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if b.conn.IsClosed() {
				return nil
			}
		}
	}
}
