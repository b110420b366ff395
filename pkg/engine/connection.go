package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/estatedesk/partnerflow/pkg/config"
	plog "github.com/estatedesk/partnerflow/pkg/log"
	"go.temporal.io/sdk/client"
)

// DialFunc opens a Temporal client. client.DialContext is the production dialer.
type DialFunc func(ctx context.Context, options client.Options) (client.Client, error)

type handle struct {
	client client.Client
	refs   int
	stale  bool
}

// dialCall is one dial shared by every Acquire that finds no client.
type dialCall struct {
	done     chan struct{}
	err      error
	canceled bool
}

// Connection owns the process's Temporal client. Callers borrow it with Acquire and
// give it back with Lease.Release; a client found broken is invalidated and closed
// once its last lease is released, and the next Acquire dials a fresh one. A failed
// dial is remembered for the failure cooldown, during which Acquire fails at once.
type Connection struct {
	mu       sync.Mutex
	cfg      config.EngineConfig
	dial     DialFunc
	logger   *slog.Logger
	now      func() time.Time
	current  *handle
	dialing  *dialCall
	failure  error
	failedAt time.Time
	closed   bool
}

type ConnectionOption func(*Connection)

func WithDialer(dial DialFunc) ConnectionOption {
	return func(c *Connection) {
		c.dial = dial
	}
}

func WithConnectionClock(now func() time.Time) ConnectionOption {
	return func(c *Connection) {
		c.now = now
	}
}

func NewConnection(cfg config.EngineConfig, logger *slog.Logger, opts ...ConnectionOption) *Connection {
	conn := &Connection{
		cfg:    cfg,
		dial:   client.DialContext,
		logger: logger.With("component", "engine_connection"),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(conn)
	}

	return conn
}

// Lease is one borrowed reference to the shared client.
type Lease struct {
	conn   *Connection
	handle *handle
	once   sync.Once
}

func (l *Lease) Client() client.Client {
	return l.handle.client
}

// Release returns the lease. It is safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.conn.release(l.handle)
	})
}

// Acquire returns a lease on the current client, dialing one if needed. Dialing is
// retried with exponential backoff; each attempt is bounded by the connect timeout.
// Concurrent callers wait on the same dial instead of starting their own.
func (c *Connection) Acquire(ctx context.Context) (*Lease, error) {
	c.mu.Lock()

	for {
		if c.closed {
			c.mu.Unlock()

			return nil, ErrConnectionClosed
		}

		if c.current != nil {
			c.current.refs++
			lease := &Lease{conn: c, handle: c.current}
			c.mu.Unlock()

			return lease, nil
		}

		if c.failure != nil && c.now().Sub(c.failedAt) < c.cfg.FailureCooldown {
			err := c.failure
			c.mu.Unlock()

			return nil, err
		}

		if call := c.dialing; call != nil {
			c.mu.Unlock()

			select {
			case <-call.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			// a dial abandoned by its caller says nothing about the engine
			if call.err != nil && !call.canceled {
				return nil, call.err
			}

			c.mu.Lock()

			continue
		}

		call := &dialCall{done: make(chan struct{})}
		c.dialing = call
		c.mu.Unlock()

		cl, err := c.dialWithRetry(ctx)

		c.mu.Lock()
		c.dialing = nil
		call.err = err
		call.canceled = ctx.Err() != nil
		close(call.done)

		if err != nil {
			if !call.canceled {
				c.failure = err
				c.failedAt = c.now()
			}
			c.mu.Unlock()

			return nil, err
		}

		c.failure = nil

		if c.closed {
			c.mu.Unlock()
			cl.Close()

			return nil, ErrConnectionClosed
		}

		c.current = &handle{client: cl}
	}
}

// Invalidate marks the lease's client as broken so no new lease is handed out on it.
func (c *Connection) Invalidate(lease *Lease) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lease.handle.stale {
		return
	}

	c.logger.Warn("Dropping engine client", "address", c.cfg.Address)

	lease.handle.stale = true
	if c.current == lease.handle {
		c.current = nil
	}
}

func (c *Connection) release(h *handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h.refs--
	if h.refs <= 0 && h.stale {
		h.client.Close()
	}
}

// Close closes the client once outstanding leases are released.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.current == nil {
		return
	}

	c.current.stale = true
	if c.current.refs <= 0 {
		c.current.client.Close()
	}

	c.current = nil
}

func (c *Connection) dialWithRetry(ctx context.Context) (client.Client, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryInitialDelay
	policy.MaxElapsedTime = 0

	retries := uint64(0)
	if c.cfg.RetryMaxAttempts > 1 {
		retries = uint64(c.cfg.RetryMaxAttempts - 1)
	}

	options := client.Options{
		HostPort:  c.cfg.Address,
		Namespace: c.cfg.Namespace,
		Logger:    plog.Temporal(plog.WithModule("temporal_client")),
	}

	var cl client.Client

	attempt := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()

		var err error
		cl, err = c.dial(dialCtx, options)

		return err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Engine dial failed, retrying", "address", c.cfg.Address, "error", err, "backoff", wait)
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %s", ErrEngineUnreachable, c.cfg.Address, err.Error())
	}

	c.logger.Info("Connected to workflow engine", "address", c.cfg.Address, "namespace", c.cfg.Namespace)

	return cl, nil
}
