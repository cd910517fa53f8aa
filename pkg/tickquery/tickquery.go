package tickquery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/bft-labs/tickquery/internal/adapters/protobuf"
	"github.com/bft-labs/tickquery/internal/app"
	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
	"github.com/bft-labs/tickquery/pkg/lifecycle"
	"github.com/bft-labs/tickquery/pkg/log"
)

// Client periodically queries one endpoint and reports the replies.
// Use New() to create an instance, then Start() to begin querying.
type Client struct {
	config    Config
	opts      options
	lifecycle *lifecycle.DefaultManager
	emitter   *eventEmitter
	codec     ports.Codec
	logger    ports.Logger
	plugins   []Plugin

	mu          sync.RWMutex
	interval    time.Duration
	driver      *app.Driver
	session     ports.Session
	ownsSession bool
	cancel      context.CancelFunc
	done        chan struct{}
	err         error
}

// New creates a client with the given configuration.
// The client is created in StateStopped; call Start() to begin querying.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.codec == nil {
		o.codec = protobuf.NewCodec()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	m, err := newMetrics(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	emitter := &eventEmitter{handler: o.eventHandler, metrics: m}

	done := make(chan struct{})
	close(done)

	return &Client{
		config:    cfg,
		opts:      o,
		lifecycle: lifecycle.NewManager(o.logger, emitter),
		emitter:   emitter,
		codec:     o.codec,
		logger:    o.logger,
		plugins:   o.plugins,
		interval:  cfg.Interval,
		done:      done,
	}, nil
}

// Start opens the session, initializes plugins and begins querying in the
// background. Setup failures are returned as *SetupError and leave the
// client in StateCrashed.
//
// Session setup runs without holding the client lock, so Interval,
// SetInterval, Done and Stop stay responsive while it retries.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if !c.lifecycle.CanStart() {
		c.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	if err := c.lifecycle.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
		c.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.lifecycle.SetCancel(cancel)
	done := make(chan struct{})
	c.done, c.err = done, nil
	c.mu.Unlock()

	// fail is called without c.mu held. A Stop() that raced setup keeps
	// its own state transitions.
	fail := func(stage string, err error) error {
		cancel()
		c.closeSession()
		close(done)
		setupErr := &domain.SetupError{Stage: stage, Err: err}
		c.logger.Error("setup failed", log.String("stage", stage), log.Err(err))
		_ = c.lifecycle.TransitionFrom(lifecycle.StateStarting, lifecycle.StateCrashed, setupErr.Error())
		return setupErr
	}

	session, owned, err := c.connect(runCtx)
	if err != nil {
		return fail("session", err)
	}

	c.mu.Lock()
	c.session, c.ownsSession = session, owned
	if c.lifecycle.State() != lifecycle.StateStarting {
		c.mu.Unlock()
		return fail("session", context.Cause(runCtx))
	}

	querier, err := session.Querier(runCtx, c.config.Endpoint)
	if err != nil {
		c.mu.Unlock()
		return fail("bind", err)
	}

	driver := app.NewDriver(app.DriverConfig{
		Interval:     c.interval,
		Endpoint:     c.config.Endpoint,
		EntityPath:   c.config.EntityPath,
		Body:         c.config.Body,
		QueryTimeout: c.config.QueryTimeout,
		Count:        c.config.Count,
	}, querier, c.codec, c.opts.clock, c.logger, c.emitter)
	c.driver = driver

	pluginCfg := PluginConfig{
		Endpoint:   c.config.Endpoint,
		Transport:  c.config.Transport,
		Logger:     c.logger,
		Controller: c,
	}
	for i, p := range c.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			c.shutdownPlugins(c.plugins[:i])
			querier.Close()
			c.mu.Unlock()
			return fail("plugin "+p.Name(), err)
		}
		c.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	c.lifecycle.AddWorker()
	go func() {
		defer c.lifecycle.WorkerDone()
		defer close(done)
		defer querier.Close()

		if err := c.lifecycle.TransitionTo(lifecycle.StateRunning, "query loop starting"); err != nil {
			c.logger.Error("failed to transition to running", log.Err(err))
			return
		}

		err := driver.Run(runCtx)
		c.finish(err)
	}()
	c.mu.Unlock()

	return nil
}

// connect returns the injected session or opens one, retrying with backoff.
func (c *Client) connect(ctx context.Context) (ports.Session, bool, error) {
	if c.opts.session != nil {
		return c.opts.session, false, nil
	}

	backoff := lifecycle.NewBackoff(lifecycle.DefaultBackoffInitial, lifecycle.DefaultBackoffMax)
	attempts := max(c.config.SetupAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		session, err := openSession(ctx, c.config, c.codec, c.logger)
		if err == nil {
			c.logger.Info("session opened",
				log.String("transport", string(c.config.Transport)),
				log.String("endpoint", c.config.Endpoint),
			)
			return session, true, nil
		}
		lastErr = err

		c.logger.Warn("session setup failed",
			log.Int("attempt", attempt),
			log.Int("attempts", attempts),
			log.Err(err),
		)
		if attempt == attempts {
			break
		}
		if err := backoff.Wait(ctx); err != nil {
			return nil, false, errors.Join(lastErr, err)
		}
	}
	return nil, false, lastErr
}

// finish runs on the query goroutine once the loop has returned.
// It stops the client unless Stop() already did.
func (c *Client) finish(err error) {
	c.mu.Lock()
	c.err = err
	if c.lifecycle.State() != lifecycle.StateRunning {
		c.mu.Unlock()
		return
	}

	reason := "count reached"
	if err != nil {
		reason = err.Error()
	}
	_ = c.lifecycle.TransitionTo(lifecycle.StateStopping, reason)
	c.mu.Unlock()

	c.shutdownPlugins(c.plugins)
	c.closeSession()

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		_ = c.lifecycle.TransitionTo(lifecycle.StateCrashed, err.Error())
		return
	}
	_ = c.lifecycle.TransitionTo(lifecycle.StateStopped, reason)
}

// Stop cancels the query loop and waits for it to exit.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (c *Client) Stop() error {
	c.mu.Lock()

	if !c.lifecycle.CanStop() {
		c.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := c.lifecycle.TransitionTo(lifecycle.StateStopping, "Stop() called"); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Unlock()

	err := c.lifecycle.WaitWithTimeout(lifecycle.ShutdownTimeout)

	c.shutdownPlugins(c.plugins)
	c.closeSession()

	if err != nil {
		_ = c.lifecycle.TransitionTo(lifecycle.StateCrashed, "shutdown timeout")
	} else {
		_ = c.lifecycle.TransitionTo(lifecycle.StateStopped, "graceful shutdown")
	}
	return err
}

// shutdownPlugins shuts plugins down in reverse order.
func (c *Client) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			c.logger.Error("plugin shutdown failed", log.String("plugin", p.Name()), log.Err(err))
		} else {
			c.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

func (c *Client) closeSession() {
	c.mu.Lock()
	session := c.takeSession()
	c.mu.Unlock()

	c.releaseSession(session)
}

// takeSession detaches the session if the client owns it. Callers hold c.mu.
func (c *Client) takeSession() ports.Session {
	session, owned := c.session, c.ownsSession
	c.session, c.ownsSession = nil, false
	if !owned {
		return nil
	}
	return session
}

func (c *Client) releaseSession(session ports.Session) {
	if session == nil {
		return
	}
	if err := session.Close(); err != nil {
		c.logger.Warn("session close failed", log.Err(err))
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (c *Client) Status() State {
	return c.lifecycle.State()
}

// Done is closed when the query loop has exited, either because Count
// cycles ran, the start context was canceled or Stop() was called.
func (c *Client) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done
}

// Err returns the error the query loop exited with: nil after Count cycles,
// the context error after cancellation.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Interval returns the current delay between query cycles.
func (c *Client) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.driver != nil {
		return c.driver.Interval()
	}
	return c.interval
}

// SetInterval changes the delay between query cycles, effective from the
// next wait. Non-positive values are ignored.
func (c *Client) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
	if c.driver != nil {
		c.driver.SetInterval(d)
	}
	c.logger.Info("interval changed", log.Duration("interval", d))
}
