// Package tickquery periodically queries a named endpoint and reports every
// reply streamed back.
//
// Example usage:
//
//	cfg := tickquery.DefaultConfig()
//	cfg.Transport = "http"
//	cfg.ServiceURL = "http://localhost:7447"
//	cfg.Count = 10
//	if err := tickquery.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For lifecycle control (Start/Stop, interval changes, plugins) use
// pkg/tickquery directly.
package tickquery

import (
	"context"
	"errors"

	"github.com/bft-labs/tickquery/pkg/tickquery"
)

// Config holds the configuration for the query loop.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = tickquery.Config

// Option configures the client created by Run.
type Option = tickquery.Option

// DefaultConfig returns a Config that queries "message_endpoint" every second
// over the in-process transport.
func DefaultConfig() Config {
	return tickquery.DefaultConfig()
}

// Run starts the query loop and blocks until the context is canceled or
// cfg.Count cycles have run. Cancellation is not reported as an error.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	client, err := tickquery.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-client.Done():
	}

	if err := client.Stop(); err != nil && !errors.Is(err, tickquery.ErrNotRunning) {
		return err
	}

	err = client.Err()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
