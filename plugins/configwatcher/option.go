package configwatcher

import "github.com/bft-labs/tickquery/pkg/tickquery"

// WithConfigWatcher returns a tickquery Option that reloads the interval
// whenever the config file at cfg.Path changes.
//
// Usage:
//
//	c, err := tickquery.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/tickquery/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) tickquery.Option {
	return tickquery.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher watches ~/.tickquery/config.toml.
func WithDefaultConfigWatcher() tickquery.Option {
	return WithConfigWatcher(DefaultConfig())
}
