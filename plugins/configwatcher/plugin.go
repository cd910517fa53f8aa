// Package configwatcher reloads the query interval when the config file changes.
// Other settings are read once at startup; changes to them are logged and
// take effect on restart.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/tickquery/internal/cliconfig"
	"github.com/bft-labs/tickquery/pkg/log"
	"github.com/bft-labs/tickquery/pkg/tickquery"
)

// Plugin watches a TOML config file and applies interval changes.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	logger     tickquery.Logger
	controller tickquery.Controller
	last       cliconfig.FileConfig
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	debounce   *time.Timer
	reloads    int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch. Empty disables the plugin.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig watches the default config path.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file's directory.
func (p *Plugin) Initialize(ctx context.Context, cfg tickquery.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.controller = cfg.Controller
	p.mu.Unlock()

	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}
	if p.controller == nil {
		return errors.New("config watcher: no controller")
	}

	if fc, err := cliconfig.LoadFileConfig(p.path); err == nil {
		p.last = fc
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() == nil {
			p.reload()
		}
	})
}

// reload re-reads the file and applies a changed interval.
func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Error("config reload failed", log.String("path", p.path), log.Err(err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloads++

	// Only an edit to the file's interval is applied, so a value set by
	// flag or environment survives unrelated edits. Removing the key keeps
	// the running interval.
	if fc.Interval == "" {
		fc.Interval = p.last.Interval
	}
	if fc.Interval != "" && fc.Interval != p.last.Interval {
		interval, err := time.ParseDuration(fc.Interval)
		switch {
		case err != nil:
			p.logger.Error("config reload: invalid interval", log.String("interval", fc.Interval), log.Err(err))
		case interval <= 0:
			p.logger.Error("config reload: interval must be positive", log.String("interval", fc.Interval))
		case interval != p.controller.Interval():
			p.controller.SetInterval(interval)
		}
	}

	prev, next := p.last, fc
	prev.Interval, next.Interval = "", ""
	if !reflect.DeepEqual(prev, next) {
		p.logger.Warn("config changed; settings other than interval apply after restart", log.String("path", p.path))
	}
	p.last = fc
}

// Reloads returns how many times the file has been re-read.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

// Ensure Plugin implements tickquery.Plugin.
var _ tickquery.Plugin = (*Plugin)(nil)
