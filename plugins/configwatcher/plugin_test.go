package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/tickquery/pkg/log"
	"github.com/bft-labs/tickquery/pkg/tickquery"
)

type fakeController struct {
	mu       sync.Mutex
	interval time.Duration
	sets     int
}

func (c *fakeController) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func (c *fakeController) SetInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
	c.sets++
}

func (c *fakeController) Sets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startPlugin(t *testing.T, path string, ctrl tickquery.Controller) *Plugin {
	t.Helper()
	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	err := plugin.Initialize(ctx, tickquery.PluginConfig{
		Endpoint:   "message_endpoint",
		Logger:     log.NewNoopLogger(),
		Controller: ctrl,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() {
		if err := plugin.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	})
	return plugin
}

func TestPlugin_AppliesIntervalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `interval = "1s"`)

	ctrl := &fakeController{interval: time.Second}
	startPlugin(t, path, ctrl)

	writeConfig(t, path, `interval = "250ms"`)

	waitFor(t, "interval change", func() bool { return ctrl.Interval() == 250*time.Millisecond })
}

func TestPlugin_IgnoresInvalidInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `interval = "1s"`)

	ctrl := &fakeController{interval: time.Second}
	plugin := startPlugin(t, path, ctrl)

	writeConfig(t, path, `interval = "whenever"`)
	waitFor(t, "reload", func() bool { return plugin.Reloads() > 0 })

	writeConfig(t, path, `interval = "-5s"`)
	time.Sleep(100 * time.Millisecond)

	if ctrl.Sets() != 0 {
		t.Errorf("SetInterval called %d times, want 0", ctrl.Sets())
	}
	if ctrl.Interval() != time.Second {
		t.Errorf("Interval = %v, want 1s", ctrl.Interval())
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, `interval = "1s"`)

	ctrl := &fakeController{interval: time.Second}
	plugin := startPlugin(t, path, ctrl)

	writeConfig(t, filepath.Join(dir, "other.toml"), `interval = "5ms"`)
	time.Sleep(100 * time.Millisecond)

	if plugin.Reloads() != 0 {
		t.Errorf("Reloads = %d, want 0", plugin.Reloads())
	}
}

func TestPlugin_DisabledWithoutPath(t *testing.T) {
	plugin := New(Config{})
	err := plugin.Initialize(context.Background(), tickquery.PluginConfig{Controller: &fakeController{}})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_MissingDirectory(t *testing.T) {
	plugin := New(Config{Path: filepath.Join(t.TempDir(), "missing", "config.toml")})
	err := plugin.Initialize(context.Background(), tickquery.PluginConfig{
		Logger:     log.NewNoopLogger(),
		Controller: &fakeController{},
	})
	if err == nil {
		t.Error("Initialize() expected error for missing directory")
	}
}

func TestPlugin_Name(t *testing.T) {
	if got := New(DefaultConfig()).Name(); got != "configwatcher" {
		t.Errorf("Name() = %q, want configwatcher", got)
	}
}

func TestPlugin_KeepsOverriddenIntervalOnUnrelatedEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "interval = \"1s\"\nbody = \"hello\"\n")

	// Started with --interval 500ms over the file's 1s.
	ctrl := &fakeController{interval: 500 * time.Millisecond}
	plugin := startPlugin(t, path, ctrl)

	writeConfig(t, path, "interval = \"1s\"\nbody = \"goodbye\"\n")
	waitFor(t, "reload", func() bool { return plugin.Reloads() > 0 })

	if ctrl.Sets() != 0 {
		t.Errorf("SetInterval called %d times, want 0", ctrl.Sets())
	}
	if ctrl.Interval() != 500*time.Millisecond {
		t.Errorf("Interval = %v, want 500ms", ctrl.Interval())
	}

	writeConfig(t, path, "interval = \"2s\"\nbody = \"goodbye\"\n")
	waitFor(t, "interval change", func() bool { return ctrl.Interval() == 2*time.Second })
}
