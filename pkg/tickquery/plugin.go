package tickquery

import (
	"context"
	"time"
)

// Controller exposes the runtime knobs of a running client to plugins.
type Controller interface {
	Interval() time.Duration
	SetInterval(time.Duration)
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	Endpoint   string
	Transport  Transport
	Logger     Logger
	Controller Controller
}

// Plugin extends a Client. Plugins are initialized in registration order
// during Start and shut down in reverse order during Stop.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}
