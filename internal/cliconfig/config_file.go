package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Endpoint      string   `toml:"endpoint"`
	Interval      string   `toml:"interval"`
	EntityPath    string   `toml:"entity_path"`
	Body          string   `toml:"body"`
	Count         int      `toml:"count"`
	Transport     string   `toml:"transport"`
	ServiceURL    string   `toml:"service_url"`
	Brokers       []string `toml:"brokers"`
	ReplyTopic    string   `toml:"reply_topic"`
	ReplyTimeout  string   `toml:"reply_timeout"`
	QueryTimeout  string   `toml:"query_timeout"`
	SetupAttempts int      `toml:"setup_attempts"`
	LogLevel      string   `toml:"log_level"`
	OTLPEndpoint  string   `toml:"otlp_endpoint"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.tickquery/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".tickquery", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("endpoint", fc.Endpoint, &cfg.Endpoint)
	s.setString("entity-path", fc.EntityPath, &cfg.EntityPath)
	s.setString("body", fc.Body, &cfg.Body)
	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("reply-topic", fc.ReplyTopic, &cfg.ReplyTopic)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("otlp-endpoint", fc.OTLPEndpoint, &cfg.OTLPEndpoint)
	s.setStrings("brokers", fc.Brokers, &cfg.Brokers)

	if err := s.setDuration("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("reply-timeout", fc.ReplyTimeout, &cfg.ReplyTimeout); err != nil {
		return err
	}
	if err := s.setDuration("query-timeout", fc.QueryTimeout, &cfg.QueryTimeout); err != nil {
		return err
	}

	s.setInt("count", fc.Count, &cfg.Count)
	s.setInt("setup-attempts", fc.SetupAttempts, &cfg.SetupAttempts)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
