package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"TICKQUERY_ENDPOINT":       "sensors",
				"TICKQUERY_INTERVAL":       "10s",
				"TICKQUERY_ENTITY_PATH":    "/robot",
				"TICKQUERY_BODY":           "ping",
				"TICKQUERY_COUNT":          "7",
				"TICKQUERY_TRANSPORT":      "kafka",
				"TICKQUERY_BROKERS":        "k1:9092, k2:9092,",
				"TICKQUERY_REPLY_TOPIC":    "sensors.out",
				"TICKQUERY_REPLY_TIMEOUT":  "1s",
				"TICKQUERY_QUERY_TIMEOUT":  "4s",
				"TICKQUERY_SETUP_ATTEMPTS": "2",
				"TICKQUERY_LOG_LEVEL":      "debug",
				"TICKQUERY_OTLP_ENDPOINT":  "collector:4317",
				"TICKQUERY_SERVICE_URL":    "http://example.com",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Endpoint:      "sensors",
				Interval:      10 * time.Second,
				EntityPath:    "/robot",
				Body:          "ping",
				Count:         7,
				Transport:     "kafka",
				Brokers:       []string{"k1:9092", "k2:9092"},
				ReplyTopic:    "sensors.out",
				ReplyTimeout:  time.Second,
				QueryTimeout:  4 * time.Second,
				SetupAttempts: 2,
				LogLevel:      "debug",
				OTLPEndpoint:  "collector:4317",
				ServiceURL:    "http://example.com",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"TICKQUERY_ENDPOINT": "env-endpoint",
				"TICKQUERY_BODY":     "env-body",
			},
			changed: map[string]bool{"endpoint": true},
			initial: Config{
				Endpoint: "flag-endpoint",
			},
			expected: Config{
				Endpoint: "flag-endpoint",
				Body:     "env-body",
			},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"TICKQUERY_INTERVAL": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"TICKQUERY_COUNT": "many",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}
			if !tt.wantErr {
				assertConfig(t, cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	fileConf := FileConfig{
		Endpoint: "file-endpoint",
		Body:     "file-body",
		Interval: "3s",
	}

	t.Setenv("TICKQUERY_ENDPOINT", "env-endpoint")
	t.Setenv("TICKQUERY_BODY", "env-body")

	changed := map[string]bool{
		"endpoint": true,
	}

	cfg := DefaultConfig()
	cfg.Endpoint = "cli-endpoint"

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.Endpoint != "cli-endpoint" {
		t.Errorf("Endpoint = %v, want cli-endpoint (CLI should win)", cfg.Endpoint)
	}
	if cfg.Body != "env-body" {
		t.Errorf("Body = %v, want env-body (env should override file)", cfg.Body)
	}
	if cfg.Interval != 3*time.Second {
		t.Errorf("Interval = %v, want 3s (file should set)", cfg.Interval)
	}
}
