package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "TICKQUERY_"

// ApplyEnvConfig applies configuration from environment variables (TICKQUERY_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("endpoint", env("ENDPOINT"), &cfg.Endpoint)
	s.setString("entity-path", env("ENTITY_PATH"), &cfg.EntityPath)
	s.setString("body", env("BODY"), &cfg.Body)
	s.setString("transport", env("TRANSPORT"), &cfg.Transport)
	s.setString("service-url", env("SERVICE_URL"), &cfg.ServiceURL)
	s.setString("reply-topic", env("REPLY_TOPIC"), &cfg.ReplyTopic)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("otlp-endpoint", env("OTLP_ENDPOINT"), &cfg.OTLPEndpoint)
	s.setListFromString("brokers", env("BROKERS"), &cfg.Brokers)

	if err := s.setDuration("interval", env("INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("reply-timeout", env("REPLY_TIMEOUT"), &cfg.ReplyTimeout); err != nil {
		return err
	}
	if err := s.setDuration("query-timeout", env("QUERY_TIMEOUT"), &cfg.QueryTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("count", env("COUNT"), &cfg.Count); err != nil {
		return err
	}
	if err := s.setIntFromString("setup-attempts", env("SETUP_ATTEMPTS"), &cfg.SetupAttempts); err != nil {
		return err
	}

	return nil
}
