package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/tickquery/pkg/tickquery"
)

// Config holds CLI configuration for tickquery.
type Config struct {
	Endpoint   string
	Interval   time.Duration
	EntityPath string
	Body       string
	Count      int

	Transport    string
	ServiceURL   string
	Brokers      []string
	ReplyTopic   string
	ReplyTimeout time.Duration
	QueryTimeout time.Duration

	SetupAttempts int

	LogLevel     string
	OTLPEndpoint string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	d := tickquery.DefaultConfig()
	return Config{
		Endpoint:      d.Endpoint,
		Interval:      d.Interval,
		EntityPath:    d.EntityPath,
		Body:          d.Body,
		Transport:     string(d.Transport),
		ReplyTimeout:  d.ReplyTimeout,
		SetupAttempts: d.SetupAttempts,
		LogLevel:      "info",
	}
}

// Validate normalizes the configuration and checks it for errors.
func (c *Config) Validate() error {
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))

	if c.Count < 0 {
		return fmt.Errorf("count must not be negative")
	}
	return c.ClientConfig().Validate()
}

// ClientConfig converts the CLI configuration into a client configuration.
func (c *Config) ClientConfig() tickquery.Config {
	return tickquery.Config{
		Endpoint:      c.Endpoint,
		Interval:      c.Interval,
		EntityPath:    c.EntityPath,
		Body:          c.Body,
		Count:         c.Count,
		QueryTimeout:  c.QueryTimeout,
		Transport:     tickquery.Transport(c.Transport),
		ServiceURL:    c.ServiceURL,
		Brokers:       c.Brokers,
		ReplyTopic:    c.ReplyTopic,
		ReplyTimeout:  c.ReplyTimeout,
		SetupAttempts: c.SetupAttempts,
	}
}

// configSetter applies configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setListFromString splits a comma separated list.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	s.setStrings(flag, out, dst)
}
