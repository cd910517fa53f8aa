package cliconfig

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/bft-labs/tickquery/pkg/log"
)

// NewLogger builds the console logger for the given level name.
func NewLogger(out io.Writer, level string) (zerolog.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log-level: %w", err)
	}
	return log.NewConsoleLogger(out, lvl), nil
}
