package tickquery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/tickquery/pkg/tickquery"
)

func TestRun_Count(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.Count = 2

	require.NoError(t, Run(t.Context(), cfg))
}

func TestRun_CanceledIsNotAnError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = time.Hour

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, Run(ctx, cfg))
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport = "carrier-pigeon"

	err := Run(t.Context(), cfg)
	assert.True(t, errors.Is(err, tickquery.ErrUnknownTransport), "got %v", err)
}
