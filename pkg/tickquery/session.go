package tickquery

import (
	"context"

	httpAdapter "github.com/bft-labs/tickquery/internal/adapters/http"
	"github.com/bft-labs/tickquery/internal/adapters/kafka"
	"github.com/bft-labs/tickquery/internal/adapters/memory"
	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
)

// openSession builds the session for the configured transport.
func openSession(ctx context.Context, cfg Config, codec ports.Codec, logger ports.Logger) (ports.Session, error) {
	switch cfg.Transport {
	case TransportMemory:
		router := memory.NewRouter()
		router.Declare(cfg.Endpoint, memory.AckResponder(codec, memory.DefaultAckBody))
		return router, nil
	case TransportHTTP:
		return httpAdapter.NewSession(cfg.ServiceURL, nil, logger)
	case TransportKafka:
		return kafka.NewSession(ctx, kafka.Config{
			Brokers:      cfg.Brokers,
			ReplyTopic:   cfg.ReplyTopic,
			ReplyTimeout: cfg.ReplyTimeout,
		}, logger)
	default:
		return nil, domain.ErrUnknownTransport
	}
}
