package memory

import (
	"context"
	"time"

	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
)

// DefaultAckBody is the body AckResponder replies with.
const DefaultAckBody = "ack"

// AckResponder returns a queryable that answers every query with one success
// reply whose body is body. The reply keeps the entity path of the query.
// Queries that do not decode are answered with one failure reply.
func AckResponder(codec ports.Codec, body string) ports.Queryable {
	if body == "" {
		body = DefaultAckBody
	}
	return func(ctx context.Context, payload []byte, reply func(domain.Reply) error) error {
		query, err := codec.Decode(payload)
		if err != nil {
			return reply(domain.Failure([]byte("cannot decode query: " + err.Error())))
		}

		ack, err := codec.Encode(domain.NewMessage(time.Now(), query.Header.EntityPath, body))
		if err != nil {
			return err
		}
		return reply(domain.Success(ack))
	}
}
