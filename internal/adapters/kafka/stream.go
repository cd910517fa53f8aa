package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/tickquery/internal/domain"
)

// stream yields the replies tagged with one correlation id.
// It ends on a final marker or after timeout without a matching reply.
type stream struct {
	reader        reader
	correlationID string
	timeout       time.Duration

	done bool
	once sync.Once
	err  error
}

func (s *stream) Next(ctx context.Context) (domain.Reply, error) {
	for !s.done {
		readCtx, cancel := context.WithTimeout(ctx, s.timeout)
		m, err := s.reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				s.done = true
				break
			}
			return domain.Reply{}, err
		}

		if header(m, HeaderCorrelationID) != s.correlationID {
			continue
		}

		s.done = header(m, HeaderFinal) == "1"

		switch status := header(m, HeaderStatus); status {
		case StatusOK:
			return domain.Success(m.Value), nil
		case StatusError:
			return domain.Failure(m.Value), nil
		case "":
			// bare final marker
			continue
		default:
			return domain.Reply{}, fmt.Errorf("reply at offset %d has unknown status %q", m.Offset, status)
		}
	}
	return domain.Reply{}, io.EOF
}

func (s *stream) Close() error {
	s.once.Do(func() {
		s.err = s.reader.Close()
	})
	return s.err
}
