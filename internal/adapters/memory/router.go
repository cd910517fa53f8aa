// Package memory implements an in-process session: queryables are declared on
// named endpoints and queries are answered through goroutines and channels.
// It backs the "memory" transport and the tests of everything above it.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
)

// ErrClosed is returned when querying through a closed router.
var ErrClosed = errors.New("memory: session closed")

// DefaultBacklog is the number of replies buffered per query.
const DefaultBacklog = 16

// Router is an in-process ports.Session.
type Router struct {
	Backlog int // replies buffered per query

	mu       sync.RWMutex
	registry map[string]ports.Queryable
	closed   bool
	wg       sync.WaitGroup
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		Backlog:  DefaultBacklog,
		registry: make(map[string]ports.Queryable),
	}
}

// Declare registers q as the responder of endpoint, replacing any previous one.
// The returned function removes it again.
func (r *Router) Declare(endpoint string, q ports.Queryable) (undeclare func()) {
	r.mu.Lock()
	r.registry[endpoint] = q
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.registry, endpoint)
	}
}

// Querier binds a querier to endpoint. The endpoint does not need a
// queryable yet; queries issued while none is declared return no replies.
func (r *Router) Querier(ctx context.Context, endpoint string) (ports.Querier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("memory: empty endpoint")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	return &querier{router: r, endpoint: endpoint}, nil
}

// Close stops accepting queries and waits for running queryables to return.
func (r *Router) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

// acquire returns the queryable of endpoint and, when there is one, counts
// the query it is about to run. The closed check and the count happen under
// the same lock so Close never waits on a group that is still growing.
func (r *Router) acquire(endpoint string) (ports.Queryable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	q := r.registry[endpoint]
	if q != nil {
		r.wg.Add(1)
	}
	return q, nil
}

type querier struct {
	router   *Router
	endpoint string
}

func (q *querier) Endpoint() string { return q.endpoint }

func (q *querier) Close() error { return nil }

// Query runs the declared queryable in its own goroutine.
func (q *querier) Query(ctx context.Context, payload []byte) (ports.ReplyStream, error) {
	queryable, err := q.router.acquire(q.endpoint)
	if err != nil {
		return nil, err
	}

	backlog := q.router.Backlog
	if backlog < 0 {
		backlog = 0
	}
	s := &stream{
		replies: make(chan domain.Reply, backlog),
		done:    make(chan struct{}),
	}
	if queryable == nil {
		close(s.replies)
		return s, nil
	}

	// The queryable gets its own copy; callers may reuse payload.
	in := append([]byte(nil), payload...)

	go func() {
		defer q.router.wg.Done()
		defer close(s.replies)

		send := func(r domain.Reply) error {
			select {
			case s.replies <- r:
				return nil
			case <-s.done:
				return io.ErrClosedPipe
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := queryable(ctx, in, send); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			_ = send(domain.Failure([]byte(err.Error())))
		}
	}()

	return s, nil
}

type stream struct {
	replies chan domain.Reply
	done    chan struct{}
	once    sync.Once
}

func (s *stream) Next(ctx context.Context) (domain.Reply, error) {
	select {
	case r, ok := <-s.replies:
		if !ok {
			return domain.Reply{}, io.EOF
		}
		return r, nil
	case <-ctx.Done():
		return domain.Reply{}, ctx.Err()
	}
}

func (s *stream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

var (
	_ ports.Session     = (*Router)(nil)
	_ ports.Querier     = (*querier)(nil)
	_ ports.ReplyStream = (*stream)(nil)
)
