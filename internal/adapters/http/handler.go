package http

import (
	"io"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
)

// MaxQuerySize bounds the request body accepted by the handler.
const MaxQuerySize = 1 << 20

// NewHandler serves queryable on POST /v1/query/{endpoint}.
// Every reply is flushed as its own frame. An error returned by the
// queryable is sent as a trailing failure frame.
func NewHandler(endpoint string, queryable ports.Queryable, logger ports.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+queryPath+"{endpoint}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("endpoint") != endpoint {
			http.Error(w, "no queryable for "+r.PathValue("endpoint"), http.StatusNotFound)
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxQuerySize))
		if err != nil {
			http.Error(w, "read query: "+err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", replyType)
		w.WriteHeader(http.StatusOK)

		rc := http.NewResponseController(w)
		send := func(reply domain.Reply) error {
			if _, err := w.Write(appendFrame(nil, reply)); err != nil {
				return err
			}
			return rc.Flush()
		}

		if err := queryable(r.Context(), payload, send); err != nil {
			logger.Warn("queryable failed",
				ports.String("endpoint", endpoint),
				ports.Err(err),
			)
			if r.Context().Err() == nil {
				_ = send(domain.Failure([]byte(err.Error())))
			}
		}
	})
	return mux
}

// NewH2CHandler wraps h so it also accepts cleartext HTTP/2.
func NewH2CHandler(h http.Handler) http.Handler {
	return h2c.NewHandler(h, &http2.Server{})
}
