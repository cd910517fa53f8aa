package ports

import "net/http"

// HTTPClient performs the streaming POST behind an HTTP querier.
// *http.Client satisfies it; tests pass the client of an httptest.Server.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
