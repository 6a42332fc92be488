// Package httpserver constructs the process-wide HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New returns the API server. Header reads are bounded so a stalled client
// cannot hold a connection open before routing; per-route deadlines come from
// the timeout middleware.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
