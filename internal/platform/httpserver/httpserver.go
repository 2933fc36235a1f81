package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for an ingress gateway:
// bounded header/read/write timeouts so slow clients cannot pin goroutines.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
