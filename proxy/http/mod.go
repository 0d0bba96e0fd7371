// Package http implements the proxy server of the node. Every request gets a
// request identifier so that its log lines can be correlated.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/votela/votela"
)

type key int

const requestIDKey key = 0

const shutdownTimeout = 10 * time.Second

// NewHTTP creates a new proxy http server.
func NewHTTP(listenAddr string) *HTTP {
	logger := votela.Logger.With().Timestamp().Str("role", "proxy").Logger()

	mux := http.NewServeMux()

	return &HTTP{
		mux: mux,
		server: &http.Server{
			Handler:      tracing(logging(logger)(mux)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:     logger,
		listenAddr: listenAddr,
		quit:       make(chan struct{}),
	}
}

// HTTP defines a proxy http server.
//
// - implements proxy.Proxy
type HTTP struct {
	sync.Mutex

	mux        *http.ServeMux
	server     *http.Server
	ln         net.Listener
	logger     zerolog.Logger
	listenAddr string
	quit       chan struct{}
}

// Listen implements proxy.Proxy. It can be called again once Stop has
// returned.
func (h *HTTP) Listen() {
	ln, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		h.logger.Panic().Msgf("failed to listen on '%s': %v", h.listenAddr, err)
	}

	h.Lock()
	h.ln = ln
	h.Unlock()

	done := make(chan struct{})

	go func() {
		<-h.quit
		h.logger.Info().Msg("server is shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		h.server.SetKeepAlivesEnabled(false)

		err := h.server.Shutdown(ctx)
		if err != nil {
			h.logger.Err(err).Msg("failed to shut down gracefully")
		}

		close(done)
	}()

	h.logger.Info().Msgf("server is ready to handle requests at %s", ln.Addr())

	err = h.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		h.logger.Err(err).Msgf("failed to serve on %s", h.listenAddr)
	}

	<-done
	h.logger.Info().Msg("server stopped")
}

// Stop implements proxy.Proxy. It should be called only once in order to make
// a new Listen successful.
func (h *HTTP) Stop() {
	// keep the channel open so the call is harmless when repeated
	h.quit <- struct{}{}
}

// GetAddr implements proxy.Proxy. It returns the address of the listener, or
// nil before Listen has bound it.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// RegisterHandler implements proxy.Proxy.
func (h *HTTP) RegisterHandler(path string,
	handler func(http.ResponseWriter, *http.Request)) {

	h.mux.HandleFunc(path, handler)
}

// logging writes one line per request served.
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				requestID, ok := r.Context().Value(requestIDKey).(string)
				if !ok {
					requestID = "unknown"
				}

				logger.Info().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).Msg("")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// tracing assigns a request identifier, taking the one of the caller when
// present.
func tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = xid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
