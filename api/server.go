// Package api exposes the bot over HTTP.
//
// Endpoints:
//
//	GET  /health                           liveness probe
//	GET  /ready                            readiness probe (index built?)
//	POST /api/questions                    submit a question for a channel
//	GET  /api/channels/{channel}/messages  read a channel's messages
//
// Questions are acknowledged with 202; the answer lands asynchronously in
// the channel's message list, first as a placeholder and then edited in
// place, the same contract a chat-platform connector would see.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/lorebot/lore/internal/bot"
	"github.com/lorebot/lore/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:3400"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout = 60 * time.Second

	// IdleTimeout applies to keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server wiring handlers to the dispatcher and the
// in-memory message store.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health   *HealthHandler
	messages *MessageHandler
}

// NewServer registers all routes. ready reports whether the knowledge
// base is queryable; the message store doubles as the bot's Messenger.
func NewServer(dispatcher *bot.Dispatcher, store *MessageStore, ready ReadinessChecker, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:      mux,
		logger:   logger,
		health:   NewHealthHandler(ready, logger),
		messages: NewMessageHandler(dispatcher, store, logger),
	}

	s.health.RegisterRoutes(mux)
	s.messages.RegisterRoutes(mux)

	return s
}

// Handler returns the routed handler with middleware applied.
// Order: recovery → logging → rate limit → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		rateLimitMiddleware(),
	)
}

// Run starts the server and blocks until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
