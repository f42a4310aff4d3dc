// Package server exposes transcript cleaning over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/ccollicutt/chatclean/pkg/config"
	"github.com/ccollicutt/chatclean/pkg/parser"
	"github.com/ccollicutt/chatclean/pkg/webhook"
)

// Routes served by the ingress.
const (
	PathCleanChat = "/clean-chat/"
	PathHealthz   = "/healthz"
	PathMetrics   = "/metrics"
)

// UploadField is the multipart form field carrying the transcript.
const UploadField = "file"

// Server is the HTTP ingress. It is safe for concurrent use.
type Server struct {
	cfg     *config.Config
	parser  *parser.Parser
	limiter *limiterPool
	metrics *Metrics
	hooks   *webhook.Client
	log     *slog.Logger

	srv *fasthttp.Server

	// webhook deliveries still in flight
	pending sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithWebhookClient overrides the client used to deliver webhooks.
func WithWebhookClient(c *webhook.Client) Option {
	return func(s *Server) {
		if c != nil {
			s.hooks = c
		}
	}
}

// New builds a Server from a validated configuration.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		parser:  parser.New(parser.WithExtraSystemPhrases(cfg.Parser.ExtraSystemPhrases...)),
		limiter: newLimiterPool(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst),
		metrics: NewMetrics(),
		hooks:   webhook.NewClient(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	const (
		readBufferSize = 64 * 1024
		idleTimeout    = 30 * time.Second
	)
	s.srv = &fasthttp.Server{
		Handler:            s.Handler(),
		ErrorHandler:       s.errorHandler,
		Name:               "chatclean",
		ReadBufferSize:     readBufferSize,
		MaxRequestBodySize: int(cfg.Server.MaxUploadSize.Int64()),
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        idleTimeout,
	}
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the routing handler.
func (s *Server) Handler() fasthttp.RequestHandler {
	metrics := s.metrics.handler()

	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		switch {
		case path == PathCleanChat || path == "/clean-chat":
			if !ctx.IsPost() {
				ctx.Response.Header.Set("Allow", fasthttp.MethodPost)
				writeJSONError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
				return
			}
			s.handleCleanChat(ctx)
		case path == PathHealthz:
			writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
		case path == PathMetrics && ctx.IsGet():
			metrics(ctx)
		default:
			writeJSONError(ctx, fasthttp.StatusNotFound, "not found")
		}
	}
}

// errorHandler answers requests fasthttp rejects before routing.
func (s *Server) errorHandler(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, fasthttp.ErrBodyTooLarge) {
		s.metrics.observeUpload(resultTooLarge)
		writeJSONError(ctx, fasthttp.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %s", s.cfg.Server.MaxUploadSize))
		return
	}
	writeJSONError(ctx, fasthttp.StatusBadRequest, "malformed request")
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully and waits for in-flight webhook deliveries.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	s.log.Info("server listening", "addr", ln.Addr().String(),
		"max_upload_size", s.cfg.Server.MaxUploadSize.String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	if err := s.srv.Shutdown(); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	s.pending.Wait()
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}
