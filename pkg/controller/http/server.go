package http

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
)

// DefaultMaxBodySize is the largest webhook body accepted (1 MiB)
const DefaultMaxBodySize int64 = 1 << 20

// config holds internal HTTP server configuration
type config struct {
	addr         string
	strictStatus bool
	maxBodySize  int64
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithStrictStatus maps webhook outcomes to 4xx/5xx status codes instead of always 200
func WithStrictStatus(strict bool) Option {
	return func(c *config) {
		c.strictStatus = strict
	}
}

// WithMaxBodySize limits the webhook request body
func WithMaxBodySize(size int64) Option {
	return func(c *config) {
		c.maxBodySize = size
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	ingestUC interfaces.IngestUseCase,
	queryUC interfaces.QueryUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr:        "localhost:8080",
		maxBodySize: DefaultMaxBodySize,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	// Webhook endpoint
	webhookHandler := NewWebhookHandler(ingestUC,
		WithHandlerStrictStatus(cfg.strictStatus),
		WithHandlerMaxBodySize(cfg.maxBodySize),
	)
	router.Post("/hooks/github/release", webhookHandler.Handle)

	// Display surface
	router.Get("/releases", NewReleasesHandler(queryUC).Handle)

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	server.RegisterOnShutdown(func() {
		sentry.Flush(2 * time.Second)
	})

	return server, nil
}
