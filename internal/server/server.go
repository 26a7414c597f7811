// Package server exposes the read API and unsigned-intent endpoints over
// HTTP, plus the WebSocket stream of market updates.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/server/handler"
	"github.com/vsyolabs/vsyod/internal/server/middleware"
	"github.com/vsyolabs/vsyod/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // empty disables authentication
	RateLimitPerMin int
	RateLimitOn     bool
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Status    *handler.StatusHandler
	Markets   *handler.MarketHandler
	Positions *handler.PositionHandler
	Portfolio *handler.PortfolioHandler
	Activity  *handler.ActivityHandler
	Intents   *handler.IntentHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (rate limit, auth, logging, CORS) applied. limiter may be nil when
// rate limiting is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health and status (no auth required would need a split chain; the
	// whole API shares one since the key is optional anyway).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Market browsing and pricing.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/quote", handlers.Markets.GetQuote)
	mux.HandleFunc("POST /api/markets/{id}/project", handlers.Markets.ProjectTrade)
	mux.HandleFunc("GET /api/markets/{id}/activity", handlers.Activity.ListMarketActivity)
	mux.HandleFunc("POST /api/markets/{id}/settle", handlers.Positions.SettleMarket)

	// Positions and the claim ledger.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("GET /api/positions/{id}/value", handlers.Portfolio.GetPositionValue)
	mux.HandleFunc("GET /api/positions/{id}/payout", handlers.Positions.GetPayout)
	mux.HandleFunc("POST /api/positions/{id}/claim", handlers.Positions.Claim)

	// Portfolio aggregation.
	mux.HandleFunc("GET /api/portfolio/{owner}", handlers.Portfolio.GetPortfolio)
	mux.HandleFunc("GET /api/portfolio/{owner}/activity", handlers.Activity.ListOwnerActivity)

	// Unsigned move-call intents.
	mux.HandleFunc("POST /api/intents/create-market", handlers.Intents.CreateMarket)
	mux.HandleFunc("POST /api/intents/buy", handlers.Intents.Buy)
	mux.HandleFunc("POST /api/intents/sell", handlers.Intents.Sell)
	mux.HandleFunc("POST /api/intents/claim", handlers.Intents.Claim)
	mux.HandleFunc("POST /api/intents/resolve", handlers.Intents.Resolve)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux

	if cfg.RateLimitOn && limiter != nil {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMin, time.Minute)(h)
	}
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server fails
// or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests to
// finish within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. With no origins
// configured, every origin is allowed.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
