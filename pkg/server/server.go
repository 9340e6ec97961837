// Package server exposes health, status and metrics endpoints alongside the public
// merkle and distribution lookup API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/speedrun-hq/airdropper/pkg/distribution"
	"github.com/speedrun-hq/airdropper/pkg/logger"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
)

const (
	DefaultRateLimit = 10
	shutdownTimeout  = 5 * time.Second
)

// Config configures a Server.
type Config struct {
	Port          string
	MetricsAPIKey string
	// RateLimit is requests per second allowed on the merkle endpoints, shared by all clients.
	RateLimit      int
	AllowedOrigins []string
}

// Server represents the HTTP API server
type Server struct {
	cfg      Config
	pool     *rpcpool.Pool
	service  *distribution.Service
	limiter  *rate.Limiter
	validate *validator.Validate
	logger   logger.Logger
	handler  http.Handler
}

// NewServer creates a new API server. service may be nil, in which case the distribution
// routes answer 503.
func NewServer(cfg Config, pool *rpcpool.Pool, service *distribution.Service, log logger.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	s := &Server{
		cfg:      cfg,
		pool:     pool,
		service:  service,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/endpoints/reset", s.handleResetEndpoint).Methods(http.MethodPost)
	router.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler())).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	merkleRoutes := api.PathPrefix("/merkle").Subrouter()
	merkleRoutes.Use(s.rateLimitMiddleware)
	merkleRoutes.HandleFunc("/generate", s.handleGenerateRoot).Methods(http.MethodPost)
	merkleRoutes.HandleFunc("/proof", s.handleProof).Methods(http.MethodPost)
	api.HandleFunc("/distributions/latest", s.handleLatestDistribution).Methods(http.MethodGet)
	api.HandleFunc("/distributions/{id:[0-9]+}", s.handleGetDistribution).Methods(http.MethodGet)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)

	return s
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server on port %s", s.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.cfg.MetricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.cfg.MetricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
