// Package gateway serves a read-only JSON API over the token farm deployed
// on a session's chain.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tokenfarm"
	"tokenfarm/contracts"
	"tokenfarm/scripts"
	"tokenfarm/shared"
)

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 10 * time.Second

type metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheResults *prometheus.CounterVec
	healthChecks *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total number of HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "method", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "method"},
		),
		cacheResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_cache_requests_total",
				Help: "Total number of response cache lookups by result",
			},
			[]string{"result"},
		),
		healthChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_health_checks_total",
				Help: "Total number of health/readiness checks by status",
			},
			[]string{"type", "status"},
		),
	}
}

// Server is the farm read API
type Server struct {
	session *scripts.Session
	logger  *zap.Logger
	metrics *metrics
	cache   *ResponseCache
	gather  prometheus.Gatherer
	started time.Time
	mux     *http.ServeMux
}

// New builds the API over s. Metrics are registered on reg and served from
// gather; reg may be nil, in which case /metrics serves the default gatherer.
func New(ctx context.Context, s *scripts.Session, reg prometheus.Registerer, gather prometheus.Gatherer) *Server {
	if gather == nil {
		gather = prometheus.DefaultGatherer
	}
	srv := &Server{
		session: s,
		logger:  s.Logger.Named("gateway"),
		metrics: newMetrics(reg),
		cache:   NewResponseCache(ctx, CacheTTL, MaxCacheSize, CacheCleanupInterval),
		gather:  gather,
		started: time.Now(),
		mux:     http.NewServeMux(),
	}

	srv.mux.Handle("GET /api/farm", srv.metricsMiddleware("farm", srv.cached(srv.handleFarm)))
	srv.mux.Handle("GET /api/stakers/{address}", srv.metricsMiddleware("staker", srv.cached(srv.handleStaker)))
	srv.mux.Handle("GET /api/tokens/{address}/value", srv.metricsMiddleware("token_value", srv.cached(srv.handleTokenValue)))
	srv.mux.HandleFunc("GET /health", srv.handleHealth)
	srv.mux.HandleFunc("GET /readiness", srv.handleReadiness)
	srv.mux.Handle("GET /metrics", promhttp.HandlerFor(gather, promhttp.HandlerOpts{}))
	return srv
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on port until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	if port == "" {
		port = shared.DefaultPort
	}
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Token farm gateway starting",
		zap.String("port", port),
		zap.String("version", tokenfarm.Version),
	)
	s.logger.Info("Endpoints registered",
		zap.Strings("endpoints", []string{
			"GET /api/farm - Farm owner, allowed tokens and stakers",
			"GET /api/stakers/{address} - Staking balances and total value",
			"GET /api/tokens/{address}/value - Price feed value of a token",
			"GET /health - Liveness probe",
			"GET /readiness - Readiness probe (farm deployed)",
			"GET /metrics - Prometheus metrics",
		}),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.logger.Info("Gateway shutting down")
		return httpServer.Shutdown(shutdownCtx)
	}
}

// metricsMiddleware wraps HTTP handlers with request metrics
func (s *Server) metricsMiddleware(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		s.metrics.requests.WithLabelValues(endpoint, r.Method, status).Inc()
		s.metrics.duration.WithLabelValues(endpoint, r.Method).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// renderFunc produces the JSON body of a response
type renderFunc func(r *http.Request) (any, error)

// cached serves render results from the response cache while the block is unchanged
func (s *Server) cached(render renderFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		block := s.session.Chain.BlockNumber()
		key := r.URL.Path

		if body, ok := s.cache.Get(key, block); ok {
			s.metrics.cacheResults.WithLabelValues("hit").Inc()
			writeBody(w, http.StatusOK, body)
			return
		}
		s.metrics.cacheResults.WithLabelValues("miss").Inc()

		v, err := render(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			s.writeError(w, r, ErrInternal(err))
			return
		}
		s.cache.Put(key, block, buf.Bytes())
		writeBody(w, http.StatusOK, buf.Bytes())
	})
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Server", tokenfarm.UserAgent())
	w.WriteHeader(status)
	w.Write(body)
}

// ErrorResponse is the JSON body of a failed request
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	sanitized := Sanitize(err)
	if sanitized.Code == ErrCodeInternalError {
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug("Request rejected", zap.String("path", r.URL.Path), zap.String("code", sanitized.Code), zap.Error(err))
	}
	body, _ := json.Marshal(ErrorResponse{Code: sanitized.Code, Message: sanitized.Message})
	writeBody(w, sanitized.StatusCode(), append(body, '\n'))
}

func pathAddress(r *http.Request) (common.Address, error) {
	raw := r.PathValue("address")
	if err := shared.ValidateAddress(raw); err != nil {
		return common.Address{}, ErrInvalidInput(fmt.Sprintf("invalid address: %v", err))
	}
	return common.HexToAddress(raw), nil
}

// GET /health - Liveness probe (is the server running?)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
		"version":   tokenfarm.Version,
	}
	s.metrics.healthChecks.WithLabelValues("liveness", "healthy").Inc()

	body, _ := json.Marshal(response)
	writeBody(w, http.StatusOK, append(body, '\n'))
}

// ReadinessResponse reports whether the farm can be queried
type ReadinessResponse struct {
	Status    string `json:"status"` // "ready", "unavailable"
	Network   string `json:"network"`
	ChainID   uint64 `json:"chain_id"`
	Block     uint64 `json:"block"`
	TokenFarm string `json:"token_farm,omitempty"`
	Message   string `json:"message,omitempty"`
}

// GET /readiness - Readiness probe (is a TokenFarm deployed?)
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	c := s.session.Chain
	response := ReadinessResponse{
		Status:  "ready",
		Network: s.session.Network,
		ChainID: c.ChainID(),
		Block:   c.BlockNumber(),
	}
	status := http.StatusOK

	farm, err := contracts.LatestTokenFarm(c)
	if err != nil {
		response.Status = "unavailable"
		response.Message = "no TokenFarm deployed"
		status = http.StatusServiceUnavailable
		s.logger.Warn("Readiness check failed", zap.Error(err))
	} else {
		response.TokenFarm = farm.Address().Hex()
	}
	s.metrics.healthChecks.WithLabelValues("readiness", response.Status).Inc()

	body, _ := json.Marshal(response)
	writeBody(w, status, append(body, '\n'))
}
