package router

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/estigate/estigate/internal/telemetry"
)

// Handler is anything that can attach routes to the service router.
type Handler interface {
	RegisterRoutes(router *mux.Router, logger *zap.Logger)
}

// Router assembles the mux router, middleware and HTTP server.
type Router struct {
	mux       *mux.Router
	limiter   *rate.Limiter
	telemetry *telemetry.Telemetry
	logger    *zap.Logger

	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewRouter creates a router with the given handlers registered.
func NewRouter(limiter *rate.Limiter, tel *telemetry.Telemetry, logger *zap.Logger, handlers []Handler) *Router {
	r := &Router{
		mux:       mux.NewRouter(),
		limiter:   limiter,
		telemetry: tel,
		logger:    logger.Named("router"),
	}

	if tel != nil {
		r.requestCounter, _ = tel.Meter.Int64Counter("http_requests_total",
			metric.WithDescription("Total number of HTTP requests"))
		r.requestDuration, _ = tel.Meter.Float64Histogram("http_request_duration_seconds",
			metric.WithDescription("HTTP request duration in seconds"))
		r.mux.Handle("/metrics", tel.Handler()).Methods("GET")
	}

	r.mux.Use(r.loggingMiddleware, r.rateLimitMiddleware)

	for _, h := range handlers {
		h.RegisterRoutes(r.mux, logger)
	}

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// CreateServer wraps the router in an http.Server bound to addr.
func (r *Router) CreateServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (r *Router) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.limiter != nil && !r.limiter.Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)
		elapsed := time.Since(start)

		if r.requestCounter != nil {
			r.requestCounter.Add(req.Context(), 1)
			r.requestDuration.Record(req.Context(), elapsed.Seconds())
		}
		r.logger.Debug("request handled",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", elapsed),
		)
	})
}

// statusWriter captures the response status code for logging
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
