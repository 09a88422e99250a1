// Package api exposes the assessment service as a small REST API under /api.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/secakit/internal/api/middleware"
	"github.com/khanhnv2901/secakit/internal/domain/history"
	"github.com/khanhnv2901/secakit/internal/domain/scan"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

const apiMessage = "IT Security & Diagnostic Toolkit API"

// Assessor is satisfied by *assessment.Service.
type Assessor interface {
	ScanPorts(ctx context.Context, target, spec string) (*scan.PortScanResult, error)
	Ping(ctx context.Context, target string, count int) (*scan.PingResult, error)
	Traceroute(ctx context.Context, target string, maxHops int) (*scan.TracerouteResult, error)
	ScanFile(ctx context.Context, data []byte, filename string) (*scan.FileScanResult, error)
	CheckWebsite(ctx context.Context, rawURL string) (*scan.WebsiteScanResult, error)
	History(ctx context.Context, kind history.Kind, limit int) ([]history.Record, error)
	SystemInfo(ctx context.Context) (*scan.SystemInfo, error)
	Healthy(ctx context.Context) error
}

// Route names used as rate limit keys.
const (
	RouteScanPorts    = "scan_ports"
	RoutePing         = "ping"
	RouteTraceroute   = "traceroute"
	RouteScanFile     = "scan_file"
	RouteCheckWebsite = "check_website"
)

// DefaultRateLimits are requests per minute per client IP.
func DefaultRateLimits() map[string]int {
	return map[string]int{
		RouteScanPorts:    3,
		RoutePing:         10,
		RouteTraceroute:   3,
		RouteScanFile:     5,
		RouteCheckWebsite: 10,
	}
}

type Config struct {
	Service        Assessor
	AuthToken      string
	Logger         *zap.Logger
	CORSOrigins    []string       // Allowed CORS origins (empty = allow all)
	RateLimits     map[string]int // Requests per minute per IP and route (0 = disabled)
	TrustProxy     bool           // Take the client IP from X-Forwarded-For
	MaxUploadBytes int64
	PageSize       int
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	limiters *rateLimiterMap
	routeOf  map[string]string
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = consts.MaxUploadBytes
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = consts.DefaultHistoryPageSize
	}
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(limiterIdleTTL),
		routeOf: map[string]string{
			"/api/scan-ports":    RouteScanPorts,
			"/api/ping":          RoutePing,
			"/api/traceroute":    RouteTraceroute,
			"/api/scan-file":     RouteScanFile,
			"/api/check-website": RouteCheckWebsite,
		},
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// RequestID -> Logging -> CORS -> RateLimit -> Auth -> Handler
	// CORS headers go on every response, 429s included.
	handler := middleware.RequestID(s.withLogging(s.withCORS(s.withRateLimit(s.mux))))
	handler.ServeHTTP(w, r)
}

// Close stops the limiter cleanup goroutine.
func (s *Server) Close() {
	s.limiters.stop()
}

func (s *Server) routes() {
	s.mux.Handle("/api/", s.withAuth(http.HandlerFunc(s.handleRoot)))
	s.mux.Handle("/api/health", s.withAuth(http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("/api/system-info", s.withAuth(http.HandlerFunc(s.handleSystemInfo)))

	s.mux.Handle("/api/scan-ports", s.withAuth(http.HandlerFunc(s.handleScanPorts)))
	s.mux.Handle("/api/ping", s.withAuth(http.HandlerFunc(s.handlePing)))
	s.mux.Handle("/api/traceroute", s.withAuth(http.HandlerFunc(s.handleTraceroute)))
	s.mux.Handle("/api/scan-file", s.withAuth(http.HandlerFunc(s.handleScanFile)))
	s.mux.Handle("/api/check-website", s.withAuth(http.HandlerFunc(s.handleCheckWebsite)))

	s.mux.Handle("/api/port-scan-history", s.withAuth(s.historyHandler(history.KindPortScan)))
	s.mux.Handle("/api/ping-history", s.withAuth(s.historyHandler(history.KindPing)))
	s.mux.Handle("/api/traceroute-history", s.withAuth(s.historyHandler(history.KindTraceroute)))
	s.mux.Handle("/api/scan-history", s.withAuth(s.historyHandler(history.KindFileScan)))
	s.mux.Handle("/api/security-history", s.withAuth(s.historyHandler(history.KindWebsite)))
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, limited := s.routeOf[r.URL.Path]
		perMinute := s.cfg.RateLimits[route]
		if !limited || perMinute <= 0 || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := s.clientIP(r)
		if !s.limiters.allow(route+"|"+clientIP, perMinute) {
			s.requestLogger(r).Warn("rate_limit_exceeded",
				zap.String("client_ip", clientIP),
				zap.String("route", route),
			)
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) clientIP(r *http.Request) string {
	if s.cfg.TrustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
			if allowOrigin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		s.cfg.Logger.Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", lrw.bytesWritten),
		)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// 5xx details stay in the log.
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
		if status != http.StatusInternalServerError {
			msg = strings.ToLower(http.StatusText(status))
		}
	}

	writeJSON(w, status, errorBody{Detail: msg})
}

// writeServiceError maps an assessment error onto a status code.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, sharedErrors.ErrFileTooLarge):
		s.writeError(w, r, http.StatusRequestEntityTooLarge, sharedErrors.ErrFileTooLarge)
	case errors.As(err, &validation), sharedErrors.IsClientError(err):
		s.writeError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, sharedErrors.ErrProbeUnavailable):
		s.requestLogger(r).Warn("probe_unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: sharedErrors.ErrProbeUnavailable.Error()})
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// client went away; nothing useful can be written
		s.requestLogger(r).Info("request canceled")
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}
