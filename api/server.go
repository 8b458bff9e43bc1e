// Package api provides the HTTP REST API server for tickerpulse.
//
// It exposes the ticker summary, the ranked ticker list, single-ticker
// detail, manual refresh, CSV export, Prometheus metrics and a WebSocket
// stream of summaries.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/config"
	"github.com/seenimoa/tickerpulse/internal/datasource"
	"github.com/seenimoa/tickerpulse/internal/mentions"
	"github.com/seenimoa/tickerpulse/internal/metrics"
	"github.com/seenimoa/tickerpulse/internal/tracker"
	"github.com/seenimoa/tickerpulse/pkg/models"
	"github.com/seenimoa/tickerpulse/pkg/utils"
	"github.com/seenimoa/tickerpulse/web"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	tracker *tracker.Tracker
	wsHub   *WSHub
	log     *zap.SugaredLogger
	loc     *time.Location
}

// NewServer creates a configured API server with all routes and middleware.
// Every completed tracker run is broadcast to WebSocket clients.
func NewServer(cfg *config.Config, tr *tracker.Tracker, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	srv := &Server{
		cfg:     cfg,
		tracker: tr,
		wsHub:   NewWSHub(log),
		log:     log,
		loc:     utils.ET,
	}
	srv.router = srv.buildRouter()
	tr.OnUpdate(srv.broadcastRun)
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub { return s.wsHub }

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()
	defer s.wsHub.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("API server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Infow("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(120 * time.Second))

		r.Get("/health", s.handleHealth)
		r.Get("/summary", s.handleSummary)
		r.Get("/tickers", s.handleTickers)
		r.Get("/tickers/{symbol}", s.handleTicker)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/export", s.handleExport)
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)
	})

	// Embedded dashboard
	if s.cfg.API.ServeUI {
		distFS, err := web.DistFS()
		if err != nil {
			s.log.Warnw("Dashboard not available", "error", err)
		} else {
			s.mountUI(r, distFS)
		}
	}

	return r
}

// mountUI serves the embedded dashboard: index.html at / and its assets
// under /ui/.
func (s *Server) mountUI(r chi.Router, distFS fs.FS) {
	fileServer := http.StripPrefix("/ui/", http.FileServerFS(distFS))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(distFS, "index.html")
		if err != nil {
			http.Error(w, "web UI not available", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.WriteHeader(http.StatusOK)
		w.Write(data) //nolint:errcheck
	})
	r.Get("/ui/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		fileServer.ServeHTTP(w, r)
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status         string          `json:"status"`
	Version        string          `json:"version"`
	MarketStatus   string          `json:"market_status"`
	TimeET         string          `json:"time_et"`
	VocabularySize int             `json:"vocabulary_size"`
	WSClients      int             `json:"ws_clients"`
	LastRun        *models.RunInfo `json:"last_run,omitempty"`
}

// RefreshResponse is returned by a successful manual refresh.
type RefreshResponse struct {
	Run     models.RunInfo `json:"run"`
	Summary models.Summary `json:"summary"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:         "ok",
		Version:        Version,
		MarketStatus:   utils.MarketStatus(),
		TimeET:         utils.FormatDateTime(utils.NowET(), utils.ET),
		VocabularySize: s.tracker.Vocabulary().Size(),
		WSClients:      s.wsHub.ClientCount(),
	}
	if last, ok := s.tracker.LastRun(); ok {
		resp.LastRun = &last
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	tf := s.timeframe(r)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.tracker.Summary(tf)})
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	ranked := s.tracker.Ranked(s.timeframe(r))
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < len(ranked) {
			ranked = ranked[:n]
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: ranked})
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if utils.NormalizeTicker(symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	detail, err := s.tracker.Ticker(symbol)
	if errors.Is(err, tracker.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: detail})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	info, err := s.tracker.Refresh(r.Context())
	if err != nil {
		s.writeRefreshError(w, err)
		return
	}
	tf := s.timeframe(r)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    RefreshResponse{Run: info, Summary: s.tracker.Summary(tf)},
	})
}

// writeRefreshError maps run failures onto HTTP statuses.
func (s *Server) writeRefreshError(w http.ResponseWriter, err error) {
	var (
		tooSoon   *tracker.TooSoonError
		rateLimit *datasource.RateLimitError
	)
	switch {
	case errors.As(err, &tooSoon):
		setRetryAfter(w, tooSoon.RetryAfter)
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &rateLimit):
		setRetryAfter(w, rateLimit.RetryAfter)
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, datasource.ErrUnauthorized),
		errors.Is(err, datasource.ErrChannelNotFound),
		errors.Is(err, datasource.ErrMissingToken),
		errors.Is(err, datasource.ErrNoSources):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.log.Errorw("Refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	tf := s.timeframe(r)
	name := mentions.ExportFilename(tf, s.tracker.Now())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if err := s.tracker.ExportCSV(w, tf, s.loc); err != nil {
		s.log.Warnw("CSV export failed", "error", err)
	}
}

// timeframe reads ?timeframe=, falling back to the configured default.
func (s *Server) timeframe(r *http.Request) mentions.Timeframe {
	v := r.URL.Query().Get("timeframe")
	if v == "" {
		v = s.cfg.Analysis.DefaultTimeframe
	}
	return mentions.ParseTimeframe(v)
}

// broadcastRun pushes the default-timeframe summary to WebSocket clients.
func (s *Server) broadcastRun(models.RunInfo) {
	tf := mentions.ParseTimeframe(s.cfg.Analysis.DefaultTimeframe)
	s.wsHub.Broadcast(WSMessage{Type: MsgSummary, Data: s.tracker.Summary(tf)})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// setRetryAfter writes d as whole seconds, rounded up.
func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

// requestLogger logs one line per request through zap.
func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugw("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
