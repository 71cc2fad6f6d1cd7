// Package api exposes the HTTP control and observation surface: pipeline
// start/stop, stats, recent events, analytics, and a live event stream.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aisleview/shelfwatch/internal/monitoring"
	"github.com/aisleview/shelfwatch/internal/pipeline"
	"github.com/aisleview/shelfwatch/internal/shelf"
	"github.com/aisleview/shelfwatch/internal/storage/sqlite"
)

// ANSI escape codes for request logging.
const (
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

// Server serves the HTTP API over a running pipeline driver and event store.
type Server struct {
	drv   *pipeline.Driver
	store *sqlite.EventStore

	subMu       sync.Mutex
	subscribers map[int]chan shelf.Event
	nextSub     int
}

// NewServer wires the API to the driver and store. The server registers
// itself as a pipeline consumer so SSE subscribers see events live; the
// hand-off into each subscriber channel is non-blocking so a slow client
// never throttles the pipeline loop.
func NewServer(drv *pipeline.Driver, store *sqlite.EventStore) *Server {
	s := &Server{
		drv:         drv,
		store:       store,
		subscribers: make(map[int]chan shelf.Event),
	}
	drv.AddConsumer(s.fanout)
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/video/start", s.handleVideoStart)
	mux.HandleFunc("POST /api/video/stop", s.handleVideoStop)
	mux.HandleFunc("GET /api/video/stats", s.handleVideoStats)
	mux.HandleFunc("GET /api/video/latest", s.handleVideoLatest)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /api/analytics/summary", s.handleAnalyticsSummary)
	mux.HandleFunc("GET /api/analytics/timeline", s.handleAnalyticsTimeline)
	mux.HandleFunc("GET /api/analytics/chart", s.handleAnalyticsChart)

	return logRequests(mux)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(lrw, r)
		monitoring.Logf("%s%s %s%s %d %v", colorCyan, r.Method, r.URL.Path, colorReset,
			lrw.statusCode, time.Since(start).Round(time.Microsecond))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("[api] encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleVideoStart(w http.ResponseWriter, r *http.Request) {
	if s.drv.Running() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_running"})
		return
	}
	s.drv.Start()
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleVideoStop(w http.ResponseWriter, r *http.Request) {
	if !s.drv.Running() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_running"})
		return
	}
	s.drv.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleVideoStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.drv.Stats())
}

func (s *Server) handleVideoLatest(w http.ResponseWriter, r *http.Request) {
	result := s.drv.Latest()
	if result == nil {
		writeJSONError(w, http.StatusNotFound, "no result published yet")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "event store not configured")
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	events, err := s.store.RecentEvents(limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []shelf.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "event store not configured")
		return
	}
	summary, err := s.store.Summary()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAnalyticsTimeline(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "event store not configured")
		return
	}
	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 && v <= 365 {
			days = v
		}
	}
	timeline, err := s.store.Timeline(days)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if timeline == nil {
		timeline = []sqlite.TimelineBucket{}
	}
	writeJSON(w, http.StatusOK, timeline)
}
