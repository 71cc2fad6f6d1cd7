package pipeline

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultStatsWindow is the number of recent cycles the rolling
// processing-time window covers.
const DefaultStatsWindow = 30

// Stats is a point-in-time snapshot of pipeline performance counters.
type Stats struct {
	SessionID       string        `json:"session_id"`
	FramesRead      int64         `json:"frames_read"`
	FramesProcessed int64         `json:"frames_processed"`
	Detections      int64         `json:"detections_count"`
	Events          int64         `json:"events_count"`
	AvgFPS          float64       `json:"avg_fps"`
	P50Processing   time.Duration `json:"p50_processing_ns"`
	P95Processing   time.Duration `json:"p95_processing_ns"`
	Uptime          time.Duration `json:"uptime_ns"`
}

// rollingStats accumulates counters and a bounded window of per-cycle
// processing times with thread-safe operations.
type rollingStats struct {
	mu         sync.Mutex
	windowSize int
	window     []float64 // processing times in seconds, oldest first

	framesRead      int64
	framesProcessed int64
	detections      int64
	events          int64
	start           time.Time
}

func newRollingStats(windowSize int) *rollingStats {
	if windowSize <= 0 {
		windowSize = DefaultStatsWindow
	}
	return &rollingStats{
		windowSize: windowSize,
		window:     make([]float64, 0, windowSize),
		start:      time.Now(),
	}
}

// addRead counts a frame pulled from the source, processed or skipped.
func (s *rollingStats) addRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesRead++
}

// addCycle records one processed cycle.
func (s *rollingStats) addCycle(elapsed time.Duration, detections, events int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.framesProcessed++
	s.detections += int64(detections)
	s.events += int64(events)

	s.window = append(s.window, elapsed.Seconds())
	if len(s.window) > s.windowSize {
		s.window = s.window[1:]
	}
}

// snapshot derives the externally visible statistics. FPS is the inverse of
// the window's mean processing time; percentiles come from the empirical
// distribution over the same window.
func (s *rollingStats) snapshot(sessionID string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Stats{
		SessionID:       sessionID,
		FramesRead:      s.framesRead,
		FramesProcessed: s.framesProcessed,
		Detections:      s.detections,
		Events:          s.events,
		Uptime:          time.Since(s.start),
	}

	if len(s.window) > 0 {
		mean := stat.Mean(s.window, nil)
		if mean > 0 {
			out.AvgFPS = 1 / mean
		}

		sorted := make([]float64, len(s.window))
		copy(sorted, s.window)
		sort.Float64s(sorted)
		out.P50Processing = time.Duration(stat.Quantile(0.5, stat.Empirical, sorted, nil) * float64(time.Second))
		out.P95Processing = time.Duration(stat.Quantile(0.95, stat.Empirical, sorted, nil) * float64(time.Second))
	}

	return out
}
