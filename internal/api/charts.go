package api

import (
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/aisleview/shelfwatch/internal/monitoring"
)

// handleAnalyticsChart renders the daily event timeline as a standalone
// HTML line chart.
func (s *Server) handleAnalyticsChart(w http.ResponseWriter, r *http.Request) {
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
	buckets, err := s.store.Timeline(days)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dates := make([]string, 0, len(buckets))
	counts := make([]opts.LineData, 0, len(buckets))
	for _, b := range buckets {
		dates = append(dates, b.Date)
		counts = append(counts, opts.LineData{Value: b.Count})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Shelf Events per Day",
			Subtitle: "trailing " + strconv.Itoa(days) + " days",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	line.SetXAxis(dates).AddSeries("events", counts)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		monitoring.Logf("[api] render timeline chart: %v", err)
	}
}
