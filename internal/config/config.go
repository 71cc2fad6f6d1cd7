// Package config loads the monitor's JSON configuration. Fields omitted
// from the file keep their defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aisleview/shelfwatch/internal/detect"
	"github.com/aisleview/shelfwatch/internal/shelf"
	"github.com/aisleview/shelfwatch/internal/track"
)

// maxFileSize bounds config reads for safety (1MB).
const maxFileSize = 1 * 1024 * 1024

// Config is the resolved runtime configuration.
type Config struct {
	Listen       string         // HTTP listen address
	DBPath       string         // SQLite event database path
	VideoSource  string         // "synthetic" or a capture identifier
	FrameStride  int            // process every Nth frame
	HistoryDepth int            // per-track position history depth
	Tracker      track.Config   // registry tuning
	Shelves      []shelf.Region // ordered; order is the overlap tie-break
}

// Default returns the configuration used when no file is supplied: the
// synthetic demo layout with two shelves.
func Default() Config {
	return Config{
		Listen:       ":8080",
		DBPath:       "shelfwatch.db",
		VideoSource:  "synthetic",
		FrameStride:  2,
		HistoryDepth: shelf.DefaultHistoryDepth,
		Tracker:      track.DefaultConfig(),
		Shelves: []shelf.Region{
			{ID: "shelf_a", Box: detect.Box{X1: 100, Y1: 200, X2: 500, Y2: 600}},
			{ID: "shelf_b", Box: detect.Box{X1: 600, Y1: 200, X2: 1000, Y2: 600}},
		},
	}
}

// fileConfig is the on-disk schema. Pointer fields distinguish "absent" from
// zero so partial files merge over defaults.
type fileConfig struct {
	Listen       *string        `json:"listen,omitempty"`
	DBPath       *string        `json:"db_path,omitempty"`
	VideoSource  *string        `json:"video_source,omitempty"`
	FrameStride  *int           `json:"frame_stride,omitempty"`
	HistoryDepth *int           `json:"history_depth,omitempty"`
	MaxAge       *int           `json:"max_age,omitempty"`
	MinHits      *int           `json:"min_hits,omitempty"`
	IoUThreshold *float64       `json:"iou_threshold,omitempty"`
	Shelves      []shelf.Region `json:"shelves,omitempty"`
}

// Load reads a JSON config file and merges it over the defaults. The file
// must have a .json extension and stay under the size cap.
func Load(path string) (Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if fc.Listen != nil {
		cfg.Listen = *fc.Listen
	}
	if fc.DBPath != nil {
		cfg.DBPath = *fc.DBPath
	}
	if fc.VideoSource != nil {
		cfg.VideoSource = *fc.VideoSource
	}
	if fc.FrameStride != nil {
		cfg.FrameStride = *fc.FrameStride
	}
	if fc.HistoryDepth != nil {
		cfg.HistoryDepth = *fc.HistoryDepth
	}
	if fc.MaxAge != nil {
		cfg.Tracker.MaxAge = *fc.MaxAge
	}
	if fc.MinHits != nil {
		cfg.Tracker.MinHits = *fc.MinHits
	}
	if fc.IoUThreshold != nil {
		cfg.Tracker.IoUThreshold = *fc.IoUThreshold
	}
	if fc.Shelves != nil {
		cfg.Shelves = fc.Shelves
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate fails fast on configuration that would degrade silently at
// runtime.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.FrameStride <= 0 {
		return fmt.Errorf("config: frame stride must be positive, got %d", c.FrameStride)
	}
	if len(c.Shelves) == 0 {
		return fmt.Errorf("config: at least one shelf region is required")
	}
	return nil
}
