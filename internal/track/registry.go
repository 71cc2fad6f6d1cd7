package track

import (
	"fmt"

	"github.com/aisleview/shelfwatch/internal/detect"
)

// Config holds registry tuning parameters.
type Config struct {
	MaxAge       int     // cycles without a match before eviction
	MinHits      int     // matches needed before a track is reported
	IoUThreshold float64 // minimum IoU for an accepted match
}

// DefaultConfig returns the registry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAge:       30,
		MinHits:      3,
		IoUThreshold: 0.3,
	}
}

// validate fails fast on parameters that would silently disable tracking.
func (c Config) validate() error {
	if c.MaxAge <= 0 {
		return fmt.Errorf("track: max age must be positive, got %d", c.MaxAge)
	}
	if c.MinHits <= 0 {
		return fmt.Errorf("track: min hits must be positive, got %d", c.MinHits)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("track: iou threshold must be in [0,1], got %g", c.IoUThreshold)
	}
	return nil
}

// TrackedObject is the externally visible projection of a confirmed track
// that was matched to a detection this cycle. It combines the detection's
// fields with the track identity.
type TrackedObject struct {
	detect.Detection
	TrackID uint64 `json:"track_id"`
	Age     int    `json:"track_age"`
	Hits    int    `json:"hits"`
}

// Registry owns the live set of box trackers and runs the per-cycle
// predict→match→update→spawn→evict protocol. It is not safe for concurrent
// use; exactly one pipeline loop drives it.
type Registry struct {
	cfg      Config
	trackers []*BoxTracker
	nextID   uint64
	cycles   int
}

// NewRegistry creates a registry with validated configuration.
func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Registry{cfg: cfg, nextID: 1}, nil
}

// Update runs one tracking cycle over the frame's detections and returns
// the confirmed tracked objects that matched a detection this cycle.
func (r *Registry) Update(detections []detect.Detection) []TrackedObject {
	r.cycles++

	// Step 1: predict all existing trackers.
	predicted := make([]detect.Box, len(r.trackers))
	for i, t := range r.trackers {
		predicted[i] = t.Predict()
	}

	detBoxes := make([]detect.Box, len(detections))
	for i, d := range detections {
		detBoxes[i] = d.Box
	}

	// Step 2: assign detections to predicted boxes.
	assignment := associate(detBoxes, predicted, r.cfg.IoUThreshold)

	// Step 3: update matched trackers, remembering which detection fed each
	// tracker so emission survives the eviction reshuffle below.
	matchedDet := make(map[*BoxTracker]int, len(assignment.Matched))
	for _, m := range assignment.Matched {
		t := r.trackers[m.Track]
		t.Update(detBoxes[m.Detection])
		matchedDet[t] = m.Detection
	}

	// Step 4: spawn trackers for unmatched detections. Fresh spawns are not
	// emitted this cycle; they become visible from their first solver match.
	for _, d := range assignment.UnmatchedDetection {
		t := newBoxTracker(r.nextID, detBoxes[d])
		r.nextID++
		r.trackers = append(r.trackers, t)
	}

	// Step 5: evict stale trackers.
	alive := r.trackers[:0]
	for _, t := range r.trackers {
		if t.TimeSinceUpdate < r.cfg.MaxAge {
			alive = append(alive, t)
		}
	}
	// Clear trailing slots so evicted trackers can be collected.
	for i := len(alive); i < len(r.trackers); i++ {
		r.trackers[i] = nil
	}
	r.trackers = alive

	// Step 6: emit confirmed tracks that have a fresh match this cycle.
	// Tracks coasting on prediction are withheld even when confirmed, so
	// consumers only ever see positions backed by a real detection.
	var out []TrackedObject
	for _, t := range r.trackers {
		d, matched := matchedDet[t]
		if !matched {
			continue
		}
		if t.Hits >= r.cfg.MinHits || r.cycles <= r.cfg.MinHits {
			out = append(out, TrackedObject{
				Detection: detections[d],
				TrackID:   t.ID,
				Age:       t.Age,
				Hits:      t.Hits,
			})
		}
	}
	return out
}

// Len returns the number of live trackers, confirmed or not.
func (r *Registry) Len() int { return len(r.trackers) }

// Cycles returns how many cycles the registry has processed this session.
func (r *Registry) Cycles() int { return r.cycles }

// Reset clears all tracks and restarts the identifier counter, returning
// the registry to its initial observable state between sessions.
func (r *Registry) Reset() {
	r.trackers = nil
	r.nextID = 1
	r.cycles = 0
}
