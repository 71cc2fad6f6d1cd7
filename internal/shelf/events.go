package shelf

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/aisleview/shelfwatch/internal/detect"
	"github.com/aisleview/shelfwatch/internal/monitoring"
	"github.com/aisleview/shelfwatch/internal/track"
)

// Kind identifies one of the four shelf event types.
type Kind string

const (
	// Pick fires when a tracked object leaves a shelf for open space.
	Pick Kind = "pick"
	// Return fires when a tracked object enters a shelf, including the
	// first time a track is ever sighted on one.
	Return Kind = "return"
	// Misplace fires when a tracked object moves directly between shelves.
	Misplace Kind = "misplace"
	// Missing fires when a known track vanishes from the tracked set while
	// it still had shelf membership.
	Missing Kind = "missing"
)

// Event is an immutable record of one shelf transition. ShelfID is set for
// pick, return and missing; FromShelf/ToShelf are set for misplace. Missing
// events carry a zero box and category "unknown" since the object is no
// longer observed.
type Event struct {
	ID              string       `json:"id"`
	Kind            Kind         `json:"event_type"`
	TrackID         uint64       `json:"track_id"`
	ShelfID         string       `json:"shelf_id,omitempty"`
	FromShelf       string       `json:"from_shelf,omitempty"`
	ToShelf         string       `json:"to_shelf,omitempty"`
	ProductCategory string       `json:"product_category"`
	Confidence      float64      `json:"confidence"`
	Box             detect.Box   `json:"bbox"`
	Center          detect.Point `json:"center"`
	Time            time.Time    `json:"timestamp"`
}

// Monitor derives shelf events from tracked-object movement. It keeps the
// per-track membership mapping and per-shelf inventory sets consistent on
// every cycle. Like the track registry it is single-loop only: the pipeline
// driver is its sole caller.
type Monitor struct {
	regions      []Region
	historyDepth int

	membership map[uint64]string             // track -> shelf id, "" when off-shelf
	inventory  map[string]map[uint64]struct{} // shelf id -> tracks believed on it
	history    map[uint64][]detect.Point      // bounded recent centers per track
}

// DefaultHistoryDepth bounds the per-track position history kept for future
// trajectory smoothing.
const DefaultHistoryDepth = 30

// NewMonitor creates a Monitor over an ordered region list. Region order is
// the containment tie-break: overlapping regions resolve to the first match.
func NewMonitor(regions []Region, historyDepth int) (*Monitor, error) {
	if err := validateRegions(regions); err != nil {
		return nil, err
	}
	if historyDepth <= 0 {
		historyDepth = DefaultHistoryDepth
	}
	m := &Monitor{
		regions:      slices.Clone(regions),
		historyDepth: historyDepth,
	}
	m.Reset()
	return m, nil
}

// Update consumes one cycle's confirmed tracked objects and returns the
// events for the cycle plus current shelf counts. Per-track events come
// first, in tracked-object order; missing events follow.
func (m *Monitor) Update(tracked []track.TrackedObject, now time.Time) ([]Event, map[string]int) {
	var events []Event
	current := make(map[uint64]bool, len(tracked))

	for _, obj := range tracked {
		id := obj.TrackID
		current[id] = true

		cur := shelfFor(m.regions, obj.Center)
		prev, seen := m.membership[id]

		switch {
		case seen && prev != "" && cur == "":
			events = append(events, m.newEvent(Pick, obj, prev, "", "", now))
			m.removeFromShelf(prev, id)
			monitoring.Logf("[events] pick: track %d from shelf %s", id, prev)

		case prev == "" && cur != "":
			// Covers first sighting on a shelf: no previous membership is
			// treated as a return, matching the behaviour the inventory
			// analytics were built against.
			events = append(events, m.newEvent(Return, obj, cur, "", "", now))
			monitoring.Logf("[events] return: track %d to shelf %s", id, cur)

		case seen && prev != "" && cur != "" && prev != cur:
			events = append(events, m.newEvent(Misplace, obj, "", prev, cur, now))
			m.removeFromShelf(prev, id)
			monitoring.Logf("[events] misplace: track %d from %s to %s", id, prev, cur)
		}

		m.membership[id] = cur
		if cur != "" {
			// Re-assert inventory membership even when no event fired.
			m.inventory[cur][id] = struct{}{}
		}

		h := append(m.history[id], obj.Center)
		if len(h) > m.historyDepth {
			h = h[1:]
		}
		m.history[id] = h
	}

	// A track known from a prior cycle but absent now is judged missing at
	// this cycle, regardless of when the registry evicts it.
	var gone []uint64
	for id := range m.membership {
		if !current[id] {
			gone = append(gone, id)
		}
	}
	slices.Sort(gone)

	for _, id := range gone {
		if shelfID := m.membership[id]; shelfID != "" {
			events = append(events, Event{
				ID:              uuid.NewString(),
				Kind:            Missing,
				TrackID:         id,
				ShelfID:         shelfID,
				ProductCategory: "unknown",
				Time:            now,
			})
			m.removeFromShelf(shelfID, id)
			monitoring.Logf("[events] missing: track %d from shelf %s", id, shelfID)
		}
		delete(m.membership, id)
		delete(m.history, id)
	}

	return events, m.ShelfCounts()
}

// ShelfCounts returns the current inventory size for every configured shelf.
func (m *Monitor) ShelfCounts() map[string]int {
	counts := make(map[string]int, len(m.regions))
	for _, r := range m.regions {
		counts[r.ID] = len(m.inventory[r.ID])
	}
	return counts
}

// Reset clears all per-track and per-shelf state, restoring the monitor to
// its initial construction state.
func (m *Monitor) Reset() {
	m.membership = make(map[uint64]string)
	m.history = make(map[uint64][]detect.Point)
	m.inventory = make(map[string]map[uint64]struct{}, len(m.regions))
	for _, r := range m.regions {
		m.inventory[r.ID] = make(map[uint64]struct{})
	}
}

func (m *Monitor) newEvent(kind Kind, obj track.TrackedObject, shelfID, from, to string, now time.Time) Event {
	return Event{
		ID:              uuid.NewString(),
		Kind:            kind,
		TrackID:         obj.TrackID,
		ShelfID:         shelfID,
		FromShelf:       from,
		ToShelf:         to,
		ProductCategory: obj.ProductCategory,
		Confidence:      obj.Confidence,
		Box:             obj.Box,
		Center:          obj.Center,
		Time:            now,
	}
}

func (m *Monitor) removeFromShelf(shelfID string, id uint64) {
	if set, ok := m.inventory[shelfID]; ok {
		delete(set, id)
	}
}
