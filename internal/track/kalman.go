package track

import "github.com/aisleview/shelfwatch/internal/detect"

// maxHistoryLength bounds the per-tracker box history kept for a future
// motion-model upgrade. Correctness does not depend on the history.
const maxHistoryLength = 30

// motion state vector indices: position/extent then their velocities.
const (
	stX = iota
	stY
	stW
	stH
	stVX
	stVY
	stVW
	stVH
	stateDim
)

// BoxTracker is a Kalman-style constant-velocity predictor for one object's
// bounding box in image space. The velocity components are carried in the
// state and applied during prediction, but are never re-estimated from
// consecutive measurements, so predictions hold the last observed position.
// This matches the behaviour the event layer was tuned against; a richer
// motion model can be substituted behind the same Predict/Update contract.
type BoxTracker struct {
	// ID is unique within one registry session and never reused.
	ID uint64

	state [stateDim]float64

	// Lifecycle counters.
	Age             int // cycles since creation
	Hits            int // cycles with a measurement update (creation counts)
	HitStreak       int // consecutive matched cycles, zeroed on predict
	TimeSinceUpdate int // cycles since the last measurement update

	history []detect.Box
}

// newBoxTracker seeds a tracker from an initial detection box. Counters
// start as if the seeding detection were the first hit.
func newBoxTracker(id uint64, box detect.Box) *BoxTracker {
	t := &BoxTracker{
		ID:        id,
		Hits:      1,
		HitStreak: 1,
	}
	t.state[stX] = float64(box.X1)
	t.state[stY] = float64(box.Y1)
	t.state[stW] = float64(box.Width())
	t.state[stH] = float64(box.Height())
	return t
}

// Predict advances the tracker one cycle and returns the predicted box.
// The constant-velocity displacement is only applied once the tracker has
// absorbed at least one measurement beyond its seed.
func (t *BoxTracker) Predict() detect.Box {
	t.Age++
	t.TimeSinceUpdate++

	if t.Hits > 1 {
		t.state[stX] += t.state[stVX]
		t.state[stY] += t.state[stVY]
		t.state[stW] += t.state[stVW]
		t.state[stH] += t.state[stVH]
	}

	t.HitStreak = 0
	return t.Box()
}

// Update absorbs a matched measurement, overwriting position and extent.
// Velocity components are left untouched.
func (t *BoxTracker) Update(box detect.Box) {
	t.TimeSinceUpdate = 0
	t.Hits++
	t.HitStreak++

	t.state[stX] = float64(box.X1)
	t.state[stY] = float64(box.Y1)
	t.state[stW] = float64(box.Width())
	t.state[stH] = float64(box.Height())

	t.history = append(t.history, t.Box())
	if len(t.history) > maxHistoryLength {
		t.history = t.history[1:]
	}
}

// Box returns the current state as an (x1,y1,x2,y2) box.
func (t *BoxTracker) Box() detect.Box {
	return detect.Box{
		X1: int(t.state[stX]),
		Y1: int(t.state[stY]),
		X2: int(t.state[stX] + t.state[stW]),
		Y2: int(t.state[stY] + t.state[stH]),
	}
}

// History returns a copy of the tracker's recent box history.
func (t *BoxTracker) History() []detect.Box {
	out := make([]detect.Box, len(t.history))
	copy(out, t.history)
	return out
}
