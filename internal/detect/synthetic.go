package detect

import (
	"sync"
	"time"
)

// Synthetic demo geometry, laid out against the default two-shelf
// configuration (shelf_a x in [100,500], shelf_b x in [600,1000]) on a
// 1280x720 frame.
const (
	syntheticWidth  = 1280
	syntheticHeight = 720
	syntheticFPS    = 15
	itemRadius      = 95
)

// SyntheticSource generates frames on a fixed cadence without any capture
// hardware. It stands in for a camera the same way a mock serial port stands
// in for a sensor: deterministic, in-process, and safe for tests.
type SyntheticSource struct {
	mu    sync.Mutex
	frame int
	clock func() time.Time
	sleep func(time.Duration)
}

// NewSyntheticSource returns a frame source that emits ~15 frames per second.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{
		clock: time.Now,
		sleep: time.Sleep,
	}
}

// NewSyntheticSourceAt returns a synthetic source with an injected clock and
// no inter-frame delay, for tests that drive the pipeline deterministically.
func NewSyntheticSourceAt(clock func() time.Time) *SyntheticSource {
	return &SyntheticSource{
		clock: clock,
		sleep: func(time.Duration) {},
	}
}

// Next emits the next synthetic frame, pacing to the synthetic frame rate.
func (s *SyntheticSource) Next() (Frame, error) {
	s.sleep(time.Second / syntheticFPS)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame++
	return Frame{
		Number: s.frame,
		Time:   s.clock(),
		Width:  syntheticWidth,
		Height: syntheticHeight,
	}, nil
}

// Close is a no-op. Synthetic sources hold no capture resource and keep
// serving frames afterwards, which is what lets a stopped pipeline be
// started again over the same source.
func (s *SyntheticSource) Close() error {
	return nil
}

// ScriptedDetector produces detections from a script function instead of a
// model, for demo mode and tests.
type ScriptedDetector struct {
	Script func(Frame) []Detection
}

// Detect runs the script for the frame. A nil script yields no detections.
func (d *ScriptedDetector) Detect(frame Frame) []Detection {
	if d.Script == nil {
		return nil
	}
	return d.Script(frame)
}

// NewDemoDetector returns a scripted detector whose single item cycles
// through the demo path, producing a steady rhythm of pick, return and
// misplace events downstream.
func NewDemoDetector() *ScriptedDetector {
	return &ScriptedDetector{Script: demoScript}
}

// demoPath holds the item's center x position per frame, looped. One lap:
// rest on shelf_a, step to its edge, cross directly onto shelf_b (the
// centers at 500 and 600 are both on-shelf, so the crossing reads as a
// shelf-to-shelf move), drift off the far edge of shelf_b and back, then
// retrace. Per-frame steps stay small and each edge plateau is held for
// several frames so consecutive sampled boxes overlap enough to associate
// at stride 2, including across the 100px edge crossing.
var demoPath = buildDemoPath()

func buildDemoPath() []int {
	var path []int
	hold := func(x, frames int) {
		for i := 0; i < frames; i++ {
			path = append(path, x)
		}
	}
	ramp := func(from, to int) {
		step := 10
		if to < from {
			step = -10
		}
		for x := from + step; x != to+step; x += step {
			path = append(path, x)
		}
	}

	hold(400, 30)   // resting on shelf_a
	ramp(400, 500)  // to the shelf_a edge
	hold(500, 4)
	hold(600, 4)    // directly onto shelf_b
	ramp(600, 700)
	ramp(700, 1040) // carried off the far edge of shelf_b
	hold(1040, 30)  // in the shopper's hand
	ramp(1040, 700) // put back
	ramp(700, 600)
	hold(600, 4)
	hold(500, 4)    // directly back onto shelf_a
	ramp(500, 400)
	return path
}

// demoScript places one item at the looped path position for the frame.
func demoScript(frame Frame) []Detection {
	x := demoPath[frame.Number%len(demoPath)]
	y := 400

	box := Box{
		X1: x - itemRadius,
		Y1: y - itemRadius,
		X2: x + itemRadius,
		Y2: y + itemRadius,
	}
	return []Detection{NewDetection(box, 0.9, "bottle")}
}
