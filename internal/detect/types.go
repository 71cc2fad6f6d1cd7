package detect

import "time"

// Point is a pixel coordinate in frame space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Box is an axis-aligned bounding box in frame pixel coordinates.
// A well-formed box has X1 < X2 and Y1 < Y2.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Area returns the box area, which is non-positive for degenerate boxes.
func (b Box) Area() int { return b.Width() * b.Height() }

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Valid reports whether the box has positive area.
func (b Box) Valid() bool { return b.X2 > b.X1 && b.Y2 > b.Y1 }

// Contains reports whether the point lies within the box, bounds inclusive.
func (b Box) Contains(p Point) bool {
	return b.X1 <= p.X && p.X <= b.X2 && b.Y1 <= p.Y && p.Y <= b.Y2
}

// IoU computes the Intersection-over-Union of two boxes. Disjoint boxes and
// boxes with non-positive area score 0.
func IoU(a, b Box) float64 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	inter := max(0, x2-x1) * max(0, y2-y1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Detection is one detected object in one frame. Detections are transient:
// produced by a Detector, consumed once by the track registry, never stored.
type Detection struct {
	Box             Box     `json:"bbox"`
	Confidence      float64 `json:"confidence"`
	ClassName       string  `json:"class_name"`
	ProductCategory string  `json:"product_category"`
	Center          Point   `json:"center"`
}

// NewDetection builds a Detection with the derived center and product
// category filled in.
func NewDetection(box Box, confidence float64, className string) Detection {
	return Detection{
		Box:             box,
		Confidence:      confidence,
		ClassName:       className,
		ProductCategory: CategoryFor(className),
		Center:          box.Center(),
	}
}

// Frame is a reference to one frame pulled from a FrameSource. The engine
// never inspects pixels; detection is delegated to the Detector.
type Frame struct {
	Number int
	Time   time.Time
	Width  int
	Height int
}

// FrameSource supplies frames to the pipeline. Next blocks until a frame is
// available or returns an error for a failed read; the pipeline treats read
// errors as transient and retries.
type FrameSource interface {
	Next() (Frame, error)
	Close() error
}

// Detector produces per-frame detections. Implementations wrap an external
// model; the engine treats the output as opaque measurements.
type Detector interface {
	Detect(frame Frame) []Detection
}
