package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aisleview/shelfwatch/internal/detect"
	"github.com/aisleview/shelfwatch/internal/monitoring"
	"github.com/aisleview/shelfwatch/internal/shelf"
	"github.com/aisleview/shelfwatch/internal/track"
)

// Result bundles one cycle's outputs. Results are immutable once published:
// the driver swaps a whole value into the latest-result slot so readers
// always observe a complete cycle, never a partial one.
type Result struct {
	Frame       detect.Frame         `json:"frame"`
	Detections  []detect.Detection   `json:"detections"`
	Tracked     []track.TrackedObject `json:"tracked_objects"`
	Events      []shelf.Event        `json:"events"`
	ShelfCounts map[string]int       `json:"shelf_counts"`
	Processing  time.Duration        `json:"processing_time_ns"`
	FrameNumber int                  `json:"frame_number"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Consumer receives each published result synchronously within the driver
// loop. A slow consumer throttles the pipeline by construction; consumers
// needing decoupling must hand off to their own goroutine.
type Consumer func(*Result)

// Options tunes the driver loop.
type Options struct {
	// Stride processes every Nth frame from the source. Default 2.
	Stride int
	// StatsWindow is the rolling processing-time window length. Default 30.
	StatsWindow int
	// JoinTimeout bounds how long Stop waits for the loop to exit.
	JoinTimeout time.Duration
	// RetryDelay is the pause after a failed frame read.
	RetryDelay time.Duration
}

func (o *Options) applyDefaults() {
	if o.Stride == 0 {
		o.Stride = 2
	}
	if o.StatsWindow == 0 {
		o.StatsWindow = DefaultStatsWindow
	}
	if o.JoinTimeout == 0 {
		o.JoinTimeout = 2 * time.Second
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
}

// Driver runs the detect→track→event cycle on a single background
// goroutine. The track registry and shelf monitor are owned by the loop and
// must not be mutated by anyone else while the driver runs.
type Driver struct {
	src      detect.FrameSource
	detector detect.Detector
	registry *track.Registry
	monitor  *shelf.Monitor
	opts     Options

	sessionID string
	stats     *rollingStats
	latest    atomic.Pointer[Result]

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	consumers    map[int]Consumer
	nextConsumer int
}

// New validates the wiring and builds a stopped driver.
func New(src detect.FrameSource, detector detect.Detector, registry *track.Registry, monitor *shelf.Monitor, opts Options) (*Driver, error) {
	if src == nil {
		return nil, fmt.Errorf("pipeline: frame source is required")
	}
	if detector == nil {
		return nil, fmt.Errorf("pipeline: detector is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("pipeline: track registry is required")
	}
	if monitor == nil {
		return nil, fmt.Errorf("pipeline: shelf monitor is required")
	}
	// Zero means unset and takes the default below.
	if opts.Stride < 0 {
		return nil, fmt.Errorf("pipeline: stride must be non-negative, got %d", opts.Stride)
	}
	opts.applyDefaults()

	return &Driver{
		src:       src,
		detector:  detector,
		registry:  registry,
		monitor:   monitor,
		opts:      opts,
		sessionID: uuid.NewString(),
		stats:     newRollingStats(opts.StatsWindow),
		consumers: make(map[int]Consumer),
	}, nil
}

// AddConsumer registers a callback for every published result and returns a
// handle for RemoveConsumer.
func (d *Driver) AddConsumer(c Consumer) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextConsumer
	d.nextConsumer++
	d.consumers[id] = c
	return id
}

// RemoveConsumer deregisters a callback. Unknown handles are ignored.
func (d *Driver) RemoveConsumer(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.consumers, id)
}

// Latest returns the most recently published result, or nil before the
// first cycle completes. The returned value must be treated as read-only.
func (d *Driver) Latest() *Result {
	return d.latest.Load()
}

// Stats returns a snapshot of the driver's performance counters.
func (d *Driver) Stats() Stats {
	return d.stats.snapshot(d.sessionID)
}

// Running reports whether the loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Start launches the background loop. Starting a running driver is a no-op.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		monitoring.Logf("[pipeline] already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true

	monitoring.Logf("[pipeline] starting session %s (stride %d)", d.sessionID, d.opts.Stride)
	go d.run(ctx, d.done)
}

// Stop signals the loop to exit, waits up to JoinTimeout for it, and then
// closes the frame source. Stopping a stopped driver is a no-op.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	done := d.done
	d.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(d.opts.JoinTimeout):
		monitoring.Logf("[pipeline] loop did not exit within %v", d.opts.JoinTimeout)
	}

	if err := d.src.Close(); err != nil {
		monitoring.Logf("[pipeline] closing frame source: %v", err)
	}
	monitoring.Logf("[pipeline] stopped")
}

// run is the cycle loop. It is fully sequential: a cycle's callbacks finish
// before the next frame is read, so the registry and monitor never see
// interleaved updates.
func (d *Driver) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	frameCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := d.src.Next()
		if err != nil {
			monitoring.Logf("[pipeline] frame read failed: %v", err)
			sleepCtx(ctx, d.opts.RetryDelay)
			continue
		}
		d.stats.addRead()

		frameCount++
		if frameCount%d.opts.Stride != 0 {
			continue
		}

		d.cycle(frame)
	}
}

// cycle runs one detect→track→event pass and publishes the result.
func (d *Driver) cycle(frame detect.Frame) {
	start := time.Now()

	detections := d.detector.Detect(frame)
	tracked := d.registry.Update(detections)
	events, counts := d.monitor.Update(tracked, start)

	elapsed := time.Since(start)
	d.stats.addCycle(elapsed, len(detections), len(events))

	result := &Result{
		Frame:       frame,
		Detections:  detections,
		Tracked:     tracked,
		Events:      events,
		ShelfCounts: counts,
		Processing:  elapsed,
		FrameNumber: frame.Number,
		Timestamp:   start,
	}
	d.latest.Store(result)

	d.mu.Lock()
	consumers := make([]Consumer, 0, len(d.consumers))
	for _, c := range d.consumers {
		consumers = append(consumers, c)
	}
	d.mu.Unlock()

	for _, c := range consumers {
		invoke(c, result)
	}
}

// invoke isolates consumer panics so one failing callback cannot stop the
// loop or starve the other consumers.
func invoke(c Consumer, r *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			monitoring.Logf("[pipeline] consumer panic: %v", rec)
		}
	}()
	c(r)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
