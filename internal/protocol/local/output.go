package local

import (
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/nestcomp/internal/protocol"
)

// Clock supplies protocol timestamps.
type Clock interface {
	CurrentTimeMsecs() uint32
}

// FrameCallback runs once when the next frame is presented.
type FrameCallback func(timeMsecs uint32)

// Output queues per-surface frame callbacks and fires them when the
// compositor reports a presented frame.
type Output struct {
	logger *slog.Logger
	clock  Clock

	mu        sync.Mutex
	pending   map[protocol.SurfaceID][]FrameCallback
	frames    uint64
	delivered uint64
	started   time.Time
	lastFrame time.Duration
}

var _ protocol.Output = (*Output)(nil)

// NewOutput creates an output.
func NewOutput(clock Clock, logger *slog.Logger) *Output {
	if logger == nil {
		logger = slog.Default()
	}
	return &Output{
		logger:  logger,
		clock:   clock,
		pending: make(map[protocol.SurfaceID][]FrameCallback),
	}
}

// RequestFrame queues fn for the surface's next presented frame.
func (o *Output) RequestFrame(id protocol.SurfaceID, fn FrameCallback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[id] = append(o.pending[id], fn)
}

// Forget drops callbacks queued by a destroyed surface.
func (o *Output) Forget(id protocol.SurfaceID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, id)
}

// FrameStarted marks the beginning of a render.
func (o *Output) FrameStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = time.Now()
}

// SendFrameCallbacks fires and clears every queued callback.
func (o *Output) SendFrameCallbacks() {
	o.mu.Lock()
	pending := o.pending
	o.pending = make(map[protocol.SurfaceID][]FrameCallback)
	o.frames++
	if !o.started.IsZero() {
		o.lastFrame = time.Since(o.started)
	}
	o.mu.Unlock()

	var now uint32
	if o.clock != nil {
		now = o.clock.CurrentTimeMsecs()
	}
	n := 0
	for _, fns := range pending {
		for _, fn := range fns {
			fn(now)
			n++
		}
	}
	if n > 0 {
		o.mu.Lock()
		o.delivered += uint64(n)
		o.mu.Unlock()
		o.logger.Debug("frame callbacks sent", "count", n)
	}
}

// OutputStats summarises frame callback activity.
type OutputStats struct {
	Frames    uint64        `json:"frames"`
	Delivered uint64        `json:"callbacks_delivered"`
	Pending   int           `json:"callbacks_pending"`
	LastFrame time.Duration `json:"last_frame_ns"`
}

// Stats returns frame callback counters.
func (o *Output) Stats() OutputStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	pending := 0
	for _, fns := range o.pending {
		pending += len(fns)
	}
	return OutputStats{
		Frames:    o.frames,
		Delivered: o.delivered,
		Pending:   pending,
		LastFrame: o.lastFrame,
	}
}
