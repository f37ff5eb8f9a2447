package local

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// SerialClock hands out event serials and timestamps.
type SerialClock interface {
	Clock
	NextSerial() uint32
}

// SeatEvent is one event delivered to a client surface.
type SeatEvent struct {
	Serial  uint32             `json:"serial"`
	Time    uint32             `json:"time_ms"`
	Kind    string             `json:"kind"`
	Surface protocol.SurfaceID `json:"surface"`
	Detail  string             `json:"detail,omitempty"`
}

const defaultHistory = 64

// Seat delivers input to in-process clients by recording it. Keyboard
// events go to the keyboard focus, pointer and touch events to the surface
// under the pointer.
type Seat struct {
	logger *slog.Logger
	clock  SerialClock

	mu       sync.Mutex
	keyboard protocol.SurfaceID
	pointer  protocol.SurfaceID
	history  []SeatEvent
	limit    int
	counts   map[string]int
}

var _ protocol.Seat = (*Seat)(nil)

// NewSeat creates a seat keeping the most recent events.
func NewSeat(clock SerialClock, logger *slog.Logger) *Seat {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seat{
		logger: logger,
		clock:  clock,
		limit:  defaultHistory,
		counts: make(map[string]int),
	}
}

func (s *Seat) SetKeyboardFocus(id protocol.SurfaceID) {
	s.mu.Lock()
	s.keyboard = id
	s.mu.Unlock()
	s.record("keyboard-enter", id, "")
}

func (s *Seat) SendPointerMotion(target protocol.SurfaceID, local, global platform.Point) {
	s.mu.Lock()
	prev := s.pointer
	s.pointer = target
	s.mu.Unlock()
	if prev != target {
		s.record("pointer-enter", target, fmt.Sprintf("from %d", prev))
	}
	if target != 0 {
		s.record("motion", target, fmt.Sprintf("local=%v global=%v", local, global))
	}
}

func (s *Seat) SendPointerButton(button uint32, pressed bool) {
	s.record("button", s.pointerFocus(), fmt.Sprintf("button=%d pressed=%v", button, pressed))
}

func (s *Seat) SendAxis(axis protocol.Axis, delta float64) {
	s.record("axis", s.pointerFocus(), fmt.Sprintf("%s %g", axis, delta))
}

func (s *Seat) SendKey(scancode uint32, pressed bool) {
	s.mu.Lock()
	target := s.keyboard
	s.mu.Unlock()
	s.record("key", target, fmt.Sprintf("scancode=%d pressed=%v", scancode, pressed))
}

func (s *Seat) SendTouch(ev protocol.TouchEvent) {
	s.record("touch", s.pointerFocus(), fmt.Sprintf("points=%d", len(ev.Points)))
}

// KeyboardFocus is the surface receiving key events.
func (s *Seat) KeyboardFocus() protocol.SurfaceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyboard
}

// PointerFocus is the surface receiving pointer events.
func (s *Seat) PointerFocus() protocol.SurfaceID {
	return s.pointerFocus()
}

// History returns recorded events, oldest first.
func (s *Seat) History() []SeatEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SeatEvent(nil), s.history...)
}

// Counts returns the number of events of each kind delivered so far.
func (s *Seat) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

func (s *Seat) pointerFocus() protocol.SurfaceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointer
}

func (s *Seat) record(kind string, target protocol.SurfaceID, detail string) {
	ev := SeatEvent{Kind: kind, Surface: target, Detail: detail}
	if s.clock != nil {
		ev.Serial = s.clock.NextSerial()
		ev.Time = s.clock.CurrentTimeMsecs()
	}

	s.mu.Lock()
	s.counts[kind]++
	s.history = append(s.history, ev)
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
	s.mu.Unlock()

	s.logger.Debug("seat event", "kind", kind, "surface", target, "detail", detail, "serial", ev.Serial)
}
