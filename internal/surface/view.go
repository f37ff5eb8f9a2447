package surface

import (
	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// View is the on-screen instance of a surface: a requested position plus
// the buffer it last consumed. The texture built from that buffer is held
// by the render package and only refreshed during a render tick.
type View struct {
	surface    *Surface
	pos        platform.Point
	buffer     protocol.Buffer
	generation uint64
}

var _ Positioner = (*View)(nil)

func (v *View) Surface() *Surface { return v.surface }

// Position is the requested top-left corner in output coordinates.
func (v *View) Position() platform.Point { return v.pos }

// SetPosition moves the view and, when it actually moved, emits
// PhaseMoved so a redraw gets scheduled.
func (v *View) SetPosition(p platform.Point) {
	if p == v.pos {
		return
	}
	v.pos = p
	if s := v.surface; s != nil && s.reg != nil && !s.destroyed {
		s.reg.dispatch.emit(Event{Phase: PhaseMoved, Surface: s, View: v})
	}
}

// Rect is the view's screen rectangle for the surface's current size.
func (v *View) Rect() platform.Rect {
	return platform.RectAt(v.pos, v.surface.Size())
}

// Contains reports whether p falls inside the view's screen rectangle.
func (v *View) Contains(p platform.Point) bool {
	return platform.ContainsPoint(v.pos, v.surface.Size(), p)
}

// ToLocal converts an output point into view-local coordinates.
func (v *View) ToLocal(p platform.Point) platform.Point {
	return p.Sub(v.pos)
}

// Advance moves the view to the surface's latest committed buffer. It
// returns true when the buffer changed since the last call.
func (v *View) Advance() bool {
	s := v.surface
	if s == nil || s.generation == v.generation {
		return false
	}
	v.generation = s.generation
	v.buffer = s.buffer
	return true
}

// CurrentBuffer is the buffer the view last advanced to.
func (v *View) CurrentBuffer() protocol.Buffer { return v.buffer }

// Generation is the surface buffer generation the view last advanced to.
func (v *View) Generation() uint64 { return v.generation }
