// Package input routes host window events to client surfaces.
package input

import (
	"log/slog"
	"slices"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/surface"
)

// StuckModifierPolicy sends a compensating key release when the host's
// modifier state differs from what the router last saw, which happens when
// a release is swallowed while the host window was not focused.
type StuckModifierPolicy struct {
	Enabled  bool
	Modifier platform.Modifiers
	Scancode uint32
}

// DefaultStuckModifierPolicy releases left Alt (X11 key code 64).
func DefaultStuckModifierPolicy() StuckModifierPolicy {
	return StuckModifierPolicy{Enabled: true, Modifier: platform.ModAlt, Scancode: 64}
}

// Options wires a Router.
type Options struct {
	Logger   *slog.Logger
	Registry *surface.Registry
	Seat     protocol.Seat
	// Redraw requests a repaint, used on expose and focus changes.
	Redraw func()
	// QueryModifiers returns the modifier state reported by the host.
	QueryModifiers func() platform.Modifiers
	// DragKeys are the key codes that enable window dragging while held.
	DragKeys      []uint32
	StuckModifier StuckModifierPolicy
}

type dragSession struct {
	view   *surface.View
	offset platform.Point
}

// Router hit-tests the stacking order, tracks pointer and keyboard focus
// and implements drag-key window moves.
type Router struct {
	logger *slog.Logger
	reg    *surface.Registry
	seat   protocol.Seat
	redraw func()
	query  func() platform.Modifiers

	dragKeys []uint32
	stuck    StuckModifierPolicy

	modifiers   platform.Modifiers
	dragKeyDown bool
	drag        *dragSession
	pointer     *surface.View
	lastPos     platform.Point

	unsubscribe []func()
}

// NewRouter creates a router and keeps the seat's keyboard focus in sync
// with the registry.
func NewRouter(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		logger:   logger,
		reg:      opts.Registry,
		seat:     opts.Seat,
		redraw:   opts.Redraw,
		query:    opts.QueryModifiers,
		dragKeys: slices.Clone(opts.DragKeys),
		stuck:    opts.StuckModifier,
	}
	if r.redraw == nil {
		r.redraw = func() {}
	}
	r.unsubscribe = append(r.unsubscribe,
		r.reg.Subscribe(surface.ListenerFunc(r.focusChanged), surface.PhaseFocusChanged),
		r.reg.Subscribe(surface.ListenerFunc(r.surfaceGone), surface.PhaseUnmapped, surface.PhaseDestroyed),
	)
	return r
}

// Close detaches the router from the registry.
func (r *Router) Close() {
	for _, fn := range r.unsubscribe {
		fn()
	}
	r.unsubscribe = nil
}

// SetDragKeys replaces the drag key codes.
func (r *Router) SetDragKeys(codes []uint32) {
	r.dragKeys = slices.Clone(codes)
	r.dragKeyDown = false
}

// SetStuckModifierPolicy replaces the stuck modifier policy.
func (r *Router) SetStuckModifierPolicy(p StuckModifierPolicy) {
	r.stuck = p
}

// Dragging reports whether a drag session is active.
func (r *Router) Dragging() bool { return r.drag != nil }

// DragKeyDown reports whether a drag key is held.
func (r *Router) DragKeyDown() bool { return r.dragKeyDown }

// PointerFocus returns the view under the pointer as of the last forwarded
// motion.
func (r *Router) PointerFocus() *surface.View { return r.pointer }

// PointerPosition is the last pointer position seen.
func (r *Router) PointerPosition() platform.Point { return r.lastPos }

// Modifiers returns the last modifier state seen.
func (r *Router) Modifiers() platform.Modifiers { return r.modifiers }

// ViewAt finds the topmost view containing p and returns p in that view's
// coordinates. The cursor surface is never a target.
func (r *Router) ViewAt(p platform.Point) (*surface.View, platform.Point, bool) {
	stack := r.reg.Stack()
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].IsCursor() {
			continue
		}
		for _, v := range stack[i].Views() {
			if v.Contains(p) {
				return v, v.ToLocal(p), true
			}
		}
	}
	return nil, platform.Point{}, false
}

// Handle processes one host event.
func (r *Router) Handle(ev Event) {
	switch ev.Kind {
	case KindFocusOut:
		r.dragKeyDown = false
		r.exposed(ev)
	case KindExpose, KindFocusIn:
		r.exposed(ev)
	case KindButtonPress:
		r.press(ev)
	case KindButtonRelease:
		r.release(ev)
	case KindMotion:
		r.motion(ev)
	case KindWheel:
		r.seat.SendAxis(ev.Axis, ev.Delta)
	case KindKeyPress, KindKeyRelease:
		r.key(ev)
	case KindTouchBegin, KindTouchUpdate, KindTouchEnd:
		r.touch(ev)
	default:
		r.logger.Debug("ignoring input event", "kind", ev.Kind)
	}
}

func (r *Router) exposed(ev Event) {
	r.redraw()
	if !ev.Exposed || r.query == nil {
		return
	}
	mods := r.query()
	focus := r.reg.KeyboardFocus()
	if mods == r.modifiers || focus == nil {
		return
	}
	stuck := r.modifiers ^ mods
	if r.stuck.Enabled && stuck&r.stuck.Modifier != 0 {
		r.logger.Debug("releasing stuck modifier",
			"modifiers", stuck,
			"scancode", r.stuck.Scancode,
			"surface", focus.ID())
		r.seat.SendKey(r.stuck.Scancode, false)
	}
	r.modifiers = mods
}

func (r *Router) press(ev Event) {
	r.lastPos = ev.Pos
	target, local, hit := r.ViewAt(ev.Pos)
	if r.dragKeyDown && hit {
		r.drag = &dragSession{view: target, offset: local}
		r.logger.Debug("drag started", "surface", target.Surface().ID(), "offset", local)
		return
	}
	if hit {
		if s := target.Surface(); r.reg.KeyboardFocus() != s {
			_ = r.reg.SetKeyboardFocus(s)
			r.reg.Raise(s)
		}
	}
	r.seat.SendPointerButton(ev.Button, true)
}

func (r *Router) release(ev Event) {
	r.lastPos = ev.Pos
	if r.drag != nil {
		r.logger.Debug("drag finished", "surface", r.drag.view.Surface().ID(), "position", r.drag.view.Position())
		r.drag = nil
		return
	}
	r.seat.SendPointerButton(ev.Button, false)
}

func (r *Router) motion(ev Event) {
	r.lastPos = ev.Pos
	if r.drag != nil {
		r.drag.view.SetPosition(ev.Pos.Sub(r.drag.offset))
		r.redraw()
		return
	}
	target, local, _ := r.ViewAt(ev.Pos)
	r.sendMotion(target, local, ev.Pos)
}

func (r *Router) sendMotion(target *surface.View, local, global platform.Point) {
	r.pointer = target
	var id protocol.SurfaceID
	if target != nil {
		id = target.Surface().ID()
	}
	r.seat.SendPointerMotion(id, local, global)
}

func (r *Router) key(ev Event) {
	pressed := ev.Kind == KindKeyPress
	if slices.Contains(r.dragKeys, ev.Scancode) {
		r.dragKeyDown = pressed
	}
	r.modifiers = ev.Modifiers
	if r.reg.KeyboardFocus() == nil {
		return
	}
	r.seat.SendKey(ev.Scancode, pressed)
}

func (r *Router) touch(ev Event) {
	if len(ev.Touch) > 0 {
		pos := ev.Touch[0].Pos
		target, local, hit := r.ViewAt(pos)
		if hit && target != r.pointer {
			r.sendMotion(target, local, pos)
		}
	}
	if r.pointer != nil {
		r.seat.SendTouch(protocol.TouchEvent{Points: slices.Clone(ev.Touch)})
	}
}

func (r *Router) focusChanged(ev surface.Event) {
	var id protocol.SurfaceID
	if ev.Surface != nil {
		id = ev.Surface.ID()
	}
	r.seat.SetKeyboardFocus(id)
}

func (r *Router) surfaceGone(ev surface.Event) {
	if r.pointer != nil && r.pointer.Surface() == ev.Surface {
		r.pointer = nil
	}
	if r.drag != nil && r.drag.view.Surface() == ev.Surface {
		r.drag = nil
	}
}
