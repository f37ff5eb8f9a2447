package input

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/surface"
)

const superL = 133

type testBuffer struct{ size platform.Size }

func (b testBuffer) Size() platform.Size     { return b.size }
func (b testBuffer) Origin() protocol.Origin { return protocol.OriginTopLeft }
func (b testBuffer) Image() image.Image      { return image.NewRGBA(image.Rect(0, 0, 1, 1)) }

type recordingSeat struct {
	events []string
}

func (s *recordingSeat) add(format string, args ...any) {
	s.events = append(s.events, fmt.Sprintf(format, args...))
}

func (s *recordingSeat) SetKeyboardFocus(id protocol.SurfaceID) { s.add("focus %d", id) }
func (s *recordingSeat) SendPointerMotion(id protocol.SurfaceID, local, global platform.Point) {
	s.add("motion %d %v %v", id, local, global)
}
func (s *recordingSeat) SendPointerButton(button uint32, pressed bool) {
	s.add("button %d %v", button, pressed)
}
func (s *recordingSeat) SendAxis(axis protocol.Axis, delta float64) { s.add("axis %v %g", axis, delta) }
func (s *recordingSeat) SendKey(code uint32, pressed bool)          { s.add("key %d %v", code, pressed) }
func (s *recordingSeat) SendTouch(ev protocol.TouchEvent)           { s.add("touch %d", len(ev.Points)) }

type fixture struct {
	reg     *surface.Registry
	router  *Router
	seat    *recordingSeat
	redraws int
	mods    platform.Modifiers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{seat: &recordingSeat{}}
	f.reg = surface.NewRegistry(surface.Options{
		Logger:        logger,
		Bounds:        func() platform.Rect { return platform.Rect{Width: 800, Height: 600} },
		StickyTopLeft: true,
	})
	f.router = NewRouter(Options{
		Logger:         logger,
		Registry:       f.reg,
		Seat:           f.seat,
		Redraw:         func() { f.redraws++ },
		QueryModifiers: func() platform.Modifiers { return f.mods },
		DragKeys:       []uint32{superL},
		StuckModifier:  DefaultStuckModifierPolicy(),
	})
	return f
}

// place maps a 100x100 toplevel at pos.
func (f *fixture) place(t *testing.T, id protocol.SurfaceID, pos platform.Point) *surface.Surface {
	t.Helper()
	s, err := f.reg.CreateSurface(1, id, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, _ := f.reg.CreateShellSurface(s, surface.Toplevel{})
	_ = f.reg.Commit(s, testBuffer{size: platform.Size{Width: 100, Height: 100}})
	if err := f.reg.Map(s); err != nil {
		t.Fatalf("map: %v", err)
	}
	view.SetPosition(pos)
	return s
}

func (f *fixture) stack() []protocol.SurfaceID {
	var ids []protocol.SurfaceID
	for _, s := range f.reg.Stack() {
		ids = append(ids, s.ID())
	}
	return ids
}

func pt(x, y float64) platform.Point { return platform.Point{X: x, Y: y} }

func TestViewAt_TopmostWins(t *testing.T) {
	f := newFixture(t)
	f.place(t, 1, pt(0, 0))
	f.place(t, 2, pt(50, 50))

	v, local, ok := f.router.ViewAt(pt(60, 70))
	if !ok || v.Surface().ID() != 2 {
		t.Fatalf("expected surface 2 on top")
	}
	if local != pt(10, 20) {
		t.Fatalf("local = %v, want (10,20)", local)
	}

	v, _, ok = f.router.ViewAt(pt(10, 10))
	if !ok || v.Surface().ID() != 1 {
		t.Fatalf("expected surface 1 where 2 does not cover")
	}
	if _, _, ok := f.router.ViewAt(pt(500, 500)); ok {
		t.Fatalf("expected no hit on empty area")
	}
	// Half-open: the right edge belongs to nobody.
	if _, _, ok := f.router.ViewAt(pt(150, 60)); ok {
		t.Fatalf("expected miss on right edge")
	}
}

func TestPress_RaisesAndFocusesTarget(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, 1, pt(0, 0))
	f.place(t, 2, pt(200, 200))
	if diff := cmp.Diff([]protocol.SurfaceID{1, 2}, f.stack()); diff != "" {
		t.Fatalf("initial stack (-want +got):\n%s", diff)
	}

	f.seat.events = nil
	f.router.Handle(Event{Kind: KindButtonPress, Pos: pt(10, 10), Button: 1})

	if diff := cmp.Diff([]protocol.SurfaceID{2, 1}, f.stack()); diff != "" {
		t.Fatalf("stack after click (-want +got):\n%s", diff)
	}
	if f.reg.KeyboardFocus() != a {
		t.Fatalf("expected focus on a")
	}
	want := []string{"focus 1", "button 1 true"}
	if diff := cmp.Diff(want, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
}

func TestPress_FocusedTargetIsNotRaisedAgain(t *testing.T) {
	f := newFixture(t)
	f.place(t, 1, pt(0, 0))
	f.place(t, 2, pt(50, 50))

	f.seat.events = nil
	f.router.Handle(Event{Kind: KindButtonPress, Pos: pt(60, 60), Button: 1})
	want := []string{"button 1 true"}
	if diff := cmp.Diff(want, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
}

func TestDrag_MovesViewByPointerDelta(t *testing.T) {
	f := newFixture(t)
	f.place(t, 1, pt(300, 300))
	b := f.place(t, 2, pt(100, 100))
	start := b.ShellView().Position()

	f.router.Handle(Event{Kind: KindKeyPress, Scancode: superL, Modifiers: platform.ModSuper})
	f.seat.events = nil
	f.router.Handle(Event{Kind: KindButtonPress, Pos: pt(150, 150), Button: 1})
	if !f.router.Dragging() {
		t.Fatalf("expected a drag session")
	}

	f.router.Handle(Event{Kind: KindMotion, Pos: pt(160, 145)})
	if got := b.ShellView().Position(); got != start.Add(pt(10, -5)) {
		t.Fatalf("after first move position = %v", got)
	}

	// Restacking another surface on top does not disturb the drag.
	f.reg.Raise(f.reg.Stack()[0])

	f.router.Handle(Event{Kind: KindMotion, Pos: pt(170, 140)})
	if got := b.ShellView().Position(); got != start.Add(pt(20, -10)) {
		t.Fatalf("after second move position = %v", got)
	}

	f.router.Handle(Event{Kind: KindButtonRelease, Pos: pt(170, 140), Button: 1})
	if f.router.Dragging() {
		t.Fatalf("release should end the drag")
	}
	if len(f.seat.events) != 0 {
		t.Fatalf("drag must not reach clients, got %v", f.seat.events)
	}

	f.router.Handle(Event{Kind: KindKeyRelease, Scancode: superL})
	f.seat.events = nil
	f.router.Handle(Event{Kind: KindMotion, Pos: pt(180, 150)})
	if got := b.ShellView().Position(); got != start.Add(pt(20, -10)) {
		t.Fatalf("plain motion moved the view to %v", got)
	}
	want := []string{"motion 2 (60,60) (180,150)"}
	if diff := cmp.Diff(want, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
}

func TestDragKey_WithoutTargetForwardsPress(t *testing.T) {
	f := newFixture(t)
	f.router.Handle(Event{Kind: KindKeyPress, Scancode: superL})
	f.router.Handle(Event{Kind: KindButtonPress, Pos: pt(5, 5), Button: 3})
	if f.router.Dragging() {
		t.Fatalf("no drag without a target")
	}
	if diff := cmp.Diff([]string{"button 3 true"}, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
}

func TestMotion_ForwardsEvenWithoutTarget(t *testing.T) {
	f := newFixture(t)
	f.router.Handle(Event{Kind: KindMotion, Pos: pt(5, 5)})
	if diff := cmp.Diff([]string{"motion 0 (0,0) (5,5)"}, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
	if f.router.PointerFocus() != nil {
		t.Fatalf("expected no pointer focus")
	}
}

func TestKey_DroppedWithoutFocus(t *testing.T) {
	f := newFixture(t)
	f.router.Handle(Event{Kind: KindKeyPress, Scancode: 38})
	if len(f.seat.events) != 0 {
		t.Fatalf("key forwarded with no focus: %v", f.seat.events)
	}

	f.place(t, 1, pt(0, 0))
	f.seat.events = nil
	f.router.Handle(Event{Kind: KindKeyPress, Scancode: 38, Modifiers: platform.ModShift})
	f.router.Handle(Event{Kind: KindKeyRelease, Scancode: 38})
	want := []string{"key 38 true", "key 38 false"}
	if diff := cmp.Diff(want, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
}

func TestWheel_ForwardedVerbatim(t *testing.T) {
	f := newFixture(t)
	f.router.Handle(Event{Kind: KindWheel, Axis: protocol.AxisHorizontal, Delta: -15})
	if diff := cmp.Diff([]string{"axis horizontal -15"}, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
}

func TestExpose_ReleasesStuckAlt(t *testing.T) {
	f := newFixture(t)
	f.place(t, 1, pt(0, 0))
	f.router.Handle(Event{Kind: KindKeyPress, Scancode: 64, Modifiers: platform.ModAlt})

	f.seat.events = nil
	f.mods = 0
	f.router.Handle(Event{Kind: KindExpose, Exposed: true})
	if diff := cmp.Diff([]string{"key 64 false"}, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
	if f.router.Modifiers() != 0 {
		t.Fatalf("modifiers not resynced: %v", f.router.Modifiers())
	}
	if f.redraws == 0 {
		t.Fatalf("expose should request a redraw")
	}

	f.seat.events = nil
	f.router.Handle(Event{Kind: KindExpose, Exposed: true})
	if len(f.seat.events) != 0 {
		t.Fatalf("second expose sent %v", f.seat.events)
	}
}

func TestExpose_PolicyDisabled(t *testing.T) {
	f := newFixture(t)
	f.router.SetStuckModifierPolicy(StuckModifierPolicy{})
	f.place(t, 1, pt(0, 0))
	f.router.Handle(Event{Kind: KindKeyPress, Scancode: 64, Modifiers: platform.ModAlt})

	f.seat.events = nil
	f.router.Handle(Event{Kind: KindExpose, Exposed: true})
	if len(f.seat.events) != 0 {
		t.Fatalf("disabled policy still sent %v", f.seat.events)
	}
	if f.router.Modifiers() != 0 {
		t.Fatalf("modifiers should still resync")
	}
}

func TestExpose_NonAltDiffSendsNothing(t *testing.T) {
	f := newFixture(t)
	f.place(t, 1, pt(0, 0))
	f.router.Handle(Event{Kind: KindKeyPress, Scancode: 50, Modifiers: platform.ModShift})
	f.seat.events = nil
	f.router.Handle(Event{Kind: KindFocusIn, Exposed: true})
	if len(f.seat.events) != 0 {
		t.Fatalf("unexpected events %v", f.seat.events)
	}
}

func TestFocusOut_ClearsDragKey(t *testing.T) {
	f := newFixture(t)
	f.place(t, 1, pt(0, 0))
	f.router.Handle(Event{Kind: KindKeyPress, Scancode: superL})
	f.router.Handle(Event{Kind: KindFocusOut})
	if f.router.DragKeyDown() {
		t.Fatalf("focus out should clear the drag key")
	}
	f.seat.events = nil
	f.router.Handle(Event{Kind: KindButtonPress, Pos: pt(5, 5), Button: 1})
	if f.router.Dragging() {
		t.Fatalf("press after focus out must not drag")
	}
}

func TestTouch_MovesPointerFocusFirst(t *testing.T) {
	f := newFixture(t)
	f.place(t, 1, pt(0, 0))
	f.seat.events = nil

	points := []protocol.TouchPoint{{ID: 0, State: protocol.TouchPressed, Pos: pt(10, 20)}}
	f.router.Handle(Event{Kind: KindTouchBegin, Touch: points})
	f.router.Handle(Event{Kind: KindTouchUpdate, Touch: points})

	want := []string{"motion 1 (10,20) (10,20)", "touch 1", "touch 1"}
	if diff := cmp.Diff(want, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
}

func TestTouch_NoPointerFocusDropsEvent(t *testing.T) {
	f := newFixture(t)
	points := []protocol.TouchPoint{{ID: 0, State: protocol.TouchPressed, Pos: pt(10, 20)}}
	f.router.Handle(Event{Kind: KindTouchBegin, Touch: points})
	if len(f.seat.events) != 0 {
		t.Fatalf("touch forwarded without focus: %v", f.seat.events)
	}
}

func TestUnmap_ClearsPointerFocusAndDrag(t *testing.T) {
	f := newFixture(t)
	s := f.place(t, 1, pt(0, 0))
	f.router.Handle(Event{Kind: KindMotion, Pos: pt(5, 5)})
	f.router.Handle(Event{Kind: KindKeyPress, Scancode: superL})
	f.router.Handle(Event{Kind: KindButtonPress, Pos: pt(5, 5), Button: 1})

	_ = f.reg.Unmap(s)
	if f.router.PointerFocus() != nil || f.router.Dragging() {
		t.Fatalf("unmapped surface still referenced by router")
	}
}

func TestFocusChanges_ReachSeat(t *testing.T) {
	f := newFixture(t)
	s := f.place(t, 1, pt(0, 0))
	_ = f.reg.Unmap(s)
	want := []string{"focus 1", "focus 0"}
	if diff := cmp.Diff(want, f.seat.events); diff != "" {
		t.Fatalf("seat events (-want +got):\n%s", diff)
	}
}
