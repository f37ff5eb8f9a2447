package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/nestcomp/internal/input"
	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// WheelStep is the axis delta reported for one wheel notch.
const WheelStep = 15

// Linux input button codes forwarded to clients.
const (
	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
	btnSide   = 0x113
	btnExtra  = 0x114
)

// PumpHandler receives translated host events. Both callbacks run on the
// pump goroutine and must hand work to the reactor themselves.
type PumpHandler struct {
	Input func(ev input.Event)
	// Close is called when the window manager asks the window to close.
	Close func()
}

// Pump starts reading X events on a new goroutine. The returned channel is
// closed once the loop exits after Close.
func (h *HostWindow) Pump(handler PumpHandler) <-chan struct{} {
	xu := h.conn.XUtil
	id := h.win.Id
	emit := func(ev input.Event) {
		if handler.Input != nil {
			handler.Input(ev)
		}
	}

	xevent.KeyPressFun(func(x *xgbutil.XUtil, e xevent.KeyPressEvent) {
		emit(keyEvent(input.KindKeyPress, byte(e.Detail), e.State, keybind.ModGet(x, e.Detail)))
	}).Connect(xu, id)
	xevent.KeyReleaseFun(func(x *xgbutil.XUtil, e xevent.KeyReleaseEvent) {
		emit(keyEvent(input.KindKeyRelease, byte(e.Detail), e.State, keybind.ModGet(x, e.Detail)))
	}).Connect(xu, id)
	xevent.ButtonPressFun(func(_ *xgbutil.XUtil, e xevent.ButtonPressEvent) {
		if ev, ok := buttonEvent(byte(e.Detail), e.EventX, e.EventY, true); ok {
			emit(ev)
		}
	}).Connect(xu, id)
	xevent.ButtonReleaseFun(func(_ *xgbutil.XUtil, e xevent.ButtonReleaseEvent) {
		if ev, ok := buttonEvent(byte(e.Detail), e.EventX, e.EventY, false); ok {
			emit(ev)
		}
	}).Connect(xu, id)
	xevent.MotionNotifyFun(func(_ *xgbutil.XUtil, e xevent.MotionNotifyEvent) {
		emit(input.Event{Kind: input.KindMotion, Pos: point(e.EventX, e.EventY)})
	}).Connect(xu, id)
	xevent.ExposeFun(func(_ *xgbutil.XUtil, e xevent.ExposeEvent) {
		// Only the last of a run of exposes matters.
		if e.Count == 0 {
			emit(input.Event{Kind: input.KindExpose, Exposed: h.Exposed()})
		}
	}).Connect(xu, id)
	xevent.VisibilityNotifyFun(func(_ *xgbutil.XUtil, e xevent.VisibilityNotifyEvent) {
		h.setVisible(e.State != xproto.VisibilityFullyObscured)
		emit(input.Event{Kind: input.KindExpose, Exposed: h.Exposed()})
	}).Connect(xu, id)
	xevent.MapNotifyFun(func(_ *xgbutil.XUtil, _ xevent.MapNotifyEvent) {
		h.setMapped(true)
		emit(input.Event{Kind: input.KindExpose, Exposed: h.Exposed()})
	}).Connect(xu, id)
	xevent.UnmapNotifyFun(func(_ *xgbutil.XUtil, _ xevent.UnmapNotifyEvent) {
		h.setMapped(false)
		emit(input.Event{Kind: input.KindExpose, Exposed: false})
	}).Connect(xu, id)
	xevent.FocusInFun(func(_ *xgbutil.XUtil, _ xevent.FocusInEvent) {
		emit(input.Event{Kind: input.KindFocusIn, Exposed: h.Exposed()})
	}).Connect(xu, id)
	xevent.FocusOutFun(func(_ *xgbutil.XUtil, _ xevent.FocusOutEvent) {
		emit(input.Event{Kind: input.KindFocusOut, Exposed: h.Exposed()})
	}).Connect(xu, id)
	xevent.ClientMessageFun(func(x *xgbutil.XUtil, e xevent.ClientMessageEvent) {
		if icccm.IsDeleteProtocol(x, e) {
			h.logger.Info("host window close requested")
			if handler.Close != nil {
				handler.Close()
			}
		}
	}).Connect(xu, id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		xevent.Main(xu)
	}()
	return done
}

func point(x, y int16) platform.Point {
	return platform.Point{X: float64(x), Y: float64(y)}
}

// keyEvent translates a core key event. X reports the modifier state from
// before the event, so own (the modifier mask the key itself is bound to) is
// added on press and removed on release.
func keyEvent(kind input.Kind, keycode byte, state, own uint16) input.Event {
	if kind == input.KindKeyPress {
		state |= own
	} else {
		state &^= own
	}
	return input.Event{
		Kind:      kind,
		Scancode:  uint32(keycode),
		Modifiers: modifiersFromState(state),
	}
}

// buttonEvent translates a core button event. Buttons 4-7 are wheel notches;
// their release carries no information and is dropped.
func buttonEvent(detail byte, x, y int16, pressed bool) (input.Event, bool) {
	pos := point(x, y)
	switch detail {
	case 4, 5, 6, 7:
		if !pressed {
			return input.Event{}, false
		}
		ev := input.Event{Kind: input.KindWheel, Pos: pos, Axis: protocol.AxisVertical, Delta: WheelStep}
		if detail >= 6 {
			ev.Axis = protocol.AxisHorizontal
		}
		if detail == 4 || detail == 6 {
			ev.Delta = -WheelStep
		}
		return ev, true
	}

	var code uint32
	switch detail {
	case 1:
		code = btnLeft
	case 2:
		code = btnMiddle
	case 3:
		code = btnRight
	case 8:
		code = btnSide
	case 9:
		code = btnExtra
	default:
		return input.Event{}, false
	}
	kind := input.KindButtonRelease
	if pressed {
		kind = input.KindButtonPress
	}
	return input.Event{Kind: kind, Pos: pos, Button: code}, true
}

func modifiersFromState(state uint16) platform.Modifiers {
	var m platform.Modifiers
	if state&xproto.KeyButMaskShift != 0 {
		m |= platform.ModShift
	}
	if state&xproto.KeyButMaskControl != 0 {
		m |= platform.ModControl
	}
	if state&xproto.KeyButMaskMod1 != 0 {
		m |= platform.ModAlt
	}
	if state&xproto.KeyButMaskMod4 != 0 {
		m |= platform.ModSuper
	}
	return m
}
