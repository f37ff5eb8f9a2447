// Package protocol declares the display-protocol collaborators the
// compositor core talks to. Wire negotiation, object lifetime handshakes and
// client validation live behind these interfaces.
package protocol

import (
	"image"

	"github.com/1broseidon/nestcomp/internal/platform"
)

// ClientID identifies a connected client.
type ClientID uint32

// SurfaceID identifies a surface within the compositor. Zero means none.
type SurfaceID uint32

// Origin is the row order convention a buffer declares.
type Origin int

const (
	// OriginTopLeft buffers store their first row at the top.
	OriginTopLeft Origin = iota
	// OriginBottomLeft buffers store their first row at the bottom (GL style).
	OriginBottomLeft
)

func (o Origin) String() string {
	switch o {
	case OriginTopLeft:
		return "top-left"
	case OriginBottomLeft:
		return "bottom-left"
	default:
		return "unknown"
	}
}

// Buffer is a client-submitted pixel payload.
type Buffer interface {
	Size() platform.Size
	Origin() Origin
	Image() image.Image
}

// ExtendedSurface is the optional per-surface extension that receives
// on-screen visibility changes.
type ExtendedSurface interface {
	SendOnScreenVisibilityChange(visible bool)
}

// Output is the per-output frame callback mechanism.
type Output interface {
	FrameStarted()
	SendFrameCallbacks()
}

// Axis is a scroll axis.
type Axis int

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

func (a Axis) String() string {
	if a == AxisHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// TouchState is the phase of a touch point.
type TouchState int

const (
	TouchPressed TouchState = iota
	TouchMoved
	TouchStationary
	TouchReleased
)

// TouchPoint is one contact in a touch event.
type TouchPoint struct {
	ID    int
	State TouchState
	Pos   platform.Point
}

// TouchEvent is a complete multi-point touch frame.
type TouchEvent struct {
	Points []TouchPoint
}

// Seat is the downstream input device abstraction: everything the router
// forwards to clients goes through it.
type Seat interface {
	SetKeyboardFocus(surface SurfaceID)
	SendPointerMotion(target SurfaceID, local, global platform.Point)
	SendPointerButton(button uint32, pressed bool)
	SendAxis(axis Axis, delta float64)
	SendKey(scancode uint32, pressed bool)
	SendTouch(ev TouchEvent)
}
