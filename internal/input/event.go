package input

import (
	"fmt"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// Kind identifies a host input event.
type Kind int

const (
	KindExpose Kind = iota
	KindFocusIn
	KindFocusOut
	KindButtonPress
	KindButtonRelease
	KindMotion
	KindWheel
	KindKeyPress
	KindKeyRelease
	KindTouchBegin
	KindTouchUpdate
	KindTouchEnd
)

func (k Kind) String() string {
	switch k {
	case KindExpose:
		return "expose"
	case KindFocusIn:
		return "focus-in"
	case KindFocusOut:
		return "focus-out"
	case KindButtonPress:
		return "button-press"
	case KindButtonRelease:
		return "button-release"
	case KindMotion:
		return "motion"
	case KindWheel:
		return "wheel"
	case KindKeyPress:
		return "key-press"
	case KindKeyRelease:
		return "key-release"
	case KindTouchBegin:
		return "touch-begin"
	case KindTouchUpdate:
		return "touch-update"
	case KindTouchEnd:
		return "touch-end"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a host window event in output coordinates.
type Event struct {
	Kind Kind

	// Pos is the pointer position for button, motion and wheel events.
	Pos    platform.Point
	Button uint32

	Axis  protocol.Axis
	Delta float64

	// Scancode is the host's native key code.
	Scancode uint32
	// Modifiers is the modifier state reported with a key event.
	Modifiers platform.Modifiers

	Touch []protocol.TouchPoint

	// Exposed reports whether the host window is currently visible. Only
	// meaningful for expose and focus events.
	Exposed bool
}
