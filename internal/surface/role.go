package surface

import "github.com/1broseidon/nestcomp/internal/platform"

// RoleKind names the shell role a surface plays.
type RoleKind int

const (
	RoleNone RoleKind = iota
	RoleToplevel
	RolePopup
	RoleCursor
)

func (k RoleKind) String() string {
	switch k {
	case RoleNone:
		return "none"
	case RoleToplevel:
		return "toplevel"
	case RolePopup:
		return "popup"
	case RoleCursor:
		return "cursor"
	default:
		return "unknown"
	}
}

// Role is the tagged shell metadata attached to a surface. The concrete
// types are Toplevel, Popup and Cursor.
type Role interface {
	Kind() RoleKind
}

// Toplevel is an ordinary application window.
type Toplevel struct{}

func (Toplevel) Kind() RoleKind { return RoleToplevel }

// Popup is a transient surface placed relative to its parent's view.
type Popup struct {
	Parent *Surface
	Offset platform.Point
}

func (Popup) Kind() RoleKind { return RolePopup }

// Cursor marks the surface whose buffer is used as the pointer image.
type Cursor struct {
	HotspotX int
	HotspotY int
}

func (Cursor) Kind() RoleKind { return RoleCursor }

// KindOf returns the kind of r, treating nil as RoleNone.
func KindOf(r Role) RoleKind {
	if r == nil {
		return RoleNone
	}
	return r.Kind()
}

// Positioner is implemented by anything the compositor can place on the
// output. Views of every role kind implement it.
type Positioner interface {
	Position() platform.Point
	SetPosition(p platform.Point)
}
