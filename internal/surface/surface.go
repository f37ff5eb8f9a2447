package surface

import (
	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// Surface is a client's drawable content area. Surfaces are owned by a
// Registry and must only be touched from the compositor's event loop.
type Surface struct {
	reg     *Registry
	id      protocol.SurfaceID
	client  protocol.ClientID
	version int

	buffer     protocol.Buffer
	generation uint64

	mapped    bool
	destroyed bool
	role      Role
	cursor    *Cursor
	shellView *View
	views     []*View

	ext            protocol.ExtendedSurface
	onScreenReport bool

	commitSubs   map[int]func(*Surface)
	nextCommitID int
}

// ID is the protocol id the client created the surface with.
func (s *Surface) ID() protocol.SurfaceID { return s.id }

// Client is the owning client.
func (s *Surface) Client() protocol.ClientID { return s.client }

// Version is the protocol version the surface was bound at.
func (s *Surface) Version() int { return s.version }

// Mapped reports whether the surface is in the stacking order.
func (s *Surface) Mapped() bool { return s.mapped }

// Destroyed reports whether the surface has been released.
func (s *Surface) Destroyed() bool { return s.destroyed }

// Role is the shell role, or nil before one is attached. Cursor
// designation does not replace it.
func (s *Surface) Role() Role { return s.role }

// Buffer is the most recently committed buffer.
func (s *Surface) Buffer() protocol.Buffer { return s.buffer }

// Generation counts commits.
func (s *Surface) Generation() uint64 { return s.generation }

// Extended is the attached extended surface, if any.
func (s *Surface) Extended() protocol.ExtendedSurface { return s.ext }

// IsCursor reports whether the surface is the designated cursor surface.
func (s *Surface) IsCursor() bool {
	return s.cursor != nil
}

// Kind is the role the surface currently plays: RoleCursor while it is
// designated as the cursor, otherwise its shell role.
func (s *Surface) Kind() RoleKind {
	if s.cursor != nil {
		return RoleCursor
	}
	return KindOf(s.role)
}

// Size is the size of the most recently committed buffer.
func (s *Surface) Size() platform.Size {
	if s.buffer == nil {
		return platform.Size{}
	}
	return s.buffer.Size()
}

// Views returns the surface's views in creation order.
func (s *Surface) Views() []*View {
	return append([]*View(nil), s.views...)
}

// ShellView returns the view created with the shell association, if any.
func (s *Surface) ShellView() *View {
	return s.shellView
}

// DrawableView prefers the shell view and falls back to the first view.
func (s *Surface) DrawableView() *View {
	if s.shellView != nil {
		return s.shellView
	}
	if len(s.views) > 0 {
		return s.views[0]
	}
	return nil
}

// OnScreenReported is the visibility last sent to the extended surface.
func (s *Surface) OnScreenReported() bool {
	return s.onScreenReport
}

// ReportOnScreen tells the extended surface about a visibility change. It
// only sends when visible differs from the last report, and returns whether
// a notification went out. Surfaces without the extension never report.
func (s *Surface) ReportOnScreen(visible bool) bool {
	if s.ext == nil || visible == s.onScreenReport {
		return false
	}
	s.ext.SendOnScreenVisibilityChange(visible)
	s.onScreenReport = visible
	return true
}

// OnCommit registers fn to run after every commit to this surface. The
// returned func removes the subscription.
func (s *Surface) OnCommit(fn func(*Surface)) (cancel func()) {
	if s.commitSubs == nil {
		s.commitSubs = make(map[int]func(*Surface))
	}
	s.nextCommitID++
	id := s.nextCommitID
	s.commitSubs[id] = fn
	return func() {
		delete(s.commitSubs, id)
	}
}

func (s *Surface) notifyCommit() {
	// Ordered by subscription id so delivery is deterministic.
	for id := 1; id <= s.nextCommitID; id++ {
		if fn, ok := s.commitSubs[id]; ok {
			fn(s)
		}
	}
}

func (s *Surface) newView(pos platform.Point) *View {
	v := &View{surface: s, pos: pos}
	s.views = append(s.views, v)
	return v
}
