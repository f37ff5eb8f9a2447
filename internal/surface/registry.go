package surface

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

var (
	// ErrUnknownSurface is returned for surfaces that were destroyed or
	// never belonged to the registry.
	ErrUnknownSurface = errors.New("unknown surface")
	// ErrAlreadyMapped is returned when mapping a surface twice.
	ErrAlreadyMapped = errors.New("surface already mapped")
	// ErrDuplicateSurface is returned when a client reuses a surface id.
	ErrDuplicateSurface = errors.New("surface id already in use")
)

// Options configures a Registry.
type Options struct {
	Logger *slog.Logger
	// Bounds returns the current output rectangle used for placement.
	Bounds func() platform.Rect
	// Rand is the placement source. Nil means a fresh unseeded source.
	Rand *rand.Rand
	// StickyTopLeft pins initial placement of non-popups to the output
	// origin instead of a random position.
	StickyTopLeft   bool
	DebugAssertions bool
}

// Registry owns surfaces, views, the stacking order and keyboard focus.
// It is not safe for concurrent use; all calls must come from the event
// loop.
type Registry struct {
	logger *slog.Logger
	bounds func() platform.Rect
	rng    *rand.Rand
	sticky bool
	check  Invariants

	surfaces map[protocol.SurfaceID]*Surface
	order    []protocol.SurfaceID
	stack    []*Surface
	focus    *Surface

	dispatch *dispatcher
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	bounds := opts.Bounds
	if bounds == nil {
		bounds = func() platform.Rect { return platform.Rect{} }
	}
	return &Registry{
		logger:   logger,
		bounds:   bounds,
		rng:      rng,
		sticky:   opts.StickyTopLeft,
		check:    Invariants{Logger: logger, Fatal: opts.DebugAssertions},
		surfaces: make(map[protocol.SurfaceID]*Surface),
		dispatch: newDispatcher(),
	}
}

// Subscribe registers l for the given phases, or for every phase when none
// are given. The returned func removes the subscription.
func (r *Registry) Subscribe(l Listener, phases ...Phase) func() {
	return r.dispatch.subscribe(l, phases)
}

// SetPlacement updates the placement policy. A non-nil rng replaces the
// current random source.
func (r *Registry) SetPlacement(stickyTopLeft bool, rng *rand.Rand) {
	r.sticky = stickyTopLeft
	if rng != nil {
		r.rng = rng
	}
}

// SetDebugAssertions switches invariant violations between logging and
// panicking.
func (r *Registry) SetDebugAssertions(fatal bool) {
	r.check.Fatal = fatal
}

// Invariants returns the registry's invariant checker so collaborators
// report violations the same way.
func (r *Registry) Invariants() Invariants {
	return r.check
}

// CreateSurface allocates a surface. It has no stacking or focus effects.
func (r *Registry) CreateSurface(client protocol.ClientID, id protocol.SurfaceID, version int) (*Surface, error) {
	if id == 0 {
		return nil, fmt.Errorf("create surface: id must be non-zero")
	}
	if _, exists := r.surfaces[id]; exists {
		return nil, fmt.Errorf("create surface %d: %w", id, ErrDuplicateSurface)
	}
	s := &Surface{reg: r, id: id, client: client, version: version}
	r.surfaces[id] = s
	r.order = append(r.order, id)
	r.logger.Debug("surface created", "surface", id, "client", client, "version", version)
	r.dispatch.emit(Event{Phase: PhaseCreated, Surface: s})
	return s, nil
}

// Lookup returns the live surface with the given id.
func (r *Registry) Lookup(id protocol.SurfaceID) (*Surface, bool) {
	s, ok := r.surfaces[id]
	return s, ok
}

// Surfaces returns every live surface in creation order.
func (r *Registry) Surfaces() []*Surface {
	out := make([]*Surface, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.surfaces[id])
	}
	return out
}

// SurfacesForClient returns the client's live surfaces in creation order.
func (r *Registry) SurfacesForClient(client protocol.ClientID) []*Surface {
	var out []*Surface
	for _, id := range r.order {
		if s := r.surfaces[id]; s.client == client {
			out = append(out, s)
		}
	}
	return out
}

// CreateShellSurface attaches shell metadata to s and creates its shell
// view. Calling it again replaces the role and keeps the view.
func (r *Registry) CreateShellSurface(s *Surface, role Role) (*View, error) {
	if err := r.live(s); err != nil {
		return nil, err
	}
	s.role = role
	if s.shellView == nil {
		s.shellView = s.newView(platform.Point{})
	}
	r.dispatch.emit(Event{Phase: PhaseShellAttached, Surface: s, View: s.shellView})
	return s.shellView, nil
}

// CreateView adds a plain view to s without a shell association.
func (r *Registry) CreateView(s *Surface) (*View, error) {
	if err := r.live(s); err != nil {
		return nil, err
	}
	return s.newView(platform.Point{}), nil
}

// SetExtendedSurface attaches the extended-surface capability. A surface
// gets at most one.
func (r *Registry) SetExtendedSurface(s *Surface, ext protocol.ExtendedSurface) error {
	if err := r.live(s); err != nil {
		return err
	}
	r.check.Check(s.ext == nil, "extended surface attached twice", "surface", s.id)
	s.ext = ext
	return nil
}

// SetCursorRole designates s as a cursor surface with the given hotspot.
// The shell role is kept and comes back when the designation is cleared.
// A mapped cursor surface is neither drawn nor hit-tested.
func (r *Registry) SetCursorRole(s *Surface, hotspotX, hotspotY int) error {
	if err := r.live(s); err != nil {
		return err
	}
	wasCursor := s.cursor != nil
	s.cursor = &Cursor{HotspotX: hotspotX, HotspotY: hotspotY}
	if !wasCursor {
		r.dispatch.emit(Event{Phase: PhaseCursorChanged, Surface: s})
	}
	return nil
}

// ClearCursorRole drops the cursor designation from s if it has one.
func (r *Registry) ClearCursorRole(s *Surface) {
	if s == nil || s.cursor == nil {
		return
	}
	s.cursor = nil
	if !s.destroyed {
		r.dispatch.emit(Event{Phase: PhaseCursorChanged, Surface: s})
	}
}

// Commit makes buf the surface's current buffer and bumps its generation.
// Views pick the buffer up lazily on the next render.
func (r *Registry) Commit(s *Surface, buf protocol.Buffer) error {
	if err := r.live(s); err != nil {
		return err
	}
	s.buffer = buf
	s.generation++
	s.notifyCommit()
	r.dispatch.emit(Event{Phase: PhaseCommitted, Surface: s})
	return nil
}

// Map places s, appends it to the top of the stack and gives it keyboard
// focus unless it is a cursor surface.
func (r *Registry) Map(s *Surface) error {
	if err := r.live(s); err != nil {
		return err
	}
	if !r.check.Check(!s.mapped && !slices.Contains(r.stack, s), "map of mapped surface", "surface", s.id) {
		return fmt.Errorf("map surface %d: %w", s.id, ErrAlreadyMapped)
	}

	if v := s.DrawableView(); v != nil {
		v.pos = r.initialPosition(s)
	}

	s.mapped = true
	r.stack = append(r.stack, s)
	r.logger.Debug("surface mapped", "surface", s.id, "role", s.Kind(), "stack", len(r.stack))

	if !s.IsCursor() {
		r.setFocus(s)
	}
	r.dispatch.emit(Event{Phase: PhaseMapped, Surface: s})
	return nil
}

func (r *Registry) initialPosition(s *Surface) platform.Point {
	if p, ok := s.role.(Popup); ok {
		var base platform.Point
		if p.Parent != nil {
			if pv := p.Parent.DrawableView(); pv != nil {
				base = pv.Position()
			}
		}
		return base.Add(p.Offset)
	}

	out := r.bounds()
	if r.sticky {
		return platform.Point{X: float64(out.X), Y: float64(out.Y)}
	}
	size := s.Size()
	return platform.Point{
		X: float64(out.X + r.placeAxis(out.Width, size.Width)),
		Y: float64(out.Y + r.placeAxis(out.Height, size.Height)),
	}
}

// placeAxis picks 1 + rand % (outer - inner - 2), leaving a one pixel
// margin. Surfaces that do not fit start at 0.
func (r *Registry) placeAxis(outer, inner int) int {
	span := outer - inner - 2
	if span <= 0 {
		return 0
	}
	return 1 + r.rng.IntN(span)
}

// Unmap removes s from the stack and moves keyboard focus if s held it.
func (r *Registry) Unmap(s *Surface) error {
	if err := r.live(s); err != nil {
		return err
	}
	if !s.mapped {
		return nil
	}
	r.removeFromStack(s)
	r.ensureFocus(s)
	r.logger.Debug("surface unmapped", "surface", s.id, "stack", len(r.stack))
	r.dispatch.emit(Event{Phase: PhaseUnmapped, Surface: s})
	return nil
}

// Destroy unmaps s if needed, reassigns focus the same way Unmap does and
// then releases the surface and its views.
func (r *Registry) Destroy(s *Surface) error {
	if err := r.live(s); err != nil {
		return err
	}
	if s.mapped {
		r.removeFromStack(s)
		r.dispatch.emit(Event{Phase: PhaseUnmapped, Surface: s})
	}
	r.ensureFocus(s)

	// Listeners still see the views so they can release per-view state.
	r.dispatch.emit(Event{Phase: PhaseDestroyed, Surface: s})

	s.destroyed = true
	s.views = nil
	s.shellView = nil
	s.commitSubs = nil
	s.buffer = nil
	delete(r.surfaces, s.id)
	if i := slices.Index(r.order, s.id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	r.logger.Debug("surface destroyed", "surface", s.id, "client", s.client)
	return nil
}

// DestroyClient destroys every surface the client owns and returns how
// many there were.
func (r *Registry) DestroyClient(client protocol.ClientID) int {
	surfaces := r.SurfacesForClient(client)
	for _, s := range surfaces {
		_ = r.Destroy(s)
	}
	return len(surfaces)
}

// Raise moves s to the top of the stack. Surfaces that are not mapped or
// are already topmost are left alone and no event is emitted.
func (r *Registry) Raise(s *Surface) bool {
	if r.live(s) != nil || !s.mapped {
		return false
	}
	if n := len(r.stack); n > 0 && r.stack[n-1] == s {
		return false
	}
	r.removeFromStack(s)
	s.mapped = true
	r.stack = append(r.stack, s)
	r.dispatch.emit(Event{Phase: PhaseRaised, Surface: s})
	return true
}

// Stack returns the mapped surfaces bottom to top.
func (r *Registry) Stack() []*Surface {
	return append([]*Surface(nil), r.stack...)
}

// Topmost returns the top of the stack, or nil when nothing is mapped.
func (r *Registry) Topmost() *Surface {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// KeyboardFocus returns the surface holding keyboard focus, or nil.
func (r *Registry) KeyboardFocus() *Surface {
	return r.focus
}

// SetKeyboardFocus moves keyboard focus to s, which may be nil.
func (r *Registry) SetKeyboardFocus(s *Surface) error {
	if s != nil {
		if err := r.live(s); err != nil {
			return err
		}
	}
	r.setFocus(s)
	return nil
}

func (r *Registry) setFocus(s *Surface) {
	if r.focus == s {
		return
	}
	r.focus = s
	r.dispatch.emit(Event{Phase: PhaseFocusChanged, Surface: s})
}

// ensureFocus hands focus to the topmost mapped surface when old held it
// or nobody did.
func (r *Registry) ensureFocus(old *Surface) {
	if r.focus == old || r.focus == nil {
		r.setFocus(r.Topmost())
	}
}

func (r *Registry) removeFromStack(s *Surface) {
	if i := slices.Index(r.stack, s); i >= 0 {
		r.stack = slices.Delete(r.stack, i, i+1)
	}
	s.mapped = false
}

func (r *Registry) live(s *Surface) error {
	if s == nil || s.destroyed || s.reg != r {
		return ErrUnknownSurface
	}
	return nil
}
