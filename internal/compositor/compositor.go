// Package compositor wires the surface registry, renderer, cursor tracker
// and input router into one compositor driven from a single event loop.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/1broseidon/nestcomp/internal/cursor"
	"github.com/1broseidon/nestcomp/internal/input"
	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/protocol/local"
	"github.com/1broseidon/nestcomp/internal/render"
	"github.com/1broseidon/nestcomp/internal/surface"
)

// ErrUnknownClient is returned for client ids with no live client.
var ErrUnknownClient = errors.New("unknown client")

// Policy holds the runtime-adjustable behaviour switches.
type Policy struct {
	StickyTopLeft bool
	// Seed fixes the placement random source. Zero means unseeded.
	Seed                    uint64
	DragKeys                []uint32
	StuckModifier           input.StuckModifierPolicy
	AutomaticFrameCallbacks bool
	DebugAssertions         bool
}

// Options wires a Compositor to the host.
type Options struct {
	Logger         *slog.Logger
	Bounds         func() platform.Rect
	Device         render.Device
	Presenter      render.Presenter
	Poster         render.Poster
	CursorSink     cursor.Sink
	QueryModifiers func() platform.Modifiers
	Policy         Policy
}

type client struct {
	id      protocol.ClientID
	name    string
	created time.Time
}

// Compositor owns every core component. All methods must run on the event
// loop goroutine.
type Compositor struct {
	logger *slog.Logger
	bounds func() platform.Rect

	reg    *surface.Registry
	sched  *render.Scheduler
	cursor *cursor.Tracker
	router *input.Router
	seat   *local.Seat
	output *local.Output

	started time.Time
	serial  uint32

	clients     map[protocol.ClientID]*client
	nextClient  protocol.ClientID
	nextSurface protocol.SurfaceID
	ext         map[protocol.SurfaceID]*local.ExtendedSurface
	framesDone  map[protocol.SurfaceID]uint64

	unsubscribe func()
}

// New builds a compositor. Nothing is drawn until the first redraw request.
func New(opts Options) *Compositor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Compositor{
		logger:     logger,
		bounds:     opts.Bounds,
		started:    time.Now(),
		clients:    make(map[protocol.ClientID]*client),
		ext:        make(map[protocol.SurfaceID]*local.ExtendedSurface),
		framesDone: make(map[protocol.SurfaceID]uint64),
	}
	c.seat = local.NewSeat(c, logger.With("component", "seat"))
	c.output = local.NewOutput(c, logger.With("component", "output"))

	c.reg = surface.NewRegistry(surface.Options{
		Logger:          logger.With("component", "registry"),
		Bounds:          opts.Bounds,
		Rand:            placementRand(opts.Policy.Seed),
		StickyTopLeft:   opts.Policy.StickyTopLeft,
		DebugAssertions: opts.Policy.DebugAssertions,
	})
	c.sched = render.NewScheduler(render.SchedulerOptions{
		Logger:                  logger.With("component", "render"),
		Registry:                c.reg,
		Device:                  opts.Device,
		Presenter:               opts.Presenter,
		Output:                  c.output,
		Poster:                  opts.Poster,
		Bounds:                  opts.Bounds,
		AutomaticFrameCallbacks: opts.Policy.AutomaticFrameCallbacks,
	})
	c.cursor = cursor.NewTracker(c.reg, opts.CursorSink, logger.With("component", "cursor"))
	c.router = input.NewRouter(input.Options{
		Logger:         logger.With("component", "input"),
		Registry:       c.reg,
		Seat:           c.seat,
		Redraw:         c.sched.RequestRedraw,
		QueryModifiers: opts.QueryModifiers,
		DragKeys:       opts.Policy.DragKeys,
		StuckModifier:  opts.Policy.StuckModifier,
	})
	c.unsubscribe = c.reg.Subscribe(surface.ListenerFunc(c.forget), surface.PhaseDestroyed)
	return c
}

func placementRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Close detaches every component from the registry.
func (c *Compositor) Close() {
	c.unsubscribe()
	c.router.Close()
	c.cursor.Close()
	c.sched.Close()
}

func (c *Compositor) Registry() *surface.Registry  { return c.reg }
func (c *Compositor) Scheduler() *render.Scheduler { return c.sched }
func (c *Compositor) Router() *input.Router        { return c.router }
func (c *Compositor) Cursor() *cursor.Tracker      { return c.cursor }
func (c *Compositor) Seat() *local.Seat            { return c.seat }
func (c *Compositor) Output() *local.Output        { return c.output }

// ApplyPolicy updates behaviour switches on a running compositor.
func (c *Compositor) ApplyPolicy(p Policy) {
	c.reg.SetPlacement(p.StickyTopLeft, placementRand(p.Seed))
	c.reg.SetDebugAssertions(p.DebugAssertions)
	c.router.SetDragKeys(p.DragKeys)
	c.router.SetStuckModifierPolicy(p.StuckModifier)
	c.sched.SetAutomaticFrameCallbacks(p.AutomaticFrameCallbacks)
	c.logger.Info("policy applied",
		"sticky_top_left", p.StickyTopLeft,
		"drag_keys", p.DragKeys,
		"stuck_modifier", p.StuckModifier.Enabled,
		"automatic_frame_callbacks", p.AutomaticFrameCallbacks)
}

// SetBackground replaces the background image and fill colour.
func (c *Compositor) SetBackground(img image.Image, fill color.Color, tile bool) {
	c.sched.SetBackground(img, fill, tile)
}

// HandleInput feeds one host event to the router.
func (c *Compositor) HandleInput(ev input.Event) {
	c.router.Handle(ev)
}

// RequestRedraw schedules a repaint.
func (c *Compositor) RequestRedraw() {
	c.sched.RequestRedraw()
}

// NextSerial returns a fresh event serial.
func (c *Compositor) NextSerial() uint32 {
	c.serial++
	return c.serial
}

// CurrentTimeMsecs is the compositor clock used for event timestamps.
func (c *Compositor) CurrentTimeMsecs() uint32 {
	return uint32(time.Since(c.started).Milliseconds())
}

// NewClient registers an in-process client.
func (c *Compositor) NewClient(name string) protocol.ClientID {
	c.nextClient++
	id := c.nextClient
	if name == "" {
		name = fmt.Sprintf("client-%d", id)
	}
	c.clients[id] = &client{id: id, name: name, created: time.Now()}
	c.logger.Info("client connected", "client", id, "name", name)
	return id
}

// DestroyClient destroys every surface of the client and forgets it.
func (c *Compositor) DestroyClient(id protocol.ClientID) (int, error) {
	cl, ok := c.clients[id]
	if !ok {
		return 0, fmt.Errorf("destroy client %d: %w", id, ErrUnknownClient)
	}
	n := c.reg.DestroyClient(id)
	delete(c.clients, id)
	c.logger.Info("client destroyed", "client", id, "name", cl.name, "surfaces", n)
	return n, nil
}

func (c *Compositor) lookup(id protocol.SurfaceID) (*surface.Surface, error) {
	s, ok := c.reg.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("surface %d: %w", id, surface.ErrUnknownSurface)
	}
	return s, nil
}

// Commit attaches a newly generated buffer to the surface and asks for a
// frame callback, the way a client does after drawing.
func (c *Compositor) Commit(id protocol.SurfaceID, spec local.BufferSpec) error {
	s, err := c.lookup(id)
	if err != nil {
		return err
	}
	return c.commit(s, spec)
}

func (c *Compositor) commit(s *surface.Surface, spec local.BufferSpec) error {
	id := s.ID()
	c.output.RequestFrame(id, func(uint32) {
		c.framesDone[id]++
	})
	return c.reg.Commit(s, local.NewBuffer(spec))
}

// Map maps the surface.
func (c *Compositor) Map(id protocol.SurfaceID) error {
	s, err := c.lookup(id)
	if err != nil {
		return err
	}
	return c.reg.Map(s)
}

// Unmap unmaps the surface.
func (c *Compositor) Unmap(id protocol.SurfaceID) error {
	s, err := c.lookup(id)
	if err != nil {
		return err
	}
	return c.reg.Unmap(s)
}

// Destroy destroys the surface.
func (c *Compositor) Destroy(id protocol.SurfaceID) error {
	s, err := c.lookup(id)
	if err != nil {
		return err
	}
	return c.reg.Destroy(s)
}

// Raise raises the surface and reports whether the stack changed.
func (c *Compositor) Raise(id protocol.SurfaceID) (bool, error) {
	s, err := c.lookup(id)
	if err != nil {
		return false, err
	}
	return c.reg.Raise(s), nil
}

// Move sets the requested position of the surface's drawable view.
func (c *Compositor) Move(id protocol.SurfaceID, pos platform.Point) error {
	s, err := c.lookup(id)
	if err != nil {
		return err
	}
	v := s.DrawableView()
	if v == nil {
		return fmt.Errorf("move surface %d: surface has no view", id)
	}
	v.SetPosition(pos)
	return nil
}

// SetCursor designates the cursor surface. Id 0 clears it.
func (c *Compositor) SetCursor(id protocol.SurfaceID, hotspotX, hotspotY int) error {
	if id == 0 {
		return c.cursor.SetCursorSurface(nil, 0, 0)
	}
	s, err := c.lookup(id)
	if err != nil {
		return err
	}
	return c.cursor.SetCursorSurface(s, hotspotX, hotspotY)
}

func (c *Compositor) forget(ev surface.Event) {
	id := ev.Surface.ID()
	c.output.Forget(id)
	delete(c.ext, id)
	delete(c.framesDone, id)
}
