package render

import (
	"errors"
	"image"
	"image/color"
	"log/slog"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/surface"
)

// State is the redraw state machine: Idle -> Pending -> Rendering -> Idle.
type State int

const (
	StateIdle State = iota
	StatePending
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateRendering:
		return "rendering"
	default:
		return "unknown"
	}
}

// Stats counts scheduler activity since creation.
type Stats struct {
	Requests          uint64 `json:"requests"`
	Frames            uint64 `json:"frames"`
	Uploads           uint64 `json:"uploads"`
	VisibilityChanges uint64 `json:"visibility_changes"`
	LastDraws         int    `json:"last_draws"`
	LastSkipped       int    `json:"last_skipped"`
}

// SchedulerOptions wires a Scheduler to its collaborators.
type SchedulerOptions struct {
	Logger    *slog.Logger
	Registry  *surface.Registry
	Device    Device
	Presenter Presenter
	Output    protocol.Output
	Poster    Poster
	// Bounds returns the output rectangle. Its size is the frame size.
	Bounds func() platform.Rect
	// AutomaticFrameCallbacks sends frame callbacks after every render.
	AutomaticFrameCallbacks bool
}

// Scheduler coalesces redraw requests into a single render per loop
// iteration and performs the render.
type Scheduler struct {
	logger    *slog.Logger
	reg       *surface.Registry
	device    Device
	presenter Presenter
	output    protocol.Output
	poster    Poster
	bounds    func() platform.Rect

	cache *TextureCache
	bg    *background

	state     State
	again     bool
	automatic bool
	stats     Stats

	unsubscribe []func()
}

// NewScheduler creates a scheduler and subscribes it to every registry
// transition that changes the screen.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		logger:    logger,
		reg:       opts.Registry,
		device:    opts.Device,
		presenter: opts.Presenter,
		output:    opts.Output,
		poster:    opts.Poster,
		bounds:    opts.Bounds,
		cache:     NewTextureCache(opts.Device, logger),
		bg:        &background{fill: color.Black},
		automatic: opts.AutomaticFrameCallbacks,
	}
	s.unsubscribe = append(s.unsubscribe,
		s.reg.Subscribe(surface.ListenerFunc(func(surface.Event) { s.RequestRedraw() }), surface.RedrawPhases...),
		s.reg.Subscribe(surface.ListenerFunc(s.releaseViews), surface.PhaseDestroyed),
	)
	return s
}

// Close detaches the scheduler from the registry.
func (s *Scheduler) Close() {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
}

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Stats returns activity counters.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.Uploads = s.cache.Uploads()
	return st
}

// Cache exposes the texture cache.
func (s *Scheduler) Cache() *TextureCache { return s.cache }

// SetAutomaticFrameCallbacks controls whether each render ends with
// SendFrameCallbacks on the output.
func (s *Scheduler) SetAutomaticFrameCallbacks(on bool) { s.automatic = on }

// SetBackground replaces the background. img is tiled over the output when
// tile is set and stretched otherwise; a nil img leaves only the fill
// colour.
func (s *Scheduler) SetBackground(img image.Image, fill color.Color, tile bool) {
	if fill == nil {
		fill = color.Black
	}
	s.cache.Defer(s.bg.texture)
	s.bg = &background{base: img, fill: fill, tile: tile}
	s.RequestRedraw()
}

// RequestRedraw marks the output dirty. Requests made before the pending
// render runs collapse into it.
func (s *Scheduler) RequestRedraw() {
	s.stats.Requests++
	switch s.state {
	case StatePending:
		return
	case StateRendering:
		s.again = true
		return
	}
	s.schedule()
}

func (s *Scheduler) schedule() {
	s.state = StatePending
	if err := s.poster.Post(s.tick); err != nil {
		s.logger.Warn("cannot schedule render", "error", err)
		s.state = StateIdle
	}
}

func (s *Scheduler) tick() {
	if s.state != StatePending {
		return
	}
	s.state = StateRendering
	s.render()
	s.state = StateIdle
	if s.again {
		s.again = false
		s.schedule()
	}
}

// RenderNow renders immediately, cancelling a pending tick.
func (s *Scheduler) RenderNow() {
	if s.state == StateRendering {
		return
	}
	s.state = StatePending
	s.tick()
}

func (s *Scheduler) render() {
	out := s.outputRect()
	viewport := out.Size()

	if s.output != nil {
		s.output.FrameStarted()
	}
	s.cache.DisposePending()

	s.device.BeginFrame(viewport, s.bg.fill)
	s.drawBackground(viewport)

	draws, skipped := 0, 0
	for _, surf := range s.reg.Stack() {
		if !surf.Mapped() || surf.IsCursor() {
			continue
		}
		if s.drawSurface(surf, out, viewport) {
			draws++
		} else {
			skipped++
		}
	}

	if s.automatic && s.output != nil {
		s.output.SendFrameCallbacks()
	}

	frame := s.device.EndFrame()
	if err := s.presenter.Present(frame); err != nil {
		s.logger.Error("present failed", "error", err)
	}

	s.stats.Frames++
	s.stats.LastDraws = draws
	s.stats.LastSkipped = skipped
}

// drawSurface draws one surface and reports whether a quad was issued. A
// panic while drawing is contained to this surface.
func (s *Scheduler) drawSurface(surf *surface.Surface, out platform.Rect, viewport platform.Size) (drawn bool) {
	defer func() {
		if err := recover(); err != nil {
			s.logger.Error("draw surface panic recovered", "surface", surf.ID(), "error", err)
			drawn = false
		}
	}()

	v := surf.DrawableView()
	if v == nil {
		return false
	}
	tex, ok, err := s.cache.Texture(v)
	switch {
	case errors.Is(err, ErrNoTexture):
		s.logger.Debug("skipping surface until next commit", "surface", surf.ID())
		return false
	case err != nil:
		s.logger.Warn("skipping surface", "surface", surf.ID(), "error", err)
		return false
	}
	buf := v.CurrentBuffer()
	if buf == nil || buf.Size().Empty() {
		return false
	}
	if !s.reg.Invariants().Check(ok, "view has a buffer but no texture", "surface", surf.ID()) {
		return false
	}

	rect := platform.RectAt(v.Position(), surf.Size())
	onScreen := rect.Intersects(out)
	if surf.ReportOnScreen(onScreen) {
		s.stats.VisibilityChanges++
		s.logger.Debug("on-screen visibility changed", "surface", surf.ID(), "visible", onScreen)
	}
	if !onScreen {
		return false
	}

	flipV := buf.Origin() == protocol.OriginTopLeft
	s.device.DrawTexture(tex, rect.Translate(-out.X, -out.Y), viewport, 0, false, flipV)
	return true
}

func (s *Scheduler) releaseViews(ev surface.Event) {
	for _, v := range ev.Surface.Views() {
		s.cache.Release(v)
	}
}

func (s *Scheduler) outputRect() platform.Rect {
	if s.bounds == nil {
		return platform.Rect{}
	}
	return s.bounds()
}
