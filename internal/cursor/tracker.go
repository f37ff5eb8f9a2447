// Package cursor turns the designated cursor surface into the host pointer
// image.
package cursor

import (
	"fmt"
	"image"
	"log/slog"

	xdraw "golang.org/x/image/draw"

	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/surface"
)

// Image is a cursor bitmap with its hotspot.
type Image struct {
	Pixels   *image.RGBA
	HotspotX int
	HotspotY int
}

// Sink installs cursor images on the host. SetCursor is used for the first
// image and ChangeCursor for every later one.
type Sink interface {
	SetCursor(img Image) error
	ChangeCursor(img Image) error
}

// Tracker follows the current cursor surface and re-applies the cursor each
// time that surface commits.
type Tracker struct {
	reg    *surface.Registry
	sink   Sink
	logger *slog.Logger

	current    *surface.Surface
	hotspotX   int
	hotspotY   int
	generation uint64
	cancel     func()
	applied    bool
	applyCount int

	unsubscribe func()
}

// NewTracker creates a tracker. It drops the cursor surface when the
// registry destroys it.
func NewTracker(reg *surface.Registry, sink Sink, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{reg: reg, sink: sink, logger: logger}
	t.unsubscribe = reg.Subscribe(surface.ListenerFunc(func(ev surface.Event) {
		if ev.Surface != nil && ev.Surface == t.current {
			t.detach()
			t.current = nil
		}
	}), surface.PhaseDestroyed)
	return t
}

// Close stops tracking.
func (t *Tracker) Close() {
	t.detach()
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}

// SetCursorSurface designates s (nil to clear) as the cursor surface with
// the given hotspot. If s already holds a buffer it is applied right away;
// otherwise the cursor updates on its next commit.
func (t *Tracker) SetCursorSurface(s *surface.Surface, hotspotX, hotspotY int) error {
	if s != t.current {
		t.detach()
		if t.current != nil {
			t.reg.ClearCursorRole(t.current)
		}
		if s != nil {
			if err := t.reg.SetCursorRole(s, hotspotX, hotspotY); err != nil {
				t.current = nil
				return fmt.Errorf("set cursor surface: %w", err)
			}
			t.cancel = s.OnCommit(t.committed)
		}
		t.current = s
		t.generation = 0
	} else if s != nil {
		_ = t.reg.SetCursorRole(s, hotspotX, hotspotY)
	}

	hotspotChanged := t.hotspotX != hotspotX || t.hotspotY != hotspotY
	t.hotspotX, t.hotspotY = hotspotX, hotspotY

	if s != nil && s.Buffer() != nil && (t.generation != s.Generation() || hotspotChanged) {
		t.apply(s)
	}
	return nil
}

// Current returns the cursor surface id and hotspot.
func (t *Tracker) Current() (id protocol.SurfaceID, hotspotX, hotspotY int) {
	if t.current == nil {
		return 0, 0, 0
	}
	return t.current.ID(), t.hotspotX, t.hotspotY
}

// Applied is the number of cursor images handed to the sink.
func (t *Tracker) Applied() int { return t.applyCount }

func (t *Tracker) committed(s *surface.Surface) {
	if s != t.current {
		return
	}
	t.apply(s)
}

func (t *Tracker) apply(s *surface.Surface) {
	t.generation = s.Generation()
	buf := s.Buffer()
	if buf == nil || buf.Size().Empty() {
		return
	}
	src := buf.Image()
	if src == nil {
		return
	}

	img := Image{
		Pixels:   toRGBA(src),
		HotspotX: t.hotspotX,
		HotspotY: t.hotspotY,
	}
	var err error
	if t.applied {
		err = t.sink.ChangeCursor(img)
	} else {
		err = t.sink.SetCursor(img)
	}
	if err != nil {
		t.logger.Warn("cursor update failed", "surface", s.ID(), "error", err)
		return
	}
	t.applied = true
	t.applyCount++
	t.logger.Debug("cursor applied", "surface", s.ID(), "hotspot_x", t.hotspotX, "hotspot_y", t.hotspotY)
}

func (t *Tracker) detach() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, src, b, xdraw.Src, nil)
	return dst
}
