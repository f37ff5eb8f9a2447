// Package render turns the surface stack into frames. It owns the texture
// cache and the redraw scheduler; the device that actually holds textures
// and draws quads is supplied by the host.
package render

import (
	"image"
	"image/color"

	"github.com/1broseidon/nestcomp/internal/platform"
)

// TextureID names a texture held by a Device. Zero is never a valid id.
type TextureID uint32

// Allocator creates and frees textures.
type Allocator interface {
	Upload(img image.Image) (TextureID, error)
	Delete(id TextureID)
}

// Blitter draws a textured quad into the current frame. Textures follow the
// GL convention: row 0 of the uploaded image lands at the bottom of target
// unless flipV is set.
type Blitter interface {
	DrawTexture(id TextureID, target platform.Rect, viewport platform.Size, rotation int, flipH, flipV bool)
}

// Device is a texture store plus a frame target.
type Device interface {
	Allocator
	Blitter
	// BeginFrame starts a frame of the given size cleared to bg.
	BeginFrame(viewport platform.Size, bg color.Color)
	// EndFrame finishes the frame and returns it for presentation.
	EndFrame() image.Image
}

// Presenter shows a finished frame, swapping it onto the output.
type Presenter interface {
	Present(frame image.Image) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(frame image.Image) error

func (f PresenterFunc) Present(frame image.Image) error { return f(frame) }

// Poster schedules work on the event loop. reactor.Loop implements it.
type Poster interface {
	Post(fn func()) error
}
