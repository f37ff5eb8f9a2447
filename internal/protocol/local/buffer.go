// Package local provides in-process implementations of the protocol
// collaborators: generated buffers, a recording seat, an output with frame
// callbacks and extended surfaces.
package local

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// Pattern selects how a generated buffer is filled.
type Pattern string

const (
	PatternSolid   Pattern = "solid"
	PatternChecker Pattern = "checker"
	PatternBorder  Pattern = "border"
)

// ParsePattern accepts solid, checker or border, defaulting to solid.
func ParsePattern(s string) (Pattern, error) {
	switch p := Pattern(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PatternSolid, nil
	case PatternSolid, PatternChecker, PatternBorder:
		return p, nil
	default:
		return "", fmt.Errorf("unknown pattern %q (expected solid, checker or border)", s)
	}
}

// BufferSpec describes a generated buffer.
type BufferSpec struct {
	Size    platform.Size
	Pattern Pattern
	Color   color.RGBA
	Accent  color.RGBA
	Origin  protocol.Origin
}

// Buffer is a generated pixel buffer. Pixels are produced on first use.
type Buffer struct {
	spec BufferSpec
	once sync.Once
	img  *image.RGBA
}

var _ protocol.Buffer = (*Buffer)(nil)

// NewBuffer creates a buffer for spec.
func NewBuffer(spec BufferSpec) *Buffer {
	if spec.Pattern == "" {
		spec.Pattern = PatternSolid
	}
	return &Buffer{spec: spec}
}

func (b *Buffer) Size() platform.Size { return b.spec.Size }

func (b *Buffer) Origin() protocol.Origin { return b.spec.Origin }

// Spec returns the parameters the buffer was generated from.
func (b *Buffer) Spec() BufferSpec { return b.spec }

// Image returns the generated pixels. Rows are stored in the buffer's
// origin order, so a bottom-left buffer holds its bottom row first.
func (b *Buffer) Image() image.Image {
	b.once.Do(func() {
		b.img = generate(b.spec)
	})
	return b.img
}

func generate(spec BufferSpec) *image.RGBA {
	w, h := max(spec.Size.Width, 0), max(spec.Size.Height, 0)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(spec.Color), image.Point{}, draw.Src)

	switch spec.Pattern {
	case PatternChecker:
		cell := max(min(w, h)/8, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if (x/cell+y/cell)%2 == 1 {
					img.SetRGBA(x, y, spec.Accent)
				}
			}
		}
	case PatternBorder:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if x < 2 || y < 2 || x >= w-2 || y >= h-2 {
					img.SetRGBA(x, y, spec.Accent)
				}
			}
		}
	}

	// Mark the logical top row so orientation mistakes are visible.
	top := 0
	if spec.Origin == protocol.OriginBottomLeft {
		top = h - 1
	}
	if h > 4 {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, top, spec.Accent)
		}
	}
	return img
}
