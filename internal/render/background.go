package render

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/1broseidon/nestcomp/internal/platform"
)

type background struct {
	base image.Image
	fill color.Color
	tile bool

	texture TextureID
	size    platform.Size
}

func (s *Scheduler) drawBackground(viewport platform.Size) {
	bg := s.bg
	if bg.base == nil || viewport.Empty() {
		return
	}
	if bg.texture == 0 || bg.size != viewport {
		s.cache.Defer(bg.texture)
		bg.texture = 0
		img := FitBackground(bg.base, viewport, bg.tile)
		id, err := s.device.Upload(img)
		if err != nil {
			s.logger.Warn("background upload failed", "error", err)
			return
		}
		bg.texture = id
		bg.size = viewport
	}
	s.device.DrawTexture(bg.texture,
		platform.Rect{Width: viewport.Width, Height: viewport.Height},
		viewport, 0, false, true)
}

// FitBackground renders base at the given size, either repeating it from
// the top-left corner or scaling it to cover the whole area.
func FitBackground(base image.Image, size platform.Size, tile bool) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	sb := base.Bounds()
	if sb.Empty() {
		return dst
	}
	if !tile {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), base, sb, xdraw.Src, nil)
		return dst
	}
	for y := 0; y < size.Height; y += sb.Dy() {
		for x := 0; x < size.Width; x += sb.Dx() {
			xdraw.Copy(dst, image.Pt(x, y), base, sb, xdraw.Src, nil)
		}
	}
	return dst
}

// LoadBackground decodes a PNG, JPEG, GIF, BMP or WebP file.
func LoadBackground(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open background: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode background %s: %w", path, err)
	}
	return img, nil
}

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
