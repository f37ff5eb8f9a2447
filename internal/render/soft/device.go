// Package soft is a software render.Device. Textures are RGBA images and
// quads are scaled into an RGBA framebuffer with golang.org/x/image/draw.
package soft

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/render"
)

// Device renders into an in-memory framebuffer.
type Device struct {
	scaler   xdraw.Interpolator
	next     render.TextureID
	textures map[render.TextureID]*image.RGBA
	frame    *image.RGBA
	draws    int
}

var _ render.Device = (*Device)(nil)

// New creates a device that scales with nearest-neighbour sampling.
func New() *Device {
	return &Device{
		scaler:   xdraw.NearestNeighbor,
		textures: make(map[render.TextureID]*image.RGBA),
	}
}

// SetScaler replaces the interpolator used when a quad is resized.
func (d *Device) SetScaler(s xdraw.Interpolator) {
	if s != nil {
		d.scaler = s
	}
}

// Upload copies img into a new texture.
func (d *Device) Upload(img image.Image) (render.TextureID, error) {
	b := img.Bounds()
	if b.Empty() {
		return 0, fmt.Errorf("upload: empty image")
	}
	tex := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(tex, image.Point{}, img, b, xdraw.Src, nil)
	d.next++
	d.textures[d.next] = tex
	return d.next, nil
}

// Delete frees a texture. Unknown ids are ignored.
func (d *Device) Delete(id render.TextureID) {
	delete(d.textures, id)
}

// Textures is the number of live textures.
func (d *Device) Textures() int { return len(d.textures) }

// Draws is the number of quads drawn in the current frame.
func (d *Device) Draws() int { return d.draws }

// BeginFrame starts a new frame cleared to bg.
func (d *Device) BeginFrame(viewport platform.Size, bg color.Color) {
	r := image.Rect(0, 0, max(viewport.Width, 0), max(viewport.Height, 0))
	if d.frame == nil || d.frame.Bounds() != r {
		d.frame = image.NewRGBA(r)
	}
	draw.Draw(d.frame, r, image.NewUniform(bg), image.Point{}, draw.Src)
	d.draws = 0
}

// DrawTexture composites a texture into target. Row 0 of the texture is
// the bottom edge of the quad unless flipV is set, matching GL sampling.
func (d *Device) DrawTexture(id render.TextureID, target platform.Rect, viewport platform.Size, rotation int, flipH, flipV bool) {
	tex, ok := d.textures[id]
	if !ok || d.frame == nil || target.Empty() {
		return
	}
	src := orient(tex, rotation, flipH, !flipV)
	dr := image.Rect(target.X, target.Y, target.X+target.Width, target.Y+target.Height)
	if !dr.Overlaps(d.frame.Bounds()) {
		return
	}
	d.scaler.Scale(d.frame, dr, src, src.Bounds(), xdraw.Over, nil)
	d.draws++
}

// EndFrame returns the finished framebuffer.
func (d *Device) EndFrame() image.Image {
	if d.frame == nil {
		return image.NewRGBA(image.Rectangle{})
	}
	return d.frame
}

// orient returns src rotated clockwise by rotation degrees (a multiple of
// 90) and then mirrored as requested. src is returned as is when nothing
// changes.
func orient(src *image.RGBA, rotation int, flipH, flipV bool) *image.RGBA {
	rotation = ((rotation % 360) + 360) % 360
	if rotation%90 != 0 {
		rotation = 0
	}
	if rotation == 0 && !flipH && !flipV {
		return src
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dw, dh := w, h
	if rotation == 90 || rotation == 270 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch rotation {
			case 90:
				dx, dy = h-1-y, x
			case 180:
				dx, dy = w-1-x, h-1-y
			case 270:
				dx, dy = y, w-1-x
			default:
				dx, dy = x, y
			}
			if flipH {
				dx = dw - 1 - dx
			}
			if flipV {
				dy = dh - 1 - dy
			}
			dst.SetRGBA(dx, dy, src.RGBAAt(x, y))
		}
	}
	return dst
}
