package soft

import (
	"image"
	"image/color"
	"testing"

	"github.com/1broseidon/nestcomp/internal/platform"
)

var (
	red  = color.RGBA{R: 0xff, A: 0xff}
	blue = color.RGBA{B: 0xff, A: 0xff}
)

// twoRows is a 1x2 image: red on top, blue below.
func twoRows() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.SetRGBA(0, 0, red)
	img.SetRGBA(0, 1, blue)
	return img
}

func TestDrawTexture_FlipVKeepsTopLeftImagesUpright(t *testing.T) {
	d := New()
	id, err := d.Upload(twoRows())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	viewport := platform.Size{Width: 4, Height: 4}

	d.BeginFrame(viewport, color.Black)
	d.DrawTexture(id, platform.Rect{X: 1, Y: 1, Width: 1, Height: 2}, viewport, 0, false, true)
	frame := d.EndFrame().(*image.RGBA)
	if got := frame.RGBAAt(1, 1); got != red {
		t.Fatalf("flipV draw: top pixel = %v, want red", got)
	}
	if got := frame.RGBAAt(1, 2); got != blue {
		t.Fatalf("flipV draw: bottom pixel = %v, want blue", got)
	}

	d.BeginFrame(viewport, color.Black)
	d.DrawTexture(id, platform.Rect{X: 1, Y: 1, Width: 1, Height: 2}, viewport, 0, false, false)
	frame = d.EndFrame().(*image.RGBA)
	if got := frame.RGBAAt(1, 1); got != blue {
		t.Fatalf("unflipped draw: top pixel = %v, want blue", got)
	}
	if got := frame.RGBAAt(0, 0); got != (color.RGBA{A: 0xff}) {
		t.Fatalf("background pixel = %v, want black", got)
	}
}

func TestDrawTexture_ScalesAndClips(t *testing.T) {
	d := New()
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, red)
	id, _ := d.Upload(src)
	viewport := platform.Size{Width: 3, Height: 3}

	d.BeginFrame(viewport, color.Black)
	d.DrawTexture(id, platform.Rect{X: 1, Y: 1, Width: 4, Height: 4}, viewport, 0, false, true)
	frame := d.EndFrame().(*image.RGBA)
	if got := frame.RGBAAt(2, 2); got != red {
		t.Fatalf("scaled pixel = %v, want red", got)
	}
	if d.Draws() != 1 {
		t.Fatalf("expected one draw, got %d", d.Draws())
	}

	d.BeginFrame(viewport, color.Black)
	d.DrawTexture(id, platform.Rect{X: 10, Y: 10, Width: 2, Height: 2}, viewport, 0, false, true)
	if d.Draws() != 0 {
		t.Fatalf("off-frame quad should not count as drawn")
	}
}

func TestDelete_ForgetsTexture(t *testing.T) {
	d := New()
	id, _ := d.Upload(twoRows())
	d.Delete(id)
	if d.Textures() != 0 {
		t.Fatalf("expected no textures after delete")
	}
	d.BeginFrame(platform.Size{Width: 2, Height: 2}, color.Black)
	d.DrawTexture(id, platform.Rect{Width: 1, Height: 2}, platform.Size{Width: 2, Height: 2}, 0, false, true)
	if d.Draws() != 0 {
		t.Fatalf("deleted texture must not draw")
	}
}

func TestOrient_Rotation(t *testing.T) {
	got := orient(twoRows(), 90, false, false)
	if b := got.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Fatalf("rotated bounds = %v, want 2x1", b)
	}
	// Clockwise: the top row ends up on the right.
	if got.RGBAAt(1, 0) != red || got.RGBAAt(0, 0) != blue {
		t.Fatalf("unexpected rotation result: %v %v", got.RGBAAt(0, 0), got.RGBAAt(1, 0))
	}
}
