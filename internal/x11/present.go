package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
	xdraw "golang.org/x/image/draw"
)

// putImageHeader is the fixed PutImage request size in bytes.
const putImageHeader = 24

// Present uploads a rendered frame to the host window. It implements
// render.Presenter.
func (h *HostWindow) Present(frame image.Image) error {
	rgba := asRGBA(frame)
	b := rgba.Bounds()
	w, hgt := b.Dx(), b.Dy()
	if w <= 0 || hgt <= 0 {
		return nil
	}
	setup := h.conn.XUtil.Setup()
	screen := h.conn.XUtil.Screen()
	data := packPixels(rgba, setup.ImageByteOrder == xproto.ImageOrderMSBFirst)
	stride := w * 4
	rows := bandRows(int(setup.MaximumRequestLength)*4, stride)
	if rows == 0 {
		return fmt.Errorf("frame row of %d bytes exceeds the request limit", stride)
	}
	for y := 0; y < hgt; y += rows {
		n := min(rows, hgt-y)
		band := data[y*stride : (y+n)*stride]
		xproto.PutImage(h.conn.XUtil.Conn(), xproto.ImageFormatZPixmap,
			xproto.Drawable(h.win.Id), h.gc,
			uint16(w), uint16(n), 0, int16(y), 0, screen.RootDepth, band)
	}
	h.conn.XUtil.Sync()
	return nil
}

func asRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(rgba, image.Point{}, img, b, xdraw.Src, nil)
	return rgba
}

// packPixels converts RGBA pixels to the 32 bits per pixel ZPixmap layout
// of a 24 bit TrueColor visual: BGRX on LSB-first servers and XRGB on
// MSB-first ones.
func packPixels(img *image.RGBA, msbFirst bool) []byte {
	b := img.Bounds()
	w, hgt := b.Dx(), b.Dy()
	out := make([]byte, w*hgt*4)
	for y := 0; y < hgt; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		dst := out[y*w*4 : (y+1)*w*4]
		for x := 0; x < w; x++ {
			r, g, bl, a := src[x*4], src[x*4+1], src[x*4+2], src[x*4+3]
			if msbFirst {
				dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = a, r, g, bl
			} else {
				dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = bl, g, r, a
			}
		}
	}
	return out
}

// bandRows returns how many rows of stride bytes fit in one PutImage request
// of at most maxRequest bytes.
func bandRows(maxRequest, stride int) int {
	if stride <= 0 {
		return 0
	}
	n := (maxRequest - putImageHeader) / stride
	if n < 0 {
		return 0
	}
	return n
}
