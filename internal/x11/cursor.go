package x11

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/nestcomp/internal/cursor"
)

// ErrNoRender is returned when the server lacks a usable RENDER extension.
var ErrNoRender = errors.New("x11: RENDER extension with an ARGB32 format is not available")

// CursorSink installs client cursor images on the host window. It
// implements cursor.Sink.
type CursorSink struct {
	host   *HostWindow
	logger *slog.Logger

	mu      sync.Mutex
	format  render.Pictformat
	current xproto.Cursor
}

// NewCursorSink prepares ARGB cursor support for the host window.
func NewCursorSink(host *HostWindow, logger *slog.Logger) (*CursorSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !host.conn.HasRender() {
		return nil, ErrNoRender
	}
	formats, err := render.QueryPictFormats(host.conn.XUtil.Conn()).Reply()
	if err != nil {
		return nil, fmt.Errorf("query picture formats: %w", err)
	}
	format, ok := findARGB32(formats.Formats)
	if !ok {
		return nil, ErrNoRender
	}
	s := &CursorSink{host: host, logger: logger, format: format}
	host.cursor = s
	return s, nil
}

func findARGB32(formats []render.Pictforminfo) (render.Pictformat, bool) {
	for _, f := range formats {
		d := f.Direct
		if f.Type == render.PictTypeDirect && f.Depth == 32 &&
			d.AlphaMask == 0xff && d.AlphaShift == 24 &&
			d.RedMask == 0xff && d.RedShift == 16 &&
			d.GreenMask == 0xff && d.GreenShift == 8 &&
			d.BlueMask == 0xff && d.BlueShift == 0 {
			return f.Id, true
		}
	}
	return 0, false
}

// SetCursor installs the first cursor image.
func (s *CursorSink) SetCursor(img cursor.Image) error {
	return s.install(img)
}

// ChangeCursor replaces the installed cursor and frees the previous one.
func (s *CursorSink) ChangeCursor(img cursor.Image) error {
	return s.install(img)
}

func (s *CursorSink) install(img cursor.Image) error {
	id, err := s.build(img)
	if err != nil {
		return err
	}
	conn := s.host.conn.XUtil.Conn()
	xproto.ChangeWindowAttributes(conn, s.host.win.Id, xproto.CwCursor, []uint32{uint32(id)})

	s.mu.Lock()
	old := s.current
	s.current = id
	s.mu.Unlock()
	if old != 0 {
		xproto.FreeCursor(conn, old)
	}
	return nil
}

func (s *CursorSink) build(img cursor.Image) (xproto.Cursor, error) {
	if img.Pixels == nil {
		return 0, fmt.Errorf("cursor image is empty")
	}
	b := img.Pixels.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || w > 0xffff || h > 0xffff {
		return 0, fmt.Errorf("invalid cursor size %dx%d", w, h)
	}
	conn := s.host.conn.XUtil.Conn()

	pix, err := xproto.NewPixmapId(conn)
	if err != nil {
		return 0, fmt.Errorf("allocate cursor pixmap: %w", err)
	}
	if err := xproto.CreatePixmapChecked(conn, 32, pix, xproto.Drawable(s.host.win.Id), uint16(w), uint16(h)).Check(); err != nil {
		return 0, fmt.Errorf("create cursor pixmap: %w", err)
	}
	defer xproto.FreePixmap(conn, pix)

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return 0, fmt.Errorf("allocate cursor gc: %w", err)
	}
	xproto.CreateGC(conn, gc, xproto.Drawable(pix), 0, nil)
	defer xproto.FreeGC(conn, gc)

	msb := s.host.conn.XUtil.Setup().ImageByteOrder == xproto.ImageOrderMSBFirst
	xproto.PutImage(conn, xproto.ImageFormatZPixmap, xproto.Drawable(pix), gc,
		uint16(w), uint16(h), 0, 0, 0, 32, premultiplied(img.Pixels, msb))

	pic, err := render.NewPictureId(conn)
	if err != nil {
		return 0, fmt.Errorf("allocate cursor picture: %w", err)
	}
	render.CreatePicture(conn, pic, xproto.Drawable(pix), s.format, 0, nil)
	defer render.FreePicture(conn, pic)

	id, err := xproto.NewCursorId(conn)
	if err != nil {
		return 0, fmt.Errorf("allocate cursor: %w", err)
	}
	hx, hy := clampHotspot(img.HotspotX, w), clampHotspot(img.HotspotY, h)
	if err := render.CreateCursorChecked(conn, id, pic, uint16(hx), uint16(hy)).Check(); err != nil {
		return 0, fmt.Errorf("create cursor: %w", err)
	}
	return id, nil
}

// Close frees the installed cursor.
func (s *CursorSink) Close() {
	s.mu.Lock()
	id := s.current
	s.current = 0
	s.mu.Unlock()
	if id != 0 {
		xproto.FreeCursor(s.host.conn.XUtil.Conn(), id)
	}
}

func clampHotspot(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v >= limit {
		return limit - 1
	}
	return v
}

// premultiplied returns the ARGB32 words RENDER expects. image.RGBA is
// already alpha-premultiplied, so only the byte order changes.
func premultiplied(img *image.RGBA, msbFirst bool) []byte {
	return packPixels(img, msbFirst)
}
