package x11

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/nestcomp/internal/platform"
)

// HostOptions configures the compositor's host window.
type HostOptions struct {
	Title  string
	Size   platform.Size
	Logger *slog.Logger
}

// HostWindow is the X11 window the nested compositor renders into.
type HostWindow struct {
	conn   *Connection
	win    *xwindow.Window
	gc     xproto.Gcontext
	size   platform.Size
	logger *slog.Logger

	mu      sync.Mutex
	mapped  bool
	visible bool

	cursor    *CursorSink
	closeOnce sync.Once
}

// NewHostWindow creates and maps the host window.
func NewHostWindow(conn *Connection, opts HostOptions) (*HostWindow, error) {
	if opts.Size.Empty() {
		return nil, fmt.Errorf("invalid host window size %s", opts.Size)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	win, err := xwindow.Generate(conn.XUtil)
	if err != nil {
		return nil, fmt.Errorf("allocate window id: %w", err)
	}
	screen := conn.XUtil.Screen()
	if err := win.CreateChecked(conn.Root, 0, 0, opts.Size.Width, opts.Size.Height,
		xproto.CwBackPixel, screen.BlackPixel); err != nil {
		return nil, fmt.Errorf("create host window: %w", err)
	}

	err = win.Listen(
		xproto.EventMaskKeyPress,
		xproto.EventMaskKeyRelease,
		xproto.EventMaskButtonPress,
		xproto.EventMaskButtonRelease,
		xproto.EventMaskPointerMotion,
		xproto.EventMaskExposure,
		xproto.EventMaskVisibilityChange,
		xproto.EventMaskStructureNotify,
		xproto.EventMaskFocusChange,
	)
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("select host window events: %w", err)
	}

	title := opts.Title
	if title == "" {
		title = "nestcomp"
	}
	if err := ewmh.WmNameSet(conn.XUtil, win.Id, title); err != nil {
		logger.Debug("set _NET_WM_NAME failed", "error", err)
	}
	if err := icccm.WmNameSet(conn.XUtil, win.Id, title); err != nil {
		logger.Debug("set WM_NAME failed", "error", err)
	}
	if err := icccm.WmClassSet(conn.XUtil, win.Id, &icccm.WmClass{Instance: "nestcomp", Class: "Nestcomp"}); err != nil {
		logger.Debug("set WM_CLASS failed", "error", err)
	}
	// A fixed-size output: the window manager should not resize it.
	hints := &icccm.NormalHints{
		Flags:     icccm.SizeHintPMinSize | icccm.SizeHintPMaxSize,
		MinWidth:  uint(opts.Size.Width),
		MinHeight: uint(opts.Size.Height),
		MaxWidth:  uint(opts.Size.Width),
		MaxHeight: uint(opts.Size.Height),
	}
	if err := icccm.WmNormalHintsSet(conn.XUtil, win.Id, hints); err != nil {
		logger.Debug("set WM_NORMAL_HINTS failed", "error", err)
	}
	if err := icccm.WmProtocolsSet(conn.XUtil, win.Id, []string{"WM_DELETE_WINDOW"}); err != nil {
		logger.Debug("set WM_PROTOCOLS failed", "error", err)
	}

	gc, err := xproto.NewGcontextId(conn.XUtil.Conn())
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("allocate graphics context: %w", err)
	}
	if err := xproto.CreateGCChecked(conn.XUtil.Conn(), gc, xproto.Drawable(win.Id), 0, nil).Check(); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("create graphics context: %w", err)
	}

	win.Map()

	h := &HostWindow{
		conn:   conn,
		win:    win,
		gc:     gc,
		size:   opts.Size,
		logger: logger,
	}
	logger.Info("host window created", "window", uint32(win.Id), "size", opts.Size.String(), "title", title)
	return h, nil
}

// ID returns the X window id.
func (h *HostWindow) ID() xproto.Window { return h.win.Id }

// Size returns the window (output) size.
func (h *HostWindow) Size() platform.Size { return h.size }

// Bounds returns the output rectangle in output coordinates.
func (h *HostWindow) Bounds() platform.Rect {
	return platform.Rect{Width: h.size.Width, Height: h.size.Height}
}

// Exposed reports whether the window is mapped and not fully obscured.
func (h *HostWindow) Exposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mapped && h.visible
}

func (h *HostWindow) setMapped(mapped bool) {
	h.mu.Lock()
	h.mapped = mapped
	if mapped && !h.visible {
		// Most servers follow MapNotify with VisibilityNotify; assume visible until told otherwise.
		h.visible = true
	}
	h.mu.Unlock()
}

func (h *HostWindow) setVisible(visible bool) {
	h.mu.Lock()
	h.visible = visible
	h.mu.Unlock()
}

// QueryModifiers asks the server for the current modifier state.
func (h *HostWindow) QueryModifiers() platform.Modifiers {
	reply, err := xproto.QueryPointer(h.conn.XUtil.Conn(), h.win.Id).Reply()
	if err != nil {
		h.logger.Debug("query pointer failed", "error", err)
		return 0
	}
	return modifiersFromState(reply.Mask)
}

// Close stops the event pump and destroys the window. It is safe to call
// more than once.
func (h *HostWindow) Close() {
	h.closeOnce.Do(func() {
		xevent.Quit(h.conn.XUtil)
		if h.cursor != nil {
			h.cursor.Close()
		}
		xproto.FreeGC(h.conn.XUtil.Conn(), h.gc)
		xevent.Detach(h.conn.XUtil, h.win.Id)
		h.win.Destroy()
	})
}
