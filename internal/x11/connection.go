package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	hasRender bool
}

// NewConnection establishes a connection to the X11 server and initializes required extensions
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	// Key code lookups for the drag key go through keybind.
	keybind.Initialize(xu)

	c := &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}
	// Without RENDER the host pointer keeps its default image.
	if err := render.Init(xu.Conn()); err == nil {
		c.hasRender = true
	}
	return c, nil
}

// HasRender reports whether the RENDER extension is available.
func (c *Connection) HasRender() bool {
	return c.hasRender
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
