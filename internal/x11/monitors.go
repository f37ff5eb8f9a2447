package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/nestcomp/internal/platform"
)

// Monitors retrieves all active monitors using XRandR
func (c *Connection) Monitors() ([]platform.Display, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []platform.Display
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, platform.Display{
			ID:   i,
			Name: outputName,
			Bounds: platform.Rect{
				X:      int(crtcInfo.X),
				Y:      int(crtcInfo.Y),
				Width:  int(crtcInfo.Width),
				Height: int(crtcInfo.Height),
			},
		})
	}

	return monitors, nil
}

// ActiveMonitor returns the monitor under the pointer, falling back to the
// first one. The bounds are clipped to the EWMH work area when the window
// manager publishes one.
func (c *Connection) ActiveMonitor() (platform.Display, error) {
	monitors, err := c.Monitors()
	if err != nil {
		return platform.Display{}, err
	}
	if len(monitors) == 0 {
		return platform.Display{}, fmt.Errorf("no monitors found")
	}

	active := monitors[0]
	if pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply(); err == nil {
		if mon, ok := monitorAt(monitors, int(pointer.RootX), int(pointer.RootY)); ok {
			active = mon
		}
	}

	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return active, nil
	}
	desktop := 0
	if current, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(current) < len(workArea) {
		desktop = int(current)
	}
	wa := workArea[desktop]
	clipped := active.Bounds.Intersect(platform.Rect{
		X:      wa.X,
		Y:      wa.Y,
		Width:  int(wa.Width),
		Height: int(wa.Height),
	})
	if !clipped.Empty() {
		active.Bounds = clipped
	}
	return active, nil
}

func monitorAt(monitors []platform.Display, x, y int) (platform.Display, bool) {
	for _, mon := range monitors {
		b := mon.Bounds
		if x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height {
			return mon, true
		}
	}
	return platform.Display{}, false
}
