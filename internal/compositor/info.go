package compositor

import (
	"fmt"
	"sort"
	"time"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/render"
	"github.com/1broseidon/nestcomp/internal/surface"
	"github.com/1broseidon/nestcomp/internal/tiling"
)

// SurfaceInfo is a snapshot of one surface.
type SurfaceInfo struct {
	ID         protocol.SurfaceID `json:"id"`
	Client     protocol.ClientID  `json:"client"`
	ClientName string             `json:"client_name"`
	Role       string             `json:"role"`
	Parent     protocol.SurfaceID `json:"parent,omitempty"`
	X          float64            `json:"x"`
	Y          float64            `json:"y"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Mapped     bool               `json:"mapped"`
	// StackIndex is the position in the stacking order, bottom first, or
	// -1 when unmapped.
	StackIndex int    `json:"stack_index"`
	OnScreen   bool   `json:"on_screen"`
	Focused    bool   `json:"focused"`
	Extended   bool   `json:"extended"`
	Generation uint64 `json:"generation"`
	FramesDone uint64 `json:"frames_done"`
}

// Status summarises the compositor.
type Status struct {
	Uptime         string             `json:"uptime"`
	Output         string             `json:"output"`
	Clients        int                `json:"clients"`
	Surfaces       int                `json:"surfaces"`
	Mapped         int                `json:"mapped"`
	KeyboardFocus  protocol.SurfaceID `json:"keyboard_focus"`
	PointerFocus   protocol.SurfaceID `json:"pointer_focus"`
	CursorSurface  protocol.SurfaceID `json:"cursor_surface"`
	CursorHotspot  [2]int             `json:"cursor_hotspot"`
	CursorApplied  int                `json:"cursor_applied"`
	Dragging       bool               `json:"dragging"`
	Modifiers      string             `json:"modifiers"`
	SchedulerState string             `json:"scheduler_state"`
	Render         render.Stats       `json:"render"`
	FrameCallbacks uint64             `json:"frame_callbacks"`
	SeatEvents     map[string]int     `json:"seat_events"`
}

func (c *Compositor) stackIndex() map[*surface.Surface]int {
	idx := make(map[*surface.Surface]int)
	for i, s := range c.reg.Stack() {
		idx[s] = i
	}
	return idx
}

func (c *Compositor) info(s *surface.Surface, stack map[*surface.Surface]int) SurfaceInfo {
	info := SurfaceInfo{
		ID:         s.ID(),
		Client:     s.Client(),
		Role:       s.Kind().String(),
		Mapped:     s.Mapped(),
		StackIndex: -1,
		OnScreen:   s.OnScreenReported(),
		Focused:    c.reg.KeyboardFocus() == s,
		Generation: s.Generation(),
		FramesDone: c.framesDone[s.ID()],
	}
	if cl, ok := c.clients[s.Client()]; ok {
		info.ClientName = cl.name
	}
	if p, ok := s.Role().(surface.Popup); ok && p.Parent != nil {
		info.Parent = p.Parent.ID()
	}
	if i, ok := stack[s]; ok {
		info.StackIndex = i
	}
	if v := s.DrawableView(); v != nil {
		info.X, info.Y = v.Position().X, v.Position().Y
	}
	size := s.Size()
	info.Width, info.Height = size.Width, size.Height
	_, info.Extended = c.ext[s.ID()]
	return info
}

// Surfaces lists every live surface: mapped ones in stacking order bottom
// to top, then unmapped ones by id.
func (c *Compositor) Surfaces() []SurfaceInfo {
	stack := c.stackIndex()
	all := c.reg.Surfaces()
	out := make([]SurfaceInfo, 0, len(all))
	for _, s := range all {
		out = append(out, c.info(s, stack))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Mapped != b.Mapped {
			return a.Mapped
		}
		if a.Mapped {
			return a.StackIndex < b.StackIndex
		}
		return a.ID < b.ID
	})
	return out
}

// Status returns a snapshot of compositor state.
func (c *Compositor) Status() Status {
	st := Status{
		Uptime:         time.Since(c.started).Round(time.Second).String(),
		Clients:        len(c.clients),
		Surfaces:       len(c.reg.Surfaces()),
		Mapped:         len(c.reg.Stack()),
		Dragging:       c.router.Dragging(),
		Modifiers:      c.router.Modifiers().String(),
		SchedulerState: c.sched.State().String(),
		Render:         c.sched.Stats(),
		FrameCallbacks: c.output.Stats().Delivered,
		SeatEvents:     c.seat.Counts(),
	}
	if c.bounds != nil {
		st.Output = c.bounds().String()
	}
	if f := c.reg.KeyboardFocus(); f != nil {
		st.KeyboardFocus = f.ID()
	}
	if v := c.router.PointerFocus(); v != nil {
		st.PointerFocus = v.Surface().ID()
	}
	id, hx, hy := c.cursor.Current()
	st.CursorSurface = id
	st.CursorHotspot = [2]int{hx, hy}
	st.CursorApplied = c.cursor.Applied()
	return st
}

// Tile arranges mapped toplevels in stacking order into layout slots and
// moves their popups along with them. It returns how many were placed.
func (c *Compositor) Tile(layout tiling.Layout) (int, error) {
	var tops []*surface.Surface
	for _, s := range c.reg.Stack() {
		if s.Kind() == surface.RoleToplevel && s.DrawableView() != nil {
			tops = append(tops, s)
		}
	}
	if len(tops) == 0 {
		return 0, nil
	}

	var area platform.Rect
	if c.bounds != nil {
		area = c.bounds()
	}
	slots, err := tiling.Slots(len(tops), area, layout)
	if err != nil {
		return 0, fmt.Errorf("tile: %w", err)
	}

	moved := make(map[*surface.Surface]platform.Point, len(tops))
	for i, s := range tops {
		if i >= len(slots) {
			break
		}
		v := s.DrawableView()
		before := v.Position()
		v.SetPosition(tiling.Place(slots[i], s.Size()))
		moved[s] = v.Position().Sub(before)
	}

	for _, s := range c.reg.Stack() {
		p, ok := s.Role().(surface.Popup)
		if !ok {
			continue
		}
		if delta, ok := moved[p.Parent]; ok {
			if v := s.DrawableView(); v != nil {
				v.SetPosition(v.Position().Add(delta))
			}
		}
	}

	c.logger.Info("surfaces tiled", "count", len(slots), "mode", layout.Mode)
	return min(len(tops), len(slots)), nil
}

// Cycle raises the bottom-most mapped toplevel and gives it keyboard focus,
// rotating through the stack on repeated calls. It returns the raised
// surface, or 0 when fewer than two toplevels are mapped.
func (c *Compositor) Cycle() protocol.SurfaceID {
	var tops []*surface.Surface
	for _, s := range c.reg.Stack() {
		if s.Kind() == surface.RoleToplevel {
			tops = append(tops, s)
		}
	}
	if len(tops) < 2 {
		return 0
	}
	s := tops[0]
	if err := c.reg.SetKeyboardFocus(s); err != nil {
		return 0
	}
	c.reg.Raise(s)
	return s.ID()
}
