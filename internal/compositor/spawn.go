package compositor

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/protocol/local"
	"github.com/1broseidon/nestcomp/internal/render"
	"github.com/1broseidon/nestcomp/internal/surface"
)

// SpawnRequest creates a surface for an in-process client.
type SpawnRequest struct {
	// Client is an existing client id; zero creates a new client.
	Client     protocol.ClientID `json:"client,omitempty"`
	ClientName string            `json:"client_name,omitempty"`

	Role    string             `json:"role,omitempty"`
	Parent  protocol.SurfaceID `json:"parent,omitempty"`
	OffsetX float64            `json:"offset_x,omitempty"`
	OffsetY float64            `json:"offset_y,omitempty"`

	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Pattern string `json:"pattern,omitempty"`
	Color   string `json:"color,omitempty"`
	Accent  string `json:"accent,omitempty"`
	Origin  string `json:"origin,omitempty"`

	HotspotX int `json:"hotspot_x,omitempty"`
	HotspotY int `json:"hotspot_y,omitempty"`

	// Extended attaches the extended-surface capability so the client hears
	// about on-screen visibility changes.
	Extended bool `json:"extended,omitempty"`
	Map      bool `json:"map"`
}

// BufferRequest describes a replacement buffer for COMMIT_SURFACE.
type BufferRequest struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Pattern string `json:"pattern,omitempty"`
	Color   string `json:"color,omitempty"`
	Accent  string `json:"accent,omitempty"`
	Origin  string `json:"origin,omitempty"`
}

var palette = []color.RGBA{
	{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff},
	{R: 0xdd, G: 0x84, B: 0x52, A: 0xff},
	{R: 0x55, G: 0xa8, B: 0x68, A: 0xff},
	{R: 0xc4, G: 0x4e, B: 0x52, A: 0xff},
	{R: 0x81, G: 0x72, B: 0xb3, A: 0xff},
	{R: 0x93, G: 0x78, B: 0x60, A: 0xff},
}

// ParseOrigin accepts "top-left" (the default) or "bottom-left".
func ParseOrigin(s string) (protocol.Origin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "top-left", "topleft":
		return protocol.OriginTopLeft, nil
	case "bottom-left", "bottomleft":
		return protocol.OriginBottomLeft, nil
	default:
		return 0, fmt.Errorf("unknown buffer origin %q", s)
	}
}

// BufferSpec turns a request into a buffer description, filling colours
// from a palette keyed by id.
func (r BufferRequest) BufferSpec(id protocol.SurfaceID) (local.BufferSpec, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return local.BufferSpec{}, fmt.Errorf("buffer size must be positive, got %dx%d", r.Width, r.Height)
	}
	pattern, err := local.ParsePattern(r.Pattern)
	if err != nil {
		return local.BufferSpec{}, err
	}
	origin, err := ParseOrigin(r.Origin)
	if err != nil {
		return local.BufferSpec{}, err
	}
	fill := palette[int(id)%len(palette)]
	if r.Color != "" {
		if fill, err = render.ParseColor(r.Color); err != nil {
			return local.BufferSpec{}, err
		}
	}
	accent := color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	if r.Accent != "" {
		if accent, err = render.ParseColor(r.Accent); err != nil {
			return local.BufferSpec{}, err
		}
	}
	return local.BufferSpec{
		Size:    platform.Size{Width: r.Width, Height: r.Height},
		Pattern: pattern,
		Color:   fill,
		Accent:  accent,
		Origin:  origin,
	}, nil
}

func (r SpawnRequest) buffer() BufferRequest {
	return BufferRequest{
		Width:   r.Width,
		Height:  r.Height,
		Pattern: r.Pattern,
		Color:   r.Color,
		Accent:  r.Accent,
		Origin:  r.Origin,
	}
}

// CommitBuffer generates and commits a buffer for the surface.
func (c *Compositor) CommitBuffer(id protocol.SurfaceID, req BufferRequest) error {
	spec, err := req.BufferSpec(id)
	if err != nil {
		return fmt.Errorf("commit surface %d: %w", id, err)
	}
	return c.Commit(id, spec)
}

// Spawn creates a client surface from req: shell role, optional extended
// surface, first buffer and, when asked, the map.
func (c *Compositor) Spawn(req SpawnRequest) (SurfaceInfo, error) {
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = surface.RoleToplevel.String()
	}

	var parent *surface.Surface
	switch role {
	case surface.RoleToplevel.String(), surface.RoleCursor.String():
	case surface.RolePopup.String():
		p, err := c.lookup(req.Parent)
		if err != nil {
			return SurfaceInfo{}, fmt.Errorf("spawn popup: parent: %w", err)
		}
		parent = p
	default:
		return SurfaceInfo{}, fmt.Errorf("spawn: unknown role %q", req.Role)
	}

	id := c.nextSurface + 1
	spec, err := req.buffer().BufferSpec(id)
	if err != nil {
		return SurfaceInfo{}, fmt.Errorf("spawn: %w", err)
	}

	clientID := req.Client
	if clientID == 0 {
		clientID = c.NewClient(req.ClientName)
	} else if _, ok := c.clients[clientID]; !ok {
		return SurfaceInfo{}, fmt.Errorf("spawn: client %d: %w", clientID, ErrUnknownClient)
	}
	c.nextSurface = id

	s, err := c.reg.CreateSurface(clientID, id, 1)
	if err != nil {
		return SurfaceInfo{}, err
	}

	switch role {
	case surface.RolePopup.String():
		_, err = c.reg.CreateShellSurface(s, surface.Popup{
			Parent: parent,
			Offset: platform.Point{X: req.OffsetX, Y: req.OffsetY},
		})
	case surface.RoleCursor.String():
		err = c.cursor.SetCursorSurface(s, req.HotspotX, req.HotspotY)
	default:
		_, err = c.reg.CreateShellSurface(s, surface.Toplevel{})
	}
	if err != nil {
		_ = c.reg.Destroy(s)
		return SurfaceInfo{}, fmt.Errorf("spawn: %w", err)
	}

	if req.Extended {
		ext := local.NewExtendedSurface(id, c.logger.With("component", "client", "client", clientID))
		if err := c.reg.SetExtendedSurface(s, ext); err != nil {
			_ = c.reg.Destroy(s)
			return SurfaceInfo{}, err
		}
		c.ext[id] = ext
	}

	if err := c.commit(s, spec); err != nil {
		_ = c.reg.Destroy(s)
		return SurfaceInfo{}, err
	}
	if req.Map {
		if err := c.reg.Map(s); err != nil {
			return SurfaceInfo{}, err
		}
	}

	c.logger.Info("surface spawned",
		"surface", id,
		"client", clientID,
		"role", role,
		"size", spec.Size,
		"mapped", req.Map)
	return c.info(s, c.stackIndex()), nil
}
