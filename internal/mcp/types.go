package mcp

import (
	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

type ListSurfacesInput struct{}

type ListSurfacesOutput struct {
	Surfaces []compositor.SurfaceInfo `json:"surfaces"`
}

type GetStatusInput struct{}

// SpawnSurfaceInput is the input for the spawn_surface tool.
type SpawnSurfaceInput struct {
	ClientName string             `json:"client_name,omitempty" jsonschema:"Name for the new client"`
	Client     protocol.ClientID  `json:"client,omitempty" jsonschema:"Existing client id to add the surface to"`
	Role       string             `json:"role,omitempty" jsonschema:"toplevel (default), popup or cursor"`
	Parent     protocol.SurfaceID `json:"parent,omitempty" jsonschema:"Parent surface id for popups"`
	OffsetX    float64            `json:"offset_x,omitempty" jsonschema:"Popup offset from the parent's top-left corner"`
	OffsetY    float64            `json:"offset_y,omitempty" jsonschema:"Popup offset from the parent's top-left corner"`
	Width      int                `json:"width" jsonschema:"Buffer width in pixels"`
	Height     int                `json:"height" jsonschema:"Buffer height in pixels"`
	Pattern    string             `json:"pattern,omitempty" jsonschema:"solid, checker or border"`
	Color      string             `json:"color,omitempty" jsonschema:"Fill colour as #rrggbb"`
	Origin     string             `json:"origin,omitempty" jsonschema:"Buffer row order: top-left (default) or bottom-left"`
	Extended   bool               `json:"extended,omitempty" jsonschema:"Attach the extended surface so the client is told about on-screen visibility"`
	Map        bool               `json:"map,omitempty" jsonschema:"Map the surface right away"`
}

type SurfaceInput struct {
	ID protocol.SurfaceID `json:"id" jsonschema:"Surface id"`
}

type RaiseSurfaceOutput struct {
	ID     protocol.SurfaceID `json:"id"`
	Raised bool               `json:"raised"`
}

type MoveSurfaceInput struct {
	ID protocol.SurfaceID `json:"id" jsonschema:"Surface id"`
	X  float64            `json:"x" jsonschema:"New left edge in output pixels"`
	Y  float64            `json:"y" jsonschema:"New top edge in output pixels"`
}

type MapSurfaceInput struct {
	ID  protocol.SurfaceID `json:"id" jsonschema:"Surface id"`
	Map *bool              `json:"map,omitempty" jsonschema:"false unmaps the surface (default: true)"`
}

type TileSurfacesInput struct {
	Mode string `json:"mode,omitempty" jsonschema:"grid, vertical, horizontal or master-stack (default: configured layout)"`
	Gap  *int   `json:"gap,omitempty" jsonschema:"Gap between surfaces in pixels"`
}

type TileSurfacesOutput struct {
	Tiled int `json:"tiled"`
}

// SurfaceOutput reports the surface a mutation applied to.
type SurfaceOutput struct {
	ID     protocol.SurfaceID `json:"id"`
	Action string             `json:"action"`
}
