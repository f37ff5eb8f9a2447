package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload         CommandType = "RELOAD"
	CommandGetStatus      CommandType = "GET_STATUS"
	CommandListSurfaces   CommandType = "LIST_SURFACES"
	CommandSpawnSurface   CommandType = "SPAWN_SURFACE"
	CommandCommitSurface  CommandType = "COMMIT_SURFACE"
	CommandMapSurface     CommandType = "MAP_SURFACE"
	CommandUnmapSurface   CommandType = "UNMAP_SURFACE"
	CommandDestroySurface CommandType = "DESTROY_SURFACE"
	CommandRaiseSurface   CommandType = "RAISE_SURFACE"
	CommandMoveSurface    CommandType = "MOVE_SURFACE"
	CommandSetCursor      CommandType = "SET_CURSOR"
	CommandTileSurfaces   CommandType = "TILE_SURFACES"
	CommandDestroyClient  CommandType = "DESTROY_CLIENT"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// SurfacesData is returned by LIST_SURFACES.
type SurfacesData struct {
	Surfaces []compositor.SurfaceInfo `json:"surfaces"`
}

// SurfacePayload names the target of MAP, UNMAP, DESTROY and RAISE.
type SurfacePayload struct {
	ID protocol.SurfaceID `json:"id"`
}

type CommitPayload struct {
	ID protocol.SurfaceID `json:"id"`
	compositor.BufferRequest
}

type MovePayload struct {
	ID protocol.SurfaceID `json:"id"`
	X  float64            `json:"x"`
	Y  float64            `json:"y"`
}

// CursorPayload designates the cursor surface; ID 0 clears it.
type CursorPayload struct {
	ID       protocol.SurfaceID `json:"id"`
	HotspotX int                `json:"hotspot_x"`
	HotspotY int                `json:"hotspot_y"`
}

// TilePayload overrides the configured tiling layout. Empty fields keep the
// configured values.
type TilePayload struct {
	Mode               string `json:"mode,omitempty"`
	Gap                *int   `json:"gap,omitempty"`
	MasterWidthPercent int    `json:"master_width_percent,omitempty"`
}

type ClientPayload struct {
	Client protocol.ClientID `json:"client"`
}

type RaiseData struct {
	Raised bool `json:"raised"`
}

type TileData struct {
	Tiled int `json:"tiled"`
}

type DestroyClientData struct {
	Destroyed int `json:"destroyed"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
