package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/ipc"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

const (
	ServerName    = "nestcomp"
	ServerVersion = "0.1.0"
)

// Daemon is the slice of the IPC client the tools use.
type Daemon interface {
	GetStatus() (*compositor.Status, error)
	ListSurfaces() ([]compositor.SurfaceInfo, error)
	Spawn(req compositor.SpawnRequest) (*compositor.SurfaceInfo, error)
	Raise(id protocol.SurfaceID) (bool, error)
	Move(id protocol.SurfaceID, x, y float64) error
	Destroy(id protocol.SurfaceID) error
	Map(id protocol.SurfaceID) error
	Unmap(id protocol.SurfaceID) error
	Tile(p ipc.TilePayload) (int, error)
}

// Server exposes the running compositor as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards tool calls to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: daemon, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_surfaces",
		Description: "List every compositor surface. Mapped surfaces come first in stacking order (bottom to top), followed by unmapped ones. Each entry has its id, client, role, position, size, focus and on-screen state.",
	}, s.handleListSurfaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Summarise the compositor: surface counts, keyboard and pointer focus, cursor surface, render scheduler state and frame statistics.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "spawn_surface",
		Description: "Create a test client surface with a generated buffer (solid, checker or border pattern). Role is toplevel (default), popup (needs parent and offset) or cursor. Set map to show it immediately.",
	}, s.handleSpawnSurface)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "raise_surface",
		Description: "Move a mapped surface to the top of the stacking order. Raising the topmost surface is a no-op and reports raised=false.",
	}, s.handleRaiseSurface)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_surface",
		Description: "Set the output position of a surface's view (top-left corner, in pixels).",
	}, s.handleMoveSurface)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "map_surface",
		Description: "Map a surface with a committed buffer, or unmap it when map is false.",
	}, s.handleMapSurface)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "destroy_surface",
		Description: "Destroy a surface. Focus moves to the topmost remaining mapped surface.",
	}, s.handleDestroySurface)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "tile_surfaces",
		Description: "Arrange mapped toplevel surfaces into a layout (grid, vertical, horizontal or master-stack). Popups move with their parents.",
	}, s.handleTileSurfaces)
}
