package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/ipc"
)

func (s *Server) handleListSurfaces(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListSurfacesInput) (*mcpsdk.CallToolResult, ListSurfacesOutput, error) {
	surfaces, err := s.daemon.ListSurfaces()
	if err != nil {
		return nil, ListSurfacesOutput{}, err
	}
	if surfaces == nil {
		surfaces = []compositor.SurfaceInfo{}
	}
	return nil, ListSurfacesOutput{Surfaces: surfaces}, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, compositor.Status, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, compositor.Status{}, err
	}
	// Output is validated against the inferred schema, which rejects a null object.
	if status.SeatEvents == nil {
		status.SeatEvents = map[string]int{}
	}
	return nil, *status, nil
}

func (s *Server) handleSpawnSurface(_ context.Context, _ *mcpsdk.CallToolRequest, args SpawnSurfaceInput) (*mcpsdk.CallToolResult, compositor.SurfaceInfo, error) {
	if args.Width <= 0 || args.Height <= 0 {
		return nil, compositor.SurfaceInfo{}, fmt.Errorf("width and height must be positive")
	}
	info, err := s.daemon.Spawn(compositor.SpawnRequest{
		Client:     args.Client,
		ClientName: args.ClientName,
		Role:       args.Role,
		Parent:     args.Parent,
		OffsetX:    args.OffsetX,
		OffsetY:    args.OffsetY,
		Width:      args.Width,
		Height:     args.Height,
		Pattern:    args.Pattern,
		Color:      args.Color,
		Origin:     args.Origin,
		Extended:   args.Extended,
		Map:        args.Map,
	})
	if err != nil {
		return nil, compositor.SurfaceInfo{}, err
	}
	s.logger.Info("mcp spawned surface", "id", info.ID, "role", info.Role)
	return nil, *info, nil
}

func (s *Server) handleRaiseSurface(_ context.Context, _ *mcpsdk.CallToolRequest, args SurfaceInput) (*mcpsdk.CallToolResult, RaiseSurfaceOutput, error) {
	raised, err := s.daemon.Raise(args.ID)
	if err != nil {
		return nil, RaiseSurfaceOutput{}, err
	}
	return nil, RaiseSurfaceOutput{ID: args.ID, Raised: raised}, nil
}

func (s *Server) handleMoveSurface(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveSurfaceInput) (*mcpsdk.CallToolResult, SurfaceOutput, error) {
	if err := s.daemon.Move(args.ID, args.X, args.Y); err != nil {
		return nil, SurfaceOutput{}, err
	}
	return nil, SurfaceOutput{ID: args.ID, Action: "moved"}, nil
}

func (s *Server) handleMapSurface(_ context.Context, _ *mcpsdk.CallToolRequest, args MapSurfaceInput) (*mcpsdk.CallToolResult, SurfaceOutput, error) {
	if args.Map != nil && !*args.Map {
		if err := s.daemon.Unmap(args.ID); err != nil {
			return nil, SurfaceOutput{}, err
		}
		return nil, SurfaceOutput{ID: args.ID, Action: "unmapped"}, nil
	}
	if err := s.daemon.Map(args.ID); err != nil {
		return nil, SurfaceOutput{}, err
	}
	return nil, SurfaceOutput{ID: args.ID, Action: "mapped"}, nil
}

func (s *Server) handleDestroySurface(_ context.Context, _ *mcpsdk.CallToolRequest, args SurfaceInput) (*mcpsdk.CallToolResult, SurfaceOutput, error) {
	if err := s.daemon.Destroy(args.ID); err != nil {
		return nil, SurfaceOutput{}, err
	}
	s.logger.Info("mcp destroyed surface", "id", args.ID)
	return nil, SurfaceOutput{ID: args.ID, Action: "destroyed"}, nil
}

func (s *Server) handleTileSurfaces(_ context.Context, _ *mcpsdk.CallToolRequest, args TileSurfacesInput) (*mcpsdk.CallToolResult, TileSurfacesOutput, error) {
	n, err := s.daemon.Tile(ipc.TilePayload{Mode: args.Mode, Gap: args.Gap})
	if err != nil {
		return nil, TileSurfacesOutput{}, err
	}
	return nil, TileSurfacesOutput{Tiled: n}, nil
}
