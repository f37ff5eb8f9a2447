package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/ipc"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

type fakeDaemon struct {
	surfaces []compositor.SurfaceInfo
	spawned  []compositor.SpawnRequest
	raised   []protocol.SurfaceID
	moved    map[protocol.SurfaceID][2]float64
	mapped   map[protocol.SurfaceID]bool
	tiled    []ipc.TilePayload
	err      error
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{
		moved:  make(map[protocol.SurfaceID][2]float64),
		mapped: make(map[protocol.SurfaceID]bool),
	}
}

func (f *fakeDaemon) GetStatus() (*compositor.Status, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &compositor.Status{Surfaces: len(f.surfaces), SchedulerState: "idle"}, nil
}

func (f *fakeDaemon) ListSurfaces() ([]compositor.SurfaceInfo, error) {
	return f.surfaces, f.err
}

func (f *fakeDaemon) Spawn(req compositor.SpawnRequest) (*compositor.SurfaceInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.spawned = append(f.spawned, req)
	info := compositor.SurfaceInfo{
		ID:     protocol.SurfaceID(len(f.spawned)),
		Role:   "toplevel",
		Width:  req.Width,
		Height: req.Height,
		Mapped: req.Map,
	}
	f.surfaces = append(f.surfaces, info)
	return &info, nil
}

func (f *fakeDaemon) Raise(id protocol.SurfaceID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.raised = append(f.raised, id)
	return true, nil
}

func (f *fakeDaemon) Move(id protocol.SurfaceID, x, y float64) error {
	f.moved[id] = [2]float64{x, y}
	return f.err
}

func (f *fakeDaemon) Destroy(id protocol.SurfaceID) error {
	if f.err != nil {
		return f.err
	}
	for i, s := range f.surfaces {
		if s.ID == id {
			f.surfaces = append(f.surfaces[:i], f.surfaces[i+1:]...)
			return nil
		}
	}
	return errors.New("surface not found")
}

func (f *fakeDaemon) Map(id protocol.SurfaceID) error {
	f.mapped[id] = true
	return f.err
}

func (f *fakeDaemon) Unmap(id protocol.SurfaceID) error {
	f.mapped[id] = false
	return f.err
}

func (f *fakeDaemon) Tile(p ipc.TilePayload) (int, error) {
	f.tiled = append(f.tiled, p)
	return len(f.surfaces), f.err
}

func testServer(d Daemon) *Server {
	return NewServer(d, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func connect(t *testing.T, s *Server) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ss, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcpsdk.ClientSession, name string, args any, out any) *mcpsdk.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError || out == nil {
		return res
	}
	if len(res.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): content is %T, want *TextContent", name, res.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), out); err != nil {
		t.Fatalf("CallTool(%s): decode %q: %v", name, text.Text, err)
	}
	return res
}

func TestToolsRegistered(t *testing.T) {
	cs := connect(t, testServer(newFakeDaemon()))

	res, err := cs.ListTools(context.Background(), &mcpsdk.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{
		"destroy_surface",
		"get_status",
		"list_surfaces",
		"map_surface",
		"move_surface",
		"raise_surface",
		"spawn_surface",
		"tile_surfaces",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestSpawnListAndRaise(t *testing.T) {
	d := newFakeDaemon()
	cs := connect(t, testServer(d))

	var info compositor.SurfaceInfo
	callTool(t, cs, "spawn_surface", map[string]any{"width": 64, "height": 48, "pattern": "checker", "map": true}, &info)
	if info.ID != 1 || info.Width != 64 || !info.Mapped {
		t.Fatalf("spawned = %+v", info)
	}
	if d.spawned[0].Pattern != "checker" {
		t.Fatalf("pattern = %q, want checker", d.spawned[0].Pattern)
	}

	var list ListSurfacesOutput
	callTool(t, cs, "list_surfaces", map[string]any{}, &list)
	if len(list.Surfaces) != 1 || list.Surfaces[0].ID != 1 {
		t.Fatalf("surfaces = %+v", list.Surfaces)
	}

	var raised RaiseSurfaceOutput
	callTool(t, cs, "raise_surface", map[string]any{"id": 1}, &raised)
	if !raised.Raised || raised.ID != 1 {
		t.Fatalf("raise = %+v", raised)
	}
}

func TestListSurfacesEmpty(t *testing.T) {
	cs := connect(t, testServer(newFakeDaemon()))

	var list ListSurfacesOutput
	callTool(t, cs, "list_surfaces", map[string]any{}, &list)
	if list.Surfaces == nil || len(list.Surfaces) != 0 {
		t.Fatalf("surfaces = %#v, want empty slice", list.Surfaces)
	}
}

func TestGetStatus(t *testing.T) {
	d := newFakeDaemon()
	d.surfaces = []compositor.SurfaceInfo{{ID: 4}}
	cs := connect(t, testServer(d))

	var status compositor.Status
	callTool(t, cs, "get_status", map[string]any{}, &status)
	if status.Surfaces != 1 || status.SchedulerState != "idle" {
		t.Fatalf("status = %+v", status)
	}
}

func TestMoveMapDestroy(t *testing.T) {
	d := newFakeDaemon()
	d.surfaces = []compositor.SurfaceInfo{{ID: 7}}
	cs := connect(t, testServer(d))

	var out SurfaceOutput
	callTool(t, cs, "move_surface", map[string]any{"id": 7, "x": 12.5, "y": 30}, &out)
	if out.Action != "moved" || d.moved[7] != [2]float64{12.5, 30} {
		t.Fatalf("move: out=%+v moved=%v", out, d.moved)
	}

	callTool(t, cs, "map_surface", map[string]any{"id": 7, "map": false}, &out)
	if out.Action != "unmapped" || d.mapped[7] {
		t.Fatalf("unmap: out=%+v", out)
	}
	callTool(t, cs, "map_surface", map[string]any{"id": 7}, &out)
	if out.Action != "mapped" || !d.mapped[7] {
		t.Fatalf("map: out=%+v", out)
	}

	callTool(t, cs, "destroy_surface", map[string]any{"id": 7}, &out)
	if out.Action != "destroyed" || len(d.surfaces) != 0 {
		t.Fatalf("destroy: out=%+v surfaces=%v", out, d.surfaces)
	}

	res := callTool(t, cs, "destroy_surface", map[string]any{"id": 7}, nil)
	if !res.IsError {
		t.Fatal("destroying a missing surface should report a tool error")
	}
}

func TestTileSurfaces(t *testing.T) {
	d := newFakeDaemon()
	d.surfaces = []compositor.SurfaceInfo{{ID: 1}, {ID: 2}, {ID: 3}}
	cs := connect(t, testServer(d))

	var out TileSurfacesOutput
	callTool(t, cs, "tile_surfaces", map[string]any{"mode": "vertical", "gap": 4}, &out)
	if out.Tiled != 3 {
		t.Fatalf("tiled = %d, want 3", out.Tiled)
	}
	if len(d.tiled) != 1 || d.tiled[0].Mode != "vertical" || d.tiled[0].Gap == nil || *d.tiled[0].Gap != 4 {
		t.Fatalf("tile payload = %+v", d.tiled)
	}
}

func TestSpawnRejectsEmptySize(t *testing.T) {
	d := newFakeDaemon()
	s := testServer(d)

	_, _, err := s.handleSpawnSurface(context.Background(), nil, SpawnSurfaceInput{Width: 0, Height: 10})
	if err == nil {
		t.Fatal("expected error for zero width")
	}
	if len(d.spawned) != 0 {
		t.Fatal("daemon should not be called")
	}
}

func TestDaemonErrorsBecomeToolErrors(t *testing.T) {
	d := newFakeDaemon()
	d.err = errors.New("daemon not running")
	cs := connect(t, testServer(d))

	res := callTool(t, cs, "get_status", map[string]any{}, nil)
	if !res.IsError {
		t.Fatal("expected IsError")
	}
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok || text.Text != "daemon not running" {
		t.Fatalf("content = %#v", res.Content)
	}
}

var _ Daemon = (*ipc.Client)(nil)
