package ipc

import (
	"context"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/cursor"
	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/reactor"
	"github.com/1broseidon/nestcomp/internal/render"
	"github.com/1broseidon/nestcomp/internal/render/soft"
	"github.com/1broseidon/nestcomp/internal/tiling"
)

type nopSink struct{}

func (nopSink) SetCursor(cursor.Image) error    { return nil }
func (nopSink) ChangeCursor(cursor.Image) error { return nil }

type harness struct {
	client  *Client
	comp    *compositor.Compositor
	reloads atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := reactor.New(logger)
	comp := compositor.New(compositor.Options{
		Logger:     logger,
		Bounds:     func() platform.Rect { return platform.Rect{Width: 400, Height: 300} },
		Device:     soft.New(),
		Presenter:  render.PresenterFunc(func(image.Image) error { return nil }),
		Poster:     loop,
		CursorSink: nopSink{},
		Policy: compositor.Policy{
			StickyTopLeft:           true,
			AutomaticFrameCallbacks: true,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	h := &harness{comp: comp}
	socket := filepath.Join(t.TempDir(), "nc.sock")
	srv, err := NewServer(ServerOptions{
		SocketPath: socket,
		Compositor: comp,
		Loop:       loop,
		Reload: func() error {
			h.reloads.Add(1)
			return nil
		},
		Layout: func() tiling.Layout { return tiling.Layout{Mode: tiling.ModeGrid, Gap: 10} },
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		srv.Stop()
		cancel()
		<-loop.Done()
		comp.Close()
	})
	h.client = NewClientWithSocket(socket)
	return h
}

func (h *harness) spawn(t *testing.T, req compositor.SpawnRequest) *compositor.SurfaceInfo {
	t.Helper()
	info, err := h.client.Spawn(req)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	return info
}

func ids(infos []compositor.SurfaceInfo) []protocol.SurfaceID {
	var out []protocol.SurfaceID
	for _, in := range infos {
		out = append(out, in.ID)
	}
	return out
}

func TestSpawnListAndRaise(t *testing.T) {
	h := newHarness(t)
	a := h.spawn(t, compositor.SpawnRequest{Width: 100, Height: 80, Map: true})
	b := h.spawn(t, compositor.SpawnRequest{Width: 100, Height: 80, Map: true})
	if !a.Mapped || a.X != 0 || a.Y != 0 {
		t.Fatalf("spawned a = %+v", a)
	}

	list, err := h.client.ListSurfaces()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]protocol.SurfaceID{a.ID, b.ID}, ids(list)); diff != "" {
		t.Fatalf("stack (-want +got):\n%s", diff)
	}

	raised, err := h.client.Raise(a.ID)
	if err != nil || !raised {
		t.Fatalf("raise a = %v, %v", raised, err)
	}
	raised, err = h.client.Raise(a.ID)
	if err != nil || raised {
		t.Fatalf("raising the topmost surface = %v, %v; want false", raised, err)
	}

	list, err = h.client.ListSurfaces()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]protocol.SurfaceID{b.ID, a.ID}, ids(list)); diff != "" {
		t.Fatalf("stack after raise (-want +got):\n%s", diff)
	}

	status, err := h.client.GetStatus()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Surfaces != 2 || status.Mapped != 2 || status.KeyboardFocus != b.ID {
		t.Fatalf("status = %+v", status)
	}
}

func TestMoveUnmapDestroy(t *testing.T) {
	h := newHarness(t)
	a := h.spawn(t, compositor.SpawnRequest{Width: 50, Height: 50, Map: true})

	if err := h.client.Move(a.ID, 120, 40); err != nil {
		t.Fatalf("move: %v", err)
	}
	list, _ := h.client.ListSurfaces()
	if len(list) != 1 || list[0].X != 120 || list[0].Y != 40 {
		t.Fatalf("after move = %+v", list)
	}

	if err := h.client.Unmap(a.ID); err != nil {
		t.Fatalf("unmap: %v", err)
	}
	list, _ = h.client.ListSurfaces()
	if list[0].Mapped || list[0].StackIndex != -1 {
		t.Fatalf("after unmap = %+v", list[0])
	}
	if err := h.client.Map(a.ID); err != nil {
		t.Fatalf("map: %v", err)
	}
	if err := h.client.Commit(a.ID, compositor.BufferRequest{Width: 60, Height: 30, Pattern: "checker"}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	list, _ = h.client.ListSurfaces()
	if list[0].Width != 60 || list[0].Generation != 2 {
		t.Fatalf("after commit = %+v", list[0])
	}

	if err := h.client.Destroy(a.ID); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := h.client.Destroy(a.ID); err == nil {
		t.Fatalf("expected error destroying an unknown surface")
	}
}

func TestTileAndDestroyClient(t *testing.T) {
	h := newHarness(t)
	a := h.spawn(t, compositor.SpawnRequest{ClientName: "demo", Width: 100, Height: 100, Map: true})
	h.spawn(t, compositor.SpawnRequest{Client: a.Client, Width: 100, Height: 100, Map: true})

	n, err := h.client.Tile(TilePayload{Mode: "horizontal"})
	if err != nil || n != 2 {
		t.Fatalf("tile = %d, %v", n, err)
	}
	if _, err := h.client.Tile(TilePayload{Mode: "spiral"}); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}

	destroyed, err := h.client.DestroyClient(a.Client)
	if err != nil || destroyed != 2 {
		t.Fatalf("destroy client = %d, %v", destroyed, err)
	}
	list, err := h.client.ListSurfaces()
	if err != nil || len(list) != 0 {
		t.Fatalf("surfaces after destroy client = %v, %v", list, err)
	}
}

func TestSetCursorAndReload(t *testing.T) {
	h := newHarness(t)
	cur := h.spawn(t, compositor.SpawnRequest{Role: "cursor", Width: 16, Height: 16, HotspotX: 2, HotspotY: 3})
	status, err := h.client.GetStatus()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CursorSurface != cur.ID || status.CursorHotspot != [2]int{2, 3} {
		t.Fatalf("cursor status = %+v", status)
	}
	if err := h.client.SetCursor(0, 0, 0); err != nil {
		t.Fatalf("clear cursor: %v", err)
	}

	if err := h.client.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n := h.reloads.Load(); n != 1 {
		t.Fatalf("reloads = %d", n)
	}
}

func TestErrors(t *testing.T) {
	h := newHarness(t)
	if err := h.client.call("NOPE", nil, nil); err == nil || !strings.Contains(err.Error(), "Unknown command") {
		t.Fatalf("unknown command error = %v", err)
	}
	if err := h.client.call(CommandMoveSurface, nil, nil); err == nil || !strings.Contains(err.Error(), "requires a payload") {
		t.Fatalf("missing payload error = %v", err)
	}
	if _, err := h.client.Spawn(compositor.SpawnRequest{Role: "popup", Parent: 99, Width: 10, Height: 10}); err == nil {
		t.Fatalf("expected popup with unknown parent to fail")
	}
}

func TestClientWithoutDaemon(t *testing.T) {
	c := NewClientWithSocket(filepath.Join(t.TempDir(), "missing.sock"))
	err := c.Ping()
	if err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("ping error = %v", err)
	}
}
