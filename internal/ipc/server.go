package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/runtimepath"
	"github.com/1broseidon/nestcomp/internal/tiling"
)

// Executor runs fn on the compositor goroutine and waits for it.
type Executor interface {
	Call(ctx context.Context, fn func() error) error
}

// ServerOptions wires the server to the compositor.
type ServerOptions struct {
	// SocketPath defaults to runtimepath.SocketPath().
	SocketPath string
	Compositor *compositor.Compositor
	Loop       Executor
	// Reload re-reads the config file and applies it. Called off the loop.
	Reload func() error
	// Layout returns the configured tiling layout.
	Layout func() tiling.Layout
	// RequestTimeout bounds how long a command may wait for the loop.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	comp       *compositor.Compositor
	loop       Executor
	reload     func() error
	layout     func() tiling.Layout
	timeout    time.Duration
	logger     *slog.Logger

	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Compositor == nil || opts.Loop == nil {
		return nil, errors.New("ipc: compositor and loop are required")
	}
	socketPath := opts.SocketPath
	if socketPath == "" {
		p, err := runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
		socketPath = p
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	layout := opts.Layout
	if layout == nil {
		layout = tiling.DefaultLayout
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	// Remove a stale socket left by a previous daemon.
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		comp:       opts.Compositor,
		loop:       opts.Loop,
		reload:     opts.Reload,
		layout:     layout,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			done := s.shuttingDown
			s.shutdownMu.Unlock()
			if done {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// handleConnection serves one newline-terminated JSON request.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	data, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		return
	}
	s.writeResponse(conn, s.handleCommand(req))
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) {
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Debug("failed to send response", "error", err)
	}
}

// handleCommand decodes the payload and runs the command on the loop.
func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command)
	var (
		data any
		err  error
	)
	switch req.Command {
	case CommandReload:
		err = s.handleReload()
	case CommandGetStatus:
		err = s.onLoop(func() error {
			data = s.comp.Status()
			return nil
		})
	case CommandListSurfaces:
		err = s.onLoop(func() error {
			data = SurfacesData{Surfaces: s.comp.Surfaces()}
			return nil
		})
	case CommandSpawnSurface:
		var p compositor.SpawnRequest
		if err = decodePayload(req, &p); err == nil {
			err = s.onLoop(func() error {
				info, err := s.comp.Spawn(p)
				data = info
				return err
			})
		}
	case CommandCommitSurface:
		var p CommitPayload
		if err = decodePayload(req, &p); err == nil {
			err = s.onLoop(func() error { return s.comp.CommitBuffer(p.ID, p.BufferRequest) })
		}
	case CommandMapSurface:
		err = s.surfaceCommand(req, s.comp.Map)
	case CommandUnmapSurface:
		err = s.surfaceCommand(req, s.comp.Unmap)
	case CommandDestroySurface:
		err = s.surfaceCommand(req, s.comp.Destroy)
	case CommandRaiseSurface:
		var p SurfacePayload
		if err = decodePayload(req, &p); err == nil {
			err = s.onLoop(func() error {
				raised, err := s.comp.Raise(p.ID)
				data = RaiseData{Raised: raised}
				return err
			})
		}
	case CommandMoveSurface:
		var p MovePayload
		if err = decodePayload(req, &p); err == nil {
			err = s.onLoop(func() error { return s.comp.Move(p.ID, platform.Point{X: p.X, Y: p.Y}) })
		}
	case CommandSetCursor:
		var p CursorPayload
		if err = decodePayload(req, &p); err == nil {
			err = s.onLoop(func() error { return s.comp.SetCursor(p.ID, p.HotspotX, p.HotspotY) })
		}
	case CommandTileSurfaces:
		var p TilePayload
		if err = decodePayload(req, &p); err == nil {
			var layout tiling.Layout
			if layout, err = s.tileLayout(p); err == nil {
				err = s.onLoop(func() error {
					n, err := s.comp.Tile(layout)
					data = TileData{Tiled: n}
					return err
				})
			}
		}
	case CommandDestroyClient:
		var p ClientPayload
		if err = decodePayload(req, &p); err == nil {
			err = s.onLoop(func() error {
				n, err := s.comp.DestroyClient(p.Client)
				data = DestroyClientData{Destroyed: n}
				return err
			})
		}
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}

	if err != nil {
		s.logger.Debug("IPC command failed", "command", req.Command, "error", err)
		return NewErrorResponse(err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) onLoop(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.loop.Call(ctx, fn)
}

func (s *Server) surfaceCommand(req *Request, fn func(id protocol.SurfaceID) error) error {
	var p SurfacePayload
	if err := decodePayload(req, &p); err != nil {
		return err
	}
	return s.onLoop(func() error { return fn(p.ID) })
}

func (s *Server) tileLayout(p TilePayload) (tiling.Layout, error) {
	layout := s.layout()
	if p.Mode != "" {
		mode, err := tiling.ParseMode(p.Mode)
		if err != nil {
			return tiling.Layout{}, err
		}
		layout.Mode = mode
	}
	if p.Gap != nil {
		if *p.Gap < 0 {
			return tiling.Layout{}, fmt.Errorf("gap must be >= 0")
		}
		layout.Gap = *p.Gap
	}
	if p.MasterWidthPercent != 0 {
		layout.MasterWidthPercent = p.MasterWidthPercent
	}
	return layout, nil
}

func (s *Server) handleReload() error {
	if s.reload == nil {
		return errors.New("reload is not supported")
	}
	s.logger.Info("IPC: reloading config")
	if err := s.reload(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	return nil
}

func decodePayload(req *Request, out any) error {
	if len(req.Payload) == 0 {
		return fmt.Errorf("%s requires a payload", req.Command)
	}
	if err := json.Unmarshal(req.Payload, out); err != nil {
		return fmt.Errorf("invalid %s payload: %w", req.Command, err)
	}
	return nil
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
		s.wg.Wait()
	}
	os.Remove(s.socketPath)
}
