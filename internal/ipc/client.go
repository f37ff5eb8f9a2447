package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/protocol"
	"github.com/1broseidon/nestcomp/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithSocket(socketPath)
}

// NewClientWithSocket creates a client for an explicit socket path.
func NewClientWithSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	respData, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// call sends command with an optional payload and decodes the reply data
// into out when out is non-nil.
func (c *Client) call(command CommandType, payload any, out any) error {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = data
	}
	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Reload asks the daemon to re-read its config file.
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*compositor.Status, error) {
	var status compositor.Status
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListSurfaces returns every surface, mapped ones in stacking order first.
func (c *Client) ListSurfaces() ([]compositor.SurfaceInfo, error) {
	var data SurfacesData
	if err := c.call(CommandListSurfaces, nil, &data); err != nil {
		return nil, err
	}
	return data.Surfaces, nil
}

func (c *Client) Spawn(req compositor.SpawnRequest) (*compositor.SurfaceInfo, error) {
	var info compositor.SurfaceInfo
	if err := c.call(CommandSpawnSurface, req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Commit(id protocol.SurfaceID, buf compositor.BufferRequest) error {
	return c.call(CommandCommitSurface, CommitPayload{ID: id, BufferRequest: buf}, nil)
}

func (c *Client) Map(id protocol.SurfaceID) error {
	return c.call(CommandMapSurface, SurfacePayload{ID: id}, nil)
}

func (c *Client) Unmap(id protocol.SurfaceID) error {
	return c.call(CommandUnmapSurface, SurfacePayload{ID: id}, nil)
}

func (c *Client) Destroy(id protocol.SurfaceID) error {
	return c.call(CommandDestroySurface, SurfacePayload{ID: id}, nil)
}

// Raise moves a mapped surface to the top. It reports false when the
// surface was already topmost.
func (c *Client) Raise(id protocol.SurfaceID) (bool, error) {
	var data RaiseData
	if err := c.call(CommandRaiseSurface, SurfacePayload{ID: id}, &data); err != nil {
		return false, err
	}
	return data.Raised, nil
}

func (c *Client) Move(id protocol.SurfaceID, x, y float64) error {
	return c.call(CommandMoveSurface, MovePayload{ID: id, X: x, Y: y}, nil)
}

// SetCursor designates the cursor surface; id 0 clears it.
func (c *Client) SetCursor(id protocol.SurfaceID, hotspotX, hotspotY int) error {
	return c.call(CommandSetCursor, CursorPayload{ID: id, HotspotX: hotspotX, HotspotY: hotspotY}, nil)
}

// Tile arranges mapped toplevels and returns how many were placed.
func (c *Client) Tile(p TilePayload) (int, error) {
	var data TileData
	if err := c.call(CommandTileSurfaces, p, &data); err != nil {
		return 0, err
	}
	return data.Tiled, nil
}

// DestroyClient destroys every surface of a client.
func (c *Client) DestroyClient(id protocol.ClientID) (int, error) {
	var data DestroyClientData
	if err := c.call(CommandDestroyClient, ClientPayload{Client: id}, &data); err != nil {
		return 0, err
	}
	return data.Destroyed, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
