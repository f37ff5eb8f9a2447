package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/ipc"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// Daemon is the subset of the IPC client the TUI drives.
type Daemon interface {
	GetStatus() (*compositor.Status, error)
	ListSurfaces() ([]compositor.SurfaceInfo, error)
	Raise(id protocol.SurfaceID) (bool, error)
	Map(id protocol.SurfaceID) error
	Unmap(id protocol.SurfaceID) error
	Destroy(id protocol.SurfaceID) error
	Tile(p ipc.TilePayload) (int, error)
	Spawn(req compositor.SpawnRequest) (*compositor.SurfaceInfo, error)
}

// Run starts the surface browser against daemon and blocks until the user
// quits.
func Run(daemon Daemon) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	p := tea.NewProgram(newModel(daemon), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
