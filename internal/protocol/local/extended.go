package local

import (
	"log/slog"

	"github.com/1broseidon/nestcomp/internal/protocol"
)

// ExtendedSurface records the visibility it was last told about.
type ExtendedSurface struct {
	id      protocol.SurfaceID
	logger  *slog.Logger
	visible bool
	changes int
}

var _ protocol.ExtendedSurface = (*ExtendedSurface)(nil)

// NewExtendedSurface creates the extension for a surface.
func NewExtendedSurface(id protocol.SurfaceID, logger *slog.Logger) *ExtendedSurface {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtendedSurface{id: id, logger: logger}
}

func (e *ExtendedSurface) SendOnScreenVisibilityChange(visible bool) {
	e.visible = visible
	e.changes++
	e.logger.Info("surface visibility", "surface", e.id, "visible", visible)
}

// Visible is the last visibility sent.
func (e *ExtendedSurface) Visible() bool { return e.visible }

// Changes counts notifications received.
func (e *ExtendedSurface) Changes() int { return e.changes }
