package tiling

import (
	"fmt"
	"math"
	"strings"

	"github.com/1broseidon/nestcomp/internal/platform"
)

// Mode selects how slots are laid out.
type Mode string

const (
	ModeGrid        Mode = "grid"
	ModeVertical    Mode = "vertical"
	ModeHorizontal  Mode = "horizontal"
	ModeMasterStack Mode = "master-stack"
)

// ParseMode accepts a mode name, defaulting to grid.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeGrid, nil
	case ModeGrid, ModeVertical, ModeHorizontal, ModeMasterStack:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported layout mode: %q", s)
	}
}

// Layout configures a tiling pass.
type Layout struct {
	Mode Mode
	Gap  int
	// MasterWidthPercent is the master pane width for ModeMasterStack.
	MasterWidthPercent int
}

// DefaultLayout is a grid with a 10 pixel gap.
func DefaultLayout() Layout {
	return Layout{Mode: ModeGrid, Gap: 10, MasterWidthPercent: 60}
}

// CalculateGrid determines the optimal grid dimensions for the given number of windows
func CalculateGrid(numWindows int) (rows, cols int) {
	if numWindows == 0 {
		return 0, 0
	}

	// Calculate columns first (ceiling of square root)
	cols = int(math.Ceil(math.Sqrt(float64(numWindows))))

	// Calculate rows needed
	rows = int(math.Ceil(float64(numWindows) / float64(cols)))

	return rows, cols
}

// CalculatePositions computes slots for a rows x cols grid with gaps
func CalculatePositions(numWindows int, area platform.Rect, rows, cols, gapSize int) ([]platform.Rect, error) {
	if numWindows == 0 {
		return nil, nil
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions: rows=%d cols=%d", rows, cols)
	}

	// Gaps: one before each column and one after the last.
	totalHorizontalGaps := (cols + 1) * gapSize
	totalVerticalGaps := (rows + 1) * gapSize

	cellWidth := (area.Width - totalHorizontalGaps) / cols
	cellHeight := (area.Height - totalVerticalGaps) / rows
	if cellWidth <= 0 || cellHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for layout: area=%dx%d rows=%d cols=%d gap=%d (slot=%dx%d)",
			area.Width, area.Height, rows, cols, gapSize, cellWidth, cellHeight,
		)
	}

	positions := make([]platform.Rect, numWindows)
	for i := 0; i < numWindows; i++ {
		row := i / cols
		col := i % cols

		positions[i] = platform.Rect{
			X:      area.X + gapSize + col*(cellWidth+gapSize),
			Y:      area.Y + gapSize + row*(cellHeight+gapSize),
			Width:  cellWidth,
			Height: cellHeight,
		}
	}

	return positions, nil
}

// Slots computes one slot per window for the layout.
func Slots(numWindows int, area platform.Rect, layout Layout) ([]platform.Rect, error) {
	if numWindows == 0 {
		return nil, nil
	}
	gap := max(layout.Gap, 0)

	switch layout.Mode {
	case ModeGrid, "":
		rows, cols := CalculateGrid(numWindows)
		return CalculatePositions(numWindows, area, rows, cols, gap)
	case ModeVertical:
		return CalculatePositions(numWindows, area, numWindows, 1, gap)
	case ModeHorizontal:
		return CalculatePositions(numWindows, area, 1, numWindows, gap)
	case ModeMasterStack:
		return masterStack(numWindows, area, layout, gap)
	default:
		return nil, fmt.Errorf("unsupported layout mode: %q", layout.Mode)
	}
}

func masterStack(numWindows int, area platform.Rect, layout Layout, gap int) ([]platform.Rect, error) {
	percent := layout.MasterWidthPercent
	if percent <= 0 || percent >= 100 {
		percent = 60
	}
	masterWidth := (area.Width * percent / 100) - gap
	stackHeight := area.Height - 2*gap

	if numWindows == 1 {
		return []platform.Rect{{
			X:      area.X + gap,
			Y:      area.Y + gap,
			Width:  area.Width - 2*gap,
			Height: stackHeight,
		}}, nil
	}

	// Right region holds the remaining windows in a single column.
	stack := platform.Rect{
		X:      area.X + masterWidth + gap,
		Y:      area.Y,
		Width:  area.Width - masterWidth - gap,
		Height: area.Height,
	}
	rest, err := CalculatePositions(numWindows-1, stack, numWindows-1, 1, gap)
	if err != nil {
		return nil, err
	}
	if masterWidth <= 0 || stackHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for master-stack layout: area=%dx%d masterWidth=%d gap=%d",
			area.Width, area.Height, masterWidth, gap,
		)
	}

	positions := make([]platform.Rect, 0, numWindows)
	positions = append(positions, platform.Rect{
		X:      area.X + gap,
		Y:      area.Y + gap,
		Width:  masterWidth,
		Height: stackHeight,
	})
	return append(positions, rest...), nil
}

// Place returns the top-left corner that centres a surface of the given
// size inside slot. Surfaces larger than the slot are pinned to its corner.
func Place(slot platform.Rect, size platform.Size) platform.Point {
	x, y := slot.X, slot.Y
	if size.Width < slot.Width {
		x += (slot.Width - size.Width) / 2
	}
	if size.Height < slot.Height {
		y += (slot.Height - size.Height) / 2
	}
	return platform.Point{X: float64(x), Y: float64(y)}
}
