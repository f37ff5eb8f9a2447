package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// parseOutput reads the WxH+X+Y form the daemon reports for the output.
func parseOutput(s string) (platform.Rect, bool) {
	var r platform.Rect
	if _, err := fmt.Sscanf(s, "%dx%d+%d+%d", &r.Width, &r.Height, &r.X, &r.Y); err != nil {
		return platform.Rect{}, false
	}
	if r.Width <= 0 || r.Height <= 0 {
		return platform.Rect{}, false
	}
	return r, true
}

// renderSurfacePreview draws mapped surfaces onto a character canvas scaled
// from output, bottom of the stack first so upper surfaces overdraw.
func renderSurfacePreview(surfaces []compositor.SurfaceInfo, output platform.Rect, selected protocol.SurfaceID, width, height int) []string {
	if output.Width <= 0 || output.Height <= 0 || width < 5 || height < 3 {
		return emptyCanvas(width, height)
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, s := range stackOrder(surfaces) {
		r := platform.Rect{
			X:      int(math.Floor(s.X)) - output.X,
			Y:      int(math.Floor(s.Y)) - output.Y,
			Width:  s.Width,
			Height: s.Height,
		}
		label := fmt.Sprintf("%d", s.ID)
		if s.ID == selected {
			label = "*" + label
		}
		drawTile(canvas, r, label, output.Width, output.Height, width, height)
	}

	drawBorder(canvas, width, height)

	lines := make([]string, height)
	for i, row := range canvas {
		lines[i] = string(row)
	}
	return lines
}

// stackOrder returns mapped non-cursor surfaces sorted bottom to top.
func stackOrder(surfaces []compositor.SurfaceInfo) []compositor.SurfaceInfo {
	out := make([]compositor.SurfaceInfo, 0, len(surfaces))
	for _, s := range surfaces {
		if !s.Mapped || s.StackIndex < 0 || s.Role == "cursor" {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StackIndex < out[j].StackIndex })
	return out
}

func drawTile(canvas [][]rune, rect platform.Rect, label string, outW, outH, canvasW, canvasH int) {
	x1 := rect.X * canvasW / outW
	y1 := rect.Y * canvasH / outH
	x2 := (rect.X + rect.Width) * canvasW / outW
	y2 := (rect.Y + rect.Height) * canvasH / outH

	// The outer border occupies row/column 0 and the last ones.
	if x1 < 1 {
		x1 = 1
	}
	if y1 < 1 {
		y1 = 1
	}
	if x2 >= canvasW-1 {
		x2 = canvasW - 2
	}
	if y2 >= canvasH-1 {
		y2 = canvasH - 2
	}
	if x2 <= x1 || y2 <= y1 {
		return
	}

	// Clear the interior so lower surfaces are hidden.
	for y := y1 + 1; y < y2; y++ {
		for x := x1 + 1; x < x2; x++ {
			canvas[y][x] = ' '
		}
	}
	for x := x1; x <= x2; x++ {
		canvas[y1][x] = '─'
		canvas[y2][x] = '─'
	}
	for y := y1; y <= y2; y++ {
		canvas[y][x1] = '│'
		canvas[y][x2] = '│'
	}
	canvas[y1][x1] = '┌'
	canvas[y1][x2] = '┐'
	canvas[y2][x1] = '└'
	canvas[y2][x2] = '┘'

	centerY := (y1 + y2) / 2
	centerX := (x1 + x2) / 2
	if centerY > y1 && centerY < y2 {
		startX := centerX - len(label)/2
		for i, r := range label {
			if startX+i > x1 && startX+i < x2 {
				canvas[centerY][startX+i] = r
			}
		}
	}
}

func drawBorder(canvas [][]rune, width, height int) {
	for x := 0; x < width; x++ {
		canvas[0][x] = '═'
		canvas[height-1][x] = '═'
	}
	for y := 0; y < height; y++ {
		canvas[y][0] = '║'
		canvas[y][width-1] = '║'
	}
	canvas[0][0] = '╔'
	canvas[0][width-1] = '╗'
	canvas[height-1][0] = '╚'
	canvas[height-1][width-1] = '╝'
}

func emptyCanvas(width, height int) []string {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	lines := make([]string, height)
	empty := strings.Repeat(" ", width)
	for i := range lines {
		lines[i] = empty
	}
	return lines
}
