package platform

import (
	"fmt"
	"math"
)

// Point is a position in output (screen) coordinates. Pointer input and
// requested view positions are fractional, so points are float64.
type Point struct {
	X float64
	Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Round snaps the point to the integer pixel grid.
func (p Point) Round() (int, int) {
	return int(math.Round(p.X)), int(math.Round(p.Y))
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RectAt builds the pixel rectangle of the given size whose top-left corner
// is pos rounded to the pixel grid.
func RectAt(pos Point, size Size) Rect {
	x, y := pos.Round()
	return Rect{X: x, Y: y, Width: size.Width, Height: size.Height}
}

// Size returns the rectangle dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersect returns the overlapping region of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.Width, o.X+o.Width)
	y2 := min(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Intersects reports whether r and o share at least one pixel.
func (r Rect) Intersects(o Rect) bool {
	return !r.Intersect(o).Empty()
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// ContainsPoint reports whether p lies inside the half-open rectangle
// [pos, pos+size) anchored at a fractional origin.
func ContainsPoint(pos Point, size Size, p Point) bool {
	return p.X >= pos.X && p.X < pos.X+float64(size.Width) &&
		p.Y >= pos.Y && p.Y < pos.Y+float64(size.Height)
}
