package nerts

import (
	"fmt"
	"math"
)

// Position is a point in board units.
type Position struct {
	X int16
	Y int16
}

func Pos(x, y int16) Position { return Position{X: x, Y: y} }

func (p Position) Add(o Position) Position { return Position{X: p.X + o.X, Y: p.Y + o.Y} }

func (p Position) Sub(o Position) Position { return Position{X: p.X - o.X, Y: p.Y - o.Y} }

// Within reports whether p lies in the half-open box [origin, origin+size).
func (p Position) Within(origin, size Position) bool {
	return p.X >= origin.X && p.X < origin.X+size.X &&
		p.Y >= origin.Y && p.Y < origin.Y+size.Y
}

func (p Position) Distance(o Position) float64 {
	dx := float64(p.X) - float64(o.X)
	dy := float64(p.Y) - float64(o.Y)
	return math.Hypot(dx, dy)
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }
