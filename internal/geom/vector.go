package geom

import "math"

// Vector is an integer 2D position or size in screen units.
type Vector struct {
	X int
	Y int
}

func Vec(x, y int) Vector { return Vector{X: x, Y: y} }

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y} }
func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y} }
func (v Vector) Mul(o Vector) Vector { return Vector{v.X * o.X, v.Y * o.Y} }

// Div divides per component. A zero divisor component yields zero.
func (v Vector) Div(o Vector) Vector {
	var r Vector
	if o.X != 0 {
		r.X = v.X / o.X
	}
	if o.Y != 0 {
		r.Y = v.Y / o.Y
	}
	return r
}

func (v Vector) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Distance is the Euclidean distance truncated toward zero.
func (v Vector) Distance(o Vector) int {
	dx := float64(o.X - v.X)
	dy := float64(o.Y - v.Y)
	return int(math.Sqrt(dx*dx + dy*dy))
}
