package physics

import "math"

// Vec is a 2D position or velocity. The world spans [-1, 1] on both axes.
type Vec struct {
	X, Y float64
}

func (v Vec) Add(o Vec) Vec          { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec          { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(s float64) Vec    { return Vec{v.X * s, v.Y * s} }
func (v Vec) Len() float64           { return math.Hypot(v.X, v.Y) }
func (v Vec) InRange(wrap bool) bool { return inRange(v.X, wrap) && inRange(v.Y, wrap) }

func inRange(x float64, wrap bool) bool {
	if wrap {
		return x >= -1 && x < 1
	}
	return x >= -1 && x <= 1
}

// Wrap maps x into [-1, 1) by adding or subtracting multiples of 2.
func Wrap(x float64) float64 {
	r := math.Mod(x+1, 2)
	if r < 0 {
		r += 2
	}
	// Mod can round a tiny negative up to exactly 2.
	if r >= 2 {
		r = 0
	}
	return r - 1
}

// Clamp limits x to [-1, 1].
func Clamp(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

// WrapVec wraps both coordinates. The shortest offset from a to b in a
// wrapping world is WrapVec(b.Sub(a)).
func WrapVec(v Vec) Vec { return Vec{Wrap(v.X), Wrap(v.Y)} }

// ClampVec clamps both coordinates.
func ClampVec(v Vec) Vec { return Vec{Clamp(v.X), Clamp(v.Y)} }
