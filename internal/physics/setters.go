package physics

import (
	"math"
	"math/rand"
)

// PositionSetter chooses where a particle of the given type spawns.
type PositionSetter interface {
	SetPosition(p *Vec, typ, nTypes int)
}

// TypeSetter chooses a particle's new type from its state and previous type.
type TypeSetter interface {
	NextType(pos, vel Vec, typ, nTypes int) int
}

// PositionFunc adapts a function to PositionSetter.
type PositionFunc func(p *Vec, typ, nTypes int)

func (f PositionFunc) SetPosition(p *Vec, typ, nTypes int) { f(p, typ, nTypes) }

// TypeFunc adapts a function to TypeSetter.
type TypeFunc func(pos, vel Vec, typ, nTypes int) int

func (f TypeFunc) NextType(pos, vel Vec, typ, nTypes int) int { return f(pos, vel, typ, nTypes) }

// UniformPositions spreads particles uniformly over [-1, 1)².
func UniformPositions(rng *rand.Rand) PositionSetter {
	return PositionFunc(func(p *Vec, _, _ int) {
		p.X = 2*rng.Float64() - 1
		p.Y = 2*rng.Float64() - 1
	})
}

// CenteredPositions clusters particles around the origin.
func CenteredPositions(rng *rand.Rand) PositionSetter {
	return PositionFunc(func(p *Vec, _, _ int) {
		p.X = Clamp(rng.NormFloat64() * 0.3)
		p.Y = Clamp(rng.NormFloat64() * 0.3)
	})
}

// RingPositions puts each type on a ring, types spread around the circle.
func RingPositions(rng *rand.Rand) PositionSetter {
	return PositionFunc(func(p *Vec, typ, nTypes int) {
		if nTypes < 1 {
			nTypes = 1
		}
		sector := 2 * math.Pi / float64(nTypes)
		angle := sector*float64(typ) + sector*rng.Float64()
		radius := 0.7 + 0.1*rng.NormFloat64()
		p.X = Clamp(radius * math.Cos(angle))
		p.Y = Clamp(radius * math.Sin(angle))
	})
}

// RandomTypes ignores the previous type and picks one uniformly.
func RandomTypes(rng *rand.Rand) TypeSetter {
	return TypeFunc(func(_, _ Vec, _, nTypes int) int {
		if nTypes < 1 {
			return 0
		}
		return rng.Intn(nTypes)
	})
}

// KeepTypes keeps the previous type, folding it into range when the number
// of types shrank.
func KeepTypes() TypeSetter {
	return TypeFunc(func(_, _ Vec, typ, nTypes int) int {
		if nTypes < 1 {
			return 0
		}
		return typ % nTypes
	})
}
