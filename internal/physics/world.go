package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/plife/internal/matrix"
)

// Particle is a single point of the world.
type Particle struct {
	Pos  Vec `json:"pos"`
	Vel  Vec `json:"vel"`
	Type int `json:"type"`
}

// Settings are the physical parameters of a World.
type Settings struct {
	// RMax is the interaction radius in world units.
	RMax float64
	// Beta is the fraction of RMax inside which particles always repel.
	Beta float64
	// Force scales all accelerations.
	Force float64
	// FrictionHalfLife is the time in seconds for velocity to halve.
	FrictionHalfLife float64
	// Wrap makes the world a torus; otherwise particles are clamped to the edges.
	Wrap bool
	// Workers bounds the goroutines computing forces. Zero uses GOMAXPROCS.
	Workers int
}

// DefaultSettings returns the classic particle-life parameters.
func DefaultSettings() Settings {
	return Settings{
		RMax:             0.1,
		Beta:             0.3,
		Force:            1.0,
		FrictionHalfLife: 0.04,
		Wrap:             true,
	}
}

// Validate checks that the settings can produce a stable world.
func (s Settings) Validate() error {
	if s.RMax <= 0 {
		return fmt.Errorf("%w: rmax must be positive, got %f", ErrInvalidSettings, s.RMax)
	}
	if s.Beta <= 0 || s.Beta >= 1 {
		return fmt.Errorf("%w: beta must be in (0, 1), got %f", ErrInvalidSettings, s.Beta)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidSettings, s.Workers)
	}
	if s.FrictionHalfLife <= 0 {
		return fmt.Errorf("%w: friction half-life must be positive, got %f", ErrInvalidSettings, s.FrictionHalfLife)
	}
	return nil
}

// World is a particle-life simulation. It is not safe for concurrent use;
// drive it from a single goroutine such as a loop worker.
type World struct {
	settings  Settings
	matrix    matrix.Matrix
	positions PositionSetter
	types     TypeSetter

	particles []Particle
	acc       []Vec
	steps     uint64
	time      float64
}

// NewWorld creates n particles of m.Size() types using the given setters.
func NewWorld(s Settings, m matrix.Matrix, n int, positions PositionSetter, types TypeSetter) (*World, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if m == nil || m.Size() < 1 {
		return nil, ErrNoTypes
	}
	if n < 0 {
		return nil, fmt.Errorf("particle count must not be negative, got %d", n)
	}
	w := &World{
		settings:  s,
		matrix:    m,
		positions: positions,
		types:     types,
	}
	w.SetCount(n)
	return w, nil
}

// Step advances the world by dt seconds.
func (w *World) Step(dt float64) {
	n := len(w.particles)
	if n == 0 || dt <= 0 {
		w.steps++
		return
	}

	s := w.settings
	friction := math.Pow(0.5, dt/s.FrictionHalfLife)
	if cap(w.acc) < n {
		w.acc = make([]Vec, n)
	}
	acc := w.acc[:n]

	parallelFor(n, s.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			acc[i] = w.accelerate(i)
		}
	})

	for i := range w.particles {
		p := &w.particles[i]
		p.Vel = p.Vel.Scale(friction).Add(acc[i].Scale(dt))
		p.Pos = p.Pos.Add(p.Vel.Scale(dt))
		if s.Wrap {
			p.Pos = WrapVec(p.Pos)
		} else {
			p.Pos = ClampVec(p.Pos)
		}
	}

	w.steps++
	w.time += dt
}

// accelerate sums the forces of every neighbour within RMax on particle i.
func (w *World) accelerate(i int) Vec {
	s := w.settings
	p := &w.particles[i]
	var total Vec
	for j := range w.particles {
		if i == j {
			continue
		}
		q := &w.particles[j]
		d := q.Pos.Sub(p.Pos)
		if s.Wrap {
			d = WrapVec(d)
		}
		r := d.Len()
		if r == 0 || r >= s.RMax {
			continue
		}
		f := force(r/s.RMax, w.matrix.Get(p.Type, q.Type), s.Beta)
		total = total.Add(d.Scale(f / r))
	}
	return total.Scale(s.RMax * s.Force)
}

// force is the particle-life force profile at normalised distance r in
// (0, 1): universal repulsion below beta, then a tent of height a.
func force(r, a, beta float64) float64 {
	if r < beta {
		return r/beta - 1
	}
	return a * (1 - math.Abs(2*r-1-beta)/(1-beta))
}

// SetMatrix replaces the interaction matrix. When the number of types
// changes, every particle is retyped.
func (w *World) SetMatrix(m matrix.Matrix) error {
	if m == nil || m.Size() < 1 {
		return ErrNoTypes
	}
	resize := m.Size() != w.matrix.Size()
	w.matrix = m
	if resize {
		w.Retype()
	}
	return nil
}

// Matrix returns a copy of the interaction matrix.
func (w *World) Matrix() matrix.Matrix { return w.matrix.Clone() }

// Types returns the number of particle types.
func (w *World) Types() int { return w.matrix.Size() }

// Count returns the number of particles.
func (w *World) Count() int { return len(w.particles) }

// Steps returns the number of Step calls.
func (w *World) Steps() uint64 { return w.steps }

// Time returns the simulated seconds elapsed.
func (w *World) Time() float64 { return w.time }

// Settings returns the physical parameters.
func (w *World) Settings() Settings { return w.settings }

// SetSettings replaces the physical parameters.
func (w *World) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	w.settings = s
	return nil
}

// SetCount grows or shrinks the world to n particles. New particles get a
// type from the type setter and a position from the position setter.
func (w *World) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	if n <= len(w.particles) {
		w.particles = w.particles[:n]
		return
	}
	nTypes := w.matrix.Size()
	for len(w.particles) < n {
		var p Particle
		p.Type = w.types.NextType(p.Pos, p.Vel, 0, nTypes)
		w.positions.SetPosition(&p.Pos, p.Type, nTypes)
		w.particles = append(w.particles, p)
	}
}

// Respawn places every particle anew and stops it.
func (w *World) Respawn() {
	nTypes := w.matrix.Size()
	for i := range w.particles {
		p := &w.particles[i]
		w.positions.SetPosition(&p.Pos, p.Type, nTypes)
		p.Vel = Vec{}
	}
}

// Retype asks the type setter for a new type for every particle.
func (w *World) Retype() {
	nTypes := w.matrix.Size()
	for i := range w.particles {
		p := &w.particles[i]
		p.Type = w.types.NextType(p.Pos, p.Vel, p.Type, nTypes)
	}
}

// SetPositionSetter replaces the strategy used by Respawn and SetCount.
func (w *World) SetPositionSetter(ps PositionSetter) { w.positions = ps }

// SetTypeSetter replaces the strategy used by Retype and SetCount.
func (w *World) SetTypeSetter(ts TypeSetter) { w.types = ts }

// Snapshot is an immutable copy of the world for other goroutines.
type Snapshot struct {
	Particles []Particle
	Types     int
	Steps     uint64
	Time      float64
}

// Snapshot copies the current particles.
func (w *World) Snapshot() *Snapshot {
	return &Snapshot{
		Particles: append([]Particle(nil), w.particles...),
		Types:     w.matrix.Size(),
		Steps:     w.steps,
		Time:      w.time,
	}
}

// KineticEnergy returns Σ½|v|² over all particles.
func (w *World) KineticEnergy() float64 {
	var e float64
	for _, p := range w.particles {
		e += 0.5 * (p.Vel.X*p.Vel.X + p.Vel.Y*p.Vel.Y)
	}
	return e
}
