// Package experiment builds a particle-life world from a config and drives
// it with a loop.
//
// The world and its random source belong to the loop worker once Start has
// been called. Everything that changes them is sent as a loop command, and
// readers on other goroutines use the published [State].
package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/san-kum/plife/internal/clock"
	"github.com/san-kum/plife/internal/config"
	"github.com/san-kum/plife/internal/loop"
	"github.com/san-kum/plife/internal/matrix"
	"github.com/san-kum/plife/internal/physics"
)

// State is what the worker last published.
type State struct {
	*physics.Snapshot
	Matrix matrix.Matrix
	Energy float64
}

// Experiment owns a particle-life world and the loop that steps it.
type Experiment struct {
	cfg  *config.Config
	reg  *Registry
	log  zerolog.Logger
	loop *loop.Loop

	// owned by the worker while running
	rng   *rand.Rand
	world *physics.World
	gen   matrix.Generator

	state atomic.Pointer[State]
}

// New builds the world described by cfg. Extra options are applied after the
// ones derived from cfg.
func New(cfg *config.Config, log zerolog.Logger, opts ...loop.Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := NewRegistry()
	rng := rand.New(rand.NewSource(cfg.World.Seed))

	gen, err := reg.GetGenerator(cfg.World.Matrix, rng)
	if err != nil {
		return nil, err
	}
	positions, err := reg.GetPositions(cfg.World.Positions, rng)
	if err != nil {
		return nil, err
	}
	types, err := reg.GetTypeSetter(cfg.World.TypeSetter, rng)
	if err != nil {
		return nil, err
	}

	w := cfg.World
	settings := physics.Settings{
		RMax:             w.RMax,
		Beta:             w.Beta,
		Force:            w.Force,
		FrictionHalfLife: w.FrictionHalfLife,
		Wrap:             w.Wrap,
		Workers:          w.Workers,
	}
	world, err := physics.NewWorld(settings, gen.Generate(w.Types), w.Particles, positions, types)
	if err != nil {
		return nil, fmt.Errorf("create world: %w", err)
	}

	all := append([]loop.Option{
		loop.WithWindow(cfg.Loop.Window),
		loop.WithMaxDt(cfg.Loop.MaxDt),
		loop.WithLogger(log),
	}, opts...)
	l := loop.New(all...)
	l.SetPaused(cfg.Loop.Paused)

	e := &Experiment{
		cfg:   cfg.Clone(),
		reg:   reg,
		log:   log,
		loop:  l,
		rng:   rng,
		world: world,
		gen:   gen,
	}
	e.publish()
	return e, nil
}

// Loop exposes the controller for pausing and statistics.
func (e *Experiment) Loop() *loop.Loop { return e.loop }

// Config returns a copy of the config the experiment was built from.
func (e *Experiment) Config() *config.Config { return e.cfg.Clone() }

// State returns the most recently published state. It never returns nil.
func (e *Experiment) State() *State { return e.state.Load() }

// Start launches the loop worker with the world step.
func (e *Experiment) Start() error {
	return e.loop.Start(e.step)
}

// Stop stops the loop using the configured timeout.
func (e *Experiment) Stop() (bool, error) {
	return e.loop.Stop(e.cfg.StopTimeout())
}

// Run starts the loop and blocks until ctx is done or the worker fails, then
// stops it.
func (e *Experiment) Run(ctx context.Context) error {
	if err := e.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-e.loop.Done():
	}
	stopped, err := e.Stop()
	if err != nil {
		return err
	}
	if !stopped {
		return fmt.Errorf("loop did not stop within %v", e.cfg.StopTimeout())
	}
	return nil
}

func (e *Experiment) step(dt float64) {
	e.world.Step(dt)
	e.publish()
}

func (e *Experiment) publish() {
	e.state.Store(&State{
		Snapshot: e.world.Snapshot(),
		Matrix:   e.world.Matrix(),
		Energy:   e.world.KineticEnergy(),
	})
}

// RegenerateMatrix replaces the interaction matrix with a fresh one from the
// current generator. Repeated calls before the worker gets to them collapse
// into one.
func (e *Experiment) RegenerateMatrix() {
	e.loop.DoOnce(func() {
		e.setMatrix(e.gen.Generate(e.world.Types()))
	})
}

// UseGenerator switches the matrix generator and regenerates the matrix.
func (e *Experiment) UseGenerator(name string) error {
	if _, err := e.reg.GetGenerator(name, nil); err != nil {
		return err
	}
	e.loop.DoOnce(func() {
		gen, _ := e.reg.GetGenerator(name, e.rng)
		e.gen = gen
		e.setMatrix(gen.Generate(e.world.Types()))
	})
	return nil
}

// SetTypes regenerates the matrix with n types, retyping every particle.
func (e *Experiment) SetTypes(n int) {
	if n < 1 {
		n = 1
	}
	e.loop.DoOnce(func() {
		e.setMatrix(e.gen.Generate(n))
	})
}

func (e *Experiment) setMatrix(m matrix.Matrix) {
	if err := e.world.SetMatrix(m); err != nil {
		e.log.Warn().Err(err).Msg("matrix rejected")
		return
	}
	e.log.Debug().Int("types", m.Size()).Msg("matrix replaced")
	e.publish()
}

// Respawn places every particle anew.
func (e *Experiment) Respawn() {
	e.loop.Enqueue(func() {
		e.world.Respawn()
		e.publish()
	})
}

// SetCount resizes the world to n particles.
func (e *Experiment) SetCount(n int) {
	e.loop.Enqueue(func() {
		e.world.SetCount(n)
		e.publish()
	})
}

// AddParticles grows or shrinks the world by delta particles. Queued calls
// compose in order.
func (e *Experiment) AddParticles(delta int) {
	e.loop.Enqueue(func() {
		e.world.SetCount(e.world.Count() + delta)
		e.publish()
	})
}

// UsePositions switches the position setter used by Respawn and SetCount.
func (e *Experiment) UsePositions(name string) error {
	if _, err := e.reg.GetPositions(name, nil); err != nil {
		return err
	}
	e.loop.Enqueue(func() {
		ps, _ := e.reg.GetPositions(name, e.rng)
		e.world.SetPositionSetter(ps)
	})
	return nil
}

// TogglePause flips stepping on or off and returns whether it is now paused.
func (e *Experiment) TogglePause() bool { return e.loop.TogglePause() }

// Paused reports whether stepping is paused.
func (e *Experiment) Paused() bool { return e.loop.Paused() }

// Stats returns the loop's frame timing.
func (e *Experiment) Stats() clock.Stats { return e.loop.Stats() }
