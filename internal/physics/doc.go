// Package physics implements a particle-life world: particles of several
// types attract or repel each other according to an interaction matrix.
//
//   - [World]: particles, the matrix and [World.Step]
//   - [PositionSetter] and [TypeSetter]: spawn and retype strategies
//   - [Wrap] and [Clamp]: confine coordinates to [-1, 1]
//
// A World has no locking. Run it on a single goroutine and hand other
// goroutines [Snapshot] copies.
package physics
