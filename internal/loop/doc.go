// Package loop runs a simulation step on a dedicated goroutine at whatever
// pace the step allows, while other goroutines feed it work.
//
// Each iteration of the worker:
//
//  1. ticks the frame clock,
//  2. runs every queued command in FIFO order ([Loop.Enqueue]),
//  3. runs the pending once item, if any ([Loop.DoOnce]),
//  4. calls the step with the measured frame time, capped at [Loop.MaxDt],
//     unless the loop is paused.
//
// # Example
//
//	l := loop.New(loop.WithMaxDt(1.0 / 20))
//	_ = l.Start(func(dt float64) { world.Step(dt) })
//	l.Enqueue(func() { world.AddParticles(100) })
//	l.DoOnce(func() { world.SetMatrix(next) })
//	ok, err := l.Stop(time.Second)
//
// # Shutdown
//
// Stop is cooperative. The worker checks for it only between iterations, so
// a step or command that never returns prevents shutdown. Stop returns false
// when its timeout expires first and can be retried.
//
// # Failures
//
// A panic in the step, a command or a once item is recovered, reported as a
// [*PanicError] through the logger, the failure handler, [Loop.Err] and the
// next [Loop.Stop], and ends the worker. Nothing is retried.
package loop
