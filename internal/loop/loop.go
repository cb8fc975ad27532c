package loop

import (
	"math"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/plife/internal/clock"
)

// StepFunc advances the simulation by dt seconds.
type StepFunc func(dt float64)

// Loop runs a step function repeatedly on its own goroutine.
//
// Other goroutines talk to the running step only through Enqueue, DoOnce
// and the pause flag, so everything the step and the commands touch has a
// single writer.
type Loop struct {
	mu sync.Mutex // serializes Start and Stop

	state      atomicState
	clock      *clock.Rolling
	queue      Queue
	once       Mailbox
	paused     atomic.Bool
	maxDt      atomic.Uint64
	iterations atomic.Uint64

	log       zerolog.Logger
	onFailure func(error)

	w       *worker // guarded by mu, non-nil unless StateIdle
	current atomic.Pointer[worker]
}

type worker struct {
	quit chan struct{}
	done chan struct{}
	err  error // written before done is closed
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// New creates a stopped Loop.
func New(opts ...Option) *Loop {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	l := &Loop{
		clock:     clock.NewRolling(o.window, o.source),
		log:       o.logger,
		onFailure: o.onFailure,
	}
	l.SetMaxDt(o.maxDt)
	return l
}

// Start launches the worker goroutine and returns immediately.
func (l *Loop) Start(step StepFunc) error {
	if step == nil {
		return ErrNilStep
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w != nil {
		return ErrAlreadyRunning
	}

	w := &worker{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	l.w = w
	l.current.Store(w)
	l.state.Store(StateRunning)
	l.clock.MarkStart()

	go l.run(w, step)

	l.log.Debug().
		Int("window", l.clock.Window()).
		Float64("max_dt", l.MaxDt()).
		Msg("loop started")
	return nil
}

// Stop asks the worker to exit after its current iteration and waits up to
// timeout for it to do so. A zero or negative timeout waits forever.
//
// It returns false on timeout; the worker keeps running and Stop may be
// called again. An in-flight step or command is never interrupted. If the
// worker had died from a failure, Stop returns true together with that
// failure.
func (l *Loop) Stop(timeout time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.w
	if w == nil {
		return false, ErrNotRunning
	}
	if l.state.Load() == StateRunning {
		l.state.Store(StateTerminating)
		close(w.quit)
	}

	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-w.done:
		case <-t.C:
			l.log.Warn().Dur("timeout", timeout).Msg("loop stop timed out")
			return false, nil
		}
	} else {
		<-w.done
	}

	l.w = nil
	l.state.Store(StateIdle)
	l.log.Debug().Uint64("iterations", l.iterations.Load()).Msg("loop stopped")
	return true, w.err
}

// run closes done before reporting a failure, so the failure handler may
// call Stop.
func (l *Loop) run(w *worker, step StepFunc) {
	w.err = l.work(w, step)
	close(w.done)
	if w.err != nil {
		l.fail(w.err)
	}
}

func (l *Loop) work(w *worker, step StepFunc) error {
	for {
		select {
		case <-w.quit:
			return nil
		default:
		}
		if err := l.iterate(step); err != nil {
			return err
		}
	}
}

// iterate runs one frame: measure, drain commands, run the once item, step.
func (l *Loop) iterate(step StepFunc) error {
	l.clock.Tick()

	if err := guard("command", l.drain); err != nil {
		return err
	}
	if fn := l.once.Take(); fn != nil {
		if err := guard("once", fn); err != nil {
			return err
		}
	}
	if !l.paused.Load() {
		if err := guardStep(step, l.delta()); err != nil {
			return err
		}
	}
	l.iterations.Add(1)
	return nil
}

func (l *Loop) drain() { l.queue.Drain() }

func (l *Loop) delta() float64 {
	dt := l.clock.LastMillis() / 1000
	if limit := l.MaxDt(); limit >= 0 && dt > limit {
		return limit
	}
	return dt
}

func (l *Loop) fail(err error) {
	ev := l.log.Error().Err(err)
	if pe, ok := err.(*PanicError); ok {
		ev = ev.Str("source", pe.Source).Bytes("stack", pe.Stack)
	}
	ev.Msg("loop worker failed")
	if l.onFailure != nil {
		l.onFailure(err)
	}
}

func guard(source string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Source: source, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

func guardStep(step StepFunc, dt float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Source: "step", Stack: debug.Stack()}
		}
	}()
	step(dt)
	return nil
}

// Enqueue schedules cmd to run on the worker before the next step. Commands
// run exactly once, in the order they were enqueued.
func (l *Loop) Enqueue(cmd func()) {
	l.queue.Push(cmd)
}

// DoOnce schedules fn to run on the worker before the next step, replacing
// any item that has not run yet.
func (l *Loop) DoOnce(fn func()) {
	l.once.Put(fn)
}

// SetPaused controls whether the step function is called. Commands and
// once items still run while paused.
func (l *Loop) SetPaused(paused bool) {
	l.paused.Store(paused)
}

// Paused reports whether stepping is paused.
func (l *Loop) Paused() bool {
	return l.paused.Load()
}

// TogglePause flips the pause flag and returns the new value.
func (l *Loop) TogglePause() bool {
	for {
		old := l.paused.Load()
		if l.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetMaxDt sets the upper bound in seconds for the dt passed to the step.
// A negative value disables the bound.
func (l *Loop) SetMaxDt(seconds float64) {
	l.maxDt.Store(math.Float64bits(seconds))
}

// MaxDt returns the dt bound in seconds.
func (l *Loop) MaxDt() float64 {
	return math.Float64frombits(l.maxDt.Load())
}

// ActualDt returns the last measured frame time in seconds, ignoring MaxDt.
// While paused it is typically very small.
func (l *Loop) ActualDt() float64 {
	return l.clock.LastMillis() / 1000
}

// AverageFramerate returns the frame rate averaged over the clock window,
// ignoring MaxDt.
func (l *Loop) AverageFramerate() float64 {
	return l.clock.AverageRate()
}

// Stats returns the frame timing statistics.
func (l *Loop) Stats() clock.Stats {
	return l.clock.Snapshot()
}

// Iterations returns the number of completed iterations since New.
func (l *Loop) Iterations() uint64 {
	return l.iterations.Load()
}

// Pending returns the number of queued commands.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

// State returns the lifecycle state.
func (l *Loop) State() State {
	return l.state.Load()
}

// Running reports whether a worker exists, i.e. Start would fail.
func (l *Loop) Running() bool {
	return l.state.Load() != StateIdle
}

// Done returns a channel closed when the most recently started worker
// exits. It is closed already if the loop was never started.
func (l *Loop) Done() <-chan struct{} {
	if w := l.current.Load(); w != nil {
		return w.done
	}
	return closedCh
}

// Err returns the failure that terminated the most recent worker, if any.
func (l *Loop) Err() error {
	w := l.current.Load()
	if w == nil {
		return nil
	}
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}
