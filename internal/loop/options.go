package loop

import (
	"github.com/rs/zerolog"

	"github.com/san-kum/plife/internal/clock"
)

const (
	// DefaultWindow is the number of frames the loop clock averages over.
	DefaultWindow = 60
	// DefaultMaxDt caps the step delta at 1/20 s.
	DefaultMaxDt = 1.0 / 20.0
)

type options struct {
	window    int
	maxDt     float64
	source    clock.Source
	logger    zerolog.Logger
	onFailure func(error)
}

// Option configures a Loop.
type Option func(*options)

// WithWindow sets the number of frames used for timing statistics.
func WithWindow(n int) Option {
	return func(o *options) { o.window = n }
}

// WithMaxDt sets the initial step delta cap in seconds. Negative disables it.
func WithMaxDt(seconds float64) Option {
	return func(o *options) { o.maxDt = seconds }
}

// WithSource sets the time source used to measure frames.
func WithSource(src clock.Source) Option {
	return func(o *options) { o.source = src }
}

// WithLogger sets the logger for lifecycle events and worker failures.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFailureHandler registers fn to be called on the worker goroutine when
// a step, command or once item panics. The worker has already exited when fn
// runs, so fn may call Stop.
func WithFailureHandler(fn func(error)) Option {
	return func(o *options) { o.onFailure = fn }
}

func defaultOptions() options {
	return options{
		window: DefaultWindow,
		maxDt:  DefaultMaxDt,
		source: clock.Real(),
		logger: zerolog.Nop(),
	}
}
