// Package clock measures frame intervals and keeps rolling statistics over
// the most recent ones.
//
// A [Rolling] clock stores the last n measured intervals in a circular
// buffer. Every completed interval recomputes the mean and the sample
// variance over the whole buffer:
//
//	c := clock.NewRolling(60, clock.Real())
//	for {
//	    c.Tick()
//	    render()
//	    fmt.Printf("%.1f fps\n", c.AverageRate())
//	}
//
// The buffer starts zeroed, so until n intervals have been recorded the
// average is biased toward zero.
package clock

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrNoStart is returned by MarkEnd when MarkStart was never called.
var ErrNoStart = errors.New("clock: MarkEnd called before MarkStart")

// Stats is a consistent copy of the clock's readings. Durations are in
// milliseconds, rates in intervals per second.
type Stats struct {
	Window         int     `json:"window"`
	LastMillis     float64 `json:"last_ms"`
	AverageMillis  float64 `json:"average_ms"`
	VarianceMillis float64 `json:"variance_ms2"`
	StdDevMillis   float64 `json:"stddev_ms"`
	Rate           float64 `json:"rate"`
	AverageRate    float64 `json:"average_rate"`
}

// Rolling keeps a fixed-size history of measured intervals.
// All methods are safe for concurrent use.
type Rolling struct {
	mu  sync.RWMutex
	src Source

	history  []float64
	index    int
	last     float64
	avg      float64
	variance float64

	start   time.Time
	started bool
}

// NewRolling creates a clock averaging over the last n intervals. n below 1
// is treated as 1. A nil src uses real time.
func NewRolling(n int, src Source) *Rolling {
	if n < 1 {
		n = 1
	}
	if src == nil {
		src = Real()
	}
	return &Rolling{
		src:     src,
		history: make([]float64, n),
		index:   -1,
	}
}

// MarkStart records the beginning of an interval, replacing any unmatched start.
func (c *Rolling) MarkStart() {
	now := c.src.Now()
	c.mu.Lock()
	c.start = now
	c.started = true
	c.mu.Unlock()
}

// MarkEnd completes the interval begun by the last MarkStart.
func (c *Rolling) MarkEnd() error {
	now := c.src.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return ErrNoStart
	}
	c.record(durationMillis(now.Sub(c.start)))
	return nil
}

// Tick ends the pending interval, if any, and starts the next one. Calling it
// once per frame measures the time between frames.
func (c *Rolling) Tick() {
	now := c.src.Now()
	c.mu.Lock()
	if c.started {
		c.record(durationMillis(now.Sub(c.start)))
	}
	c.start = now
	c.started = true
	c.mu.Unlock()
}

// Record adds an externally measured interval.
func (c *Rolling) Record(d time.Duration) {
	c.mu.Lock()
	c.record(durationMillis(d))
	c.mu.Unlock()
}

func (c *Rolling) record(ms float64) {
	n := len(c.history)
	c.last = ms
	c.index = (c.index + 1) % n
	c.history[c.index] = ms

	if n < 2 {
		c.avg = c.history[0]
		c.variance = 0
		return
	}
	var sum, squares float64
	for _, v := range c.history {
		sum += v
		squares += v * v
	}
	fn := float64(n)
	c.avg = sum / fn
	c.variance = (squares - fn*c.avg*c.avg) / (fn - 1)
}

// Window returns the number of intervals averaged over.
func (c *Rolling) Window() int { return len(c.history) }

// LastMillis returns the most recent interval in milliseconds.
func (c *Rolling) LastMillis() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// AverageMillis returns the mean interval over the window in milliseconds.
func (c *Rolling) AverageMillis() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.avg
}

// VarianceMillis returns the sample variance of the window in ms².
func (c *Rolling) VarianceMillis() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.variance
}

// StdDevMillis returns the sample standard deviation in milliseconds.
func (c *Rolling) StdDevMillis() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return stddev(c.variance)
}

// Last returns the most recent interval.
func (c *Rolling) Last() time.Duration {
	return millisDuration(c.LastMillis())
}

// Average returns the mean interval over the window.
func (c *Rolling) Average() time.Duration {
	return millisDuration(c.AverageMillis())
}

// Rate returns the instantaneous rate in intervals per second, or 0 before
// any non-zero interval has been measured.
func (c *Rolling) Rate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return rate(c.last)
}

// AverageRate returns 1/average in intervals per second, or 0 while the
// average is zero.
func (c *Rolling) AverageRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return rate(c.avg)
}

// Snapshot returns all readings taken under a single lock.
func (c *Rolling) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Window:         len(c.history),
		LastMillis:     c.last,
		AverageMillis:  c.avg,
		VarianceMillis: c.variance,
		StdDevMillis:   stddev(c.variance),
		Rate:           rate(c.last),
		AverageRate:    rate(c.avg),
	}
}

func rate(ms float64) float64 {
	if ms == 0 {
		return 0
	}
	return 1000 / ms
}

// stddev clamps the tiny negative variances that cancellation can produce
// when every sample is equal.
func stddev(variance float64) float64 {
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance)
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func millisDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
