package loop_test

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/plife/internal/clock"
	"github.com/san-kum/plife/internal/loop"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func noop(float64) {}

var _ = Describe("Loop", func() {
	var l *loop.Loop

	BeforeEach(func() {
		l = loop.New()
	})

	AfterEach(func() {
		if l.Running() {
			_, _ = l.Stop(time.Second)
		}
	})

	Describe("lifecycle", func() {
		It("starts and stops", func() {
			Expect(l.State()).To(Equal(loop.StateIdle))
			Expect(l.Start(noop)).To(Succeed())
			Expect(l.State()).To(Equal(loop.StateRunning))
			Eventually(l.Iterations).Should(BeNumerically(">", 0))

			ok, err := l.Stop(time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(l.State()).To(Equal(loop.StateIdle))
			Expect(l.Done()).To(BeClosed())
		})

		It("rejects a second Start", func() {
			Expect(l.Start(noop)).To(Succeed())
			Expect(l.Start(noop)).To(MatchError(loop.ErrAlreadyRunning))
		})

		It("rejects Stop before Start", func() {
			ok, err := l.Stop(time.Second)
			Expect(err).To(MatchError(loop.ErrNotRunning))
			Expect(ok).To(BeFalse())
		})

		It("rejects Stop after a completed Stop", func() {
			Expect(l.Start(noop)).To(Succeed())
			Expect(l.Stop(0)).To(BeTrue())
			_, err := l.Stop(0)
			Expect(err).To(MatchError(loop.ErrNotRunning))
		})

		It("rejects a nil step", func() {
			Expect(l.Start(nil)).To(MatchError(loop.ErrNilStep))
			Expect(l.Running()).To(BeFalse())
		})

		It("can be restarted after a clean stop", func() {
			var calls atomic.Int64
			step := func(float64) { calls.Add(1) }

			Expect(l.Start(step)).To(Succeed())
			Eventually(calls.Load).Should(BeNumerically(">", 0))
			Expect(l.Stop(time.Second)).To(BeTrue())

			before := calls.Load()
			Expect(l.Start(step)).To(Succeed())
			Eventually(calls.Load).Should(BeNumerically(">", before))
		})

		It("reports a closed Done channel before any Start", func() {
			Expect(l.Done()).To(BeClosed())
			Expect(l.Err()).NotTo(HaveOccurred())
		})

		It("only lets one of many concurrent Start calls win", func() {
			var wins atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					if err := l.Start(noop); err == nil {
						wins.Add(1)
					} else {
						Expect(err).To(MatchError(loop.ErrAlreadyRunning))
					}
				}()
			}
			wg.Wait()
			Expect(wins.Load()).To(Equal(int64(1)))
		})
	})

	Describe("stop timeout", func() {
		It("returns false while the step blocks and true once it returns", func() {
			release := make(chan struct{})
			entered := make(chan struct{}, 1)
			Expect(l.Start(func(float64) {
				select {
				case entered <- struct{}{}:
				default:
				}
				<-release
			})).To(Succeed())
			Eventually(entered).Should(Receive())

			ok, err := l.Stop(20 * time.Millisecond)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(l.State()).To(Equal(loop.StateTerminating))
			Expect(l.Start(noop)).To(MatchError(loop.ErrAlreadyRunning))

			close(release)
			ok, err = l.Stop(time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(l.State()).To(Equal(loop.StateIdle))
		})

		It("waits for the worker when the timeout is negative", func() {
			release := make(chan struct{})
			entered := make(chan struct{}, 1)
			Expect(l.Start(func(float64) {
				select {
				case entered <- struct{}{}:
				default:
				}
				<-release
			})).To(Succeed())
			Eventually(entered).Should(Receive())

			stopped := make(chan bool, 1)
			go func() {
				defer GinkgoRecover()
				ok, err := l.Stop(-time.Second)
				Expect(err).NotTo(HaveOccurred())
				stopped <- ok
			}()
			Consistently(stopped, 50*time.Millisecond).ShouldNot(Receive())

			close(release)
			Eventually(stopped).Should(Receive(BeTrue()))
			Expect(l.State()).To(Equal(loop.StateIdle))
		})
	})

	Describe("commands", func() {
		It("runs enqueued commands once each in order", func() {
			rec := &recorder{}
			for _, name := range []string{"A", "B", "C"} {
				name := name
				l.Enqueue(func() { rec.add(name) })
			}
			Expect(l.Pending()).To(Equal(3))

			Expect(l.Start(noop)).To(Succeed())
			Eventually(rec.get).Should(Equal([]string{"A", "B", "C"}))
			Consistently(rec.get, 50*time.Millisecond).Should(HaveLen(3))
		})

		It("preserves order across producer goroutines", func() {
			rec := &recorder{}
			Expect(l.Start(noop)).To(Succeed())

			var mu sync.Mutex
			var sent []string
			var wg sync.WaitGroup
			for g := 0; g < 4; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						mu.Lock()
						name := string(rune('a'+g)) + string(rune('0'+i%10))
						sent = append(sent, name)
						l.Enqueue(func() { rec.add(name) })
						mu.Unlock()
					}
				}(g)
			}
			wg.Wait()

			Eventually(func() int { return len(rec.get()) }).Should(Equal(200))
			mu.Lock()
			defer mu.Unlock()
			Expect(rec.get()).To(Equal(sent))
		})

		It("runs commands before the step of the same iteration", func() {
			rec := &recorder{}
			l.Enqueue(func() { rec.add("cmd") })
			l.DoOnce(func() { rec.add("once") })

			var first atomic.Bool
			Expect(l.Start(func(float64) {
				if first.CompareAndSwap(false, true) {
					rec.add("step")
				}
			})).To(Succeed())

			Eventually(rec.get).Should(Equal([]string{"cmd", "once", "step"}))
		})

		It("runs commands enqueued from inside a command", func() {
			rec := &recorder{}
			l.Enqueue(func() {
				rec.add("outer")
				l.Enqueue(func() { rec.add("inner") })
			})
			Expect(l.Start(noop)).To(Succeed())
			Eventually(rec.get).Should(Equal([]string{"outer", "inner"}))
		})
	})

	Describe("once items", func() {
		It("runs only the latest item deposited before the next iteration", func() {
			rec := &recorder{}
			l.DoOnce(func() { rec.add("X") })
			l.DoOnce(func() { rec.add("Y") })

			Expect(l.Start(noop)).To(Succeed())
			Eventually(rec.get).Should(Equal([]string{"Y"}))
			Consistently(rec.get, 50*time.Millisecond).Should(Equal([]string{"Y"}))
		})

		It("runs each item deposited after the previous one was taken", func() {
			var runs atomic.Int64
			Expect(l.Start(noop)).To(Succeed())

			l.DoOnce(func() { runs.Add(1) })
			Eventually(runs.Load).Should(Equal(int64(1)))
			l.DoOnce(func() { runs.Add(1) })
			Eventually(runs.Load).Should(Equal(int64(2)))
		})
	})

	Describe("pause", func() {
		It("skips the step but keeps draining", func() {
			var steps atomic.Int64
			var cmds atomic.Int64
			l.SetPaused(true)
			Expect(l.Paused()).To(BeTrue())

			Expect(l.Start(func(float64) { steps.Add(1) })).To(Succeed())
			for i := 0; i < 10; i++ {
				l.Enqueue(func() { cmds.Add(1) })
			}

			Eventually(l.Iterations).Should(BeNumerically(">", 20))
			Eventually(cmds.Load).Should(Equal(int64(10)))
			Consistently(steps.Load, 50*time.Millisecond).Should(BeZero())
			Expect(cmds.Load()).To(Equal(int64(10)))

			l.SetPaused(false)
			Eventually(steps.Load).Should(BeNumerically(">", 0))
		})

		It("toggles", func() {
			Expect(l.TogglePause()).To(BeTrue())
			Expect(l.Paused()).To(BeTrue())
			Expect(l.TogglePause()).To(BeFalse())
			Expect(l.Paused()).To(BeFalse())
		})
	})

	Describe("delta time", func() {
		var src *clock.Fake

		BeforeEach(func() {
			src = clock.NewFake(time.Unix(0, 0))
		})

		// collect starts a loop whose step advances the fake clock by
		// frame, so every measured interval after the first equals frame.
		collect := func(l *loop.Loop, frame time.Duration) <-chan float64 {
			dts := make(chan float64, 1024)
			Expect(l.Start(func(dt float64) {
				select {
				case dts <- dt:
				default:
				}
				src.Advance(frame)
			})).To(Succeed())
			return dts
		}

		It("defaults to a 1/20 s cap", func() {
			Expect(l.MaxDt()).To(Equal(loop.DefaultMaxDt))
		})

		It("caps the measured interval", func() {
			l = loop.New(loop.WithSource(src), loop.WithMaxDt(0.05))
			dts := collect(l, 200*time.Millisecond)

			Eventually(dts).Should(Receive(BeZero()))
			Eventually(dts).Should(Receive(Equal(0.05)))
		})

		It("passes the raw interval when the cap is negative", func() {
			l = loop.New(loop.WithSource(src), loop.WithMaxDt(-1))
			dts := collect(l, 200*time.Millisecond)

			Eventually(dts).Should(Receive(BeZero()))
			Eventually(dts).Should(Receive(Equal(0.2)))
			Expect(l.ActualDt()).To(BeNumerically("~", 0.2, 1e-9))
		})

		It("passes intervals below the cap through", func() {
			l = loop.New(loop.WithSource(src))
			dts := collect(l, 10*time.Millisecond)

			Eventually(dts).Should(Receive(BeZero()))
			Eventually(dts).Should(Receive(BeNumerically("~", 0.01, 1e-12)))
		})

		It("reports frame statistics", func() {
			l = loop.New(loop.WithSource(src), loop.WithWindow(4))
			collect(l, 25*time.Millisecond)

			Eventually(func() float64 { return l.Stats().AverageMillis }).
				Should(BeNumerically("~", 25, 1e-9))
			Expect(l.AverageFramerate()).To(BeNumerically("~", 40, 1e-9))
			Expect(l.Stats().Window).To(Equal(4))
		})

		It("accepts a new cap while running", func() {
			var last atomic.Value
			l = loop.New(loop.WithSource(src), loop.WithMaxDt(-1))
			Expect(l.Start(func(dt float64) {
				last.Store(dt)
				src.Advance(200 * time.Millisecond)
			})).To(Succeed())
			Eventually(last.Load).Should(Equal(0.2))

			l.SetMaxDt(0.1)
			Expect(l.MaxDt()).To(Equal(0.1))
			Eventually(last.Load).Should(Equal(0.1))
		})
	})

	Describe("worker failures", func() {
		It("surfaces a panicking step", func() {
			failures := make(chan error, 1)
			l = loop.New(loop.WithFailureHandler(func(err error) { failures <- err }))

			Expect(l.Start(func(float64) { panic("boom") })).To(Succeed())
			Eventually(l.Done()).Should(BeClosed())

			var failure error
			Eventually(failures).Should(Receive(&failure))
			Expect(failure).To(MatchError(loop.ErrWorkerFailed))

			var pe *loop.PanicError
			Expect(errors.As(l.Err(), &pe)).To(BeTrue())
			Expect(pe.Source).To(Equal("step"))
			Expect(pe.Value).To(Equal("boom"))
			Expect(pe.Stack).NotTo(BeEmpty())

			Expect(l.Running()).To(BeTrue(), "a dead worker still needs Stop")
			ok, err := l.Stop(time.Second)
			Expect(ok).To(BeTrue())
			Expect(err).To(MatchError(loop.ErrWorkerFailed))

			Expect(l.Start(noop)).To(Succeed())
			Expect(l.Err()).NotTo(HaveOccurred())
		})

		It("surfaces a panicking command and unwraps error values", func() {
			l.Enqueue(func() { panic(io.ErrUnexpectedEOF) })
			Expect(l.Start(noop)).To(Succeed())
			Eventually(l.Done()).Should(BeClosed())

			err := l.Err()
			Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
			var pe *loop.PanicError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Source).To(Equal("command"))
		})

		It("keeps commands queued behind a panicking command", func() {
			rec := &recorder{}
			l.Enqueue(func() { panic("boom") })
			l.Enqueue(func() { rec.add("A") })
			l.Enqueue(func() { rec.add("B") })

			Expect(l.Start(noop)).To(Succeed())
			Eventually(l.Done()).Should(BeClosed())
			Expect(rec.get()).To(BeEmpty())
			Expect(l.Pending()).To(Equal(2))

			ok, err := l.Stop(time.Second)
			Expect(ok).To(BeTrue())
			Expect(err).To(MatchError(loop.ErrWorkerFailed))

			Expect(l.Start(noop)).To(Succeed())
			Eventually(rec.get).Should(Equal([]string{"A", "B"}))
			Consistently(rec.get, 50*time.Millisecond).Should(HaveLen(2))
		})

		It("lets the failure handler stop the loop", func() {
			stopped := make(chan bool, 1)
			l = loop.New(loop.WithFailureHandler(func(error) {
				ok, _ := l.Stop(0)
				stopped <- ok
			}))

			Expect(l.Start(func(float64) { panic("boom") })).To(Succeed())
			Eventually(stopped).Should(Receive(BeTrue()))
			Expect(l.State()).To(Equal(loop.StateIdle))

			Expect(l.Start(noop)).To(Succeed())
			ok, err := l.Stop(time.Second)
			Expect(ok).To(BeTrue())
			Expect(err).NotTo(HaveOccurred())
		})

		It("surfaces a panicking once item", func() {
			l.DoOnce(func() { panic("once") })
			Expect(l.Start(noop)).To(Succeed())
			Eventually(l.Done()).Should(BeClosed())

			var pe *loop.PanicError
			Expect(errors.As(l.Err(), &pe)).To(BeTrue())
			Expect(pe.Source).To(Equal("once"))
		})
	})
})

var _ = Describe("State", func() {
	It("has readable names", func() {
		Expect(loop.StateIdle.String()).To(Equal("Idle"))
		Expect(loop.StateRunning.String()).To(Equal("Running"))
		Expect(loop.StateTerminating.String()).To(Equal("Terminating"))
		Expect(loop.State(42).String()).To(Equal("Unknown"))
	})
})
