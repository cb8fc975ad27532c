package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/plife/internal/experiment"
	"github.com/san-kum/plife/internal/export"
	"github.com/san-kum/plife/internal/metrics"
	"github.com/san-kum/plife/internal/storage"
	"github.com/san-kum/plife/internal/tui"
)

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	e, err := experiment.New(cfg, log)
	if err != nil {
		return err
	}

	if err := e.Start(); err != nil {
		return err
	}
	title := "plife"
	if preset != "" {
		title = "plife " + preset
	}
	uiErr := tui.Run(e, title)

	stopped, err := e.Stop()
	if err != nil {
		return err
	}
	if !stopped {
		log.Warn().Dur("timeout", cfg.StopTimeout()).Msg("loop still running at exit")
	}
	return uiErr
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if sampleMs <= 0 {
		return fmt.Errorf("sample interval must be positive, got %d", sampleMs)
	}
	e, err := experiment.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(duration*float64(time.Second)))
	defer cancel()

	start := time.Now()
	var frames []storage.Frame

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.Run(gctx)
	})
	g.Go(func() error {
		frames = sample(gctx, e, start, time.Duration(sampleMs)*time.Millisecond)
		return nil
	})
	if metricsAddr != "" {
		serveMetrics(gctx, g, e)
	}

	log.Info().Float64("seconds", duration).Int("particles", cfg.World.Particles).Msg("run started")
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start).Seconds()

	sum := storage.Summarize(frames)
	fmt.Printf("steps: %d  iterations: %d  fps: %.1f  frame: %.2fms (%.2f-%.2f)\n",
		sum.Steps, sum.Iterations, sum.MeanFramerate, sum.MeanFrameMs, sum.MinFrameMs, sum.MaxFrameMs)

	if svgPath != "" {
		if err := export.SaveSVG(svgPath, e.State().Snapshot, 800, 2); err != nil {
			return err
		}
		fmt.Printf("world written: %s\n", svgPath)
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(&storage.RunMetadata{
		Preset:   preset,
		Duration: elapsed,
		Config:   e.Config(),
	}, frames)
	if err != nil {
		return err
	}
	fmt.Printf("run saved: %s\n", runID)
	return nil
}

// sample records a frame every interval until ctx is done.
func sample(ctx context.Context, e *experiment.Experiment, start time.Time, interval time.Duration) []storage.Frame {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frames []storage.Frame
	for {
		select {
		case <-ctx.Done():
			return frames
		case now := <-ticker.C:
			stats := e.Stats()
			st := e.State()
			frames = append(frames, storage.Frame{
				Time:          now.Sub(start).Seconds(),
				Iterations:    e.Loop().Iterations(),
				Steps:         st.Steps,
				LastMillis:    stats.LastMillis,
				AverageMillis: stats.AverageMillis,
				StdDevMillis:  stats.StdDevMillis,
				AverageRate:   stats.AverageRate,
				KineticEnergy: st.Energy,
			})
		}
	}
}

func serveMetrics(ctx context.Context, g *errgroup.Group, e *experiment.Experiment) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewPrometheusMetrics(e.Loop(), func() metrics.WorldStats {
		st := e.State()
		return metrics.WorldStats{
			Particles:     len(st.Particles),
			Types:         st.Types,
			Steps:         st.Steps,
			KineticEnergy: st.Energy,
		}
	}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: metricsAddr, Handler: mux}

	g.Go(func() error {
		log.Info().Str("addr", metricsAddr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
