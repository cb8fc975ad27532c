package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/plife/internal/config"
	"github.com/san-kum/plife/internal/logging"
	"github.com/san-kum/plife/internal/storage"
)

var (
	dataDir   string
	logLevel  string
	logPretty bool
	log       = zerolog.Nop()

	configFile    string
	preset        string
	particles     int
	types         int
	seed          int64
	matrixName    string
	positions     string
	maxDt         float64
	window        int
	stopTimeoutMs int
	paused        bool

	duration    float64
	sampleMs    int
	metricsAddr string
	noSave      bool
	svgPath     string

	outPath string
)

// main registers the plife commands and exits with status 1 when the
// selected command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "plife",
		Short:         "particle life on a paced simulation loop",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, logPretty, os.Stderr)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
		RunE: runLive,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".plife", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", false, "human readable log output")
	addWorldFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless for a fixed wall-clock time and save the timings",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	addWorldFlags(runCmd)
	runCmd.Flags().Float64Var(&duration, "time", 10.0, "wall-clock seconds to run")
	runCmd.Flags().IntVar(&sampleMs, "sample", 100, "sampling interval in milliseconds")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&svgPath, "svg", "", "write the final world to this SVG file")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addWorldFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot frame timing of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPARTICLES\tTYPES\tMATRIX\tPOSITIONS\tWRAP\tMAX_DT")
			for _, name := range config.ListPresets() {
				c := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%v\t%.3f\n",
					name, c.World.Particles, c.World.Types, c.World.Matrix, c.World.Positions, c.World.Wrap, c.Loop.MaxDt)
			}
			return w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a config file from the defaults or a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("config written: %s\n", args[0])
			return nil
		},
	}
	addWorldFlags(initCmd)

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and frames to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(args[0], outPath)
		},
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file (- for stdout)")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, presetsCmd, initCmd, exportJSONCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func addWorldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.IntVar(&particles, "particles", config.DefaultParticles, "number of particles")
	f.IntVar(&types, "types", config.DefaultTypes, "number of particle types")
	f.Int64Var(&seed, "seed", 1, "random seed")
	f.StringVar(&matrixName, "matrix", "random", "matrix generator (chains, random, symmetric, zero)")
	f.StringVar(&positions, "positions", "uniform", "position setter (centered, ring, uniform)")
	f.Float64Var(&maxDt, "max-dt", config.DefaultMaxDt, "step delta cap in seconds, negative disables")
	f.IntVar(&window, "window", config.DefaultWindow, "frames averaged for timing statistics")
	f.IntVar(&stopTimeoutMs, "stop-timeout", config.DefaultStopTimeoutMs, "milliseconds to wait for the loop to stop, 0 waits forever")
	f.BoolVar(&paused, "paused", false, "start with stepping paused")
}

// resolveConfig layers defaults, then a preset, then a config file, then the
// flags the user actually set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (see plife presets)", preset)
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("particles") {
		cfg.World.Particles = particles
	}
	if f.Changed("types") {
		cfg.World.Types = types
	}
	if f.Changed("seed") {
		cfg.World.Seed = seed
	}
	if f.Changed("matrix") {
		cfg.World.Matrix = matrixName
	}
	if f.Changed("positions") {
		cfg.World.Positions = positions
	}
	if f.Changed("max-dt") {
		cfg.Loop.MaxDt = maxDt
	}
	if f.Changed("window") {
		cfg.Loop.Window = window
	}
	if f.Changed("stop-timeout") {
		cfg.Loop.StopTimeoutMs = stopTimeoutMs
	}
	if f.Changed("paused") {
		cfg.Loop.Paused = paused
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tDURATION\tSTEPS\tFPS\tFRAME")

	for _, run := range runs {
		name := run.Preset
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%d\t%.0f\t%.2fms\n",
			run.ID,
			name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Summary.Steps,
			run.Summary.MeanFramerate,
			run.Summary.MeanFrameMs,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	if meta.Preset != "" {
		fmt.Printf("preset: %s\n", meta.Preset)
	}
	fmt.Printf("samples: %d\n\n", len(frames))

	series := []struct {
		caption string
		value   func(storage.Frame) float64
	}{
		{"average frame time (ms)", func(f storage.Frame) float64 { return f.AverageMillis }},
		{"frame time stddev (ms)", func(f storage.Frame) float64 { return f.StdDevMillis }},
		{"average framerate (fps)", func(f storage.Frame) float64 { return f.AverageRate }},
		{"kinetic energy", func(f storage.Frame) float64 { return f.KineticEnergy }},
	}

	for _, s := range series {
		data := make([]float64, len(frames))
		for i, f := range frames {
			data[i] = s.value(f)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}
