package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/plife/internal/config"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Frame is one sample of loop and world statistics taken during a run.
type Frame struct {
	Time          float64 `json:"time"` // seconds since the run started
	Iterations    uint64  `json:"iterations"`
	Steps         uint64  `json:"steps"`
	LastMillis    float64 `json:"last_ms"`
	AverageMillis float64 `json:"average_ms"`
	StdDevMillis  float64 `json:"stddev_ms"`
	AverageRate   float64 `json:"average_rate"`
	KineticEnergy float64 `json:"kinetic_energy"`
}

var frameHeader = []string{"time", "iterations", "steps", "last_ms", "average_ms", "stddev_ms", "average_rate", "kinetic_energy"}

// Summary aggregates the frames of a run.
type Summary struct {
	Frames        int     `json:"frames"`
	Iterations    uint64  `json:"iterations"`
	Steps         uint64  `json:"steps"`
	MeanFrameMs   float64 `json:"mean_frame_ms"`
	MinFrameMs    float64 `json:"min_frame_ms"`
	MaxFrameMs    float64 `json:"max_frame_ms"`
	MeanFramerate float64 `json:"mean_framerate"`
	FinalEnergy   float64 `json:"final_energy"`
}

type RunMetadata struct {
	ID        string         `json:"id"`
	Preset    string         `json:"preset,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  float64        `json:"duration"`
	Config    *config.Config `json:"config"`
	Summary   Summary        `json:"summary"`
}

// Summarize computes a Summary. Frames with no measured interval yet are
// left out of the frame-time statistics.
func Summarize(frames []Frame) Summary {
	sum := Summary{Frames: len(frames)}
	if len(frames) == 0 {
		return sum
	}
	last := frames[len(frames)-1]
	sum.Iterations = last.Iterations
	sum.Steps = last.Steps
	sum.FinalEnergy = last.KineticEnergy

	sum.MinFrameMs = math.Inf(1)
	var total, rate float64
	var n int
	for _, f := range frames {
		if f.LastMillis <= 0 {
			continue
		}
		total += f.LastMillis
		rate += f.AverageRate
		sum.MinFrameMs = math.Min(sum.MinFrameMs, f.LastMillis)
		sum.MaxFrameMs = math.Max(sum.MaxFrameMs, f.LastMillis)
		n++
	}
	if n == 0 {
		sum.MinFrameMs = 0
		return sum
	}
	sum.MeanFrameMs = total / float64(n)
	sum.MeanFramerate = rate / float64(n)
	return sum
}

// Save writes a new run and returns its ID. meta.ID and meta.Timestamp are
// filled in when empty, and meta.Summary is computed from frames.
func (s *Store) Save(meta *RunMetadata, frames []Frame) (string, error) {
	if meta.ID == "" {
		meta.ID = uuid.New().String()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Summary = Summarize(frames)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	if err := writeFrames(filepath.Join(runDir, framesFile), frames); err != nil {
		return "", fmt.Errorf("write frames: %w", err)
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFrames(path string, frames []Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(frameHeader); err != nil {
		return err
	}
	for _, fr := range frames {
		row := []string{
			formatFloat(fr.Time),
			strconv.FormatUint(fr.Iterations, 10),
			strconv.FormatUint(fr.Steps, 10),
			formatFloat(fr.LastMillis),
			formatFloat(fr.AverageMillis),
			formatFloat(fr.StdDevMillis),
			formatFloat(fr.AverageRate),
			formatFloat(fr.KineticEnergy),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// List returns all readable runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata for %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadFrames reads the frame samples of a run. Malformed rows are skipped.
func (s *Store) LoadFrames(runID string) ([]Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Frame{}, nil
	}

	frames := make([]Frame, 0, len(records)-1)
	for _, record := range records[1:] {
		fr, err := parseFrame(record)
		if err != nil {
			continue
		}
		frames = append(frames, fr)
	}
	return frames, nil
}

func parseFrame(record []string) (Frame, error) {
	if len(record) != len(frameHeader) {
		return Frame{}, fmt.Errorf("expected %d fields, got %d", len(frameHeader), len(record))
	}
	var fr Frame
	var err error
	floats := []*float64{&fr.Time, nil, nil, &fr.LastMillis, &fr.AverageMillis, &fr.StdDevMillis, &fr.AverageRate, &fr.KineticEnergy}
	for i, dst := range floats {
		if dst == nil {
			continue
		}
		if *dst, err = strconv.ParseFloat(record[i], 64); err != nil {
			return Frame{}, err
		}
	}
	if fr.Iterations, err = strconv.ParseUint(record[1], 10, 64); err != nil {
		return Frame{}, err
	}
	if fr.Steps, err = strconv.ParseUint(record[2], 10, 64); err != nil {
		return Frame{}, err
	}
	return fr, nil
}
