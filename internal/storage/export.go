package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	*RunMetadata
	Frames []Frame `json:"frames"`
}

// ExportJSON writes a run with its frames to path, or to stdout when path is
// empty or "-".
func (s *Store) ExportJSON(runID, path string) error {
	if path == "" || path == "-" {
		return s.WriteJSON(runID, os.Stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.WriteJSON(runID, file)
}

func (s *Store) WriteJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{RunMetadata: meta, Frames: frames})
}
