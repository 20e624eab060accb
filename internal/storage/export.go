package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/portsim/internal/sim"
)

// ExportData is a run in one self-describing JSON document.
type ExportData struct {
	RunMetadata
	Samples int        `json:"samples"`
	Result  sim.Result `json:"result"`
}

func NewExportData(meta RunMetadata, result *sim.Result) ExportData {
	return ExportData{RunMetadata: meta, Samples: len(result.Time), Result: *result}
}

func WriteJSON(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportJSON writes the export to path, or to stdout when path is "" or "-".
func ExportJSON(path string, data ExportData) error {
	if path == "" || path == "-" {
		return WriteJSON(os.Stdout, data)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteJSON(f, data); err != nil {
		return err
	}
	return f.Close()
}

// Export reads a stored run and writes it as JSON.
func (s *Store) Export(runID, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	result, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}
	return ExportJSON(path, NewExportData(*meta, result))
}
