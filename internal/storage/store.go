// Package storage keeps finished runs on disk, one directory per run holding
// metadata.json and series.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/portsim/internal/metrics"
	"github.com/san-kum/portsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Model         string             `json:"model"`
	Timestamp     time.Time          `json:"timestamp"`
	Integrator    string             `json:"integrator"`
	TEnd          float64            `json:"t_end"`
	NSteps        int                `json:"n_steps,omitempty"`
	SampleStep    float64            `json:"sample_step,omitempty"`
	TimeSymbol    string             `json:"time_symbol"`
	Variables     []string           `json:"variables"`
	InitialValues map[string]float64 `json:"initial_values,omitempty"`
	Parameters    map[string]string  `json:"parameters,omitempty"`
	Metrics       []metrics.Summary  `json:"metrics,omitempty"`
}

// runName derives a directory-safe prefix from a model reference such as
// builtin:logistic or models/tank.hcl.
func runName(model string) string {
	name := strings.TrimPrefix(model, "builtin:")
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
	if name == "" {
		return "run"
	}
	return name
}

// Save writes a run and returns its ID. ID, Timestamp and Variables of meta
// are filled in.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	now := time.Now()
	base := fmt.Sprintf("%s_%d", runName(meta.Model), now.Unix())
	runID := base
	for i := 1; ; i++ {
		err := os.Mkdir(filepath.Join(s.baseDir, runID), 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		runID = fmt.Sprintf("%s-%d", base, i)
	}
	runDir := filepath.Join(s.baseDir, runID)

	meta.ID = runID
	meta.Timestamp = now
	meta.TimeSymbol = result.TimeSymbol
	meta.Variables = meta.Variables[:0]
	for _, series := range result.Series {
		meta.Variables = append(meta.Variables, series.Name)
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, seriesFile), result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

func writeSeries(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{result.TimeSymbol}
	for _, series := range result.Series {
		header = append(header, series.Name)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i, t := range result.Time {
		row := []string{strconv.FormatFloat(t, 'g', -1, 64)}
		for _, series := range result.Series {
			v := ""
			if i < len(series.Values) {
				v = strconv.FormatFloat(series.Values[i], 'g', -1, 64)
			}
			row = append(row, v)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// List returns the stored runs, oldest first. Directories without readable
// metadata are skipped.
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
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSeries reads the series of a run back.
func (s *Store) LoadSeries(runID string) (*sim.Result, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("run %s: empty series file", runID)
	}

	header := records[0]
	r := &sim.Result{TimeSymbol: header[0]}
	for _, name := range header[1:] {
		r.Series = append(r.Series, sim.Series{Name: name})
	}
	for line, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("run %s: line %d: %w", runID, line+2, err)
		}
		r.Time = append(r.Time, t)
		for j, field := range record[1:] {
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s: line %d: %w", runID, line+2, err)
			}
			r.Series[j].Values = append(r.Series[j].Values, v)
		}
	}
	return r, nil
}
