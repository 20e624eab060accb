package storage

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/portsim/internal/metrics"
	"github.com/san-kum/portsim/internal/sim"
)

func sampleResult() *sim.Result {
	return &sim.Result{
		TimeSymbol: "T",
		Time:       []float64{0, 0.1, 0.2},
		Series: []sim.Series{
			{Name: "prey.x", Values: []float64{10, 10.123456789, 1.0 / 3}},
			{Name: "y", Values: []float64{2, 1.5, 1e-9}},
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))
	meta := RunMetadata{
		Model:         "builtin:predator_prey",
		Integrator:    "continuous/rk45",
		TEnd:          0.2,
		InitialValues: map[string]float64{"prey.x": 10, "y": 2},
		Parameters:    map[string]string{"r": "0.5"},
		Metrics:       []metrics.Summary{{Variable: "y", Values: map[string]float64{"final": 1e-9}}},
	}

	runID, err := st.Save(meta, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	got, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.ID != runID || got.Model != meta.Model || got.TimeSymbol != "T" {
		t.Errorf("unexpected metadata %+v", got)
	}
	if len(got.Variables) != 2 || got.Variables[0] != "prey.x" {
		t.Errorf("expected variables [prey.x y], got %v", got.Variables)
	}
	if got.Parameters["r"] != "0.5" || got.Metrics[0].Values["final"] != 1e-9 {
		t.Errorf("metadata lost values: %+v", got)
	}

	res, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load result failed: %v", err)
	}
	want := sampleResult()
	if len(res.Time) != 3 || res.Time[1] != 0.1 {
		t.Errorf("expected time %v, got %v", want.Time, res.Time)
	}
	for i, s := range want.Series {
		for j, v := range s.Values {
			if res.Series[i].Values[j] != v {
				t.Errorf("%s[%d]: expected %v, got %v", s.Name, j, v, res.Series[i].Values[j])
			}
		}
	}
}

func TestSaveUniqueIDs(t *testing.T) {
	st := New(t.TempDir())
	a, err := st.Save(RunMetadata{Model: "models/tank.hcl"}, sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	b, err := st.Save(RunMetadata{Model: "models/tank.hcl"}, sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("expected distinct run ids, got %s twice", a)
	}
	if filepath.Dir(a) != "." || a[:5] != "tank_" {
		t.Errorf("expected id derived from the model file name, got %s", a)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestListSkipsForeignDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}
	st := New(dir)
	if _, err := st.Save(RunMetadata{Model: "builtin:logistic"}, sampleResult()); err != nil {
		t.Fatal(err)
	}
	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}

	empty, err := New(filepath.Join(dir, "missing")).List()
	if err != nil || len(empty) != 0 {
		t.Errorf("expected no runs for a missing directory, got %v %v", empty, err)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "runs"))
	runID, err := st.Save(RunMetadata{Model: "builtin:logistic", Integrator: "discrete"}, sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "export.json")
	if err := st.Export(runID, out); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var got ExportData
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid export: %v", err)
	}
	if got.ID != runID || got.Integrator != "discrete" || got.Samples != 3 {
		t.Errorf("unexpected export header %+v", got.RunMetadata)
	}
	y, ok := got.Result.Get("y")
	if !ok || math.Abs(y.Values[2]-1e-9) > 0 {
		t.Errorf("unexpected series y %v", y)
	}
}
