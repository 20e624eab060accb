package main

import (
	"path/filepath"
	"testing"

	"github.com/san-kum/portsim/internal/config"
	"github.com/spf13/cobra"
)

func TestParseAssignments(t *testing.T) {
	values, err := parseInitialValues([]string{"x=2", " prey.y = 0.5 "})
	if err != nil {
		t.Fatal(err)
	}
	if values["x"] != 2 || values["prey.y"] != 0.5 {
		t.Errorf("unexpected initial values %v", values)
	}

	params, err := parseParameters([]string{"r=max(0.1, T/10)"})
	if err != nil {
		t.Fatal(err)
	}
	if params["r"] != "max(0.1, T/10)" {
		t.Errorf("expected formula kept whole, got %v", params)
	}

	for _, bad := range [][]string{{"x"}, {"=1"}, {"x="}} {
		if _, err := parseParameters(bad); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
	if _, err := parseInitialValues([]string{"x=abc"}); err == nil {
		t.Error("expected error for a non-numeric initial value")
	}
}

func TestResolveConfigPreset(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Float64Var(&tEnd, "t-end", 10, "")
	cmd.Flags().StringVar(&integrator, "integrator", "continuous", "")
	if err := cmd.Flags().Set("t-end", "20"); err != nil {
		t.Fatal(err)
	}

	preset = "discrete"
	initValues = []string{"x=3"}
	defer func() { preset, initValues = "", nil }()

	cfg, err := resolveConfig(cmd, []string{"builtin:logistic"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cfg.Integrator != "discrete" || cfg.TEnd != 20 {
		t.Errorf("expected discrete preset with t_end 20, got %s %g", cfg.Integrator, cfg.TEnd)
	}
	if cfg.InitialValues["x"] != 3 {
		t.Errorf("expected --init to override the preset, got %v", cfg.InitialValues)
	}

	preset = "nope"
	if _, err := resolveConfig(cmd, []string{"builtin:logistic"}); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestResolveConfigPresetOverConfigFile(t *testing.T) {
	file := config.DefaultConfig()
	file.Model = "builtin:logistic"
	file.InitialValues = map[string]float64{"x": 4}
	file.Parameters = map[string]string{"r": "0.3"}
	file.SystemParameters = []config.SystemParameter{{Name: "temp", Formula: "20"}}
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := config.Save(path, file); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{}
	configFile, preset = path, "continuous"
	defer func() { configFile, preset = "", "" }()

	cfg, err := resolveConfig(cmd, nil)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cfg.SampleStep != 0.5 || cfg.TEnd != 100 {
		t.Errorf("expected the preset's sampling, got step %g t_end %g", cfg.SampleStep, cfg.TEnd)
	}
	if cfg.Parameters["r"] != "0.3" {
		t.Errorf("expected parameters from the file, got %v", cfg.Parameters)
	}
	if len(cfg.SystemParameters) != 1 || cfg.SystemParameters[0].Name != "temp" {
		t.Errorf("expected system parameters from the file, got %v", cfg.SystemParameters)
	}
	if cfg.InitialValues["x"] != 1 {
		t.Errorf("expected the preset's initial value, got %v", cfg.InitialValues)
	}
}
