package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/portsim/internal/config"
	"github.com/san-kum/portsim/internal/experiment"
	"github.com/san-kum/portsim/internal/logging"
	"github.com/san-kum/portsim/internal/storage"
	"github.com/san-kum/portsim/internal/viz"
	"github.com/spf13/cobra"
)

// splitAssignment splits name=value.
func splitAssignment(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !ok || name == "" || value == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", s)
	}
	return name, value, nil
}

func parseInitialValues(entries []string) (map[string]float64, error) {
	out := make(map[string]float64, len(entries))
	for _, e := range entries {
		name, value, err := splitAssignment(e)
		if err != nil {
			return nil, fmt.Errorf("--init: %w", err)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("--init %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func parseParameters(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		name, value, err := splitAssignment(e)
		if err != nil {
			return nil, fmt.Errorf("--param: %w", err)
		}
		out[name] = value
	}
	return out, nil
}

func parseSystemParameters(entries []string) ([]config.SystemParameter, error) {
	out := make([]config.SystemParameter, 0, len(entries))
	for _, e := range entries {
		name, value, err := splitAssignment(e)
		if err != nil {
			return nil, fmt.Errorf("--sys-param: %w", err)
		}
		out = append(out, config.SystemParameter{Name: name, Formula: value})
	}
	return out, nil
}

// resolveConfig layers the defaults, a config file, a preset and the
// changed flags, in that order. A model argument replaces the configured
// model before the preset is looked up. The preset only replaces what it
// sets; values and parameters from the file are merged with its own.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Model = args[0]
	}
	if preset != "" {
		name := strings.TrimPrefix(cfg.Model, experiment.BuiltinPrefix)
		if !config.ApplyPreset(cfg, name, preset) {
			return nil, fmt.Errorf("unknown preset %q for model %s (have %v)", preset, name, config.ListPresets(name))
		}
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("solver") {
		cfg.Solver = solver
	}
	if flags.Changed("t-end") {
		cfg.TEnd = tEnd
	}
	if flags.Changed("n-steps") {
		cfg.NSteps = nSteps
	}
	if flags.Changed("sample-step") {
		cfg.SampleStep = sampleStep
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("time-symbol") {
		cfg.TimeSymbol = timeSymbol
	}
	if flags.Changed("metrics") {
		cfg.Metrics = metricNames
	}

	initial, err := parseInitialValues(initValues)
	if err != nil {
		return nil, err
	}
	if len(initial) > 0 && cfg.InitialValues == nil {
		cfg.InitialValues = make(map[string]float64, len(initial))
	}
	for k, v := range initial {
		cfg.InitialValues[k] = v
	}

	params, err := parseParameters(paramValues)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 && cfg.Parameters == nil {
		cfg.Parameters = make(map[string]string, len(params))
	}
	for k, v := range params {
		cfg.Parameters[k] = v
	}

	sp, err := parseSystemParameters(sysParams)
	if err != nil {
		return nil, err
	}
	cfg.SystemParameters = append(cfg.SystemParameters, sp...)

	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	out, err := experiment.New(cfg, nil).Run(ctx)
	if err != nil {
		return err
	}

	st := styles()
	fmt.Println(viz.RunHeader(st, cfg.Model, out.Integrator, out.Result))
	fmt.Println(viz.ResultTable(st, out.Result, out.Metrics, cfg.Metrics))

	if !save {
		return nil
	}
	runID, err := storageFor().Save(storage.RunMetadata{
		Model:         cfg.Model,
		Integrator:    out.Integrator,
		TEnd:          cfg.TEnd,
		NSteps:        cfg.NSteps,
		SampleStep:    cfg.SampleStep,
		InitialValues: out.InitialValues,
		Parameters:    cfg.Parameters,
		Metrics:       out.Metrics,
	}, out.Result)
	if err != nil {
		return err
	}
	logger.Info("run saved", "id", runID, "dir", dataDir)
	fmt.Printf("saved run: %s\n", runID)
	return nil
}
