package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/portsim/internal/config"
	"github.com/san-kum/portsim/internal/experiment"
	"github.com/san-kum/portsim/internal/logging"
	"github.com/san-kum/portsim/internal/metrics"
	"github.com/san-kum/portsim/internal/models"
	"github.com/san-kum/portsim/internal/modelfile"
	"github.com/san-kum/portsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	theme     string
	plain     bool

	// run flags
	configFile  string
	preset      string
	integrator  string
	solver      string
	tEnd        float64
	nSteps      int
	sampleStep  float64
	tolerance   float64
	timeSymbol  string
	initValues  []string
	paramValues []string
	sysParams   []string
	metricNames []string
	save        bool

	// dump flags
	dumpFormat string

	// plot flags
	plotVars    []string
	plotOverlay bool
	plotPhase   []string
	plotWidth   int
	plotHeight  int
	plotSVG     string

	// export flags
	exportOut string

	// sweep flags
	sweepAxes      []string
	sweepObjective string
	sweepMaximize  bool
	sweepWorkers   int
	sweepTop       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "portsim",
		Short:         "compose blocks through ports and wires, then simulate them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(logLevel, logFormat, os.Stderr)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".portsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.DefaultTheme.Name, "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	compileCmd := &cobra.Command{
		Use:   "compile [model]",
		Short: "compile a model and print its equations",
		Long:  "compile a model file (.yaml, .json, .hcl) or builtin:<name> and print its variables, parameters by class and required inputs",
		Args:  cobra.ExactArgs(1),
		RunE:  compileModel,
	}
	compileCmd.Flags().StringVar(&timeSymbol, "time-symbol", "", "time symbol")
	compileCmd.Flags().BoolVar(&plain, "plain", false, "print without styling")
	compileCmd.Flags().StringArrayVar(&sysParams, "sys-param", nil, "system parameter name=formula (repeatable)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "simulate a model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&save, "save", true, "save the run to the data directory")

	dumpCmd := &cobra.Command{
		Use:   "dump [model]",
		Short: "print the interchange form of a model",
		Args:  cobra.ExactArgs(1),
		RunE:  dumpModel,
	}
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "yaml", "output format (yaml, json, hcl)")
	dumpCmd.Flags().StringVar(&timeSymbol, "time-symbol", "", "time symbol")
	dumpCmd.Flags().StringArrayVar(&sysParams, "sys-param", nil, "system parameter name=formula (repeatable)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the series of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotVars, "vars", nil, "variables to plot (default all)")
	plotCmd.Flags().BoolVar(&plotOverlay, "overlay", false, "draw all variables into one chart")
	plotCmd.Flags().StringSliceVar(&plotPhase, "phase", nil, "draw a phase portrait of two variables, e.g. x,y")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "chart width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "chart height")
	plotCmd.Flags().StringVar(&plotSVG, "svg", "", "write the phase portrait to an SVG file instead")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storageFor().Export(args[0], exportOut)
		},
	}
	exportCmd.Flags().StringVar(&exportOut, "out", "-", "output file (- for stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list builtin models",
		RunE:  listModels,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "run a model over a grid of parameter values",
		Long:  "run a model once per point of a parameter grid and rank the points by one metric, e.g.\n  portsim sweep builtin:logistic --axis r=0.1:0.5:5 --objective x:mean",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepModel,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepAxes, "axis", nil, "swept parameter name=a,b,c or name=start:stop:count (repeatable)")
	sweepCmd.Flags().StringVar(&sweepObjective, "objective", "", "variable:metric to rank by")
	sweepCmd.Flags().BoolVar(&sweepMaximize, "maximize", false, "rank the largest value first")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", runtime.NumCPU(), "simulations run at once")
	sweepCmd.Flags().IntVar(&sweepTop, "top", 10, "grid points to print")
	_ = sweepCmd.MarkFlagRequired("axis")
	_ = sweepCmd.MarkFlagRequired("objective")

	rootCmd.AddCommand(compileCmd, runCmd, dumpCmd, listCmd, plotCmd, exportCmd, presetsCmd, modelsCmd, sweepCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func styles() viz.Styles {
	return viz.NewStyles(viz.GetTheme(theme))
}

// modelConfig is the configuration of the model-only commands.
func modelConfig(model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model
	cfg.TimeSymbol = timeSymbol
	sp, err := parseSystemParameters(sysParams)
	if err != nil {
		return nil, err
	}
	cfg.SystemParameters = sp
	return cfg, nil
}

func compileModel(cmd *cobra.Command, args []string) error {
	cfg, err := modelConfig(args[0])
	if err != nil {
		return err
	}
	sys, _, err := experiment.New(cfg, nil).Compile(cmd.Context())
	if err != nil {
		return err
	}
	if plain {
		fmt.Print(sys.Describe())
		return nil
	}
	fmt.Print(viz.Readout(styles(), sys))
	return nil
}

func dumpModel(cmd *cobra.Command, args []string) error {
	cfg, err := modelConfig(args[0])
	if err != nil {
		return err
	}
	f, _, err := experiment.New(cfg, nil).ModelFile()
	if err != nil {
		return err
	}
	return modelfile.Encode(os.Stdout, modelfile.Format(dumpFormat), f)
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.PresetModels()
	if len(args) > 0 {
		names = []string{strings.TrimPrefix(args[0], experiment.BuiltinPrefix)}
	}
	for _, model := range names {
		presets := config.ListPresets(model)
		if len(presets) == 0 {
			fmt.Printf("no presets for model: %s\n", model)
			continue
		}
		fmt.Printf("presets for %s:\n", model)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tDESCRIPTION")
	for _, name := range models.List() {
		m, err := models.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s%s\t%s\n", experiment.BuiltinPrefix, name, m.Description())
	}
	return w.Flush()
}

// addRunFlags registers the flags shared by run and sweep.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&integrator, "integrator", "continuous", "integrator (discrete, continuous)")
	cmd.Flags().StringVar(&solver, "solver", "rk45", "continuous solver (rk45, rk4)")
	cmd.Flags().Float64Var(&tEnd, "t-end", config.DefaultTEnd, "time span")
	cmd.Flags().IntVar(&nSteps, "n-steps", config.DefaultNSteps, "discrete sub-steps per time unit")
	cmd.Flags().Float64Var(&sampleStep, "sample-step", config.DefaultSampleStep, "continuous sampling interval")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "rk45 relative tolerance")
	cmd.Flags().StringVar(&timeSymbol, "time-symbol", "", "time symbol")
	cmd.Flags().StringArrayVar(&initValues, "init", nil, "initial value name=number (repeatable)")
	cmd.Flags().StringArrayVar(&paramValues, "param", nil, "parameter name=formula (repeatable)")
	cmd.Flags().StringArrayVar(&sysParams, "sys-param", nil, "system parameter name=formula (repeatable)")
	cmd.Flags().StringSliceVar(&metricNames, "metrics", nil, "metrics to record ("+strings.Join(metrics.Names(), ", ")+")")
}
