package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/portsim/internal/storage"
	"github.com/san-kum/portsim/internal/viz"
	"github.com/spf13/cobra"
)

func storageFor() *storage.Store {
	return storage.New(dataDir)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storageFor().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tT_END\tINTEG\tVARS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%s\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.TEnd,
			run.Integrator,
			len(run.Variables),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storageFor()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	result, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.RunHeader(styles(), meta.Model, meta.Integrator, result))
	fmt.Println()

	if len(plotPhase) > 0 {
		if len(plotPhase) != 2 {
			return fmt.Errorf("--phase takes two variables, got %v", plotPhase)
		}
		if plotSVG != "" {
			svg, err := viz.PhaseSVG(result, plotPhase[0], plotPhase[1], 800, 600, string(viz.GetTheme(theme).Secondary))
			if err != nil {
				return err
			}
			if err := os.WriteFile(plotSVG, []byte(svg), 0644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", plotSVG)
			return nil
		}
		out, err := viz.PhasePortrait(result, plotPhase[0], plotPhase[1], plotWidth/2, plotHeight)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	out, err := viz.Plot(result, plotVars, viz.PlotOptions{
		Width:   plotWidth,
		Height:  plotHeight,
		Overlay: plotOverlay,
	})
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
