package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/portsim/internal/logging"
	"github.com/san-kum/portsim/internal/optim"
	"github.com/spf13/cobra"
)

func sweepModel(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	axes := make([]optim.Axis, 0, len(sweepAxes))
	for _, s := range sweepAxes {
		a, err := optim.ParseAxis(s)
		if err != nil {
			return err
		}
		axes = append(axes, a)
	}
	obj, err := optim.ParseObjective(sweepObjective, sweepMaximize)
	if err != nil {
		return err
	}

	g := optim.NewGridSearch(axes, sweepWorkers)
	points, err := g.Search(cmd.Context(), cfg, nil, obj)
	if err != nil {
		return err
	}

	failed := 0
	for _, p := range points {
		if p.Err != nil {
			failed++
			logging.FromContext(cmd.Context()).Warn("grid point failed", "params", formatParams(p.Params), "error", p.Err)
		}
	}
	ranked := optim.Rank(points, obj)
	if len(ranked) == 0 {
		return fmt.Errorf("all %d grid points failed", len(points))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tPARAMETERS\t%s\n", strings.ToUpper(sweepObjective))
	for i, p := range ranked {
		if sweepTop > 0 && i >= sweepTop {
			break
		}
		fmt.Fprintf(w, "%d\t%s\t%g\n", i+1, formatParams(p.Params), p.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d points, %d failed\n", len(points), failed)
	return nil
}

func formatParams(params map[string]string) string {
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + params[n]
	}
	return strings.Join(parts, " ")
}
