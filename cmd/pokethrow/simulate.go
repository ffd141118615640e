package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/sim"
)

func newSimulateCmd() *cobra.Command {
	var req sim.Request
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay many seeded throws and summarize capture rates",
		Long: `Draw force, accuracy and roll for each nonce from the seed pair and
evaluate the capture. The same seeds always give the same summary.

Example: pokethrow simulate --attempts 100000 --server-seed abc --client-seed me`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := sim.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printSimulation(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.Attempts, "attempts", sim.DefaultAttempts, "number of throws to evaluate")
	cmd.Flags().Float64Var(&req.ForceMin, "force-min", 10, "lowest drawn force")
	cmd.Flags().Float64Var(&req.ForceMax, "force-max", 50, "highest drawn force")
	cmd.Flags().Float64Var(&req.AccuracyMin, "accuracy-min", 0, "lowest drawn accuracy")
	cmd.Flags().Float64Var(&req.AccuracyMax, "accuracy-max", 1, "highest drawn accuracy")
	cmd.Flags().StringVar(&req.ServerSeed, "server-seed", "", "server seed (generated when empty)")
	cmd.Flags().StringVar(&req.ClientSeed, "client-seed", "", "client seed")
	cmd.Flags().Uint64Var(&req.StartNonce, "start-nonce", 0, "first nonce")
	cmd.Flags().IntVar(&req.Workers, "workers", 0, "parallel workers (default GOMAXPROCS)")
	cmd.Flags().IntVar(&req.TimeoutMs, "timeout-ms", 0, "stop early and report a partial summary")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func printSimulation(w io.Writer, res *sim.Result) {
	s := res.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "server seed hash\t%s\n", res.ServerSeedHash)
	fmt.Fprintf(tw, "client seed\t%s\n", res.Echo.ClientSeed)
	fmt.Fprintf(tw, "nonces\t%d..%d\n", res.Echo.StartNonce, res.Echo.StartNonce+uint64(s.Evaluated))
	fmt.Fprintf(tw, "evaluated\t%d\n", s.Evaluated)
	fmt.Fprintf(tw, "captured\t%d (%s)\n", s.Successes, capture.Percent(s.SuccessRate))
	fmt.Fprintf(tw, "rate mean / median / p90\t%s / %s / %s\n",
		capture.Percent(s.MeanRate), capture.Percent(s.MedianRate), capture.Percent(s.P90Rate))
	fmt.Fprintf(tw, "rate std dev\t%s\n", capture.Percent(s.StdDevRate))
	fmt.Fprintf(tw, "mean force\t%.2f\n", s.MeanForce)
	fmt.Fprintf(tw, "took\t%s\n", res.Duration)
	if s.TimedOut {
		fmt.Fprintf(tw, "note\ttimed out, summary is partial\n")
	}
	tw.Flush()

	grades := make([]capture.Grade, 0, len(s.Grades))
	for g := range s.Grades {
		grades = append(grades, g)
	}
	sort.Slice(grades, func(i, j int) bool { return s.Grades[grades[i]] > s.Grades[grades[j]] })
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GRADE\tCOUNT\tSHARE")
	for _, g := range grades {
		share := float64(s.Grades[g]) / float64(max(s.Evaluated, 1))
		fmt.Fprintf(tw, "%s\t%d\t%s\n", g, s.Grades[g], capture.Percent(share))
	}
	tw.Flush()
}

func newOddsCmd(c *cli) *cobra.Command {
	var forces, accuracies []float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "odds",
		Short: "Show capture rates over a force x accuracy grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := c.cfg.Encounter().Capture.OddsTable(forces, accuracies)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), table)
			}
			printOdds(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&forces, "forces", nil, "force columns (default 0,10,20,30,40,50)")
	cmd.Flags().Float64SliceVar(&accuracies, "accuracies", nil, "accuracy rows in [0, 1]")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the table as JSON")

	return cmd
}

func printOdds(w io.Writer, t capture.OddsTable) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "accuracy \\ force\t")
	for _, f := range t.Forces {
		fmt.Fprintf(tw, "%s\t", strconv.FormatFloat(f, 'f', -1, 64))
	}
	fmt.Fprintln(tw)
	for i, row := range t.Rows {
		fmt.Fprintf(tw, "%s\t", strconv.FormatFloat(t.Accuracies[i], 'f', -1, 64))
		for _, cell := range row {
			fmt.Fprintf(tw, "%s%%\t", cell.Percent.String())
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
