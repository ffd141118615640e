package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pokethrow/pokethrow-desktop/internal/app"
	"github.com/pokethrow/pokethrow-desktop/internal/autoplay"
	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/history"
)

func newAutoplayCmd(c *cli) *cobra.Command {
	var opts autoplay.Options
	var online, record, asJSON bool

	cmd := &cobra.Command{
		Use:   "autoplay [script.js]",
		Short: "Let a script aim every throw",
		Long: `Run encounters headlessly. The script defines aim(ctx) and returns the
pull vector {x, y}; log() and stop() are available, and Math.random is
seeded from the seed pair so a run replays exactly.

Example: pokethrow autoplay aim.js --encounters 50 --server-seed abc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}

			opts.Config = c.cfg.Encounter()
			// saved captures carry real metadata
			online = online || record
			if online {
				svc, err := c.open(ctx, app.Options{SkipHistory: !record})
				if err != nil {
					return err
				}
				defer closeServices(svc, cmd.ErrOrStderr())
				if online {
					opts.Fetcher = svc.PokeAPI
				}
				if record {
					rec := history.NewRecorder(svc.History, 64, c.logger, nil)
					defer rec.Close()
					opts.Notifier = rec
				}
			}

			runner, err := autoplay.NewRunner(ctx, string(source), opts)
			if err != nil {
				return err
			}
			rep, runErr := runner.Run(ctx)
			if rep != nil {
				if asJSON {
					if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
						return err
					}
				} else {
					printReport(cmd.OutOrStdout(), rep)
				}
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&opts.Encounters, "encounters", autoplay.DefaultEncounters, "encounters to play")
	cmd.Flags().IntVar(&opts.MaxThrows, "max-throws", autoplay.DefaultMaxThrows, "throws before an encounter is abandoned")
	cmd.Flags().DurationVar(&opts.CallTimeout, "call-timeout", 0, "bound on each aim() call")
	cmd.Flags().StringVar(&opts.ServerSeed, "server-seed", "", "server seed (generated when empty)")
	cmd.Flags().StringVar(&opts.ClientSeed, "client-seed", "", "client seed")
	cmd.Flags().BoolVar(&online, "online", false, "fetch real metadata instead of placeholders")
	cmd.Flags().BoolVar(&record, "record", false, "save captures to the history store")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")

	return cmd
}

func printReport(w io.Writer, rep *autoplay.Report) {
	for _, l := range rep.Logs {
		fmt.Fprintf(w, "[script] %s\n", l.Message)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "server seed hash\t%s\n", rep.Seeds.ServerSeedHash)
	fmt.Fprintf(tw, "client seed\t%s\n", rep.Seeds.ClientSeed)
	fmt.Fprintf(tw, "encounters\t%d (%d abandoned)\n", rep.Encounters, rep.Abandoned)
	fmt.Fprintf(tw, "throws\t%d (%d hits, %d misses)\n", rep.Throws, rep.Hits, rep.Misses)
	fmt.Fprintf(tw, "captures\t%d (%s)\n", rep.Captures, capture.Percent(rep.CaptureRate))
	fmt.Fprintf(tw, "broke free\t%d\n", rep.Failures)
	if rep.MetadataErrors > 0 {
		fmt.Fprintf(tw, "metadata errors\t%d\n", rep.MetadataErrors)
	}
	fmt.Fprintf(tw, "game time\t%s\n", rep.SimTime)
	if rep.StoppedByScript {
		fmt.Fprintf(tw, "note\tscript called stop()\n")
	}
	tw.Flush()
}
