package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pokethrow/pokethrow-desktop/internal/app"
	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/history"
	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

func newFetchCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fetch [id...]",
		Short: "Look up creature metadata through the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, len(args))
			for i, a := range args {
				id, err := strconv.Atoi(a)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid id %q", a)
				}
				ids[i] = id
			}

			svc, err := c.open(cmd.Context(), app.Options{SkipHistory: true})
			if err != nil {
				return err
			}
			defer closeServices(svc, cmd.ErrOrStderr())

			var errs []error
			for _, id := range ids {
				rec, err := svc.PokeAPI.GetPokemon(cmd.Context(), id)
				if err != nil {
					errs = append(errs, fmt.Errorf("#%d: %w", id, err))
					continue
				}
				if asJSON {
					if err := writeJSON(cmd.OutOrStdout(), rec); err != nil {
						return err
					}
					continue
				}
				printRecord(cmd.OutOrStdout(), rec)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")

	return cmd
}

func printRecord(w io.Writer, rec pokemon.Record) {
	fmt.Fprintf(w, "#%d %s (%s)\n", rec.ID, rec.DisplayName(), strings.Join(rec.Types, "/"))
	if rec.Height > 0 || rec.Weight > 0 {
		fmt.Fprintf(w, "  height %.1fm  weight %.1fkg\n", float64(rec.Height)/10, float64(rec.Weight)/10)
	}
	for _, s := range rec.Stats {
		fmt.Fprintf(w, "  %-16s %3d\n", s.Name, s.Value)
	}
	fmt.Fprintf(w, "  %s\n", rec.Image)
}

func newHistoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear captured creatures",
	}
	cmd.AddCommand(newHistoryListCmd(c), newHistoryShowCmd(c), newHistoryClearCmd(c))
	return cmd
}

func newHistoryListCmd(c *cli) *cobra.Command {
	var page, perPage int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List captures, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.open(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer closeServices(svc, cmd.ErrOrStderr())

			p, err := svc.History.List(cmd.Context(), page, perPage)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			printHistory(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "entries per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the page as JSON")

	return cmd
}

func printHistory(w io.Writer, p history.Page) {
	if len(p.Entries) == 0 {
		fmt.Fprintln(w, "no captures yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCAL ID\tNO.\tNAME\tTYPES\tGRADE\tRATE\tCAUGHT AT")
	for _, e := range p.Entries {
		fmt.Fprintf(tw, "%s\t#%d\t%s\t%s\t%s\t%s\t%s\n",
			e.LocalID, e.ID, e.Record().DisplayName(), strings.Join(e.Types, "/"),
			e.Grade, capture.Percent(e.Rate), e.CapturedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d of %d (%d captures)\n", p.Page, max(p.TotalPages, 1), p.TotalCount)
}

func newHistoryShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show [local-id]",
		Short: "Show one capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.open(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer closeServices(svc, cmd.ErrOrStderr())

			e, err := svc.History.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printRecord(w, e.Record())
			fmt.Fprintf(w, "  caught %s with force %.1f, accuracy %.2f (rate %s, roll %.4f, %s)\n",
				e.CapturedAt.Local().Format("2006-01-02 15:04:05"), e.Force, e.Accuracy,
				capture.Percent(e.Rate), e.Roll, e.Grade)
			return nil
		},
	}
}

func newHistoryClearCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every capture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}
			svc, err := c.open(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer closeServices(svc, cmd.ErrOrStderr())

			n, err := svc.History.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d captures\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	return cmd
}
