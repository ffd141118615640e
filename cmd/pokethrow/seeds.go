package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pokethrow/pokethrow-desktop/internal/app"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
)

func newSeedsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seeds",
		Short: "Show, rotate or verify the capture roll seeds",
	}
	cmd.AddCommand(newSeedsShowCmd(c), newSeedsRotateCmd(c), newSeedsVerifyCmd())
	return cmd
}

func newSeedsShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the committed server seed hash, client seed and nonce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.open(cmd.Context(), app.Options{SkipHistory: true})
			if err != nil {
				return err
			}
			defer closeServices(svc, cmd.ErrOrStderr())

			cm := svc.Commitment()
			fmt.Fprintf(cmd.OutOrStdout(), "profile           %s\nserver seed hash  %s\nclient seed       %s\nnonce             %d\n",
				c.cfg.Profile, cm.ServerSeedHash, cm.ClientSeed, cm.Nonce)
			return nil
		},
	}
}

func newSeedsRotateCmd(c *cli) *cobra.Command {
	var clientSeed string

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Reveal the current server seed and commit to a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.open(cmd.Context(), app.Options{SkipHistory: true})
			if err != nil {
				return err
			}
			defer closeServices(svc, cmd.ErrOrStderr())

			rev, err := svc.RotateSeeds(clientSeed)
			if err != nil {
				return err
			}
			next := svc.Commitment()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "revealed server seed  %s\n", rev.ServerSeed)
			fmt.Fprintf(out, "  hash                %s\n", rev.ServerSeedHash)
			fmt.Fprintf(out, "  client seed         %s\n", rev.ClientSeed)
			fmt.Fprintf(out, "  last nonce          %d\n", rev.LastNonce)
			fmt.Fprintf(out, "new server seed hash  %s\n", next.ServerSeedHash)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientSeed, "client-seed", "", "client seed for the new pair (default keep)")

	return cmd
}

func newSeedsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [server-seed] [client-seed] [nonce] [roll]",
		Short: "Check that a revealed seed pair produced a roll",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			nonce, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid nonce %q", args[2])
			}
			roll, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid roll %q", args[3])
			}
			want := fairness.Float(args[0], args[1], nonce)
			if !fairness.Verify(args[0], args[1], nonce, roll) {
				return fmt.Errorf("roll %v does not match: seeds give %v at nonce %d", roll, want, nonce)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %v (server seed hash %s)\n", want, fairness.HashSeed(args[0]))
			return nil
		},
	}
}
