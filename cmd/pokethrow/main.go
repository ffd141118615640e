// Command pokethrow plays and inspects the capture game from a terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pokethrow/pokethrow-desktop/internal/api"
	"github.com/pokethrow/pokethrow-desktop/internal/app"
	"github.com/pokethrow/pokethrow-desktop/internal/config"
)

// cli carries the flags and settings every subcommand shares.
type cli struct {
	envFiles []string
	verbose  bool

	cfg    config.Config
	logger *log.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:           "pokethrow",
		Short:         "Throw Poké Balls, check the odds and replay fair rolls",
		Version:       fmt.Sprintf("%s (%s, %s)", api.Version, api.GitCommit, api.BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringSliceVar(&c.envFiles, "env", nil, "dotenv files to read before the environment (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log service activity to stderr")

	rootCmd.AddCommand(
		newPlayCmd(c),
		newSimulateCmd(),
		newOddsCmd(c),
		newFetchCmd(c),
		newHistoryCmd(c),
		newServeCmd(c),
		newAutoplayCmd(c),
		newSfxCmd(),
		newSeedsCmd(c),
	)
	return rootCmd
}

func (c *cli) load(stderr io.Writer) error {
	cfg, err := config.Load(c.envFiles...)
	if err != nil {
		return err
	}
	c.cfg = cfg
	out := io.Discard
	if c.verbose {
		out = stderr
	}
	c.logger = log.New(out, "[POKETHROW] ", log.LstdFlags)
	return nil
}

// open starts the shared services for one command.
func (c *cli) open(ctx context.Context, opts app.Options) (*app.Services, error) {
	return app.Open(ctx, c.cfg, c.logger, opts)
}

// closeServices reports a failed close without masking the command's error.
func closeServices(s *app.Services, stderr io.Writer) {
	if err := s.Close(); err != nil {
		fmt.Fprintln(stderr, "close:", err)
	}
}
