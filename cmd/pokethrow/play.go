package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/pokethrow/pokethrow-desktop/internal/app"
	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/history"
	"github.com/pokethrow/pokethrow-desktop/internal/session"
	"github.com/pokethrow/pokethrow-desktop/internal/sfx"
	"github.com/pokethrow/pokethrow-desktop/internal/tui"
)

func newPlayCmd(c *cli) *cobra.Command {
	var mute bool
	var volume float64

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal; drag with the mouse to throw",
		Long: `Play encounters in the terminal. Press and drag from the ball, then
release to throw. Captures are saved to the history store.

Keys: s start, p stop after this encounter, m menu, q quit.
Service logs go to play.log in the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			logFile, err := os.OpenFile(filepath.Join(c.cfg.DataDir, "play.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open play log: %w", err)
			}
			defer logFile.Close()
			logger := log.New(logFile, "[PLAY] ", log.LstdFlags|log.Lshortfile)
			c.logger = logger

			svc, err := c.open(ctx, app.Options{})
			if err != nil {
				return err
			}
			defer closeServices(svc, cmd.ErrOrStderr())

			rec := history.NewRecorder(svc.History, 16, logger, func(e history.Entry) {
				logger.Printf("saved #%d %s as %s", e.ID, e.Name, e.LocalID)
			})
			defer rec.Close()

			results := make(chan bridge.MetadataResult, 4)
			lookups, cancelLookups := context.WithCancel(ctx)
			port := bridge.NewFetchPort(lookups, svc.PokeAPI, results, c.cfg.MetadataTimeout, rec)
			defer func() {
				cancelLookups()
				port.Wait()
			}()

			orch, err := svc.Orchestrator(port)
			if err != nil {
				return err
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init terminal: %w", err)
			}
			defer screen.Fini()

			var sound tui.Sound
			if c.cfg.Sound && !mute {
				player := sfx.NewPlayer(volume)
				if err := player.Init(); err != nil {
					logger.Printf("sound disabled: %v", err)
				} else {
					defer player.Close()
					sound = player
				}
			}

			host := tui.NewHost(screen, c.cfg.Encounter().Throw.Viewport, c.cfg.Printer(), sound, logger)
			sess := session.New(orch, results, host, c.cfg.Session())
			go sess.Run(ctx)
			defer sess.Stop()

			sess.Send(encounter.Start{})
			host.Run(ctx, sess, c.cfg.BroadcastHz)
			return nil
		},
	}

	cmd.Flags().BoolVar(&mute, "mute", false, "disable sound effects")
	cmd.Flags().Float64Var(&volume, "volume", 0.6, "sound volume in [0, 1]")

	return cmd
}
