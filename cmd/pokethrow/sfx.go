package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/sfx"
)

func newSfxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sfx",
		Short: "List, play or export the game's sound cues",
	}
	cmd.AddCommand(newSfxListCmd(), newSfxPlayCmd(), newSfxExportCmd())
	return cmd
}

func newSfxListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cue names and lengths",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, cue := range sfx.Cues() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", cue, sfx.Duration(cue))
			}
		},
	}
}

func newSfxPlayCmd() *cobra.Command {
	var volume float64

	cmd := &cobra.Command{
		Use:   "play [cue...]",
		Short: "Play cues through the speaker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			player := sfx.NewPlayer(volume)
			if err := player.Init(); err != nil {
				return fmt.Errorf("open speaker: %w", err)
			}
			defer player.Close()
			for _, name := range args {
				cue, err := sfx.ParseCue(name)
				if err != nil {
					return err
				}
				player.Play(cue)
				select {
				case <-time.After(sfx.Duration(cue) + 100*time.Millisecond):
				case <-cmd.Context().Done():
					return nil
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&volume, "volume", 0.6, "volume in [0, 1]")

	return cmd
}

func newSfxExportCmd() *cobra.Command {
	var volume float64

	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Write every cue as a 16-bit stereo WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			for _, cue := range sfx.Cues() {
				path := filepath.Join(dir, string(cue)+".wav")
				if err := exportCue(path, cue, volume); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&volume, "volume", 1, "volume in [0, 1]")

	return cmd
}

func exportCue(path string, cue encounter.Cue, volume float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sfx.WriteWAV(f, cue, volume); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", cue, err)
	}
	return f.Close()
}
