package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pokethrow/pokethrow-desktop/internal/api"
	"github.com/pokethrow/pokethrow-desktop/internal/app"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr, token string
	var randomToken bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API until interrupted",
		Long: `Serve odds, simulations, metadata lookups and the capture history over
HTTP. With a token, /api/v1 requests must send it in the ` + api.TokenHeader + `
header; /health stays open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.cfg.APIAddr
			}
			if randomToken {
				token = uuid.NewString()
			}

			svc, err := c.open(ctx, app.Options{})
			if err != nil {
				return err
			}
			defer closeServices(svc, cmd.ErrOrStderr())

			srv := svc.API(token)
			if err := srv.Start(addr); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "listening on http://%s\n", srv.Addr())
			if token != "" {
				fmt.Fprintf(out, "token: %s\n", token)
			}

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default PT_API_ADDR)")
	cmd.Flags().StringVar(&token, "token", "", "require this token on /api/v1")
	cmd.Flags().BoolVar(&randomToken, "random-token", false, "generate a token and print it")

	return cmd
}
