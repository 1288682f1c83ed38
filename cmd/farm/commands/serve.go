package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tokenfarm/internal/gateway"
	"tokenfarm/shared"
)

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only farm data over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if port == "" {
				port = envOr(shared.EnvPort, shared.DefaultPort)
			}
			return gateway.New(ctx, session, registry, registry).ListenAndServe(ctx, port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (default $PORT or 8080)")
	return cmd
}
