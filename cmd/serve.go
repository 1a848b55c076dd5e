// cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/server"
	"github.com/xkilldash9x/autopilot/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the websocket control plane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := a.logger

			components, err := service.NewComponents(ctx, a.cfg, logger)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			srv, err := server.New(a.cfg.Server, components.Controller, logger)
			if err != nil {
				return err
			}
			logger.Info("Starting autopilot control plane", zap.String("version", Version))
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
