package cmd

import (
	"github.com/spf13/cobra"

	"github.com/speedrun-hq/airdropper/pkg/server"
)

func newServeCmd() *cobra.Command {
	var allowedOrigins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with health, status and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			srv := server.NewServer(server.Config{
				Port:           a.cfg.HTTPPort,
				MetricsAPIKey:  a.cfg.MetricsAPIKey,
				RateLimit:      a.cfg.APIRateLimit,
				AllowedOrigins: allowedOrigins,
			}, a.pool, a.service, a.logger)

			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringSliceVar(&allowedOrigins, "allowed-origins", []string{"*"}, "Origins allowed to call the API from a browser")

	return cmd
}
