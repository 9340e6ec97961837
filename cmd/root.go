// Package cmd wires the airdropper components into a command line tool.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/speedrun-hq/airdropper/pkg/config"
	"github.com/speedrun-hq/airdropper/pkg/distribution"
	"github.com/speedrun-hq/airdropper/pkg/logger"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
)

// NewRootCmd builds the airdropper command tree
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "airdropper",
		Short:         "Create and inspect Merkle airdrops on EVM chains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMerkleCmd())
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newDistributionCmd())
	cmd.AddCommand(newTokensCmd())

	return cmd
}

// app holds the components every chain-facing command needs
type app struct {
	cfg     *config.Config
	logger  logger.Logger
	pool    *rpcpool.Pool
	service *distribution.Service
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	pool, err := rpcpool.New(cfg.PoolConfig(), log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		pool:    pool,
		service: distribution.NewService(pool, cfg.ServiceConfig(), log),
	}, nil
}
