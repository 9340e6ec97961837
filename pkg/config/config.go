package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/speedrun-hq/airdropper/pkg/airdrop"
	"github.com/speedrun-hq/airdropper/pkg/confirm"
	"github.com/speedrun-hq/airdropper/pkg/distribution"
	"github.com/speedrun-hq/airdropper/pkg/logger"
	"github.com/speedrun-hq/airdropper/pkg/rpcpool"
)

// Config holds the configuration for the airdrop service and CLI
type Config struct {
	ChainID            int
	RPC                RPCConfig
	DistributorAddress common.Address
	SiteURL            string
	Confirmation       ConfirmationConfig
	SignatureTimeout   time.Duration
	TokenCacheTTL      time.Duration
	Whitelist          WhitelistConfig
	HTTPPort           string
	APIRateLimit       int
	MetricsAPIKey      string
	PrivateKey         string
	LoggerConfig       LoggerConfig
}

// RPCConfig holds the endpoint pool configuration
type RPCConfig struct {
	Endpoints      []string
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
	Backoff        time.Duration
}

// ConfirmationConfig holds the receipt polling configuration
type ConfirmationConfig struct {
	GracePeriod time.Duration
	Interval    time.Duration
	Attempts    int
}

// WhitelistConfig holds the whitelist storage configuration
type WhitelistConfig struct {
	UploadURL string
	Gateways  []string
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	chainID, err := GetEnvChainID()
	if err != nil {
		return nil, err
	}

	endpoints, err := GetEnvRPCEndpoints(chainID)
	if err != nil {
		return nil, err
	}

	probeTimeout, err := GetEnvRPCProbeTimeout()
	if err != nil {
		return nil, err
	}

	requestTimeout, err := GetEnvRPCRequestTimeout()
	if err != nil {
		return nil, err
	}

	backoff, err := GetEnvRPCBackoff()
	if err != nil {
		return nil, err
	}

	distributor, err := GetEnvDistributorAddress()
	if err != nil {
		return nil, err
	}

	siteURL, err := GetEnvSiteURL()
	if err != nil {
		return nil, err
	}

	grace, err := GetEnvConfirmationGrace()
	if err != nil {
		return nil, err
	}

	interval, err := GetEnvConfirmationInterval()
	if err != nil {
		return nil, err
	}

	attempts, err := GetEnvConfirmationAttempts()
	if err != nil {
		return nil, err
	}

	signatureTimeout, err := GetEnvSignatureTimeout()
	if err != nil {
		return nil, err
	}

	tokenCacheTTL, err := GetEnvTokenCacheTTL()
	if err != nil {
		return nil, err
	}

	uploadURL, err := GetEnvWhitelistUploadURL()
	if err != nil {
		return nil, err
	}

	gateways, err := GetEnvIPFSGateways()
	if err != nil {
		return nil, err
	}

	httpPort, err := GetEnvHTTPPort()
	if err != nil {
		return nil, err
	}

	rateLimit, err := GetEnvAPIRateLimit()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ChainID: chainID,
		RPC: RPCConfig{
			Endpoints:      endpoints,
			ProbeTimeout:   probeTimeout,
			RequestTimeout: requestTimeout,
			Backoff:        backoff,
		},
		DistributorAddress: distributor,
		SiteURL:            siteURL,
		Confirmation: ConfirmationConfig{
			GracePeriod: grace,
			Interval:    interval,
			Attempts:    attempts,
		},
		SignatureTimeout: signatureTimeout,
		TokenCacheTTL:    tokenCacheTTL,
		Whitelist: WhitelistConfig{
			UploadURL: uploadURL,
			Gateways:  gateways,
		},
		HTTPPort:      httpPort,
		APIRateLimit:  rateLimit,
		MetricsAPIKey: os.Getenv("METRICS_API_KEY"),
		PrivateKey:    os.Getenv("PRIVATE_KEY"),
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.DistributorAddress == (common.Address{}) {
		return fmt.Errorf("DISTRIBUTOR_ADDRESS must not be the zero address")
	}
	if len(cfg.RPC.Endpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint is required")
	}
	return nil
}

// RequirePrivateKey fails when no signing key is configured
func (c *Config) RequirePrivateKey() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required")
	}
	return nil
}

// PoolConfig returns the endpoint pool settings
func (c *Config) PoolConfig() rpcpool.Config {
	return rpcpool.Config{
		Endpoints:      c.RPC.Endpoints,
		ChainID:        int64(c.ChainID),
		ProbeTimeout:   c.RPC.ProbeTimeout,
		RequestTimeout: c.RPC.RequestTimeout,
		Backoff:        c.RPC.Backoff,
	}
}

// PollerConfig returns the receipt polling settings
func (c *Config) PollerConfig() confirm.Config {
	return confirm.Config{
		GracePeriod: c.Confirmation.GracePeriod,
		Interval:    c.Confirmation.Interval,
		Attempts:    c.Confirmation.Attempts,
	}
}

// ServiceConfig returns the query service settings
func (c *Config) ServiceConfig() distribution.Config {
	return distribution.Config{
		ChainID:       int64(c.ChainID),
		Distributor:   c.DistributorAddress,
		SiteURL:       c.SiteURL,
		TokenCacheTTL: c.TokenCacheTTL,
	}
}

// OrchestratorConfig returns the transaction orchestrator settings
func (c *Config) OrchestratorConfig() airdrop.Config {
	return airdrop.Config{
		ChainID:          int64(c.ChainID),
		SignatureTimeout: c.SignatureTimeout,
		ApprovalSettle:   airdrop.DefaultApprovalSettle,
	}
}
