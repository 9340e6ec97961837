package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cast"

	"github.com/speedrun-hq/airdropper/pkg/chains"
	"github.com/speedrun-hq/airdropper/pkg/logger"
	"github.com/speedrun-hq/airdropper/pkg/whitelist"
)

const (
	// DefaultChainID is the chain airdrops are created on
	DefaultChainID = chains.BaseChainID

	// DefaultRPCProbeTimeout is the liveness probe bound in milliseconds
	DefaultRPCProbeTimeout = 3000

	// DefaultRPCRequestTimeout is the per-request HTTP timeout in milliseconds
	DefaultRPCRequestTimeout = 5000

	// DefaultRPCBackoff is the wait between endpoint attempts in milliseconds
	DefaultRPCBackoff = 1000

	// DefaultSiteURL is the base of claim and dashboard links
	DefaultSiteURL = "https://mint.club"

	// DefaultConfirmationGrace is the wait before the first receipt lookup in milliseconds
	DefaultConfirmationGrace = 2000

	// DefaultConfirmationInterval is the wait between receipt lookups in milliseconds
	DefaultConfirmationInterval = 2000

	// DefaultConfirmationAttempts is the number of receipt lookups before giving up
	DefaultConfirmationAttempts = 30

	// DefaultSignatureTimeout is how long a signature request may stay unanswered, in seconds
	DefaultSignatureTimeout = 120

	// DefaultTokenCacheTTL is the token metadata cache lifetime in seconds
	DefaultTokenCacheTTL = 300

	// DefaultHTTPPort is the API server port
	DefaultHTTPPort = "8080"

	// DefaultAPIRateLimit is the request rate allowed on the merkle endpoints, per second
	DefaultAPIRateLimit = 10

	// DefaultLogLevel is the minimum level printed
	DefaultLogLevel = "info"

	// DefaultLogColoring enables colored chain prefixes
	DefaultLogColoring = true
)

// GetEnvChainID returns the required chain id from environment variables
func GetEnvChainID() (int, error) {
	chainID := os.Getenv("CHAIN_ID")
	if chainID == "" {
		return DefaultChainID, nil
	}

	id, err := cast.ToIntE(chainID)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid CHAIN_ID value: %s, must be a positive integer", chainID)
	}
	return id, nil
}

// GetEnvRPCEndpoints returns the ordered endpoint list, or the public defaults for chainID
func GetEnvRPCEndpoints(chainID int) ([]string, error) {
	endpoints := splitList(os.Getenv("RPC_ENDPOINTS"))
	if len(endpoints) == 0 {
		endpoints = chains.DefaultRPCEndpoints(chainID)
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("RPC_ENDPOINTS is required for chain %d", chainID)
	}

	for _, endpoint := range endpoints {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return nil, fmt.Errorf("invalid RPC_ENDPOINTS value: %s, must be a valid URL", endpoint)
		}
	}
	return endpoints, nil
}

// GetEnvRPCProbeTimeout returns the liveness probe bound
func GetEnvRPCProbeTimeout() (time.Duration, error) {
	return getEnvMillis("RPC_PROBE_TIMEOUT_MS", DefaultRPCProbeTimeout, false)
}

// GetEnvRPCRequestTimeout returns the per-request HTTP timeout
func GetEnvRPCRequestTimeout() (time.Duration, error) {
	return getEnvMillis("RPC_REQUEST_TIMEOUT_MS", DefaultRPCRequestTimeout, false)
}

// GetEnvRPCBackoff returns the wait between endpoint attempts. Zero is allowed.
func GetEnvRPCBackoff() (time.Duration, error) {
	return getEnvMillis("RPC_BACKOFF_MS", DefaultRPCBackoff, true)
}

// GetEnvDistributorAddress returns the MerkleDistributor contract address
func GetEnvDistributorAddress() (common.Address, error) {
	distributor := os.Getenv("DISTRIBUTOR_ADDRESS")
	if distributor == "" {
		return common.Address{}, fmt.Errorf("DISTRIBUTOR_ADDRESS environment variable is required")
	}

	if !common.IsHexAddress(distributor) {
		return common.Address{}, fmt.Errorf("invalid DISTRIBUTOR_ADDRESS value: %s, must be a valid Ethereum address", distributor)
	}
	return common.HexToAddress(distributor), nil
}

// GetEnvSiteURL returns the base of claim links
func GetEnvSiteURL() (string, error) {
	site := os.Getenv("SITE_URL")
	if site == "" {
		return DefaultSiteURL, nil
	}

	if _, err := url.ParseRequestURI(site); err != nil {
		return "", fmt.Errorf("invalid SITE_URL value: %s, must be a valid URL", site)
	}
	return strings.TrimRight(site, "/"), nil
}

// GetEnvConfirmationGrace returns the wait before the first receipt lookup
func GetEnvConfirmationGrace() (time.Duration, error) {
	return getEnvMillis("CONFIRMATION_GRACE_MS", DefaultConfirmationGrace, true)
}

// GetEnvConfirmationInterval returns the wait between receipt lookups
func GetEnvConfirmationInterval() (time.Duration, error) {
	return getEnvMillis("CONFIRMATION_INTERVAL_MS", DefaultConfirmationInterval, false)
}

// GetEnvConfirmationAttempts returns the receipt lookup budget
func GetEnvConfirmationAttempts() (int, error) {
	attempts := os.Getenv("CONFIRMATION_ATTEMPTS")
	if attempts == "" {
		return DefaultConfirmationAttempts, nil
	}

	count, err := cast.ToIntE(attempts)
	if err != nil {
		return 0, fmt.Errorf("invalid CONFIRMATION_ATTEMPTS value: %s, must be an integer", attempts)
	}
	if count <= 0 {
		return 0, fmt.Errorf("CONFIRMATION_ATTEMPTS must be greater than 0")
	}
	return count, nil
}

// GetEnvSignatureTimeout returns how long a signature request may stay unanswered
func GetEnvSignatureTimeout() (time.Duration, error) {
	return getEnvSeconds("SIGNATURE_TIMEOUT_SECONDS", DefaultSignatureTimeout)
}

// GetEnvTokenCacheTTL returns the token metadata cache lifetime
func GetEnvTokenCacheTTL() (time.Duration, error) {
	return getEnvSeconds("TOKEN_CACHE_TTL_SECONDS", DefaultTokenCacheTTL)
}

// GetEnvWhitelistUploadURL returns the pinning endpoint. Empty disables uploads.
func GetEnvWhitelistUploadURL() (string, error) {
	upload := os.Getenv("WHITELIST_UPLOAD_URL")
	if upload == "" {
		return "", nil
	}

	if _, err := url.ParseRequestURI(upload); err != nil {
		return "", fmt.Errorf("invalid WHITELIST_UPLOAD_URL value: %s, must be a valid URL", upload)
	}
	return upload, nil
}

// GetEnvIPFSGateways returns the gateways tried, in order, when fetching a whitelist
func GetEnvIPFSGateways() ([]string, error) {
	gateways := splitList(os.Getenv("IPFS_GATEWAYS"))
	if len(gateways) == 0 {
		return append([]string(nil), whitelist.DefaultGateways...), nil
	}

	for _, gateway := range gateways {
		if _, err := url.ParseRequestURI(gateway); err != nil {
			return nil, fmt.Errorf("invalid IPFS_GATEWAYS value: %s, must be a valid URL", gateway)
		}
	}
	return gateways, nil
}

// GetEnvHTTPPort returns the API server port
func GetEnvHTTPPort() (string, error) {
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		return DefaultHTTPPort, nil
	}

	// Validate port format
	p, err := cast.ToIntE(port)
	if err != nil || p <= 0 || p > 65535 {
		return "", fmt.Errorf("invalid HTTP_PORT value: %s, must be a valid port number", port)
	}
	return port, nil
}

// GetEnvAPIRateLimit returns the merkle endpoint request rate
func GetEnvAPIRateLimit() (int, error) {
	limit := os.Getenv("API_RATE_LIMIT")
	if limit == "" {
		return DefaultAPIRateLimit, nil
	}

	rate, err := cast.ToIntE(limit)
	if err != nil {
		return 0, fmt.Errorf("invalid API_RATE_LIMIT value: %s, must be an integer", limit)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("API_RATE_LIMIT must be greater than 0")
	}
	return rate, nil
}

// GetEnvLogLevel returns the minimum log level
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = DefaultLogLevel
	}

	parsed, err := logger.ParseLevel(level)
	if err != nil {
		return logger.InfoLevel, fmt.Errorf("invalid LOG_LEVEL value: %s, must be one of debug, info, notice, warning, error", level)
	}
	return parsed, nil
}

// GetEnvLogColoring returns whether chain prefixes are colored
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	if coloring == "" {
		return DefaultLogColoring, nil
	}

	enabled, err := cast.ToBoolE(coloring)
	if err != nil {
		return false, fmt.Errorf("invalid LOG_COLORING value: %s, must be 'true' or 'false'", coloring)
	}
	return enabled, nil
}

func getEnvMillis(key string, def int, allowZero bool) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(def) * time.Millisecond, nil
	}

	ms, err := cast.ToIntE(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be an integer", key, value)
	}
	if ms < 0 || (ms == 0 && !allowZero) {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func getEnvSeconds(key string, def int) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(def) * time.Second, nil
	}

	seconds, err := cast.ToIntE(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be an integer", key, value)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return time.Duration(seconds) * time.Second, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
