package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Chains   map[string]ChainConfig
	Scan     ScanConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ChainConfig holds configuration for one explorer API
type ChainConfig struct {
	Name               string
	ChainID            int64
	APIURL             string
	APIKey             string
	RequestsPerSecond  int      // explorer rate budget, per API key
	CandidateAddresses []string // addresses the scanner will probe
}

// ScanConfig holds discovery run configuration
type ScanConfig struct {
	Interval      time.Duration // 0 disables the background scheduler
	LimitPerChain int
	HTTPTimeout   time.Duration
}

// chainSpec describes one supported explorer. A chain is enabled when its
// API-key environment variable is set.
type chainSpec struct {
	name              string
	chainID           int64
	defaultAPIURL     string
	apiKeyEnv         string
	defaultCandidates string
}

var supportedChains = []chainSpec{
	{
		name:          "ethereum",
		chainID:       1,
		defaultAPIURL: "https://api.etherscan.io/api",
		apiKeyEnv:     "ETHERSCAN_API_KEY",
		defaultCandidates: "0xdAC17F958D2ee523a2206206994597C13D831ec7," +
			"0x6B175474E89094C44Da98b954EedeAC495271d0F," +
			"0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984," +
			"0x514910771AF9Ca656af840dff83E8264EcF986CA",
	},
	{
		name:          "base",
		chainID:       8453,
		defaultAPIURL: "https://api.basescan.org/api",
		apiKeyEnv:     "BASESCAN_API_KEY",
		defaultCandidates: "0x4200000000000000000000000000000000000006," +
			"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913," +
			"0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb," +
			"0x2Ae3F1Ec7F1F5012CFEab0185bfc7aa3cf0DEc22," +
			"0x940181a94A35A4569E4529A3CDfB74e38FD98631",
	},
	{
		name:          "bsc",
		chainID:       56,
		defaultAPIURL: "https://api.bscscan.com/api",
		apiKeyEnv:     "BSC_API_KEY",
	},
	{
		name:          "polygon",
		chainID:       137,
		defaultAPIURL: "https://api.polygonscan.com/api",
		apiKeyEnv:     "POLYGON_API_KEY",
	},
	{
		name:          "arbitrum",
		chainID:       42161,
		defaultAPIURL: "https://api.arbiscan.io/api",
		apiKeyEnv:     "ARBITRUM_API_KEY",
	},
	{
		name:          "optimism",
		chainID:       10,
		defaultAPIURL: "https://api-optimistic.etherscan.io/api",
		apiKeyEnv:     "OPTIMISM_API_KEY",
	},
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "web3loc"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Scan: ScanConfig{
			Interval:      getEnvDuration("SCAN_INTERVAL", 0),
			LimitPerChain: getEnvInt("SCAN_LIMIT_PER_CHAIN", 20),
			HTTPTimeout:   getEnvDuration("SCAN_HTTP_TIMEOUT", 30*time.Second),
		},
		Chains: make(map[string]ChainConfig),
	}

	loadChainConfigs(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadChainConfigs enables every supported chain whose API key is present
func loadChainConfigs(cfg *Config) {
	for _, spec := range supportedChains {
		apiKey := getEnv(spec.apiKeyEnv, "")
		if apiKey == "" {
			continue
		}

		prefix := strings.ToUpper(spec.name)
		cfg.Chains[spec.name] = ChainConfig{
			Name:              spec.name,
			ChainID:           spec.chainID,
			APIURL:            getEnv(prefix+"_API_URL", spec.defaultAPIURL),
			APIKey:            apiKey,
			RequestsPerSecond: getEnvInt(prefix+"_RATE_LIMIT", 4),
			CandidateAddresses: splitAndTrim(
				getEnv(prefix+"_CANDIDATE_ADDRESSES", spec.defaultCandidates), ","),
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured (set ETHERSCAN_API_KEY or another explorer key)")
	}

	for name, chain := range c.Chains {
		if chain.APIKey == "" {
			return fmt.Errorf("chain %s: API key is required", name)
		}
		if chain.APIURL == "" {
			return fmt.Errorf("chain %s: API URL is required", name)
		}
		if chain.RequestsPerSecond <= 0 {
			return fmt.Errorf("chain %s: invalid rate limit %d", name, chain.RequestsPerSecond)
		}
		if len(chain.CandidateAddresses) == 0 {
			return fmt.Errorf("chain %s: no candidate addresses configured (set %s_CANDIDATE_ADDRESSES)",
				name, strings.ToUpper(name))
		}
	}

	if c.Scan.LimitPerChain <= 0 {
		return fmt.Errorf("invalid scan limit per chain: %d", c.Scan.LimitPerChain)
	}

	return nil
}

// ChainNames returns the names of all configured chains
func (c *Config) ChainNames() []string {
	names := make([]string, 0, len(c.Chains))
	for name := range c.Chains {
		names = append(names, name)
	}
	return names
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// splitAndTrim splits a comma-separated string and trims whitespace
func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
