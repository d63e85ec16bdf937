// Package explorer implements the rate-limited client for Etherscan-family
// blockchain explorer APIs. One client serves one chain and enforces that
// chain's request budget; all upstream failures normalize to tagged outcomes.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"web3loc/internal/config"
)

const userAgent = "Web3.LOC-ContractDiscovery/3.0"

// Client issues authenticated requests to one chain's explorer API under a
// fixed per-second budget. Construction fails only on configuration errors;
// after that, fetch calls never return errors for upstream failures.
type Client struct {
	chainName  string
	chainID    int64
	apiURL     string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates an explorer client for the given chain. A missing API key
// or unparseable base URL is a hard configuration error.
func NewClient(cfg config.ChainConfig, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chain %s: no API key configured", cfg.Name)
	}
	if _, err := url.Parse(cfg.APIURL); err != nil || cfg.APIURL == "" {
		return nil, fmt.Errorf("chain %s: invalid API URL %q", cfg.Name, cfg.APIURL)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger.Info("Explorer client initialized",
		zap.String("chain", cfg.Name),
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("api_url", cfg.APIURL),
		zap.Int("requests_per_second", rps))

	return &Client{
		chainName:  cfg.Name,
		chainID:    cfg.ChainID,
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		// Burst of 1 keeps requests evenly spaced, so no 1-second window
		// ever exceeds the budget.
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}, nil
}

// ChainName returns the chain this client serves.
func (c *Client) ChainName() string {
	return c.chainName
}

// ChainID returns the numeric chain ID.
func (c *Client) ChainID() int64 {
	return c.chainID
}

// FetchSource retrieves the verified source payload for a contract address.
// OutcomeNotVerified means the explorer has no published source for it.
func (c *Client) FetchSource(ctx context.Context, address string) (*ContractSource, Outcome) {
	body, ok := c.request(ctx, url.Values{
		"module":  {"contract"},
		"action":  {"getsourcecode"},
		"address": {address},
	})
	if !ok {
		return nil, OutcomeUnavailable
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Warn("Malformed explorer response",
			zap.String("chain", c.chainName),
			zap.String("address", address),
			zap.Error(err))
		return nil, OutcomeUnavailable
	}
	if env.Status != "1" {
		// Etherscan reports "NOTOK" both for unverified contracts and for
		// transient errors; an empty result array is the reliable signal.
		c.logger.Debug("Explorer reported error status",
			zap.String("chain", c.chainName),
			zap.String("address", address),
			zap.String("message", env.Message))
		return nil, OutcomeUnavailable
	}

	var entries []sourceEntry
	if err := json.Unmarshal(env.Result, &entries); err != nil || len(entries) == 0 {
		c.logger.Warn("Unexpected getsourcecode result shape",
			zap.String("chain", c.chainName),
			zap.String("address", address))
		return nil, OutcomeUnavailable
	}

	source, err := entries[0].toContractSource()
	if err != nil {
		c.logger.Warn("Malformed source entry",
			zap.String("chain", c.chainName),
			zap.String("address", address),
			zap.Error(err))
		return nil, OutcomeUnavailable
	}
	if source == nil {
		return nil, OutcomeNotVerified
	}
	return source, OutcomeOK
}

// FetchBytecode retrieves the deployed bytecode hex string for an address.
// An address with no code deployed is reported as unavailable.
func (c *Client) FetchBytecode(ctx context.Context, address string) (string, Outcome) {
	body, ok := c.request(ctx, url.Values{
		"module":  {"proxy"},
		"action":  {"eth_getCode"},
		"address": {address},
		"tag":     {"latest"},
	})
	if !ok {
		return "", OutcomeUnavailable
	}

	var env proxyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Warn("Malformed eth_getCode response",
			zap.String("chain", c.chainName),
			zap.String("address", address),
			zap.Error(err))
		return "", OutcomeUnavailable
	}
	if env.Error != nil {
		c.logger.Warn("eth_getCode error",
			zap.String("chain", c.chainName),
			zap.String("address", address),
			zap.String("message", env.Error.Message))
		return "", OutcomeUnavailable
	}
	if env.Result == "" || env.Result == "0x" {
		return "", OutcomeUnavailable
	}
	return env.Result, OutcomeOK
}

// TestConnection issues a cheap side-effect-free probe and reports
// reachability.
func (c *Client) TestConnection(ctx context.Context) bool {
	body, ok := c.request(ctx, url.Values{
		"module": {"stats"},
		"action": {"ethsupply"},
	})
	if !ok {
		return false
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Status != "1" {
		c.logger.Warn("Connection probe rejected by explorer",
			zap.String("chain", c.chainName))
		return false
	}

	c.logger.Info("Explorer connection verified", zap.String("chain", c.chainName))
	return true
}

// request acquires a rate-limiter slot, performs one GET against the explorer
// API, and returns the raw body. The slot is consumed whether or not the
// request succeeds, so retries cannot exceed the budget.
func (c *Client) request(ctx context.Context, params url.Values) ([]byte, bool) {
	if err := c.limiter.Wait(ctx); err != nil {
		// Context cancelled or deadline passed while queued.
		c.logger.Debug("Rate limiter wait aborted",
			zap.String("chain", c.chainName),
			zap.Error(err))
		return nil, false
	}

	params.Set("apikey", c.apiKey)
	reqURL := c.apiURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("Failed to build request",
			zap.String("chain", c.chainName),
			zap.Error(err))
		return nil, false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Explorer request failed",
			zap.String("chain", c.chainName),
			zap.Error(err))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Explorer returned non-200",
			zap.String("chain", c.chainName),
			zap.Int("status", resp.StatusCode))
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("Failed to read explorer response",
			zap.String("chain", c.chainName),
			zap.Error(err))
		return nil, false
	}
	return body, true
}
