package api

import (
	"web3loc/internal/models"
)

// ==================== Discovery ====================

// DiscoveryRequest represents a request to run a discovery pass
type DiscoveryRequest struct {
	Chains        []string `json:"chains"`
	LimitPerChain int      `json:"limit_per_chain"`
}

// DiscoveryResponse summarizes a completed discovery run
type DiscoveryResponse struct {
	Accepted          []ContractSummary `json:"accepted"`
	DuplicatesSkipped int               `json:"duplicates_skipped"`
	Errors            int               `json:"errors"`
}

// ==================== Contracts ====================

// ContractSummary is the listing view of a stored contract: metadata only,
// without source and bytecode bodies.
type ContractSummary struct {
	Chain           string  `json:"chain"`
	ChainID         int64   `json:"chain_id"`
	Address         string  `json:"address"`
	Name            string  `json:"name"`
	CompilerVersion string  `json:"compiler_version"`
	Optimization    bool    `json:"optimization"`
	Runs            int     `json:"runs"`
	BlockNumber     int64   `json:"block_number"`
	VerifiedAt      string  `json:"verified_at"`
	BytecodeHash    string  `json:"bytecode_hash"`
	SourceHash      string  `json:"source_hash"`
	Summary         *string `json:"summary,omitempty"`
}

// QueryContractsResponse lists contracts matching a filter, newest first
type QueryContractsResponse struct {
	Contracts []ContractSummary `json:"contracts"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// UpdateSummaryRequest carries the analyst annotation for a stored contract
type UpdateSummaryRequest struct {
	Summary string `json:"summary"`
}

// ==================== Error Response ====================

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==================== Health Check ====================

// HealthResponse represents health check response
type HealthResponse struct {
	Status  string   `json:"status"`
	Version string   `json:"version,omitempty"`
	Chains  []string `json:"chains,omitempty"`
}

func toContractSummary(c *models.Contract) ContractSummary {
	return ContractSummary{
		Chain:           c.Chain,
		ChainID:         c.ChainID,
		Address:         c.Address,
		Name:            c.Name,
		CompilerVersion: c.CompilerVersion,
		Optimization:    c.Optimization,
		Runs:            c.Runs,
		BlockNumber:     c.BlockNumber,
		VerifiedAt:      c.VerifiedAt.Format("2006-01-02T15:04:05Z07:00"),
		BytecodeHash:    c.BytecodeHash,
		SourceHash:      c.SourceHash,
		Summary:         c.Summary,
	}
}
