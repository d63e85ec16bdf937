package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"web3loc/internal/database"
	"web3loc/internal/models"
	"web3loc/internal/service"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db               *database.DB
	discoveryService *service.DiscoveryService
	logger           *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(db *database.DB, discoveryService *service.DiscoveryService, logger *zap.Logger) *Handler {
	return &Handler{
		db:               db,
		discoveryService: discoveryService,
		logger:           logger,
	}
}

// ==================== Health Check ====================

// HandleHealth returns service health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	if h.discoveryService != nil {
		response.Chains = h.discoveryService.AvailableChains()
	}
	respondJSON(w, http.StatusOK, response)
}

// ==================== Discovery ====================

// HandleRunDiscovery handles POST /api/v1/discovery/run
// Runs one discovery pass over the requested chains and persists the results
func (h *Handler) HandleRunDiscovery(w http.ResponseWriter, r *http.Request) {
	var req DiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if len(req.Chains) == 0 {
		respondError(w, http.StatusBadRequest, "At least one chain is required", nil)
		return
	}
	if req.LimitPerChain <= 0 {
		respondError(w, http.StatusBadRequest, "limit_per_chain must be positive", nil)
		return
	}

	h.logger.Info("Discovery run requested",
		zap.Strings("chains", req.Chains),
		zap.Int("limit_per_chain", req.LimitPerChain))

	result := h.discoveryService.Discover(r.Context(), req.Chains, req.LimitPerChain)

	accepted := make([]ContractSummary, 0, len(result.Accepted))
	for i := range result.Accepted {
		accepted = append(accepted, toContractSummary(&result.Accepted[i]))
	}

	respondJSON(w, http.StatusOK, DiscoveryResponse{
		Accepted:          accepted,
		DuplicatesSkipped: result.DuplicatesSkipped,
		Errors:            result.Errors,
	})
}

// ==================== Contracts ====================

// HandleGetContract handles GET /api/v1/contracts/{chain}/{address}
func (h *Handler) HandleGetContract(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chain := vars["chain"]
	address := vars["address"]

	if !models.IsValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid contract address", nil)
		return
	}

	contract, err := h.db.GetContractByAddress(r.Context(), chain, address)
	if err != nil {
		h.logger.Error("Failed to get contract",
			zap.String("chain", chain),
			zap.String("address", address),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get contract", err)
		return
	}
	if contract == nil {
		respondError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, contract)
}

// HandleQueryContracts handles GET /api/v1/contracts
// Supports filters: chain, name, compiler_version, optimization, address
func (h *Handler) HandleQueryContracts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseContractFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	limit := 50
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	contracts, err := h.db.QueryContracts(r.Context(), filter, limit, offset)
	if err != nil {
		h.logger.Error("Failed to query contracts", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to query contracts", err)
		return
	}

	summaries := make([]ContractSummary, 0, len(contracts))
	for i := range contracts {
		summaries = append(summaries, toContractSummary(&contracts[i]))
	}

	respondJSON(w, http.StatusOK, QueryContractsResponse{
		Contracts: summaries,
		Limit:     limit,
		Offset:    offset,
	})
}

// HandleUpdateSummary handles PUT /api/v1/contracts/{chain}/{address}/summary
// The summary annotation is the only field mutable after a record is admitted
func (h *Handler) HandleUpdateSummary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chain := vars["chain"]
	address := vars["address"]

	if !models.IsValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid contract address", nil)
		return
	}

	var req UpdateSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Summary == "" {
		respondError(w, http.StatusBadRequest, "summary is required", nil)
		return
	}

	updated, err := h.db.UpdateContractSummary(r.Context(), chain, address, req.Summary)
	if err != nil {
		h.logger.Error("Failed to update summary",
			zap.String("chain", chain),
			zap.String("address", address),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to update summary", err)
		return
	}
	if !updated {
		respondError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ==================== Statistics ====================

// HandleGetStatistics handles GET /api/v1/statistics
func (h *Handler) HandleGetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Statistics(r.Context())
	if err != nil {
		h.logger.Error("Failed to get statistics", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get statistics", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ==================== Helper Functions ====================

// parseContractFilter extracts query-string filters
func parseContractFilter(r *http.Request) (models.ContractFilter, error) {
	q := r.URL.Query()
	filter := models.ContractFilter{
		Chain:           q.Get("chain"),
		Name:            q.Get("name"),
		CompilerVersion: q.Get("compiler_version"),
		Address:         q.Get("address"),
	}

	if filter.Address != "" && !models.IsValidAddress(filter.Address) {
		return filter, fmt.Errorf("invalid address filter")
	}

	if optStr := q.Get("optimization"); optStr != "" {
		opt, err := strconv.ParseBool(optStr)
		if err != nil {
			return filter, fmt.Errorf("invalid optimization filter: must be true or false")
		}
		filter.Optimization = &opt
	}

	return filter, nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already written, nothing left to do but note it.
		fmt.Printf("Failed to encode JSON response: %v\n", err)
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = fmt.Sprintf("%s: %v", message, err)
	}

	respondJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Message: errorMsg,
	})
}
