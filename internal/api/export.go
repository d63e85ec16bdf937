package api

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// csvHeader mirrors the metadata columns of the contract store; source and
// bytecode bodies are deliberately left out of exports.
var csvHeader = []string{
	"address", "name", "chain", "compiler_version", "optimization",
	"runs", "block_number", "verified_date", "summary",
	"bytecode_hash", "source_hash",
}

// HandleExportContracts handles GET /api/v1/contracts/export
// Streams the filtered contract set as CSV
func (h *Handler) HandleExportContracts(w http.ResponseWriter, r *http.Request) {
	if format := r.URL.Query().Get("format"); format != "" && format != "csv" {
		respondError(w, http.StatusBadRequest, "Unsupported export format", nil)
		return
	}

	filter, err := parseContractFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	// No pagination on export: the full filtered set is written out.
	contracts, err := h.db.QueryContracts(r.Context(), filter, 0, 0)
	if err != nil {
		h.logger.Error("Failed to query contracts for export", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to export contracts", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="contracts.csv"`)

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		h.logger.Error("Failed to write CSV header", zap.Error(err))
		return
	}

	for i := range contracts {
		c := &contracts[i]
		summary := ""
		if c.Summary != nil {
			summary = *c.Summary
		}
		row := []string{
			c.Address,
			c.Name,
			c.Chain,
			c.CompilerVersion,
			strconv.FormatBool(c.Optimization),
			strconv.Itoa(c.Runs),
			strconv.FormatInt(c.BlockNumber, 10),
			c.VerifiedAt.Format("2006-01-02T15:04:05Z07:00"),
			summary,
			c.BytecodeHash,
			c.SourceHash,
		}
		if err := writer.Write(row); err != nil {
			h.logger.Error("Failed to write CSV row", zap.Error(err))
			return
		}
	}
	writer.Flush()

	h.logger.Info("Exported contracts", zap.Int("count", len(contracts)))
}
