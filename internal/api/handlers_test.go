package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestHandleHealth(t *testing.T) {
	logger := zap.NewNop()
	handler := NewHandler(nil, nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
}

func TestHandleRunDiscovery_Validation(t *testing.T) {
	logger := zap.NewNop()
	handler := NewHandler(nil, nil, logger)

	tests := []struct {
		name           string
		request        DiscoveryRequest
		expectedStatus int
	}{
		{
			name: "missing chains",
			request: DiscoveryRequest{
				Chains:        nil,
				LimitPerChain: 10,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "empty chains",
			request: DiscoveryRequest{
				Chains:        []string{},
				LimitPerChain: 10,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "zero limit",
			request: DiscoveryRequest{
				Chains:        []string{"ethereum"},
				LimitPerChain: 0,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "negative limit",
			request: DiscoveryRequest{
				Chains:        []string{"ethereum"},
				LimitPerChain: -5,
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.request)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/discovery/run", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.HandleRunDiscovery(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var errResp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if errResp.Error == "" {
				t.Error("expected error message in response")
			}
		})
	}
}

func TestHandleRunDiscovery_InvalidJSON(t *testing.T) {
	logger := zap.NewNop()
	handler := NewHandler(nil, nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/discovery/run", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.HandleRunDiscovery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandleGetContract_InvalidAddress(t *testing.T) {
	logger := zap.NewNop()
	handler := NewHandler(nil, nil, logger)
	router := SetupRouter(handler, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contracts/ethereum/not-an-address", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandleUpdateSummary_Validation(t *testing.T) {
	logger := zap.NewNop()
	handler := NewHandler(nil, nil, logger)
	router := SetupRouter(handler, logger)

	tests := []struct {
		name           string
		url            string
		body           string
		expectedStatus int
	}{
		{
			name:           "invalid address",
			url:            "/api/v1/contracts/ethereum/xyz/summary",
			body:           `{"summary":"an ERC-20 token"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty summary",
			url:            "/api/v1/contracts/ethereum/0xdAC17F958D2ee523a2206206994597C13D831ec7/summary",
			body:           `{"summary":""}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			url:            "/api/v1/contracts/ethereum/0xdAC17F958D2ee523a2206206994597C13D831ec7/summary",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.url, bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestParseContractFilter(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		expectErr bool
		check     func(t *testing.T, r *http.Request)
	}{
		{
			name:  "all filters",
			query: "chain=ethereum&name=Token&compiler_version=0.8&optimization=true&address=0xdAC17F958D2ee523a2206206994597C13D831ec7",
			check: func(t *testing.T, r *http.Request) {
				filter, err := parseContractFilter(r)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if filter.Chain != "ethereum" || filter.Name != "Token" {
					t.Errorf("unexpected filter: %+v", filter)
				}
				if filter.Optimization == nil || !*filter.Optimization {
					t.Error("expected optimization filter true")
				}
			},
		},
		{
			name:      "invalid optimization",
			query:     "optimization=maybe",
			expectErr: true,
		},
		{
			name:      "invalid address",
			query:     "address=zzz",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/contracts?"+tt.query, nil)
			if tt.expectErr {
				if _, err := parseContractFilter(req); err == nil {
					t.Error("expected filter parse error")
				}
				return
			}
			tt.check(t, req)
		})
	}
}

func TestHandleQueryContracts_InvalidFilter(t *testing.T) {
	logger := zap.NewNop()
	handler := NewHandler(nil, nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contracts?optimization=sometimes", nil)
	w := httptest.NewRecorder()

	handler.HandleQueryContracts(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandleExportContracts_UnsupportedFormat(t *testing.T) {
	logger := zap.NewNop()
	handler := NewHandler(nil, nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contracts/export?format=xml", nil)
	w := httptest.NewRecorder()

	handler.HandleExportContracts(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()

	data := map[string]string{"key": "value"}
	respondJSON(w, http.StatusOK, data)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got '%s'", ct)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result["key"] != "value" {
		t.Errorf("expected key 'value', got '%s'", result["key"])
	}
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	respondError(w, http.StatusBadRequest, "Bad request", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if errResp.Error != "Bad request" {
		t.Errorf("expected error 'Bad request', got '%s'", errResp.Error)
	}
}
