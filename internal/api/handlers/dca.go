package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/minhle/dcarank/internal/activity"
	"github.com/minhle/dcarank/internal/dca"
	"github.com/minhle/dcarank/pkg/logger"
)

// DCAHandler handles the ranking API endpoints
// ⭐ SSOT: DCA API 핸들러는 이 구조체에서만
type DCAHandler struct {
	service *dca.Service
	tracker *activity.Tracker
	logger  *logger.Logger
}

// NewDCAHandler creates a new DCA handler
func NewDCAHandler(service *dca.Service, tracker *activity.Tracker, log *logger.Logger) *DCAHandler {
	return &DCAHandler{
		service: service,
		tracker: tracker,
		logger:  log,
	}
}

// GetRanking runs a full ranking batch and returns the ranked table.
// GET /api/dca-ranking
// The response is always a parseable envelope: a success payload, a
// too-early payload with an explanatory message, or a structured error.
func (h *DCAHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetRanking(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute DCA ranking")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"data":        result.Rankings,
		"summary":     result.Summary,
		"last_update": result.LastUpdate,
	})
}

// GetSymbolDetail returns the per-hour DCA breakdown for one symbol.
// GET /api/dca-symbol/{symbol}
func (h *DCAHandler) GetSymbolDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := vars["symbol"]

	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	detail, err := h.service.GetSymbolDetail(r.Context(), symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get symbol detail")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if detail == nil {
		respondError(w, http.StatusNotFound, "no DCA data for symbol "+symbol)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   detail,
	})
}

// GetActivity returns the live activity snapshot for UI polling.
// GET /api/activity
func (h *DCAHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   h.tracker.Current(),
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
