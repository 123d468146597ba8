package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/estigate/estigate/internal/store"
)

// EstimateHandler serves estimate read endpoints
type EstimateHandler struct {
	store  store.EstimateStore
	logger *zap.Logger
}

// NewEstimateHandler creates a new estimate handler
func NewEstimateHandler(st store.EstimateStore, logger *zap.Logger) *EstimateHandler {
	return &EstimateHandler{
		store:  st,
		logger: logger.Named("estimates"),
	}
}

// RegisterRoutes registers the routes for this handler. The bare path is
// registered alongside the /api one because the dev gateway strips the
// matched mount prefix before forwarding.
func (h *EstimateHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	router.HandleFunc("/api/estimates/{id}/with-project", h.handleGetWithProject).Methods("GET")
	router.HandleFunc("/estimates/{id}/with-project", h.handleGetWithProject).Methods("GET")
}

// handleGetWithProject returns one estimate merged with its project's
// identifying fields.
func (h *EstimateHandler) handleGetWithProject(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	idStr := mux.Vars(req)["id"]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		writeJSONError(w, http.StatusBadRequest, "invalid estimate id")
		return
	}

	row, err := h.store.GetEstimateWithProject(req.Context(), id)
	if errors.Is(err, store.ErrEstimateNotFound) {
		writeJSONError(w, http.StatusNotFound, "Estimate not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch estimate with project",
			zap.Int64("estimate_id", id), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := json.NewEncoder(w).Encode(row); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
