package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HealthHandler serves the liveness endpoint
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// RegisterRoutes registers the routes for this handler
func (h *HealthHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	router.HandleFunc("/healthz", h.handleHealth).Methods("GET")
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
