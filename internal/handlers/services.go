package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/velvetpaws/groomhub/internal/model"
)

// ServiceCatalog is the grooming service catalog.
type ServiceCatalog interface {
	List(ctx context.Context) ([]model.GroomService, error)
	Create(ctx context.Context, s model.GroomService) (string, error)
}

type ServicesHandler struct {
	catalog ServiceCatalog
	logger  *slog.Logger
}

func NewServicesHandler(catalog ServiceCatalog, logger *slog.Logger) *ServicesHandler {
	return &ServicesHandler{catalog: catalog, logger: logger}
}

type servicesListResponse struct {
	Success  bool                 `json:"success"`
	Services []model.GroomService `json:"services"`
}

// List answers GET /services.
func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	services, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error("service list failed", "err", err)
		writeInternalError(w)
		return
	}
	if services == nil {
		services = []model.GroomService{}
	}
	writeJSON(w, http.StatusOK, servicesListResponse{Success: true, Services: services})
}

// Create answers POST /admin/services.
func (h *ServicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req model.GroomService
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMins <= 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "name and a positive duration are required")
		return
	}
	req.Active = true

	id, err := h.catalog.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("service create failed", "err", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}
