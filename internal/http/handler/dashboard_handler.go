package handler

import (
	"log/slog"
	"net/http"

	"github.com/site-analyzer/portal/internal/http/response"
	"github.com/site-analyzer/portal/internal/repository"
)

const dashboardSnapshotSize = 100

// DashboardHandler serves the admin dashboard's one-shot snapshot of recent
// traffic; the live feed itself goes over the websocket gateway.
type DashboardHandler struct {
	logger  *slog.Logger
	traffic repository.TrafficRepository
}

func NewDashboardHandler(logger *slog.Logger, traffic repository.TrafficRepository) *DashboardHandler {
	return &DashboardHandler{logger: logger, traffic: traffic}
}

func (h *DashboardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	logs, err := h.traffic.Recent(dashboardSnapshotSize)
	if err != nil {
		h.logger.Error("dashboard snapshot failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"message": "Admin Dashboard",
		"logs":    logs,
	})
}
