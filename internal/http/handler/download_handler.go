package handler

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/site-analyzer/portal/internal/http/middleware"
	"github.com/site-analyzer/portal/internal/http/response"
	"github.com/site-analyzer/portal/internal/observability"
)

// DownloadHandler streams the packaged extension artifact to any
// authenticated user.
type DownloadHandler struct {
	logger       *slog.Logger
	artifactPath string
}

func NewDownloadHandler(logger *slog.Logger, artifactPath string) *DownloadHandler {
	return &DownloadHandler{logger: logger, artifactPath: artifactPath}
}

func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(h.artifactPath); err != nil {
		h.logger.Error("artifact missing", "path", h.artifactPath, "error", err)
		response.Error(w, http.StatusNotFound, "file not found")
		return
	}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		observability.Audit(r, "artifact_download", "username", claims.Username)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="extension.zip"`)
	w.Header().Set("Content-Type", "application/zip")
	http.ServeFile(w, r, h.artifactPath)
}
