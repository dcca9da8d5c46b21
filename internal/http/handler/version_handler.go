package handler

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/site-analyzer/portal/internal/http/response"
)

type VersionHandler struct {
	logger          *slog.Logger
	versionFilePath string
}

func NewVersionHandler(logger *slog.Logger, versionFilePath string) *VersionHandler {
	return &VersionHandler{logger: logger, versionFilePath: versionFilePath}
}

func (h *VersionHandler) Version(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(h.versionFilePath)
	if err != nil {
		h.logger.Error("failed to read version file", "path", h.versionFilePath, "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to read version file")
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"version": strings.TrimSpace(string(data))})
}
