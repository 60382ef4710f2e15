package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/skillshare/internal/service"
)

// ExecuteHandler runs ad-hoc code outside of any post.
type ExecuteHandler struct {
	runs   *service.CodeRunService
	logger *slog.Logger
}

func NewExecuteHandler(runs *service.CodeRunService, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{runs: runs, logger: logger}
}

type executeRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// HandleExecute handles POST /code/run. Language defaults to python.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Language == "" {
		req.Language = "python"
	}

	result, err := h.runs.Run(r.Context(), req.Language, req.Code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
