package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

const maxCommandBytes = 4 * 1024

// DispatchRunner runs one dispatch cycle.
type DispatchRunner interface {
	Execute(ctx context.Context, cmd dto.DispatchCommand) (*dto.DispatchResult, error)
}

// DispatchAPIHandler запускает цикл рассылки вне расписания
type DispatchAPIHandler struct {
	dispatcher DispatchRunner
	logger     *logger.Logger
}

func NewDispatchAPIHandler(dispatcher DispatchRunner, log *logger.Logger) *DispatchAPIHandler {
	return &DispatchAPIHandler{
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Run handles POST /api/v1/dispatch/run with {"cadence": "...", "force": bool}.
func (h *DispatchAPIHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cmd dto.DispatchCommand
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cmd); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	// клиент может отключиться, цикл все равно доводится до конца
	result, err := h.dispatcher.Execute(context.WithoutCancel(r.Context()), cmd)
	if err != nil {
		var validationErr *reporterr.ValidationError
		if errors.As(err, &validationErr) {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("Dispatch cycle failed", err, "cadence", cmd.Cadence)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "dispatch cycle failed",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}
