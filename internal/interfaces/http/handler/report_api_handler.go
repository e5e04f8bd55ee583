package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/application/usecase"
	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

const maxDefinitionBytes = 1 * 1024 * 1024

// ManualGenerator builds a report on demand.
type ManualGenerator interface {
	Execute(ctx context.Context, cmd usecase.GenerateReportCommand) (*dto.GenerateReportResult, error)
}

// DefinitionLister lists stored definitions.
type DefinitionLister interface {
	Execute(ctx context.Context) ([]dto.DefinitionSummaryDTO, error)
}

type generateReportRequest struct {
	Definition *entity.ReportDefinition `json:"definition"`
	Send       bool                     `json:"send"`
}

// ReportAPIHandler обрабатывает ручную генерацию и просмотр определений
type ReportAPIHandler struct {
	generator ManualGenerator
	lister    DefinitionLister
	logger    *logger.Logger
}

func NewReportAPIHandler(generator ManualGenerator, lister DefinitionLister, log *logger.Logger) *ReportAPIHandler {
	return &ReportAPIHandler{
		generator: generator,
		lister:    lister,
		logger:    log,
	}
}

// Generate handles POST /api/v1/reports/generate.
func (h *ReportAPIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateReportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDefinitionBytes)).Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	if req.Definition == nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "definition is required"})
		return
	}

	result, err := h.generator.Execute(r.Context(), usecase.GenerateReportCommand{
		Definition: req.Definition,
		Send:       req.Send,
	})
	if err != nil {
		var validationErr *reporterr.ValidationError
		if errors.As(err, &validationErr) {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("Manual report generation failed", err, "hostgroup", req.Definition.Hostgroup.Name)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "report generation failed",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, result)
}

// ListDefinitions handles GET /api/v1/definitions.
func (h *ReportAPIHandler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	items, err := h.lister.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to list report definitions", err)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list report definitions",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"definitions": items,
		"count":       len(items),
	})
}
