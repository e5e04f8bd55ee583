package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/domain/repository"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

// ListDefinitionsUseCase возвращает определения и их состояние рассылки
type ListDefinitionsUseCase struct {
	definitions repository.DefinitionRepository
	logger      *logger.Logger
}

func NewListDefinitionsUseCase(definitions repository.DefinitionRepository, log *logger.Logger) *ListDefinitionsUseCase {
	return &ListDefinitionsUseCase{definitions: definitions, logger: log}
}

// Execute lists every definition; unreadable ones are reported with their
// error instead of failing the listing.
func (uc *ListDefinitionsUseCase) Execute(ctx context.Context) ([]dto.DefinitionSummaryDTO, error) {
	refs, err := uc.definitions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate report definitions: %w", err)
	}

	out := make([]dto.DefinitionSummaryDTO, 0, len(refs))
	for _, ref := range refs {
		summary := dto.DefinitionSummaryDTO{ID: ref.String()}

		def, err := uc.definitions.Load(ctx, ref)
		if err != nil {
			uc.logger.Warn("Failed to load report definition", "definition_id", ref.String(), "error", err.Error())
			summary.Error = err.Error()
			out = append(out, summary)
			continue
		}

		summary.Hostgroup = def.Hostgroup.Name
		summary.Cadence = def.Cadence.String()
		summary.Recipients = len(cleanRecipients(def.Recipients))
		summary.Graphs = def.GraphCount()
		summary.LastPeriodLabel = def.DispatchState.LastPeriodLabel.String()
		if !def.DispatchState.LastSent.IsZero() {
			lastSent := def.DispatchState.LastSent
			summary.LastSent = &lastSent
		}
		out = append(out, summary)
	}

	return out, nil
}
