package repository

import (
	"context"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
)

// DefinitionRef is the stable key of a stored definition.
type DefinitionRef string

func (r DefinitionRef) String() string { return string(r) }

// DefinitionRepository определяет хранилище определений отчетов (Port)
// Чтение и запись выполняются целиком, без частичных обновлений полей.
type DefinitionRepository interface {
	// List перечисляет все определения. Нечитаемая запись пропускается,
	// ошибка возвращается только если перечисление невозможно целиком.
	List(ctx context.Context) ([]DefinitionRef, error)

	// Load загружает одно определение
	Load(ctx context.Context, ref DefinitionRef) (*entity.ReportDefinition, error)

	// Save полностью заменяет определение
	Save(ctx context.Context, ref DefinitionRef, def *entity.ReportDefinition) error
}
