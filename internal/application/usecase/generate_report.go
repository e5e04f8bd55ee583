package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/application/port"
	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/service"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

type GenerateReportCommand struct {
	Definition *entity.ReportDefinition
	// Send schedules delivery to the definition recipients.
	Send bool
}

// GenerateReportUseCase выполняет ручную генерацию отчета.
// Окна графиков берутся из запроса; состояние рассылки не изменяется.
type GenerateReportUseCase struct {
	resolver  *service.PeriodResolver
	validator *service.DefinitionValidator
	generator ReportGenerator
	delivery  port.DeliveryQueue
	location  *time.Location
	now       func() time.Time
	logger    *logger.Logger
}

func NewGenerateReportUseCase(
	resolver *service.PeriodResolver,
	validator *service.DefinitionValidator,
	generator ReportGenerator,
	delivery port.DeliveryQueue,
	location *time.Location,
	log *logger.Logger,
) *GenerateReportUseCase {
	if location == nil {
		location = time.Local
	}
	return &GenerateReportUseCase{
		resolver:  resolver,
		validator: validator,
		generator: generator,
		delivery:  delivery,
		location:  location,
		now:       time.Now,
		logger:    log,
	}
}

func (uc *GenerateReportUseCase) Execute(ctx context.Context, cmd GenerateReportCommand) (*dto.GenerateReportResult, error) {
	def := cmd.Definition
	if err := uc.validator.ValidateManual(def); err != nil {
		return nil, err
	}

	explicit, _ := def.FirstGraphWindow()
	ref := uc.now().In(uc.location)

	resolution, err := uc.resolver.Resolve(valueobject.CadenceNone, ref, &explicit)
	if err != nil {
		return nil, err
	}

	work := def.Clone()
	work.ApplyTicketWindow(uc.resolver.CorrelatedTicketPeriod(def.Cadence, resolution.MetricsPeriod, ref))
	if work.ID == "" {
		work.ID = "manual-" + SanitizeFilename(def.Hostgroup.Name)
	}

	artifact, err := uc.generator.Execute(ctx, work, resolution.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	result := &dto.GenerateReportResult{
		ArtifactPath: artifact.Path,
		ArtifactName: artifact.Name,
		ArchiveURL:   artifact.ArchiveURL,
		PeriodLabel:  resolution.Label.String(),
	}

	if !cmd.Send || !def.HasRecipients() || uc.delivery == nil {
		return result, nil
	}

	req := port.DeliveryRequest{
		ID:           uuid.NewString(),
		Recipients:   cleanRecipients(def.Recipients),
		ArtifactPath: artifact.Path,
		ArtifactName: artifact.Name,
		ContentType:  artifact.ContentType,
		Metadata: port.DeliveryMetadata{
			DefinitionID: work.ID,
			Hostgroup:    def.Hostgroup.Name,
			Analyst:      def.Analyst,
			Comments:     def.Comments,
			PeriodStart:  resolution.MetricsPeriod.StartString(),
			PeriodEnd:    resolution.MetricsPeriod.EndString(),
			PeriodLabel:  result.PeriodLabel,
			ArchiveURL:   artifact.ArchiveURL,
			GeneratedAt:  artifact.CreatedAt,
		},
	}
	if err := uc.delivery.Enqueue(ctx, req); err != nil {
		// the artifact exists, so the caller still gets it
		uc.logger.Error("Failed to schedule manual report delivery", err, "artifact", artifact.Path)
		return result, nil
	}
	result.Scheduled = true

	return result, nil
}
