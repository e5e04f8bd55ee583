package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/application/port"
	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/domain/repository"
	"github.com/dreschagin/monitoring-reports/internal/domain/service"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

// DispatchEventSubjectPrefix prefixes the subject of dispatch events.
const DispatchEventSubjectPrefix = "reports.dispatch."

// ReportGenerator produces the artifact of one definition.
type ReportGenerator interface {
	Execute(ctx context.Context, def *entity.ReportDefinition, label valueobject.PeriodLabel) (*entity.GeneratedArtifact, error)
}

type DispatchScheduledReportsConfig struct {
	// Location is the business timezone of period resolution.
	Location *time.Location
	Now      func() time.Time
}

// DispatchScheduledReportsUseCase рассылает периодические отчеты.
//
// Определения обрабатываются последовательно. Состояние рассылки
// сохраняется сразу после постановки письма в очередь, не дожидаясь
// подтверждения доставки.
type DispatchScheduledReportsUseCase struct {
	definitions repository.DefinitionRepository
	resolver    *service.PeriodResolver
	validator   *service.DefinitionValidator
	generator   ReportGenerator
	delivery    port.DeliveryQueue
	events      port.EventPublisher
	recorder    port.DispatchRecorder
	config      DispatchScheduledReportsConfig
	logger      *logger.Logger
}

// NewDispatchScheduledReportsUseCase создает use case; events и recorder могут быть nil
func NewDispatchScheduledReportsUseCase(
	definitions repository.DefinitionRepository,
	resolver *service.PeriodResolver,
	validator *service.DefinitionValidator,
	generator ReportGenerator,
	delivery port.DeliveryQueue,
	events port.EventPublisher,
	recorder port.DispatchRecorder,
	config DispatchScheduledReportsConfig,
	log *logger.Logger,
) *DispatchScheduledReportsUseCase {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if recorder == nil {
		recorder = port.NopRecorder{}
	}
	return &DispatchScheduledReportsUseCase{
		definitions: definitions,
		resolver:    resolver,
		validator:   validator,
		generator:   generator,
		delivery:    delivery,
		events:      events,
		recorder:    recorder,
		config:      config,
		logger:      log,
	}
}

// Execute runs one cycle for cmd.Cadence. Only an invalid command or a
// failure to enumerate definitions is returned as an error; everything else
// ends up in the per-definition outcomes.
func (uc *DispatchScheduledReportsUseCase) Execute(ctx context.Context, cmd dto.DispatchCommand) (*dto.DispatchResult, error) {
	cadence, err := valueobject.ParseCadence(cmd.Cadence)
	if err != nil {
		return nil, reporterr.NewValidationError("cadence", err.Error())
	}
	if !cadence.IsScheduled() {
		return nil, reporterr.NewValidationError("cadence", "must be weekly or monthly")
	}

	result := &dto.DispatchResult{
		RunID:     uuid.NewString(),
		Cadence:   cadence.String(),
		Force:     cmd.Force,
		StartedAt: uc.config.Now(),
	}

	refs, err := uc.definitions.List(ctx)
	if err != nil {
		uc.logger.Error("Failed to enumerate report definitions", err, "run_id", result.RunID)
		return nil, fmt.Errorf("failed to enumerate report definitions: %w", err)
	}

	uc.logger.Info("Dispatch cycle started",
		"run_id", result.RunID,
		"cadence", cadence.String(),
		"force", cmd.Force,
		"definitions", len(refs),
	)

	ref := uc.config.Now().In(uc.config.Location)
	result.Outcomes = make([]dto.DispatchOutcome, 0, len(refs))
	for _, defRef := range refs {
		outcome := uc.processOne(ctx, defRef, cadence, cmd.Force, ref)
		result.Outcomes = append(result.Outcomes, outcome)

		uc.recorder.RecordOutcome(cadence.String(), string(outcome.Outcome))
		uc.publishOutcome(ctx, result.RunID, cadence, outcome)
	}

	result.FinishedAt = uc.config.Now()
	uc.logger.Info("Dispatch cycle finished",
		"run_id", result.RunID,
		"cadence", cadence.String(),
		"dispatched", result.Count(dto.StatusDispatched),
		"already_sent", result.Count(dto.StatusSkippedAlreadySent),
		"failed", result.Count(dto.StatusGenerationFailed)+result.Count(dto.StatusScheduleFailed),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	)

	return result, nil
}

func (uc *DispatchScheduledReportsUseCase) processOne(
	ctx context.Context,
	defRef repository.DefinitionRef,
	cadence valueobject.Cadence,
	force bool,
	ref time.Time,
) (outcome dto.DispatchOutcome) {
	outcome = dto.DispatchOutcome{ID: defRef.String()}

	// письмо уже в очереди: паника после этого не отменяет рассылку
	queued := false
	defer func() {
		if r := recover(); r != nil {
			if queued {
				uc.logger.Error("Dispatch bookkeeping panicked after scheduling", nil,
					"definition_id", outcome.ID,
					"period_label", outcome.PeriodLabel,
					"panic", r,
				)
				outcome.Outcome = dto.StatusDispatched
				outcome.Error = fmt.Sprintf("dispatch state not persisted: panic: %v", r)
				return
			}
			uc.logger.Error("Report generation panicked", nil,
				"definition_id", outcome.ID,
				"panic", r,
			)
			outcome.Outcome = dto.StatusGenerationFailed
			outcome.ArtifactPath = ""
			outcome.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	def, err := uc.definitions.Load(ctx, defRef)
	if err != nil {
		uc.logger.Warn("Skipping unreadable report definition", "definition_id", outcome.ID, "error", err.Error())
		return skipped(outcome, dto.StatusSkippedInvalid, err)
	}
	if err := uc.validator.Validate(def); err != nil {
		uc.logger.Warn("Skipping invalid report definition", "definition_id", outcome.ID, "error", err.Error())
		return skipped(outcome, dto.StatusSkippedInvalid, err)
	}

	switch {
	case !def.IsSchedulable():
		return skipped(outcome, dto.StatusSkippedNoCadence, nil)
	case def.Cadence != cadence:
		return skipped(outcome, dto.StatusSkippedCadenceMismatch, nil)
	case !def.HasRecipients():
		uc.logger.Warn("Report definition has no recipients", "definition_id", outcome.ID)
		return skipped(outcome, dto.StatusSkippedNoRecipients, nil)
	}

	resolution, err := uc.resolver.Resolve(cadence, ref, nil)
	if err != nil {
		return skipped(outcome, dto.StatusSkippedInvalid, err)
	}
	outcome.PeriodLabel = resolution.Label.String()

	if !force && def.AlreadySent(resolution.Label) {
		uc.logger.Debug("Report already sent for period",
			"definition_id", outcome.ID,
			"period_label", outcome.PeriodLabel,
		)
		return skipped(outcome, dto.StatusSkippedAlreadySent, nil)
	}

	// начатая генерация доводится до конца, отмена триггера ее не прерывает
	ctx = context.WithoutCancel(ctx)

	work := def.Clone()
	work.ApplyMetricsWindow(resolution.Window)
	work.ApplyTicketWindow(resolution.TicketPeriod)
	if work.ID == "" {
		work.ID = outcome.ID
	}

	started := time.Now()
	artifact, err := uc.generator.Execute(ctx, work, resolution.Label)
	uc.recorder.ObserveGeneration(time.Since(started), err == nil)
	if err != nil {
		uc.logger.Error("Report generation failed", err,
			"definition_id", outcome.ID,
			"period_label", outcome.PeriodLabel,
		)
		outcome.Outcome = dto.StatusGenerationFailed
		outcome.Error = err.Error()
		return outcome
	}
	outcome.ArtifactPath = artifact.Path

	req := port.DeliveryRequest{
		ID:           uuid.NewString(),
		Recipients:   cleanRecipients(def.Recipients),
		ArtifactPath: artifact.Path,
		ArtifactName: artifact.Name,
		ContentType:  artifact.ContentType,
		Metadata: port.DeliveryMetadata{
			DefinitionID: outcome.ID,
			Hostgroup:    def.Hostgroup.Name,
			Analyst:      def.Analyst,
			Comments:     def.Comments,
			PeriodStart:  resolution.MetricsPeriod.StartString(),
			PeriodEnd:    resolution.MetricsPeriod.EndString(),
			PeriodLabel:  outcome.PeriodLabel,
			ArchiveURL:   artifact.ArchiveURL,
			GeneratedAt:  artifact.CreatedAt,
		},
	}
	if err := uc.delivery.Enqueue(ctx, req); err != nil {
		uc.logger.Error("Failed to schedule report delivery", err,
			"definition_id", outcome.ID,
			"artifact", artifact.Path,
		)
		outcome.Outcome = dto.StatusScheduleFailed
		outcome.Error = err.Error()
		return outcome
	}
	queued = true

	def.MarkSent(resolution.Label, uc.config.Now())
	outcome.Outcome = dto.StatusDispatched
	if err := uc.definitions.Save(ctx, defRef, def); err != nil {
		uc.logger.Error("Failed to persist dispatch state", err,
			"definition_id", outcome.ID,
			"period_label", outcome.PeriodLabel,
		)
		outcome.Error = "dispatch state not persisted: " + err.Error()
		return outcome
	}

	uc.logger.Info("Report dispatched",
		"definition_id", outcome.ID,
		"period_label", outcome.PeriodLabel,
		"recipients", len(req.Recipients),
		"delivery_id", req.ID,
	)

	return outcome
}

func (uc *DispatchScheduledReportsUseCase) publishOutcome(ctx context.Context, runID string, cadence valueobject.Cadence, outcome dto.DispatchOutcome) {
	if uc.events == nil {
		return
	}

	event := dto.DispatchEvent{
		RunID:        runID,
		DefinitionID: outcome.ID,
		Cadence:      cadence.String(),
		Outcome:      string(outcome.Outcome),
		PeriodLabel:  outcome.PeriodLabel,
		ArtifactPath: outcome.ArtifactPath,
		Error:        outcome.Error,
		OccurredAt:   uc.config.Now().UTC(),
	}
	if err := uc.events.PublishEvent(ctx, DispatchEventSubjectPrefix+string(outcome.Outcome), event); err != nil {
		uc.logger.Warn("Failed to publish dispatch event", "definition_id", outcome.ID, "error", err.Error())
	}
}

func skipped(outcome dto.DispatchOutcome, status dto.DispatchStatus, err error) dto.DispatchOutcome {
	outcome.Outcome = status
	if err != nil {
		outcome.Error = err.Error()
	}
	return outcome
}

func cleanRecipients(recipients []string) []string {
	out := make([]string, 0, len(recipients))
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		key := strings.ToLower(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
