// Package scheduler triggers dispatch cycles on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

// Dispatcher runs one dispatch cycle.
type Dispatcher interface {
	Execute(ctx context.Context, cmd dto.DispatchCommand) (*dto.DispatchResult, error)
}

type Config struct {
	Location *time.Location
	// Daily re-runs every scheduled cadence; already sent periods are skipped.
	DailySpec   string
	WeeklySpec  string
	MonthlySpec string
}

// CronScheduler запускает циклы рассылки по расписанию
type CronScheduler struct {
	engine     *cron.Cron
	dispatcher Dispatcher
	config     Config
	logger     *logger.Logger
}

func NewCronScheduler(dispatcher Dispatcher, config Config, log *logger.Logger) *CronScheduler {
	if config.Location == nil {
		config.Location = time.Local
	}
	return &CronScheduler{
		// пропускаем запуск, если предыдущий цикл еще не закончился
		engine: cron.New(
			cron.WithLocation(config.Location),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		dispatcher: dispatcher,
		config:     config,
		logger:     log,
	}
}

// Start registers the jobs and starts the engine. Empty specs are skipped.
func (s *CronScheduler) Start() error {
	jobs := []struct {
		name     string
		spec     string
		cadences []valueobject.Cadence
	}{
		{"daily", s.config.DailySpec, valueobject.ScheduledCadences()},
		{"weekly", s.config.WeeklySpec, []valueobject.Cadence{valueobject.CadenceWeekly}},
		{"monthly", s.config.MonthlySpec, []valueobject.Cadence{valueobject.CadenceMonthly}},
	}

	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		cadences := job.cadences
		name := job.name
		if _, err := s.engine.AddFunc(job.spec, func() { s.RunCadences(name, cadences) }); err != nil {
			return fmt.Errorf("failed to add %s job %q: %w", job.name, job.spec, err)
		}
		s.logger.Info("Scheduled dispatch job", "job", job.name, "spec", job.spec, "timezone", s.config.Location.String())
	}

	s.engine.Start()
	s.logger.Info("Dispatch scheduler started", "jobs", len(s.engine.Entries()))
	return nil
}

// RunCadences runs one non-forced cycle per cadence. A cycle has no
// deadline: a slow source delays the batch but never drops a report.
func (s *CronScheduler) RunCadences(job string, cadences []valueobject.Cadence) {
	for _, cadence := range cadences {
		result, err := s.dispatcher.Execute(context.Background(), dto.DispatchCommand{Cadence: cadence.String()})

		if err != nil {
			s.logger.Error("Scheduled dispatch cycle failed", err, "job", job, "cadence", cadence.String())
			continue
		}
		s.logger.Info("Scheduled dispatch cycle completed",
			"job", job,
			"cadence", cadence.String(),
			"run_id", result.RunID,
			"dispatched", result.Count(dto.StatusDispatched),
		)
	}
}

// Stop ждет завершения выполняющихся задач
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping dispatch scheduler")
	done := s.engine.Stop()

	select {
	case <-done.Done():
		s.logger.Info("Dispatch scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}
