// Package delivery sends generated reports in the background.
package delivery

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/application/port"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/mail"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

type Config struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// Worker реализует port.DeliveryQueue.
//
// Enqueue никогда не блокируется: при заполненной очереди возвращается
// reporterr.ErrQueueFull. Ошибки отправки только логируются, повторных
// попыток нет.
type Worker struct {
	mailer   port.Mailer
	recorder port.DispatchRecorder
	config   Config
	logger   *logger.Logger

	// Канал запросов на отправку
	queue chan port.DeliveryRequest

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewWorker(mailer port.Mailer, recorder port.DispatchRecorder, config Config, log *logger.Logger) *Worker {
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 2 * time.Minute
	}
	if recorder == nil {
		recorder = port.NopRecorder{}
	}

	return &Worker{
		mailer:   mailer,
		recorder: recorder,
		config:   config,
		logger:   log,
		queue:    make(chan port.DeliveryRequest, config.QueueSize),
	}
}

// Start запускает обработчики очереди; повторный вызов ничего не делает
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true

	for i := 0; i < w.config.Workers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
	w.logger.Info("Delivery worker started", "workers", w.config.Workers, "queue_size", w.config.QueueSize)
}

func (w *Worker) Enqueue(ctx context.Context, req port.DeliveryRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return reporterr.ErrQueueClosed
	}

	select {
	case w.queue <- req:
		w.logger.Debug("Delivery scheduled", "delivery_id", req.ID, "definition_id", req.Metadata.DefinitionID)
		return nil
	default:
		return reporterr.ErrQueueFull
	}
}

// Pending returns the number of queued requests.
func (w *Worker) Pending() int {
	return len(w.queue)
}

// Stop закрывает очередь и ждет отправки уже принятых писем
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	started := w.started
	w.mu.Unlock()

	if !started {
		// никто не читает очередь, отправляем оставшееся синхронно
		for req := range w.queue {
			w.deliver(ctx, req)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Delivery worker stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("delivery worker stop: %w", ctx.Err())
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case req, ok := <-w.queue:
			if !ok {
				return
			}
			w.deliver(ctx, req)
		case <-ctx.Done():
			// дочищаем очередь после остановки сервиса
			for req := range w.queue {
				w.deliver(context.Background(), req)
			}
			return
		}
	}
}

func (w *Worker) deliver(parent context.Context, req port.DeliveryRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.config.SendTimeout)
	defer cancel()

	err := w.send(ctx, req)
	w.recorder.RecordDelivery(err == nil)
	if err != nil {
		w.logger.Error("Report delivery failed", err,
			"delivery_id", req.ID,
			"definition_id", req.Metadata.DefinitionID,
			"recipients", len(req.Recipients),
		)
		return
	}

	w.logger.Info("Report delivered",
		"delivery_id", req.ID,
		"definition_id", req.Metadata.DefinitionID,
		"period_label", req.Metadata.PeriodLabel,
		"recipients", len(req.Recipients),
	)
}

func (w *Worker) send(ctx context.Context, req port.DeliveryRequest) error {
	data, err := os.ReadFile(req.ArtifactPath)
	if err != nil {
		return &reporterr.DeliveryError{Recipients: req.Recipients, Err: fmt.Errorf("read artifact: %w", err)}
	}

	msg, err := mail.RenderReportEmail(ctx, req, data)
	if err != nil {
		return &reporterr.DeliveryError{Recipients: req.Recipients, Err: err}
	}

	if err := w.mailer.Send(ctx, msg); err != nil {
		return &reporterr.DeliveryError{Recipients: req.Recipients, Err: err}
	}
	return nil
}
