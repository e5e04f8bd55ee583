package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dreschagin/monitoring-reports/internal/bootstrap"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/scheduler"
	httpInterface "github.com/dreschagin/monitoring-reports/internal/interfaces/http"
	"github.com/dreschagin/monitoring-reports/internal/interfaces/http/handler"
	"github.com/dreschagin/monitoring-reports/pkg/config"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Подключаем зависимости
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	log := app.Logger
	log.Info("Starting report dispatcher", "timezone", cfg.Reports.Timezone)

	// 3. Фоновая доставка писем
	app.Delivery.Start(ctx)

	// 4. Планировщик
	var cronScheduler *scheduler.CronScheduler
	if cfg.Scheduler.Enabled {
		cronScheduler = scheduler.NewCronScheduler(app.Dispatcher, scheduler.Config{
			Location:    cfg.Location(),
			DailySpec:   cfg.Scheduler.DailySpec,
			WeeklySpec:  cfg.Scheduler.WeeklySpec,
			MonthlySpec: cfg.Scheduler.MonthlySpec,
		}, log)
		if err := cronScheduler.Start(); err != nil {
			log.Error("Failed to start scheduler", err)
			app.Close(context.Background())
			os.Exit(1)
		}
	} else {
		log.Warn("Scheduler is disabled, dispatch runs only through the API")
	}

	// 5. HTTP интерфейс
	checks := make(map[string]httpInterface.ReadinessCheck, len(app.Checks))
	for name, check := range app.Checks {
		checks[name] = check
	}

	router := httpInterface.NewRouter(
		handler.NewDispatchAPIHandler(app.Dispatcher, log),
		handler.NewReportAPIHandler(app.Generator, app.Definitions, log),
		httpInterface.RouterConfig{
			Security:                 cfg.Security,
			ManualRateLimitPerMinute: cfg.Reports.ManualRateLimitPerMinute,
			Metrics:                  app.Metrics.Handler(),
			Checks:                   checks,
		},
		log,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			sigChan <- syscall.SIGTERM
		}
	}()

	// 6. Ожидаем сигнал для graceful shutdown
	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}
	if cronScheduler != nil {
		if err := cronScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Scheduler shutdown error", err)
		}
	}

	// Доставка дочищает очередь внутри Close
	cancel()
	app.Close(shutdownCtx)

	log.Info("Report dispatcher stopped")
}
