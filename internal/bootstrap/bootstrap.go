// Package bootstrap wires the report dispatcher from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	// Application
	"github.com/dreschagin/monitoring-reports/internal/application/port"
	"github.com/dreschagin/monitoring-reports/internal/application/usecase"

	// Domain
	"github.com/dreschagin/monitoring-reports/internal/domain/repository"
	"github.com/dreschagin/monitoring-reports/internal/domain/service"

	// Infrastructure
	rediscache "github.com/dreschagin/monitoring-reports/internal/infrastructure/cache/redis"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/delivery"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/mail"
	natsInfra "github.com/dreschagin/monitoring-reports/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/observability/cloudwatch"
	prommetrics "github.com/dreschagin/monitoring-reports/internal/infrastructure/observability/prometheus"
	dynamodbRepo "github.com/dreschagin/monitoring-reports/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/persistence/filestore"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/render/chart"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/render/pdf"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/storage/local"
	s3storage "github.com/dreschagin/monitoring-reports/internal/infrastructure/storage/s3"

	// Shared
	"github.com/dreschagin/monitoring-reports/pkg/config"
	"github.com/dreschagin/monitoring-reports/pkg/logger"

	_ "github.com/lib/pq"
)

// App holds the wired use cases and everything that must be released on exit.
type App struct {
	Config *config.Config
	Logger *logger.Logger

	Dispatcher  *usecase.DispatchScheduledReportsUseCase
	Generator   *usecase.GenerateReportUseCase
	Definitions *usecase.ListDefinitionsUseCase
	Delivery    *delivery.Worker
	Metrics     *prommetrics.Metrics

	// Checks are the readiness probes of external dependencies.
	Checks map[string]func(ctx context.Context) error

	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// Build connects every configured dependency. On error everything already
// opened is released.
func Build(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	log := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	app := &App{
		Config: cfg,
		Logger: log,
		Checks: make(map[string]func(ctx context.Context) error),
	}
	defer func() {
		if err != nil {
			app.Close(context.Background())
		}
	}()

	// 1. CloudWatch Logs: подключаем первым, чтобы видеть ошибки запуска
	if cfg.CloudWatch.LogsEnabled {
		logsPublisher, initErr := cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			LogGroupName:    cfg.CloudWatch.LogGroupName,
			LogStreamName:   cfg.CloudWatch.LogStreamName,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			AutoCreate:      true,
		})
		if initErr != nil {
			return nil, fmt.Errorf("cloudwatch logs: %w", initErr)
		}
		log.AddHook(cloudwatch.NewLogsHook(logsPublisher, logrus.InfoLevel))
		app.onClose("cloudwatch logs", logsPublisher.Close)
		log.Info("CloudWatch logs publisher initialized", "log_group", cfg.CloudWatch.LogGroupName)
	}

	// 2. Базы данных
	metricsDB, err := openDatabase(ctx, cfg.MetricsDB)
	if err != nil {
		return nil, fmt.Errorf("metrics database: %w", err)
	}
	app.onClose("metrics database", func(context.Context) error { return metricsDB.Close() })
	app.Checks["metrics_db"] = metricsDB.PingContext
	log.Info("Metrics database connected", "database", cfg.MetricsDB.Database)

	var tickets port.TicketProvider
	if cfg.TicketDB.Enabled {
		ticketDB, openErr := openDatabase(ctx, cfg.TicketDB)
		if openErr != nil {
			return nil, fmt.Errorf("ticket database: %w", openErr)
		}
		app.onClose("ticket database", func(context.Context) error { return ticketDB.Close() })
		app.Checks["ticket_db"] = ticketDB.PingContext
		tickets = postgres.NewTicketProvider(ticketDB)
		log.Info("Ticket database connected", "database", cfg.TicketDB.Database)
	} else {
		log.Warn("Ticket database is disabled, ticket sections will show an error notice")
	}

	var metrics port.MetricsProvider = postgres.NewMetricsProvider(metricsDB)

	// 3. Redis кеш ответов источника метрик
	if cfg.Redis.Enabled {
		cache, cacheErr := rediscache.NewRedisCache(rediscache.Options{
			Host:      cfg.Redis.Host,
			Port:      cfg.Redis.Port,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			TTL:       cfg.Redis.TTL,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if cacheErr != nil {
			return nil, cacheErr
		}
		app.onClose("redis", func(context.Context) error { return cache.Close() })
		app.Checks["redis"] = cache.Ping
		metrics = usecase.NewCachedMetricsProvider(metrics, cache, log)
		log.Info("Redis cache enabled", "ttl", cfg.Redis.TTL.String())
	}

	// 4. Хранилище определений
	definitions, err := openDefinitions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("Definition store ready", "backend", cfg.Definitions.Backend)

	// 5. Артефакты
	artifacts, err := local.NewArtifactStore(cfg.Reports.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}

	var archive port.ArtifactArchive
	if cfg.S3.Enabled {
		archiveImpl, archiveErr := s3storage.NewArtifactArchive(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if archiveErr != nil {
			return nil, fmt.Errorf("artifact archive: %w", archiveErr)
		}
		archive = archiveImpl
		log.Info("S3 artifact archive enabled", "bucket", cfg.S3.Bucket)
	}

	// 6. Метрики самого сервиса
	app.Metrics = prommetrics.New(nil)
	recorder := port.MultiRecorder{app.Metrics}

	if cfg.CloudWatch.MetricsEnabled {
		dimensions := map[string]string{"Environment": cfg.CloudWatch.Environment}
		publisher, initErr := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.Namespace,
			Region:            cfg.CloudWatch.Region,
			Endpoint:          cfg.CloudWatch.Endpoint,
			AccessKeyID:       cfg.CloudWatch.AccessKeyID,
			SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: dimensions,
		}, log)
		if initErr != nil {
			return nil, fmt.Errorf("cloudwatch metrics: %w", initErr)
		}
		app.onClose("cloudwatch metrics", publisher.Close)
		recorder = append(recorder, publisher)
		log.Info("CloudWatch metrics publisher initialized", "namespace", cfg.CloudWatch.Namespace)
	}

	// 7. События рассылки
	var events port.EventPublisher
	if cfg.NATS.Enabled {
		publisher, natsErr := natsInfra.NewPublisher(natsInfra.Config{
			URL:    cfg.NATS.URL,
			Stream: cfg.NATS.Stream,
			MaxAge: cfg.NATS.MaxAge,
		}, log)
		if natsErr != nil {
			return nil, natsErr
		}
		app.onClose("nats", func(context.Context) error { return publisher.Close() })
		events = publisher
	}

	// 8. Доставка
	mailer := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		StartTLS: cfg.SMTP.StartTLS,
		Timeout:  cfg.SMTP.Timeout,
	})
	app.Delivery = delivery.NewWorker(mailer, recorder, delivery.Config{
		QueueSize:   cfg.Delivery.QueueSize,
		Workers:     cfg.Delivery.Workers,
		SendTimeout: cfg.Delivery.SendTimeout,
	}, log)
	app.onClose("delivery", app.Delivery.Stop)

	// 9. Domain services и use cases
	location := cfg.Location()
	resolver := service.NewPeriodResolver()
	validator := service.NewDefinitionValidator()

	renderer := pdf.NewRenderer(pdf.Config{
		Location: location,
		Chart:    chart.Options{},
	})

	assembler := usecase.NewAssembleReportUseCase(
		metrics,
		tickets,
		renderer,
		artifacts,
		archive,
		service.NewSeriesReducer(cfg.Reports.TargetSamples),
		service.NewTicketAnalytics(),
		usecase.AssembleReportConfig{
			LogoDir:          cfg.Reports.LogoDir,
			ArchiveKeyPrefix: cfg.S3.KeyPrefix,
		},
		log,
	)

	app.Dispatcher = usecase.NewDispatchScheduledReportsUseCase(
		definitions,
		resolver,
		validator,
		assembler,
		app.Delivery,
		events,
		recorder,
		usecase.DispatchScheduledReportsConfig{Location: location},
		log,
	)
	app.Generator = usecase.NewGenerateReportUseCase(resolver, validator, assembler, app.Delivery, location, log)
	app.Definitions = usecase.NewListDefinitionsUseCase(definitions, log)

	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.Logger.Error("Failed to close resource", err, "resource", c.name)
		}
	}
	a.closers = nil
}

func (a *App) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Database, err)
	}
	return db, nil
}

func openDefinitions(ctx context.Context, cfg *config.Config) (repository.DefinitionRepository, error) {
	switch cfg.Definitions.Backend {
	case "dynamodb":
		repo, err := dynamodbRepo.NewDefinitionRepository(ctx, dynamodbRepo.Config{
			TableName:       cfg.DynamoDB.TableName,
			Region:          cfg.DynamoDB.Region,
			Endpoint:        cfg.DynamoDB.Endpoint,
			AccessKeyID:     cfg.DynamoDB.AccessKeyID,
			SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
			StrongReads:     cfg.DynamoDB.StrongReads,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb definitions: %w", err)
		}
		return repo, nil
	default:
		repo, err := filestore.NewDefinitionRepository(cfg.Definitions.Dir)
		if err != nil {
			return nil, fmt.Errorf("file definitions: %w", err)
		}
		return repo, nil
	}
}
