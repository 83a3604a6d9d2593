package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskwatch/internal/api"
	apiMiddleware "github.com/phrazzld/taskwatch/internal/api/middleware"
	"github.com/phrazzld/taskwatch/internal/config"
	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/events"
	"github.com/phrazzld/taskwatch/internal/jobs"
	"github.com/phrazzld/taskwatch/internal/lifecycle"
	"github.com/phrazzld/taskwatch/internal/notify"
	"github.com/phrazzld/taskwatch/internal/platform/postgres"
	"github.com/phrazzld/taskwatch/internal/platform/redisstore"
	"github.com/phrazzld/taskwatch/internal/report"
	"github.com/phrazzld/taskwatch/internal/schedule"
	"github.com/phrazzld/taskwatch/internal/store"
)

// jobStatusLimit bounds how many report job records are kept for GET /api/jobs/{id}.
const jobStatusLimit = 256

// application holds the shared dependencies so that they can be wired once
// and released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client
	loc    *time.Location

	taskStore store.TaskStore
	billStore store.BillStore

	sink        notify.Sink
	emitter     *events.InMemoryEventEmitter
	attribution lifecycle.Attribution
	deduper     api.Deduper

	engine  *lifecycle.Engine
	reports *report.Service

	queue      *jobs.Queue
	dispatcher *jobs.Dispatcher
	workers    *jobs.WorkerPool
	schedule   *schedule.Runner
}

// newApplication wires every component. Nothing is started until Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	loc := cfg.Scheduler.Location()
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		loc:    loc,
	}

	app.taskStore = postgres.NewPostgresTaskStore(db, logger, loc)
	app.billStore = postgres.NewPostgresBillStore(db, logger)

	app.sink = newSink(cfg.Telegram, logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(events.NewLogHandler(logger))

	if cfg.Redis.Addr != "" {
		client, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		app.attribution = redisstore.NewAttribution(client, cfg.Redis.AttributionTTL())
		app.deduper = redisstore.NewDeduper(client, cfg.Redis.IdempotencyTTL())
		logger.Info("redis attribution and idempotency enabled")
	} else {
		app.attribution = lifecycle.NewMemoryAttribution(cfg.Redis.AttributionTTL())
		logger.Info("redis not configured, holding attribution in memory")
	}

	app.engine = lifecycle.NewEngine(app.taskStore, app.sink, app.attribution, app.emitter, lifecycle.Config{
		PollInterval:   cfg.Scheduler.PollInterval(),
		ResponseWindow: cfg.Scheduler.ResponseWindow(),
		ClockSkew:      cfg.Scheduler.ClockSkew(),
		Location:       loc,
	}, logger)

	app.reports = report.NewService(app.taskStore, app.billStore, app.sink, app.emitter, loc, logger)

	statuses := jobs.NewStatusStore(jobStatusLimit)
	app.queue = jobs.NewQueue(cfg.Jobs.QueueSize, logger)
	app.dispatcher = jobs.NewDispatcher(app.queue, statuses, logger)
	app.workers = jobs.NewWorkerPool(app.queue, statuses, jobs.WorkerPoolConfig{
		WorkerCount: cfg.Jobs.WorkerCount,
	}, logger)
	app.workers.SetErrorHandler(func(job jobs.Job, err error) {
		logger.Error("report job failed",
			slog.String("job_id", job.ID().String()),
			slog.String("job_type", job.Type()),
			slog.String("error", err.Error()))
	})

	dailyAt, err := domain.ParseTimeOfDay(cfg.Scheduler.DailyReportTime)
	if err != nil {
		app.closeRedis()
		return nil, fmt.Errorf("invalid daily report time: %w", err)
	}
	app.schedule = schedule.NewRunner(app.engine, app.reports, schedule.Config{
		Location: loc,
		DailyAt:  dailyAt,
	}, logger)

	logger.Info("application initialized",
		slog.Duration("poll_interval", cfg.Scheduler.PollInterval()),
		slog.Duration("response_window", cfg.Scheduler.ResponseWindow()),
		slog.String("daily_report_time", dailyAt.String()))
	return app, nil
}

// newSink returns the Telegram sink when a bot token is configured and a
// log-only sink otherwise.
func newSink(cfg config.TelegramConfig, logger *slog.Logger) notify.Sink {
	if cfg.BotToken == "" {
		logger.Warn("telegram bot token not configured, notifications will only be logged")
		return notify.NewLogSink(logger)
	}
	return notify.NewTelegramSink(cfg, nil, logger)
}

// setupRouter builds the HTTP handler from the wired components.
func (app *application) setupRouter() http.Handler {
	handlers := api.Handlers{
		Tasks:       api.NewTaskHandler(app.engine, app.taskStore, app.loc, app.logger),
		Completions: api.NewCompletionHandler(app.engine, app.deduper, app.logger),
		Bills:       api.NewBillHandler(app.billStore, app.loc, app.logger),
		Reports:     api.NewReportHandler(app.reports, app.dispatcher, app.logger),
		HealthCheck: app.healthCheck,
	}
	auth := apiMiddleware.NewAuthMiddleware(app.config.Auth, app.logger)
	return api.NewRouter(handlers, auth, app.logger)
}

func (app *application) healthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if app.redis != nil {
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	return nil
}

// Run starts the worker pool, the periodic loops and the HTTP server, and
// blocks until ctx is cancelled or the server fails.
func (app *application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.workers.Start()
	app.schedule.Start(ctx)

	err := app.startHTTPServer(ctx, app.setupRouter())

	cancel()
	app.schedule.Wait()
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases resources in reverse order of use.
func (app *application) cleanup() {
	if app.queue != nil {
		app.queue.Close()
	}
	if app.workers != nil {
		app.workers.Stop()
	}
	app.closeRedis()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}

func (app *application) closeRedis() {
	if app.redis == nil {
		return
	}
	if err := app.redis.Close(); err != nil {
		app.logger.Error("error closing redis client", slog.String("error", err.Error()))
	}
	app.redis = nil
}
