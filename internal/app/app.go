package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"

	"NewsPulse/internal/config"
	"NewsPulse/internal/dedup"
	"NewsPulse/internal/domain"
	"NewsPulse/internal/httpapi"
	"NewsPulse/internal/infrastructure/feed"
	"NewsPulse/internal/infrastructure/llm"
	"NewsPulse/internal/infrastructure/push"
	"NewsPulse/internal/infrastructure/scheduler"
	"NewsPulse/internal/infrastructure/storage"
	"NewsPulse/internal/logging"
	"NewsPulse/internal/usecase"
)

// Application wires configuration into the pipeline, scheduler and admin API.
type Application struct {
	cfg       config.Config
	db        *sql.DB
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	server    *http.Server
	logger    *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repository := storage.NewPostgresRepository(db)
	fetcher := feed.NewFetcher(cfg.Pipeline.UserAgent, cfg.Pipeline.FetchTimeout, cfg.Pipeline.ItemsPerFeed)
	extractor := llm.NewClient(cfg.LLM)
	engine := dedup.New(repository, cfg.Pipeline.DedupWindow, nil)
	notifier := push.NewNotifier(cfg.Push.Endpoint, repository, logging.Component(baseLogger, "push"))

	sources := make([]domain.FeedSource, 0, len(cfg.Feeds))
	for _, f := range cfg.Sources() {
		sources = append(sources, domain.FeedSource{Name: f.Name, URL: f.URL, Priority: f.Priority})
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Fetcher:    fetcher,
		Extractor:  extractor,
		Repository: repository,
		Dedup:      engine,
		Notifier:   notifier,
		Sources:    sources,
		Delay:      cfg.Pipeline.ExtractorDelay,
		Logger:     logging.Component(baseLogger, "pipeline"),
	})

	driver := scheduler.NewHourlyScheduler(cfg.Scheduler.StartHour, cfg.Scheduler.EndHour, cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, pipeline, logging.Component(baseLogger, "scheduler"))

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(pipeline, logging.Component(baseLogger, "httpapi")),
	}

	return &Application{
		cfg:       cfg,
		db:        db,
		pipeline:  pipeline,
		scheduler: sched,
		server:    server,
		logger:    baseLogger,
	}, nil
}

// Run starts the scheduler and serves the admin API until the server stops.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.logger.Info("newspulse started",
		"addr", a.cfg.HTTP.Addr,
		"feeds", len(a.cfg.Feeds),
		"active_hours", fmt.Sprintf("%02d-%02d", a.cfg.Scheduler.StartHour, a.cfg.Scheduler.EndHour))

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the scheduler, the HTTP server and the database pool.
func (a *Application) Shutdown(ctx context.Context) error {
	_ = a.scheduler.Stop(ctx)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
