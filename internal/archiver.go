package internal

import (
	"context"
	"fmt"

	"github.com/ytarchive/ytarchive/internal/acquire"
	"github.com/ytarchive/ytarchive/internal/database"
	"github.com/ytarchive/ytarchive/internal/event"
	"github.com/ytarchive/ytarchive/internal/history"
	"github.com/ytarchive/ytarchive/internal/media"
	"github.com/ytarchive/ytarchive/internal/provider"
	"github.com/ytarchive/ytarchive/internal/table"
	"github.com/ytarchive/ytarchive/pkg/logger"
)

var log = logger.Get("Core")

type (
	// FetchOptions override the configured defaults for a single fetch.
	// Nil fields fall back to the configuration.
	FetchOptions struct {
		AudioOnly   *bool
		Persist     *bool
		Preflight   *bool
		Mode        acquire.Mode
		Concurrency int
	}

	// Archiver is the top-level object, responsible for connecting to the
	// database, bootstrapping the stores and wiring the provider and
	// event bus in to the orchestrator.
	Archiver struct {
		config   *ArchiveConfig
		eventBus event.EventCoordinator
		activity *activityService
		provider provider.Provider

		tables  *table.Store
		media   *media.Store
		history *history.Store
	}
)

func New(config *ArchiveConfig) *Archiver {
	logger.SetMinLoggingLevel(logger.ParseLevel(config.LogLevel).Level())
	log.Emit(logger.DEBUG, "Bootstrapping archiver using config: %#v\n", config)

	eventBus := event.New()
	return &Archiver{
		config:   config,
		eventBus: eventBus,
		activity: newActivityService(eventBus),
		provider: provider.NewYtDlp(provider.Config{
			BinaryPath:     config.YtDlpPath,
			FFmpegLocation: config.FFmpegLocation,
		}),
	}
}

// Open connects to the configured database, creating it if it is absent,
// runs migrations and ensures the media tables exist. Open is idempotent.
func (archiver *Archiver) Open(ctx context.Context) error {
	if archiver.tables != nil {
		return nil
	}

	dbConfig := archiver.config.Database
	opener := database.NewOpener(dbConfig)

	var store *table.Store
	if bootstrap, ok := database.MaintenanceDatabase(database.Backend(dbConfig.Backend)); ok {
		engine, err := opener(bootstrap)
		if err != nil {
			return fmt.Errorf("failed to connect to %s maintenance database: %w", dbConfig.Backend, err)
		}

		store = table.New(engine, opener)
		if _, err := store.CreateDatabaseIfAbsent(ctx, dbConfig.Name); err != nil {
			_ = store.Close()
			return err
		}

		if err := store.SwitchDatabase(ctx, dbConfig.Name); err != nil {
			_ = store.Close()
			return err
		}
	} else {
		engine, err := opener(dbConfig.Name)
		if err != nil {
			return err
		}

		store = table.New(engine, opener)
	}

	if err := store.Engine().ExecuteMigrations(); err != nil {
		_ = store.Close()
		return err
	}

	mediaStore := media.NewStore(store)
	if err := mediaStore.EnsureTables(ctx); err != nil {
		_ = store.Close()
		return err
	}

	archiver.tables = store
	archiver.media = mediaStore
	archiver.history = history.NewStore(store.Engine())
	return nil
}

// Fetch acquires the URL, persisting each item's metadata when enabled, and
// records a summary of the run in the history.
func (archiver *Archiver) Fetch(ctx context.Context, url string, opts FetchOptions) (*acquire.Report, error) {
	runOpts := acquire.Options{
		AudioOnly:      valueOr(opts.AudioOnly, archiver.config.AudioOnly),
		Persist:        valueOr(opts.Persist, archiver.config.WriteToDB),
		Mode:           opts.Mode,
		Concurrency:    archiver.config.Concurrency,
		PreflightCheck: valueOr(opts.Preflight, archiver.config.PreflightCheck),
	}
	if opts.Concurrency > 0 {
		runOpts.Concurrency = opts.Concurrency
	}

	var persister acquire.Persister
	if runOpts.Persist {
		if err := archiver.Open(ctx); err != nil {
			return nil, err
		}
		persister = archiver.media
	}

	orchestrator := acquire.New(acquire.Config{
		OutputPath:       archiver.config.OutputPath,
		CollectionMarker: archiver.config.CollectionMarker,
		TagAudio:         archiver.config.TagAudio,
		VerifyDownloads:  archiver.config.VerifyDownloads,
		FFprobePath:      archiver.config.FFprobePath,
	}, archiver.provider, persister, archiver.eventBus)

	activityCtx, stopActivity := context.WithCancel(context.Background())
	activityDone := make(chan struct{})
	go func() {
		defer close(activityDone)
		archiver.activity.Run(activityCtx)
	}()

	report, err := orchestrator.Run(ctx, url, runOpts)
	stopActivity()
	<-activityDone
	if err != nil {
		return nil, err
	}

	if archiver.history != nil {
		if err := archiver.history.Record(context.WithoutCancel(ctx), historyRun(report)); err != nil {
			log.Warnf("Failed to record run %s in history: %v\n", report.RunID, err)
		}
	}

	return report, nil
}

// Tables returns the table store, opening the database if required.
func (archiver *Archiver) Tables(ctx context.Context) (*table.Store, error) {
	if err := archiver.Open(ctx); err != nil {
		return nil, err
	}

	return archiver.tables, nil
}

// History returns the run history store, opening the database if required.
func (archiver *Archiver) History(ctx context.Context) (*history.Store, error) {
	if err := archiver.Open(ctx); err != nil {
		return nil, err
	}

	return archiver.history, nil
}

func (archiver *Archiver) Close() error {
	if archiver.tables == nil {
		return nil
	}

	err := archiver.tables.Close()
	archiver.tables, archiver.media, archiver.history = nil, nil, nil
	return err
}

func historyRun(report *acquire.Report) history.Run {
	return history.Run{
		ID:         report.RunID,
		URL:        report.URL,
		Kind:       string(report.Kind),
		AudioOnly:  report.AudioOnly,
		Items:      len(report.Items),
		Downloaded: report.Downloaded(),
		Persisted:  report.Persisted(),
		Failures:   len(report.Failures()),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}

	return *v
}

