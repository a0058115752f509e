package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-orcamento-backend/internal/cache"
	"github.com/tbourn/go-orcamento-backend/internal/catalog"
	"github.com/tbourn/go-orcamento-backend/internal/config"
	"github.com/tbourn/go-orcamento-backend/internal/http/handlers"
	"github.com/tbourn/go-orcamento-backend/internal/llm"
	"github.com/tbourn/go-orcamento-backend/internal/repo"
	"github.com/tbourn/go-orcamento-backend/internal/services"
	"github.com/tbourn/go-orcamento-backend/internal/storage"
	"github.com/tbourn/go-orcamento-backend/internal/worker"
)

// App is the wired application: database, backing services and the
// service layer the HTTP handlers depend on.
type App struct {
	Config   config.Config
	DB       *gorm.DB
	Services handlers.Services
	Workers  *worker.Group
	Exports  *services.ExportService

	cache cache.Cache
}

// openDB connects to the configured database and migrates the schema.
func openDB(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.DBPath
	if cfg.DBDriver == repo.DriverPostgres {
		dsn = cfg.DatabaseURL
	}
	db, err := repo.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// objectStore returns nil when no bucket is configured.
func objectStore(cfg config.Config) (storage.ObjectStore, error) {
	s3, err := storage.NewS3(storage.S3Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		ForcePathStyle:  cfg.S3.ForcePathStyle,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
	if errors.Is(err, storage.ErrNotConfigured) {
		log.Info().Msg("S3_BUCKET not set; media, exports with photos and report links disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s3, nil
}

// NewApp wires every dependency from cfg. Optional backends (Redis, S3,
// the price catalog) degrade with a log line instead of failing.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	idx, err := catalog.LoadMarkdown(cfg.CatalogPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.CatalogPath).Msg("price catalog not loaded")
		idx = nil
	} else {
		log.Info().Int("entries", idx.Len()).Str("path", cfg.CatalogPath).Msg("price catalog loaded")
	}

	rc := cache.New(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   "orcamento:",
	})

	store, err := objectStore(cfg)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}

	model := llm.NewOpenAI(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	temp := cfg.LLM.Temperature
	ref := &services.ReferenceService{
		DB:         db,
		Catalog:    idx,
		Cache:      rc,
		SampleSize: cfg.ReferenceSampleSize,
		CacheTTL:   cfg.ReferenceCacheTTL,
	}
	workers := &worker.Group{}

	media := &services.MediaService{DB: db, URLTTL: cfg.SignedURLTTL, MaxBytes: cfg.MaxUploadBytes}
	if store != nil {
		media.Store = store
	}
	exports := &services.ExportService{
		DB:            db,
		Media:         media,
		Company:       cfg.CompanyName,
		PhotoTimeout:  cfg.PhotoFetchTimeout,
		MaxPhotoBytes: cfg.MaxUploadBytes,
	}

	return &App{
		Config:  cfg,
		DB:      db,
		Workers: workers,
		Exports: exports,
		cache:   rc,
		Services: handlers.Services{
			Sessions: services.NewSessionService(db),
			Chat: &services.ChatService{
				DB:                 db,
				LLM:                model,
				Reference:          ref,
				Workers:            workers,
				Model:              cfg.LLM.Model,
				Temperature:        &temp,
				MaxPromptRunes:     cfg.MaxPromptRunes,
				MaxSessionMessages: cfg.MaxSessionMessages,
				IdempotencyTTL:     cfg.IdempotencyTTL,
			},
			Proposals: &services.ProposalService{
				DB:          db,
				LLM:         model,
				Reference:   ref,
				Model:       cfg.LLM.SynthModel,
				Temperature: &temp,
			},
			Exports:  exports,
			Media:    media,
			Feedback: &services.FeedbackService{DB: db},
		},
	}, nil
}

// Close releases the database and cache connections.
func (a *App) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

// purgeIdempotency deletes expired Idempotency-Key records every interval
// until ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("expired idempotency keys purged")
			}
		}
	}
}
