// Package app builds the service graph shared by the HTTP server and the
// deliveryctl CLI.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/homedeliver/api/internal/blob"
	"github.com/homedeliver/api/internal/catalog"
	"github.com/homedeliver/api/internal/config"
	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/notify"
	"github.com/homedeliver/api/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Services holds every domain service wired to one pool.
type Services struct {
	Queries   *database.Queries
	Catalog   *catalog.Cache
	History   *service.HistoryAppender
	Configs   *service.ConfigService
	Clients   *service.ClientService
	Orders    *service.OrderService
	Lifecycle *service.LifecycleProcessor
	Migration *service.MigrationService
}

// Options carries the optional integrations. A nil field disables the
// integration.
type Options struct {
	Blobs       service.BlobStore
	Mailer      service.Mailer
	Broadcaster service.Broadcaster
	Clock       service.Clock
}

// NewServices wires the services over pool.
func NewServices(cfg *config.Config, pool *pgxpool.Pool, opts Options) *Services {
	queries := database.New(pool)
	defaults := service.AppSettings{Schedule: cfg.Schedule(), ReportEmail: cfg.ReportEmail}

	cat := catalog.NewCache(queries, cfg.CatalogTTL)
	history := service.NewHistoryAppender(queries)
	repo := service.NewScheduledOrderRepository(queries, history, opts.Clock)
	configs := service.NewConfigService(queries, repo, cat, defaults, opts.Clock)

	lifecycle := service.NewLifecycleProcessor(pool, func(db database.DBTX) service.LifecycleStore {
		return database.New(db)
	}, cat, history, defaults, opts.Clock)
	if opts.Broadcaster != nil {
		lifecycle.WithBroadcaster(opts.Broadcaster)
	}
	if opts.Mailer != nil {
		lifecycle.WithMailer(opts.Mailer)
	}

	orders := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, opts.Blobs, opts.Clock)

	return &Services{
		Queries:   queries,
		Catalog:   cat,
		History:   history,
		Configs:   configs,
		Clients:   service.NewClientService(queries),
		Orders:    orders,
		Lifecycle: lifecycle,
		Migration: service.NewMigrationService(queries, configs, cat, cfg.MigrationPageSize),
	}
}

// Connect opens and pings the pool.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Integrations builds the GCS and SendGrid clients the config enables.
// The returned close func releases them.
func Integrations(ctx context.Context, cfg *config.Config) (Options, func()) {
	var opts Options
	closeFn := func() {}

	if cfg.GCSBucket != "" {
		gcs, err := blob.NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			log.Printf("WARN: delivery proof storage disabled: %v", err)
		} else {
			opts.Blobs = gcs
			closeFn = func() {
				if err := gcs.Close(); err != nil {
					log.Printf("WARN: close storage client: %v", err)
				}
			}
		}
	} else {
		log.Println("WARN: GCS_BUCKET not set, delivery proof uploads will fail")
	}

	if cfg.SendGridAPIKey != "" {
		opts.Mailer = notify.NewSendGrid(cfg.SendGridAPIKey, cfg.ReportFrom)
	}
	return opts, closeFn
}
