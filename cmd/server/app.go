package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"prospector/internal/changefeed"
	"prospector/internal/docstore"
	"prospector/internal/identity"
	"prospector/internal/platform/config"
	"prospector/internal/platform/kafka"
	"prospector/internal/platform/logger"
	"prospector/internal/platform/metrics"
	"prospector/internal/platform/migrations"
	"prospector/internal/platform/postgres"
	redisclient "prospector/internal/platform/redis"
	"prospector/pkg/platform/audit"
	auditmemory "prospector/pkg/platform/audit/store/memory"
	auditpostgres "prospector/pkg/platform/audit/store/postgres"
)

// feed is where the enrichment pipeline subscribes and what runs in the
// background to deliver changes.
type feed interface {
	changefeed.Subscriber
	Run(ctx context.Context) error
}

// app holds the process wide collaborators for the configured store driver.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	docs        docstore.Store
	credentials identity.Store
	auditStore  audit.Store
	feed        feed
	relay       *changefeed.Relay

	db    *sql.DB
	pool  *pgxpool.Pool
	redis *redisclient.Client

	closers []func()
}

// newApp connects the stores for cfg.StoreDriver. With withFeed the change
// feed is wired too, which for postgres means the Kafka relay and consumer.
func newApp(ctx context.Context, cfg *config.Config, withFeed bool) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:      cfg,
		logger:   logger.New(cfg.LogLevel),
		registry: registry,
		metrics:  metrics.New(registry),
	}

	var err error
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		a.wireMemory()
	case config.StoreDriverPostgres:
		err = a.wirePostgres(ctx)
		if err == nil && withFeed {
			err = a.wireKafka(ctx)
		}
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	a.redis, err = redisclient.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if a.redis != nil {
		a.closers = append(a.closers, func() { _ = a.redis.Close() })
	}
	return a, nil
}

func (a *app) wireMemory() {
	memFeed := changefeed.NewMemoryFeed(changefeed.WithFeedLogger(a.logger))
	a.docs = docstore.NewMemoryStore(
		docstore.WithChangeSink(memFeed),
		docstore.WithLogger(a.logger),
	)
	a.credentials = identity.NewMemoryStore()
	a.auditStore = auditmemory.NewInMemoryStore()
	a.feed = memFeed
	a.logger.Warn("using in-memory store; data is lost on exit")
}

func (a *app) wirePostgres(ctx context.Context) error {
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	if err := migrations.Up(ctx, db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	pool, err := postgres.OpenPool(ctx, a.cfg.Postgres)
	if err != nil {
		return err
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)

	a.docs = docstore.NewPostgresStore(db)
	a.credentials = identity.NewPostgresStore(db)
	a.auditStore = auditpostgres.New(db)
	return nil
}

// wireKafka relays the document_changes outbox to Kafka and consumes it
// back as the change feed.
func (a *app) wireKafka(ctx context.Context) error {
	producer, err := kafka.NewProducer(a.cfg.Kafka)
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	a.closers = append(a.closers, producer.Close)
	if err := kafka.EnsureTopic(ctx, producer, a.cfg.Kafka); err != nil {
		return err
	}

	consumer, err := kafka.NewConsumer(a.cfg.Kafka)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	a.closers = append(a.closers, consumer.Close)

	a.relay, err = changefeed.NewRelay(a.pool, producer, changefeed.RelayOptions{
		PollInterval: a.cfg.Relay.PollInterval,
		BatchSize:    a.cfg.Relay.BatchSize,
		Logger:       a.logger,
		Metrics:      a.metrics,
	})
	if err != nil {
		return err
	}
	source, err := changefeed.NewKafkaSource(consumer,
		changefeed.WithSourceLogger(a.logger),
		changefeed.WithSourceMetrics(a.metrics),
	)
	if err != nil {
		return err
	}
	a.feed = source
	return nil
}

// openDB opens the database/sql handle used by the stores and migrations.
func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := postgres.Open(ctx, a.cfg.Postgres)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() { _ = db.Close() })
	return db, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

var errMemoryBootstrap = errors.New("bootstrap-admin needs STORE_DRIVER=postgres, the in-memory store does not outlive the command")
