// Package app wires configuration into a running service: store, fetcher,
// extractor, watcher, Telegram bot and the liveness HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsubapi "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ozwatch/ozwatch/internal/api"
	"github.com/ozwatch/ozwatch/internal/bot"
	systemclock "github.com/ozwatch/ozwatch/internal/clock/system"
	"github.com/ozwatch/ozwatch/internal/config"
	eventsink "github.com/ozwatch/ozwatch/internal/events/pubsub"
	"github.com/ozwatch/ozwatch/internal/extract"
	"github.com/ozwatch/ozwatch/internal/fetch"
	collyfetch "github.com/ozwatch/ozwatch/internal/fetch/colly"
	"github.com/ozwatch/ozwatch/internal/fetch/headless"
	"github.com/ozwatch/ozwatch/internal/metrics"
	"github.com/ozwatch/ozwatch/internal/notify/telegram"
	"github.com/ozwatch/ozwatch/internal/snapshot"
	filestore "github.com/ozwatch/ozwatch/internal/store/file"
	memstore "github.com/ozwatch/ozwatch/internal/store/memory"
	pgstore "github.com/ozwatch/ozwatch/internal/store/postgres"
	"github.com/ozwatch/ozwatch/internal/track"
	"github.com/ozwatch/ozwatch/internal/watch"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	watcher *watch.Watcher
	bot     *bot.Bot
	server  *api.Server

	pgPool        *pgxpool.Pool
	pubsubClient  *pubsubapi.Client
	storageClient *storage.Client
}

// New assembles the full service from configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	clock := systemclock.New()

	store, err := a.buildStore(ctx)
	if err != nil {
		return nil, err
	}
	snapshots, err := a.buildSnapshots(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	sink, err := a.buildEventSink(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	fetcher := fetch.NewClient(fetch.Config{
		Probe: collyfetch.Config{
			BaseURL:   cfg.Fetch.BaseURL,
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		},
		Headless: headless.Config{
			BaseURL:          cfg.Fetch.BaseURL,
			UserAgent:        cfg.Fetch.UserAgent,
			NavTimeout:       time.Duration(cfg.Fetch.NavTimeoutSeconds) * time.Second,
			Settle:           time.Duration(cfg.Fetch.SettleMillis) * time.Millisecond,
			LookupsPerSecond: cfg.Fetch.LookupsPerSecond,
		},
		HeadlessEnabled: cfg.Fetch.HeadlessEnabled,
	}, fetch.NewDetector(0, nil), logger.Named("fetch"))

	extractor := extract.New()
	checker := watch.NewChecker(fetcher, extractor, logger.Named("checker"))

	botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("telegram client: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	notifier := telegram.New(botAPI)
	dispatcher := watch.NewDispatcher(notifier, sink, logger.Named("dispatch"))

	a.watcher = watch.New(watch.Config{
		Interval:          cfg.PollInterval(),
		StartupCooldown:   cfg.StartupCooldown(),
		StopWhenDelivered: cfg.Poll.StopWhenDelivered,
		StartupRecipients: cfg.Bot.AllowedChats,
	}, store, fetcher, extractor, dispatcher, snapshots, clock, logger.Named("watch"))

	service := bot.NewService(store, checker, clock, logger.Named("bot"))
	a.bot, err = bot.New(botAPI, service, cfg.Bot.AllowedChats, logger.Named("bot"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.server = api.New(cfg.Server.Port, store, logger.Named("http"))
	return a, nil
}

func (a *App) buildStore(ctx context.Context) (track.Store, error) {
	switch a.cfg.Store.Provider {
	case "memory":
		return memstore.New(), nil
	case "postgres":
		store, pool, err := pgstore.Connect(ctx, a.cfg.Store.DSN, a.logger.Named("store"))
		if err != nil {
			return nil, err
		}
		a.pgPool = pool
		return store, nil
	default:
		// Flat-layout files predating the versioned schema are keyed under the
		// first allowed chat so their owner keeps getting notifications.
		legacyOwner := ""
		if len(a.cfg.Bot.AllowedChats) > 0 {
			legacyOwner = a.cfg.Bot.AllowedChats[0]
		}
		return filestore.New(filestore.Config{
			Path:        a.cfg.Store.Path,
			LegacyOwner: legacyOwner,
		}, a.logger.Named("store"))
	}
}

func (a *App) buildSnapshots(ctx context.Context) (track.SnapshotStore, error) {
	switch a.cfg.Snapshot.Provider {
	case "local":
		return snapshot.NewLocal(a.cfg.Snapshot.Dir)
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		a.storageClient = client
		return snapshot.NewGCS(client.Bucket(a.cfg.Snapshot.Bucket), a.cfg.Snapshot.Bucket, ""), nil
	default:
		return nil, nil
	}
}

func (a *App) buildEventSink(ctx context.Context) (track.EventSink, error) {
	if a.cfg.Events.Provider != "pubsub" {
		return nil, nil
	}
	client, err := pubsubapi.NewClient(ctx, a.cfg.Events.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	a.pubsubClient = client
	return eventsink.New(client.Publisher(a.cfg.Events.Topic)), nil
}

// Run starts the watcher, the bot update loop and the HTTP server, and blocks
// until the context finishes or any component fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 3)
	go func() { errc <- a.watcher.Run(ctx) }()
	go func() { errc <- a.bot.Run(ctx) }()
	go func() { errc <- a.server.Run() }()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errc:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if serr := a.server.Shutdown(shutdownCtx); serr != nil {
		a.logger.Warn("http shutdown failed", zap.Error(serr))
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases external clients. Safe on a partially constructed App.
func (a *App) Close() {
	if a.pgPool != nil {
		a.pgPool.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	if a.storageClient != nil {
		if err := a.storageClient.Close(); err != nil {
			a.logger.Warn("storage close failed", zap.Error(err))
		}
	}
}
