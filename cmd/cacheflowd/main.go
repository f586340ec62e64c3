// Command cacheflowd runs the CacheFlow server: a Redis-backed cache in
// front of Postgres-resident domain data, a pub/sub notification relay,
// and the REST + WebSocket API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatimetou23083/CacheFlow/api"
	"github.com/fatimetou23083/CacheFlow/auth"
	"github.com/fatimetou23083/CacheFlow/cache"
	"github.com/fatimetou23083/CacheFlow/cache/redis"
	"github.com/fatimetou23083/CacheFlow/currency"
	"github.com/fatimetou23083/CacheFlow/db/sql/postgres"
	"github.com/fatimetou23083/CacheFlow/httpx"
	"github.com/fatimetou23083/CacheFlow/internal/profile"
	"github.com/fatimetou23083/CacheFlow/notification"
	"github.com/fatimetou23083/CacheFlow/product"
	"github.com/fatimetou23083/CacheFlow/relay"
	"github.com/fatimetou23083/CacheFlow/weather"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prof, err := profile.Load()
	if err != nil {
		return err
	}

	logger := newLogger(prof)
	slog.SetDefault(logger)
	logger.Info("starting cacheflowd", "mode", prof.Mode, "addr", prof.Addr)

	db, err := postgres.Open(postgres.WithDSN(prof.DatabaseDSN))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := postgres.ApplyMigrations(ctx, db, postgres.Schema()...); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	store := redis.NewStore(redis.Options{
		Addr:     prof.RedisAddr,
		Password: prof.RedisPassword,
		DB:       prof.RedisDB,
	})
	if err := store.Ping(ctx); err != nil {
		// The cache layer degrades to live computation while the store
		// is down, so startup proceeds.
		logger.Warn("redis unreachable at startup", "addr", prof.RedisAddr, "error", err)
	}

	chain := cache.WithLogging(
		cache.WithEagerDeletes(
			cache.WithStatistics(cache.NewWriter(store), cache.NewStatisticsCollector()),
			store,
		),
		logger, weather.CacheName,
	)
	manager := cache.NewManager(chain, cache.WithLogger(logger))

	signer, err := auth.NewSigner([]byte(prof.AuthSecret), auth.WithTokenTTL(prof.TokenTTL))
	if err != nil {
		return fmt.Errorf("auth signer: %w", err)
	}
	authSvc := auth.NewService(postgres.NewUserRepository(db), signer, auth.WithLogger(logger))

	rel := relay.New(redisPubSub{store},
		relay.WithChannel(prof.RelayChannel),
		relay.WithLogger(logger),
	)

	fetcher := weather.NewClient(
		weather.WithAPIKey(prof.WeatherAPIKey),
		weather.WithClientLogger(logger),
		weatherHTTPClient(prof),
	)
	weatherSvc := weather.NewService(manager, fetcher, weather.WithLogger(logger))

	currencySvc := currency.NewService(manager, postgres.NewCurrencyRepository(db), currency.WithLogger(logger))
	currencySvc.SeedRates(ctx)

	productSvc := product.NewService(manager, postgres.NewProductRepository(db), product.WithLogger(logger))
	notificationSvc := notification.NewService(postgres.NewNotificationRepository(db), rel, notification.WithLogger(logger))

	handlers := api.New(api.Config{
		Weather:       weatherSvc,
		Currencies:    currencySvc,
		Products:      productSvc,
		Notifications: notificationSvc,
		Auth:          authSvc,
		Cache:         manager,
		Store:         store,
		Logger:        logger,
	})

	// Bridge the pub/sub channel into the WebSocket hub. A broken
	// subscription ends the process; systemd restarts pick it back up.
	relayErr := make(chan error, 1)
	go func() {
		relayErr <- rel.Listen(ctx, handlers.Hub().Broadcast)
	}()

	go currencySvc.RunRefresher(ctx, prof.RefreshInterval)

	srv := httpx.NewServer(
		httpx.WithAddress(prof.Addr),
		httpx.WithCORS(&httpx.DefaultCORSConfig),
	)
	srv.RegisterRoutes(handlers.Register)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	select {
	case err := <-relayErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("relay: %w", err)
		}
		return <-serverErr
	case err := <-serverErr:
		return err
	}
}

func newLogger(prof *profile.Profile) *slog.Logger {
	if prof.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

func weatherHTTPClient(prof *profile.Profile) weather.ClientOption {
	if prof.WeatherAPIURL == "" {
		return nil
	}
	return weather.WithHTTPClient(httpx.NewClient(httpx.WithBaseURL(prof.WeatherAPIURL)))
}

// redisPubSub adapts the store's pub/sub primitives to the relay's
// interfaces.
type redisPubSub struct{ store *redis.Store }

func (p redisPubSub) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return p.store.Publish(ctx, channel, payload)
}

func (p redisPubSub) Subscribe(ctx context.Context, channel string) (relay.Subscription, error) {
	sub, err := p.store.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}
	return redisSubscription{sub}, nil
}

type redisSubscription struct{ sub *redis.Subscription }

func (s redisSubscription) Receive(ctx context.Context) (relay.Message, error) {
	msg, err := s.sub.Receive(ctx)
	if err != nil {
		return relay.Message{}, err
	}
	return relay.Message{Channel: msg.Channel, Payload: msg.Payload}, nil
}

func (s redisSubscription) Close() error { return s.sub.Close() }
