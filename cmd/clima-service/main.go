package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clima/internal/cache"
	"clima/internal/config"
	"clima/internal/httpapi"
	"clima/internal/location"
	"clima/internal/logging"
	"clima/internal/mqtt"
	"clima/internal/observability"
	"clima/internal/owm"
	"clima/internal/realtime"
	"clima/internal/scheduler"
	"clima/internal/screen"
	"clima/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "clima-service"

func main() {
	cfg, err := config.Load(os.Getenv("CLIMA_CONFIG"))
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel, serviceName))

	shutdownTracing, promHandler, tracer, err := observability.SetupObservability(serviceName, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("observability setup failed", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing()

	owmClient := owm.New(cfg.OpenWeatherAPIKey, owm.WithBaseURL(cfg.OpenWeatherURL))
	if owmClient.Mock() {
		slog.Warn("OPENWEATHER_API_KEY not set, serving mock weather")
	}

	weatherCache := newCache(cfg)

	db, err := openDB(cfg.Database)
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	repo, err := store.New(db)
	if err != nil {
		slog.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	locator := location.NewLocator(newLocationProvider(cfg.Location), cfg.Location.Attempts, cfg.Location.Interval)
	weather := screen.New(owmClient, locator, screen.Options{Cache: weatherCache, Recorder: repo, Unit: cfg.Unit})

	hub := realtime.NewHub(weather.View)
	weather.Observe(hub.Broadcast)

	if cfg.MQTT.BrokerURL != "" {
		mq, err := mqtt.Connect(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			slog.Error("mqtt connect failed", "error", err)
			os.Exit(1)
		}
		defer mq.Close()
		weather.Observe(mq.PublishView)
		slog.Info("publishing weather views", "topic", cfg.MQTT.Topic)
	}

	refresh := scheduler.RefresherFunc(func(ctx context.Context) error {
		if cfg.HistoryRetention > 0 {
			if n, err := repo.PruneBefore(ctx, time.Now().UTC().Add(-cfg.HistoryRetention)); err != nil {
				slog.Warn("pruning lookups failed", "error", err)
			} else if n > 0 {
				slog.Info("pruned old lookups", "count", n)
			}
		}
		_, err := weather.Refresh(ctx)
		return err
	})
	sched, err := scheduler.New(cfg.RefreshCron, refresh, 30*time.Second)
	if err != nil {
		slog.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	srv := httpapi.NewServer(httpapi.Deps{
		OWM:     owmClient,
		Cache:   weatherCache,
		Screen:  weather,
		Recent:  repo,
		Live:    hub,
		Metrics: promHandler,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(observability.MetricsAndTracingMiddleware(tracer, serviceName)),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Load the local weather once at startup, like opening the app.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := weather.Start(ctx); err != nil {
			slog.Warn("initial weather load failed", "error", err)
		}
	}()

	go func() {
		slog.Info("clima-service started", "port", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down")
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func newCache(cfg *config.Config) cache.Store {
	if cfg.Redis.Addr == "" {
		return cache.New(cfg.CacheTTL)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, using in-memory cache", "addr", cfg.Redis.Addr, "error", err)
		_ = rdb.Close()
		return cache.New(cfg.CacheTTL)
	}
	slog.Info("using redis cache", "addr", cfg.Redis.Addr)
	return cache.NewRedis(rdb, cfg.CacheTTL)
}

func openDB(c config.DBConfig) (*gorm.DB, error) {
	if c.Host != "" {
		return store.OpenPostgres(c.User, c.Password, c.DBName, c.Host, c.Port, c.SSLMode)
	}
	return store.OpenSQLite(c.SQLitePath)
}

func newLocationProvider(c config.LocationConfig) location.Provider {
	if c.Source == "static" {
		return location.Static{Lat: c.Lat, Lon: c.Lon}
	}
	return location.NewGeoIP(c.GeoIPURL)
}
