// Package main provides the entrypoint for the WeatherLens web server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/api"
	"github.com/weatherlens/weatherlens/internal/api/handler"
	"github.com/weatherlens/weatherlens/internal/api/middleware"
	"github.com/weatherlens/weatherlens/internal/app"
	"github.com/weatherlens/weatherlens/internal/auth"
	"github.com/weatherlens/weatherlens/internal/config"
	"github.com/weatherlens/weatherlens/internal/database"
	"github.com/weatherlens/weatherlens/internal/events"
	"github.com/weatherlens/weatherlens/internal/featureflags"
	"github.com/weatherlens/weatherlens/internal/lastsearch"
	"github.com/weatherlens/weatherlens/internal/provider/resilience"
	"github.com/weatherlens/weatherlens/internal/render"
	"github.com/weatherlens/weatherlens/internal/telemetry"
	"github.com/weatherlens/weatherlens/internal/weather"
	"github.com/weatherlens/weatherlens/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "weatherlens-server"

func main() {
	adminToken := flag.String("admin-token", "", "print an admin token for `subject` and exit")
	flag.Parse()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	if *adminToken != "" {
		if err := printAdminToken(cfg, *adminToken); err != nil {
			log.Fatal().Err(err).Msg("failed to issue admin token")
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func printAdminToken(cfg config.Config, subject string) error {
	if !cfg.Admin.Enabled() {
		return errors.New("ADMIN_JWT_SECRET is not set")
	}
	tokens := auth.NewTokenService(auth.TokenConfig{SigningKey: cfg.Admin.JWTSecret})
	token, expires, err := tokens.Issue(subject, 0)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n# expires %s\n", token, expires.Format(time.RFC3339))
	return nil
}

func run(cfg config.Config, log zerolog.Logger) error {
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting WeatherLens server")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	lookupMetrics, err := telemetry.NewLookupMetrics()
	if err != nil {
		return fmt.Errorf("initializing lookup metrics: %w", err)
	}

	checks := map[string]handler.Check{}

	// The pool is only opened when the Postgres driver is selected.
	var pool *pgxpool.Pool
	if cfg.LastSearch.Driver == config.DriverPostgres {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()
		checks["database"] = pool.Ping
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	}

	store, closeStore, err := openStore(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer closeStore()
	checks["last_search"] = func(ctx context.Context) error {
		_, err := store.Get(ctx)
		if errors.Is(err, lastsearch.ErrNotFound) {
			return nil
		}
		return err
	}
	log.Info().Str("driver", cfg.LastSearch.Driver).Msg("last search store ready")

	var ffRepo featureflags.Repository = featureflags.NewInMemoryRepository()
	if pool != nil {
		pgRepo := featureflags.NewPostgresRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("preparing feature flags table: %w", err)
		}
		ffRepo = pgRepo
	}
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: ffRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
		Defaults: featureflags.Defaults{
			IgnoreWhileLoading: cfg.OverlapPolicy() == app.OverlapIgnore,
			AutoLoadLastCity:   cfg.Lookup.AutoLoadLastCity,
		},
	})
	log.Info().Msg("feature flags service initialized")

	registry := resilience.NewRegistry()
	clientCfg := resilience.SingleAttemptConfig(openweathermap.ProviderName)
	clientCfg.Timeout = cfg.HTTPTimeout
	clientCfg.Registry = registry
	clientCfg.CircuitBreaker.OnStateChange = resilience.LogStateChanges(log)

	service := weather.NewService(weather.ServiceConfig{
		Provider: openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     cfg.OpenWeatherMap.APIKey,
			BaseURL:    cfg.OpenWeatherMap.BaseURL,
			HTTPClient: resilience.NewClient(clientCfg),
			Logger:     log,
		}),
		Logger: log,
	})

	renderer := render.NewRenderer(render.Config{
		Location: time.Local,
		Hooks:    []render.Hook{render.ThemeHook(nil, time.Local)},
	})

	listeners := []app.Listener{lookupMetrics}
	if cfg.PubSub.Enabled() {
		publisher, err := events.NewPublisher(ctx, events.PublisherConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
			Logger:    log,
		})
		if err != nil {
			return fmt.Errorf("creating event publisher: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close event publisher")
			}
		}()
		listeners = append(listeners, publisher)
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("lookup events enabled")
	}

	screen := app.NewScreen()
	orch := app.New(app.Config{
		Service:          service,
		Renderer:         renderer,
		View:             screen,
		Store:            store,
		Overlap:          cfg.OverlapPolicy(),
		AutoLoadLastCity: cfg.Lookup.AutoLoadLastCity,
		Flags:            ffService,
		Listeners:        listeners,
		Logger:           log,
	})
	if err := orch.Start(ctx); err != nil {
		// The saved city failing to load leaves the error on screen; the
		// server still starts.
		log.Warn().Err(err).Msg("initial lookup failed")
	}

	var tokens *auth.TokenService
	if cfg.Admin.Enabled() {
		tokens = auth.NewTokenService(auth.TokenConfig{SigningKey: cfg.Admin.JWTSecret})
	} else {
		log.Warn().Msg("ADMIN_JWT_SECRET not set - admin endpoints disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		Metrics:            metrics,
		RequireTLS:         cfg.RequireTLS,
		Lookups:            orch,
		Page:               screen,
		Service:            service,
		Renderer:           renderer,
		Store:              store,
		Registry:           registry,
		ReadyChecks:        checks,
		FeatureFlagService: ffService,
		Tokens:             tokens,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.HTTPTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// openStore opens the configured last-search store. The returned close
// function is always safe to call.
func openStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (lastsearch.Store, func(), error) {
	switch cfg.LastSearch.Driver {
	case config.DriverSQLite:
		s, err := lastsearch.OpenSQLite(ctx, cfg.LastSearch.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case config.DriverPostgres:
		s := lastsearch.NewPostgresStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("preparing last search table: %w", err)
		}
		return s, func() {}, nil
	default:
		return lastsearch.NewMemoryStore(), func() {}, nil
	}
}
