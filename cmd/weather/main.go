// Package main provides the WeatherLens terminal client.
//
// Usage:
//
//	weather [flags] [city]
//
// With no city and no coordinates, the last searched city is looked up.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/app"
	"github.com/weatherlens/weatherlens/internal/config"
	"github.com/weatherlens/weatherlens/internal/lastsearch"
	"github.com/weatherlens/weatherlens/internal/location"
	"github.com/weatherlens/weatherlens/internal/provider/resilience"
	"github.com/weatherlens/weatherlens/internal/render"
	"github.com/weatherlens/weatherlens/internal/weather"
	"github.com/weatherlens/weatherlens/internal/weather/openweathermap"
)

func main() {
	var (
		lat     = flag.Float64("lat", 0, "latitude of the position to look up")
		lon     = flag.Float64("lon", 0, "longitude of the position to look up")
		verbose = flag.Bool("v", false, "log lookups to stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [city]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()

	var coords *weather.Coordinates
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "lat" || f.Name == "lon" {
			coords = &weather.Coordinates{Lat: *lat, Lon: *lon}
		}
	})
	city := strings.Join(flag.Args(), " ")

	if err := run(log, city, coords); err != nil {
		if !errors.Is(err, errShown) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// errShown marks failures the view already printed.
var errShown = errors.New("lookup failed")

func run(log zerolog.Logger, city string, coords *weather.Coordinates) error {
	if city != "" && coords != nil {
		return errors.New("give either a city or -lat/-lon, not both")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store lastsearch.Store
	switch cfg.LastSearch.Driver {
	case config.DriverSQLite:
		s, err := lastsearch.OpenSQLite(ctx, cfg.LastSearch.SQLitePath)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		store = s
	default:
		log.Debug().Str("driver", cfg.LastSearch.Driver).Msg("last search kept in memory")
		store = lastsearch.NewMemoryStore()
	}

	clientCfg := resilience.SingleAttemptConfig(openweathermap.ProviderName)
	clientCfg.Timeout = cfg.HTTPTimeout

	service := weather.NewService(weather.ServiceConfig{
		Provider: openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     cfg.OpenWeatherMap.APIKey,
			BaseURL:    cfg.OpenWeatherMap.BaseURL,
			HTTPClient: resilience.NewClient(clientCfg),
			Logger:     log,
		}),
		Logger: log,
	})

	orch := app.New(app.Config{
		Service:          service,
		Renderer:         render.NewRenderer(render.Config{}),
		View:             app.TerminalView{Out: os.Stdout, Err: os.Stderr},
		Store:            store,
		AutoLoadLastCity: true,
		Logger:           log,
	})

	switch {
	case coords != nil:
		err = orch.UseCurrentLocation(ctx, location.Fixed(*coords))
	case city != "":
		err = orch.SubmitCity(ctx, city)
	default:
		if err := orch.Start(ctx); err != nil {
			return errShown
		}
		if orch.LastCity() == "" {
			return errors.New("no city given and no previous search to repeat")
		}
		return nil
	}
	if err != nil {
		if errors.Is(err, weather.ErrEmptyCity) {
			return err
		}
		return errShown
	}
	return nil
}
