package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherlens/weatherlens/internal/app"
	"github.com/weatherlens/weatherlens/internal/lastsearch"
	"github.com/weatherlens/weatherlens/internal/location"
	"github.com/weatherlens/weatherlens/internal/render"
	"github.com/weatherlens/weatherlens/internal/weather"
)

// recordingView records every call made to it.
type recordingView struct {
	mu     sync.Mutex
	calls  []string
	errors []string
	shown  *render.Display
}

func (v *recordingView) ShowLoading() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, "loading")
}

func (v *recordingView) ShowContent(d *render.Display) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, "content")
	v.shown = d.Snapshot()
}

func (v *recordingView) ShowError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, "error")
	v.errors = append(v.errors, message)
}

func (v *recordingView) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

// fakeService answers lookups from a function.
type fakeService struct {
	mu      sync.Mutex
	queries []weather.Query
	fn      func(ctx context.Context, q weather.Query) (*weather.Result, error)
}

func (s *fakeService) Query(ctx context.Context, q weather.Query) (*weather.Result, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	return s.fn(ctx, q)
}

func result(place string, days int) *weather.Result {
	daily := make([]weather.DailyForecast, days)
	for i := range daily {
		daily[i].Time = time.Date(2024, 3, 6+i, 12, 0, 0, 0, time.UTC)
		daily[i].Icon = "01d"
	}
	return &weather.Result{
		Current: weather.CurrentConditions{
			Place:       place,
			Country:     "GB",
			Temperature: 15.4,
			FeelsLike:   14.9,
			WindSpeed:   5,
			Visibility:  10000,
			Icon:        "10d",
		},
		Daily: daily,
	}
}

func answer(place string) func(context.Context, weather.Query) (*weather.Result, error) {
	return func(context.Context, weather.Query) (*weather.Result, error) {
		return result(place, 5), nil
	}
}

func failWith(err error) func(context.Context, weather.Query) (*weather.Result, error) {
	return func(context.Context, weather.Query) (*weather.Result, error) {
		return nil, err
	}
}

type listenerFunc func(ctx context.Context, c app.Completion)

func (f listenerFunc) LookupCompleted(ctx context.Context, c app.Completion) { f(ctx, c) }

func newOrchestrator(svc app.Querier, view app.View, mutate ...func(*app.Config)) *app.Orchestrator {
	cfg := app.Config{
		Service:  svc,
		Renderer: render.NewRenderer(render.Config{Location: time.UTC}),
		View:     view,
		Store:    lastsearch.NewMemoryStore(),
		Logger:   zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return app.New(cfg)
}

func TestOrchestrator_SubmitCitySuccess(t *testing.T) {
	view := &recordingView{}
	store := lastsearch.NewMemoryStore()
	svc := &fakeService{fn: answer("London")}
	o := newOrchestrator(svc, view, func(c *app.Config) { c.Store = store })

	assert.Equal(t, app.StateIdle, o.State())

	require.NoError(t, o.SubmitCity(context.Background(), "  london "))

	assert.Equal(t, app.StateSuccess, o.State())
	assert.Equal(t, []string{"loading", "content"}, view.Calls())
	assert.Equal(t, "15", view.shown.Fields.Temperature)
	assert.Equal(t, "15", view.shown.Fields.FeelsLike)
	assert.Equal(t, 5, view.shown.Forecast.Len())

	city, _ := svc.queries[0].City()
	assert.Equal(t, "london", city)
}

func TestOrchestrator_SavesResolvedPlaceName(t *testing.T) {
	store := lastsearch.NewMemoryStore()
	svc := &fakeService{fn: answer("São Paulo")}
	o := newOrchestrator(svc, &recordingView{}, func(c *app.Config) { c.Store = store })

	require.NoError(t, o.SubmitCity(context.Background(), "sao paulo"))

	saved, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "São Paulo", saved)
	assert.Equal(t, "São Paulo", o.LastCity())
}

func TestOrchestrator_EmptyCityChangesNothing(t *testing.T) {
	view := &recordingView{}
	svc := &fakeService{fn: answer("London")}
	o := newOrchestrator(svc, view)

	err := o.SubmitCity(context.Background(), "   ")
	assert.ErrorIs(t, err, weather.ErrEmptyCity)
	assert.Equal(t, app.StateIdle, o.State())
	assert.Empty(t, view.Calls())
	assert.Empty(t, svc.queries)
}

func TestOrchestrator_CityFailure(t *testing.T) {
	view := &recordingView{}
	store := lastsearch.NewMemoryStore()
	o := newOrchestrator(&fakeService{fn: failWith(weather.ErrNotFound)}, view, func(c *app.Config) { c.Store = store })

	err := o.SubmitCity(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, weather.ErrNotFound)
	assert.Equal(t, app.StateFailed, o.State())
	assert.Equal(t, []string{"loading", "error"}, view.Calls())
	assert.Equal(t,
		"Error: City not found. Please check the spelling and try again. Please check the city name and try again.",
		view.errors[0])

	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, lastsearch.ErrNotFound, "failures are not remembered")
}

func TestOrchestrator_NewSubmissionAfterFailure(t *testing.T) {
	view := &recordingView{}
	svc := &fakeService{fn: failWith(weather.ErrRateLimited)}
	o := newOrchestrator(svc, view)

	_ = o.SubmitCity(context.Background(), "London")
	require.Equal(t, app.StateFailed, o.State())

	svc.fn = answer("London")
	require.NoError(t, o.SubmitCity(context.Background(), "London"))
	assert.Equal(t, app.StateSuccess, o.State())
	assert.Equal(t, []string{"loading", "error", "loading", "content"}, view.Calls())
}

func TestOrchestrator_LocationUnsupported(t *testing.T) {
	view := &recordingView{}
	svc := &fakeService{fn: answer("London")}
	o := newOrchestrator(svc, view)

	err := o.UseCurrentLocation(context.Background(), nil)
	assert.ErrorIs(t, err, location.ErrUnsupported)
	assert.Equal(t, app.StateFailed, o.State())
	assert.Equal(t, []string{"error"}, view.Calls(), "never enters loading")
	assert.Equal(t, app.MsgUnsupported, view.errors[0])
	assert.Empty(t, svc.queries)
}

func TestOrchestrator_LocationDenied(t *testing.T) {
	view := &recordingView{}
	svc := &fakeService{fn: answer("London")}
	o := newOrchestrator(svc, view)

	err := o.UseCurrentLocation(context.Background(), location.Denied{})
	assert.ErrorIs(t, err, location.ErrPermissionDenied)
	assert.Equal(t, []string{"loading", "error"}, view.Calls())
	assert.Equal(t, app.MsgPermissionDenied, view.errors[0])
	assert.Empty(t, svc.queries)
}

func TestOrchestrator_LocationSuccess(t *testing.T) {
	view := &recordingView{}
	store := lastsearch.NewMemoryStore()
	svc := &fakeService{fn: answer("Paris")}
	o := newOrchestrator(svc, view, func(c *app.Config) { c.Store = store })

	require.NoError(t, o.UseCurrentLocation(context.Background(), location.Fixed{Lat: 48.85, Lon: 2.35}))

	coords, ok := svc.queries[0].Coordinates()
	require.True(t, ok)
	assert.Equal(t, weather.Coordinates{Lat: 48.85, Lon: 2.35}, coords)
	assert.Equal(t, "Paris", o.LastCity())
	saved, _ := store.Get(context.Background())
	assert.Equal(t, "Paris", saved)
}

func TestOrchestrator_LocationLookupFailureUsesKindMessage(t *testing.T) {
	view := &recordingView{}
	o := newOrchestrator(&fakeService{fn: failWith(weather.NetworkError(errors.New("dial tcp")))}, view)

	err := o.UseCurrentLocation(context.Background(), location.Fixed{Lat: 1, Lon: 1})
	assert.ErrorIs(t, err, weather.ErrNetwork)
	assert.Equal(t, app.MsgNetwork, view.errors[0])
}

// blockingService holds each lookup until released.
type blockingService struct {
	started chan string
	release map[string]chan struct{}
}

func newBlockingService(cities ...string) *blockingService {
	s := &blockingService{started: make(chan string, len(cities)), release: map[string]chan struct{}{}}
	for _, c := range cities {
		s.release[c] = make(chan struct{})
	}
	return s
}

func (s *blockingService) Query(ctx context.Context, q weather.Query) (*weather.Result, error) {
	city, _ := q.City()
	s.started <- city
	<-s.release[city]
	return result(city, 2), nil
}

func TestOrchestrator_LatestSubmissionWins(t *testing.T) {
	view := &recordingView{}
	store := lastsearch.NewMemoryStore()
	svc := newBlockingService("Oslo", "Rome")
	o := newOrchestrator(svc, view, func(c *app.Config) { c.Store = store })
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- o.SubmitCity(ctx, "Oslo") }()
	require.Equal(t, "Oslo", <-svc.started)

	second := make(chan error, 1)
	go func() { second <- o.SubmitCity(ctx, "Rome") }()
	require.Equal(t, "Rome", <-svc.started)

	// The newer lookup completes first, then the stale one.
	close(svc.release["Rome"])
	require.NoError(t, <-second)
	close(svc.release["Oslo"])
	assert.ErrorIs(t, <-first, app.ErrSuperseded)

	assert.Equal(t, "Weather in Rome, GB", view.shown.Fields.Location)
	assert.Equal(t, "Rome", o.LastCity())
	saved, _ := store.Get(ctx)
	assert.Equal(t, "Rome", saved)
	assert.Equal(t, app.StateSuccess, o.State())
}

func TestOrchestrator_IgnoreWhileLoading(t *testing.T) {
	view := &recordingView{}
	svc := newBlockingService("Oslo", "Rome")
	o := newOrchestrator(svc, view, func(c *app.Config) { c.Overlap = app.OverlapIgnore })
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- o.SubmitCity(ctx, "Oslo") }()
	require.Equal(t, "Oslo", <-svc.started)

	assert.ErrorIs(t, o.SubmitCity(ctx, "Rome"), app.ErrIgnored)

	close(svc.release["Oslo"])
	require.NoError(t, <-first)
	assert.Equal(t, "Oslo", o.LastCity())
	assert.Equal(t, []string{"loading", "content"}, view.Calls())
}

type staticFlags struct{ ignore, autoLoad bool }

func (f staticFlags) IgnoreWhileLoading(context.Context) bool { return f.ignore }
func (f staticFlags) AutoLoadLastCity(context.Context) bool   { return f.autoLoad }

func TestOrchestrator_FlagsOverrideConfig(t *testing.T) {
	svc := newBlockingService("Oslo", "Rome")
	o := newOrchestrator(svc, &recordingView{}, func(c *app.Config) {
		c.Overlap = app.OverlapLatestWins
		c.Flags = staticFlags{ignore: true}
	})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- o.SubmitCity(ctx, "Oslo") }()
	<-svc.started

	assert.ErrorIs(t, o.SubmitCity(ctx, "Rome"), app.ErrIgnored)
	close(svc.release["Oslo"])
	require.NoError(t, <-first)
}

func TestOrchestrator_StartLoadsSavedCity(t *testing.T) {
	store := lastsearch.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "Berlin"))

	view := &recordingView{}
	svc := &fakeService{fn: answer("Berlin")}
	o := newOrchestrator(svc, view, func(c *app.Config) {
		c.Store = store
		c.AutoLoadLastCity = true
	})

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, app.StateSuccess, o.State())
	require.Len(t, svc.queries, 1)
	city, _ := svc.queries[0].City()
	assert.Equal(t, "Berlin", city)
}

func TestOrchestrator_StartWithoutAutoLoadOnlyPrefills(t *testing.T) {
	store := lastsearch.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "Berlin"))

	svc := &fakeService{fn: answer("Berlin")}
	o := newOrchestrator(svc, &recordingView{}, func(c *app.Config) {
		c.Store = store
		c.Flags = staticFlags{autoLoad: false}
	})

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, app.StateIdle, o.State())
	assert.Equal(t, "Berlin", o.LastCity())
	assert.Empty(t, svc.queries)
}

func TestOrchestrator_StartWithoutSavedCity(t *testing.T) {
	svc := &fakeService{fn: answer("Berlin")}
	o := newOrchestrator(svc, &recordingView{}, func(c *app.Config) { c.AutoLoadLastCity = true })

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, app.StateIdle, o.State())
	assert.Empty(t, svc.queries)
}

func TestOrchestrator_NotifiesListeners(t *testing.T) {
	var got []app.Completion
	listener := listenerFunc(func(_ context.Context, c app.Completion) { got = append(got, c) })
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	svc := &fakeService{fn: answer("London")}
	o := newOrchestrator(svc, &recordingView{}, func(c *app.Config) {
		c.Listeners = []app.Listener{listener}
		c.Now = func() time.Time { return now }
	})

	require.NoError(t, o.SubmitCity(context.Background(), "London"))
	svc.fn = failWith(weather.ErrNotFound)
	_ = o.SubmitCity(context.Background(), "Nowhere")

	require.Len(t, got, 1)
	assert.Equal(t, app.SourceCity, got[0].Source)
	assert.Equal(t, "London", got[0].Result.Current.Place)
	assert.Equal(t, now, got[0].At)
}

func TestOrchestrator_StartIgnoresBlankSavedCity(t *testing.T) {
	store := lastsearch.NewMemoryStore()
	first := newOrchestrator(&fakeService{fn: answer("")}, &recordingView{}, func(c *app.Config) { c.Store = store })

	require.NoError(t, first.UseCurrentLocation(context.Background(), location.Fixed{Lat: 0, Lon: -30}))
	saved, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved, "an unnamed place is saved as-is")

	view := &recordingView{}
	svc := &fakeService{fn: answer("Berlin")}
	o := newOrchestrator(svc, view, func(c *app.Config) {
		c.Store = store
		c.AutoLoadLastCity = true
	})

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, app.StateIdle, o.State())
	assert.Empty(t, o.LastCity())
	assert.Empty(t, view.Calls())
	assert.Empty(t, svc.queries)
}
