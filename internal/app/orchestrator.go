package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/lastsearch"
	"github.com/weatherlens/weatherlens/internal/location"
	"github.com/weatherlens/weatherlens/internal/render"
	"github.com/weatherlens/weatherlens/internal/weather"
)

// Submission outcomes that are not lookup failures.
var (
	// ErrIgnored is returned when a submission is dropped because another
	// lookup is loading and the overlap policy is OverlapIgnore.
	ErrIgnored = errors.New("lookup ignored while another is loading")

	// ErrSuperseded is returned when a lookup finished after a newer one
	// started. Its result was discarded.
	ErrSuperseded = errors.New("lookup superseded by a newer submission")
)

// Querier runs a weather lookup.
type Querier interface {
	Query(ctx context.Context, q weather.Query) (*weather.Result, error)
}

// Flags are the runtime switches consulted on every submission.
type Flags interface {
	IgnoreWhileLoading(ctx context.Context) bool
	AutoLoadLastCity(ctx context.Context) bool
}

// Completion describes a lookup that committed to the screen.
type Completion struct {
	Result *weather.Result
	Source Source
	At     time.Time
}

// Listener is notified after each committed lookup.
type Listener interface {
	LookupCompleted(ctx context.Context, c Completion)
}

// Config holds the Orchestrator's collaborators.
type Config struct {
	Service  Querier
	Renderer *render.Renderer
	Display  *render.Display // created with render.NewDisplay when nil
	View     View
	Store    lastsearch.Store // optional

	// Overlap and AutoLoadLastCity apply when Flags is nil.
	Overlap          OverlapPolicy
	AutoLoadLastCity bool
	Flags            Flags

	Listeners []Listener
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Orchestrator turns user actions into lookups and commits their outcome
// to the View. Every submission gets a generation number; a completion
// commits only if no newer submission started in the meantime.
type Orchestrator struct {
	service   Querier
	renderer  *render.Renderer
	display   *render.Display
	view      View
	store     lastsearch.Store
	overlap   OverlapPolicy
	autoLoad  bool
	flags     Flags
	listeners []Listener
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    State
	gen      uint64
	lastCity string
}

// New creates an Orchestrator in StateIdle.
func New(cfg Config) *Orchestrator {
	display := cfg.Display
	if display == nil {
		display = render.NewDisplay()
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewRenderer(render.Config{})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		service:   cfg.Service,
		renderer:  renderer,
		display:   display,
		view:      cfg.View,
		store:     cfg.Store,
		overlap:   cfg.Overlap,
		autoLoad:  cfg.AutoLoadLastCity,
		flags:     cfg.Flags,
		listeners: cfg.Listeners,
		logger:    cfg.Logger.With().Str("component", "orchestrator").Logger(),
		now:       now,
		state:     StateIdle,
	}
}

// State returns the current lookup state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastCity returns the last successfully looked up place, for prefilling
// the search box.
func (o *Orchestrator) LastCity() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastCity
}

// Start loads the remembered city and, when enabled, looks it up. It does
// nothing without a store or a remembered non-blank city.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.store == nil {
		return nil
	}

	city, err := o.store.Get(ctx)
	if err != nil && !errors.Is(err, lastsearch.ErrNotFound) {
		o.logger.Warn().Err(err).Msg("failed to read saved city")
		return nil
	}
	// A lookup whose place had no name saves "", which counts as nothing saved.
	city = strings.TrimSpace(city)
	if city == "" {
		o.logger.Debug().Msg("no saved city found")
		return nil
	}

	o.mu.Lock()
	o.lastCity = city
	o.mu.Unlock()

	if !o.autoLoadEnabled(ctx) {
		return nil
	}
	o.logger.Info().Str("city", city).Msg("loading saved city")
	return o.SubmitCity(ctx, city)
}

// SubmitCity looks up a city by name. An empty name is rejected with
// weather.ErrEmptyCity and changes nothing. A lookup failure is shown on
// the View and returned.
func (o *Orchestrator) SubmitCity(ctx context.Context, city string) error {
	q, err := weather.CityQuery(city)
	if err != nil {
		return err
	}

	gen, err := o.begin(ctx)
	if err != nil {
		return err
	}

	res, err := o.service.Query(ctx, q)
	if err != nil {
		return o.fail(gen, err, CityMessage(err))
	}
	return o.commit(ctx, gen, res, SourceCity)
}

// UseCurrentLocation looks up the weather at the position reported by p.
// A nil provider means geolocation is not available: the failure is shown
// at once without entering StateLoading.
func (o *Orchestrator) UseCurrentLocation(ctx context.Context, p location.Provider) error {
	if p == nil {
		err := location.ErrUnsupported
		o.mu.Lock()
		o.state = StateFailed
		o.view.ShowError(Message(err))
		o.mu.Unlock()
		return err
	}

	gen, err := o.begin(ctx)
	if err != nil {
		return err
	}

	coords, err := p.Locate(ctx)
	if err != nil {
		return o.fail(gen, err, Message(err))
	}

	q, err := weather.CoordinatesQuery(coords.Lat, coords.Lon)
	if err != nil {
		return o.fail(gen, err, Message(location.ErrPermissionDenied))
	}

	res, err := o.service.Query(ctx, q)
	if err != nil {
		return o.fail(gen, err, Message(err))
	}
	return o.commit(ctx, gen, res, SourceLocation)
}

func (o *Orchestrator) begin(ctx context.Context) (uint64, error) {
	ignore := o.overlap == OverlapIgnore
	if o.flags != nil {
		ignore = o.flags.IgnoreWhileLoading(ctx)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if ignore && o.state == StateLoading {
		o.logger.Debug().Uint64("generation", o.gen).Msg("submission ignored while loading")
		return 0, ErrIgnored
	}

	o.gen++
	o.state = StateLoading
	o.view.ShowLoading()
	return o.gen, nil
}

func (o *Orchestrator) commit(ctx context.Context, gen uint64, res *weather.Result, source Source) error {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		o.logger.Debug().Uint64("generation", gen).Msg("discarding superseded result")
		return ErrSuperseded
	}

	o.renderer.Render(o.display, res)
	o.state = StateSuccess
	o.view.ShowContent(o.display)

	place := res.Current.Place
	o.lastCity = place
	if o.store != nil {
		if err := o.store.Set(ctx, place); err != nil {
			o.logger.Warn().Err(err).Str("city", place).Msg("failed to save last city")
		}
	}
	o.mu.Unlock()

	o.logger.Info().
		Str("place", place).
		Str("source", string(source)).
		Int("forecast_days", len(res.Daily)).
		Msg("lookup completed")

	c := Completion{Result: res, Source: source, At: o.now()}
	for _, l := range o.listeners {
		l.LookupCompleted(ctx, c)
	}
	return nil
}

func (o *Orchestrator) fail(gen uint64, err error, message string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.gen {
		o.logger.Debug().Err(err).Uint64("generation", gen).Msg("discarding superseded failure")
		return ErrSuperseded
	}

	o.state = StateFailed
	o.view.ShowError(message)
	o.logger.Warn().Err(err).Str("kind", string(weather.KindOf(err))).Msg("lookup failed")
	return err
}

func (o *Orchestrator) autoLoadEnabled(ctx context.Context) bool {
	if o.flags != nil {
		return o.flags.AutoLoadLastCity(ctx)
	}
	return o.autoLoad
}
