// Package handler provides HTTP handlers for the WeatherLens web host.
package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/api/middleware"
	"github.com/weatherlens/weatherlens/internal/api/response"
	"github.com/weatherlens/weatherlens/internal/app"
	"github.com/weatherlens/weatherlens/internal/location"
	"github.com/weatherlens/weatherlens/internal/render"
	"github.com/weatherlens/weatherlens/internal/weather"
)

// Lookups is the part of the Orchestrator driven by the page.
type Lookups interface {
	SubmitCity(ctx context.Context, city string) error
	UseCurrentLocation(ctx context.Context, p location.Provider) error
	LastCity() string
}

// Page renders the screen as page data.
type Page interface {
	Page(city string) render.PageData
}

// WebHandler serves the weather page. Every route answers with the whole
// page as it stands after the action.
type WebHandler struct {
	lookups Lookups
	page    Page
	title   string
	logger  zerolog.Logger
}

// NewWebHandler creates a new WebHandler.
func NewWebHandler(lookups Lookups, page Page, title string, logger zerolog.Logger) *WebHandler {
	return &WebHandler{
		lookups: lookups,
		page:    page,
		title:   title,
		logger:  logger,
	}
}

// Index handles GET / - the current screen.
func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, h.lookups.LastCity())
}

// Search handles GET /search?city= - a city lookup. An empty city leaves
// the screen unchanged.
func (h *WebHandler) Search(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")

	err := h.lookups.SubmitCity(r.Context(), city)
	h.logOutcome(r, err)

	prefill := h.lookups.LastCity()
	if err != nil {
		prefill = city
	}
	h.writePage(w, r, prefill)
}

// Locate handles GET /locate - a lookup at the position the browser
// reported, either lat and lon or geo=denied|unsupported.
func (h *WebHandler) Locate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	provider := location.FromBrowser(q.Get("geo"), q.Get("lat"), q.Get("lon"))

	err := h.lookups.UseCurrentLocation(r.Context(), provider)
	h.logOutcome(r, err)

	h.writePage(w, r, h.lookups.LastCity())
}

func (h *WebHandler) logOutcome(r *http.Request, err error) {
	// Failures are shown on the page and logged by the orchestrator.
	if errors.Is(err, weather.ErrEmptyCity) || errors.Is(err, app.ErrIgnored) || errors.Is(err, app.ErrSuperseded) {
		h.logger.Debug().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("lookup not shown")
	}
}

func (h *WebHandler) writePage(w http.ResponseWriter, r *http.Request, prefill string) {
	data := h.page.Page(prefill)
	data.Title = h.title

	var buf bytes.Buffer
	if err := render.WritePage(&buf, data); err != nil {
		h.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("failed to render page")
		response.InternalError(w, r, "failed to render page")
		return
	}
	response.HTML(w, r, http.StatusOK, buf.Bytes())
}
