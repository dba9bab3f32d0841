package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/weatherlens/weatherlens/internal/api/middleware"
	"github.com/weatherlens/weatherlens/internal/api/models"
	"github.com/weatherlens/weatherlens/internal/api/response"
	"github.com/weatherlens/weatherlens/internal/app"
	"github.com/weatherlens/weatherlens/internal/lastsearch"
	"github.com/weatherlens/weatherlens/internal/render"
	"github.com/weatherlens/weatherlens/internal/weather"
)

// WeatherHandler serves lookups as JSON. It does not touch the page state
// or the remembered city.
type WeatherHandler struct {
	service  app.Querier
	renderer *render.Renderer
	store    lastsearch.Store
}

// NewWeatherHandler creates a new WeatherHandler. store may be nil.
func NewWeatherHandler(service app.Querier, renderer *render.Renderer, store lastsearch.Store) *WeatherHandler {
	return &WeatherHandler{
		service:  service,
		renderer: renderer,
		store:    store,
	}
}

// GetWeather handles GET /v1/weather?city= or ?lat=&lon=.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q, fieldErrs := parseQuery(r)
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "a city or a lat/lon pair is required", fieldErrs)
		return
	}

	res, err := h.service.Query(r.Context(), q)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		response.Error(w, r, models.NewLookupProblem(weather.KindOf(err), middleware.GetRequestID(r.Context()), app.Message(err)))
		return
	}

	d := render.NewDisplay()
	h.renderer.Render(d, res)
	response.JSON(w, r, http.StatusOK, models.NewWeatherResponse(d, models.Timestamp(res.FetchedAt)))
}

// GetLastSearch handles GET /v1/last-search.
func (h *WeatherHandler) GetLastSearch(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.NotFound(w, r, "no search remembered yet")
		return
	}

	city, err := h.store.Get(r.Context())
	if errors.Is(err, lastsearch.ErrNotFound) {
		response.NotFound(w, r, "no search remembered yet")
		return
	}
	if err != nil {
		response.InternalError(w, r, "failed to read the last search")
		return
	}

	response.JSON(w, r, http.StatusOK, models.LastSearchResponse{City: city})
}

func parseQuery(r *http.Request) (weather.Query, []models.FieldError) {
	v := r.URL.Query()

	if city := v.Get("city"); city != "" {
		if v.Has("lat") || v.Has("lon") {
			return weather.Query{}, []models.FieldError{{Field: "city", Message: "city cannot be combined with lat/lon", Code: "CONFLICT"}}
		}
		q, err := weather.CityQuery(city)
		if err != nil {
			return weather.Query{}, []models.FieldError{{Field: "city", Message: "must not be blank", Code: "REQUIRED"}}
		}
		return q, nil
	}

	var errs []models.FieldError
	lat, err := strconv.ParseFloat(v.Get("lat"), 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be a number", Code: "INVALID"})
	}
	lon, err := strconv.ParseFloat(v.Get("lon"), 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lon", Message: "must be a number", Code: "INVALID"})
	}
	if len(errs) > 0 {
		return weather.Query{}, errs
	}

	q, err := weather.CoordinatesQuery(lat, lon)
	if err != nil {
		return weather.Query{}, []models.FieldError{
			{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"},
			{Field: "lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"},
		}
	}
	return q, nil
}
