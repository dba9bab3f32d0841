// Package weather provides the weather domain model, the provider-facing
// query service and the daily forecast reducer.
package weather

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query errors.
var (
	ErrEmptyCity          = errors.New("city name is empty")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Validate checks that the coordinates are within the WGS84 range.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return ErrInvalidCoordinates
	}
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return ErrInvalidCoordinates
	}
	return nil
}

// Query selects the location of a lookup. It is either a city name or a
// coordinate pair, never both. The zero value is not a valid query.
type Query struct {
	city   string
	coords *Coordinates
}

// CityQuery creates a query for a city name.
func CityQuery(city string) (Query, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Query{}, ErrEmptyCity
	}
	return Query{city: city}, nil
}

// CoordinatesQuery creates a query for a coordinate pair.
func CoordinatesQuery(lat, lon float64) (Query, error) {
	c := Coordinates{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Query{}, err
	}
	return Query{coords: &c}, nil
}

// City returns the city name and whether the query is a city query.
func (q Query) City() (string, bool) {
	return q.city, q.coords == nil && q.city != ""
}

// Coordinates returns the coordinates and whether the query is a
// coordinate query.
func (q Query) Coordinates() (Coordinates, bool) {
	if q.coords == nil {
		return Coordinates{}, false
	}
	return *q.coords, true
}

// IsZero reports whether the query was never constructed.
func (q Query) IsZero() bool {
	return q.city == "" && q.coords == nil
}

// Values returns the provider location parameters for the query.
func (q Query) Values() url.Values {
	v := url.Values{}
	if c, ok := q.Coordinates(); ok {
		v.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
		v.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
		return v
	}
	v.Set("q", q.city)
	return v
}

// Type names the active variant, "city" or "coordinates", or "" for the
// zero Query. Unlike String it carries no location data.
func (q Query) Type() string {
	switch {
	case q.IsZero():
		return ""
	case q.city != "":
		return "city"
	default:
		return "coordinates"
	}
}

// String returns a human-readable form of the query.
func (q Query) String() string {
	if c, ok := q.Coordinates(); ok {
		return strconv.FormatFloat(c.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 4, 64)
	}
	return q.city
}

// CurrentConditions is the current weather at the queried place, in the
// provider's metric units.
type CurrentConditions struct {
	Place   string
	Country string

	// Temperatures in Celsius
	Temperature float64
	FeelsLike   float64

	// Humidity percentage (0-100)
	Humidity int

	WindSpeed  float64 // m/s
	Visibility float64 // meters

	Description string
	Icon        string // provider icon code, e.g. "01d"
}

// WindSpeedKmh returns the wind speed converted to km/h.
func (c CurrentConditions) WindSpeedKmh() float64 {
	return c.WindSpeed * 3.6
}

// VisibilityKm returns the visibility converted to kilometers.
func (c CurrentConditions) VisibilityKm() float64 {
	return c.Visibility / 1000
}

// ForecastSample is a single 3-hour forecast data point.
type ForecastSample struct {
	Time        time.Time
	Temperature float64
	Description string
	Icon        string
}

// DailyForecast is the sample chosen to represent one day.
type DailyForecast struct {
	ForecastSample
}

// Weekday returns the abbreviated weekday ("Mon") in loc.
func (d DailyForecast) Weekday(loc *time.Location) string {
	return d.Time.In(loc).Format("Mon")
}

// MonthDay returns the abbreviated month and day ("Jan 2") in loc.
func (d DailyForecast) MonthDay(loc *time.Location) string {
	return d.Time.In(loc).Format("Jan 2")
}

// Result is the combined outcome of a lookup. It is built per request and
// never cached.
type Result struct {
	Current   CurrentConditions
	Daily     []DailyForecast
	FetchedAt time.Time
}
