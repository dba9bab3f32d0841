// Package location supplies the device position for "use my location"
// lookups.
package location

import (
	"context"
	"errors"
	"strconv"

	"github.com/weatherlens/weatherlens/internal/weather"
)

// Location errors.
var (
	ErrUnsupported      = errors.New("geolocation is not supported")
	ErrPermissionDenied = errors.New("geolocation permission denied or position unavailable")
)

// Provider resolves the current position. It is single-shot: one call, one
// answer, no retry.
type Provider interface {
	Locate(ctx context.Context) (weather.Coordinates, error)
}

// Fixed always reports the same position.
type Fixed weather.Coordinates

// Locate implements Provider.
func (f Fixed) Locate(ctx context.Context) (weather.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, err
	}
	return weather.Coordinates(f), nil
}

// Denied is a provider whose position request was refused or could not be
// satisfied.
type Denied struct{}

// Locate implements Provider.
func (Denied) Locate(context.Context) (weather.Coordinates, error) {
	return weather.Coordinates{}, ErrPermissionDenied
}

// Func adapts a function to a Provider.
type Func func(ctx context.Context) (weather.Coordinates, error)

// Locate implements Provider.
func (f Func) Locate(ctx context.Context) (weather.Coordinates, error) {
	return f(ctx)
}

// Browser reports values, as sent by the page script.
const (
	GeoDenied      = "denied"
	GeoUnsupported = "unsupported"
)

// FromBrowser builds a provider from what the browser reported. geo carries
// a failure reported by the page ("denied" or "unsupported"); otherwise lat
// and lon hold the position. A nil provider means the capability is absent.
// Unparseable or out-of-range coordinates are reported as a denied position.
func FromBrowser(geo, lat, lon string) Provider {
	switch geo {
	case GeoUnsupported:
		return nil
	case GeoDenied:
		return Denied{}
	}

	la, errLat := strconv.ParseFloat(lat, 64)
	lo, errLon := strconv.ParseFloat(lon, 64)
	if errLat != nil || errLon != nil {
		return Denied{}
	}

	c := weather.Coordinates{Lat: la, Lon: lo}
	if c.Validate() != nil {
		return Denied{}
	}
	return Fixed(c)
}
