package app

import (
	"errors"
	"strings"

	"github.com/weatherlens/weatherlens/internal/location"
	"github.com/weatherlens/weatherlens/internal/weather"
)

// User-facing failure messages.
const (
	MsgUnsupported      = "Geolocation is not supported by your browser."
	MsgPermissionDenied = "Unable to get your location. Please check your browser settings and try again."
	MsgUnauthorized     = "Invalid API key. Please check your OpenWeatherMap API key."
	MsgNotFound         = "City not found. Please check the spelling and try again."
	MsgRateLimited      = "API rate limit exceeded. Please try again later."
	MsgNetwork          = "Network error. Please check your internet connection."
	MsgUnknown          = "Something went wrong. Please try again."

	cityHint = "Please check the city name and try again."
)

// Message returns the user-facing message for a lookup failure.
func Message(err error) string {
	switch {
	case errors.Is(err, location.ErrUnsupported):
		return MsgUnsupported
	case errors.Is(err, location.ErrPermissionDenied):
		return MsgPermissionDenied
	}

	switch weather.KindOf(err) {
	case weather.KindUnauthorized:
		return MsgUnauthorized
	case weather.KindNotFound:
		return MsgNotFound
	case weather.KindRateLimited:
		return MsgRateLimited
	case weather.KindProvider:
		var perr *weather.ProviderError
		errors.As(err, &perr)
		return perr.Error()
	case weather.KindNetwork:
		return MsgNetwork
	default:
		return MsgUnknown
	}
}

// CityMessage returns the message for a failed city lookup: the failure
// message followed by a hint about the city name.
func CityMessage(err error) string {
	return "Error: " + strings.TrimSuffix(Message(err), ".") + ". " + cityHint
}
