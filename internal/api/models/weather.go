package models

import (
	"github.com/weatherlens/weatherlens/internal/render"
)

// WeatherResponse is the JSON form of a rendered lookup: the same formatted
// values the page shows.
type WeatherResponse struct {
	Location    string         `json:"location"`
	Temperature string         `json:"temperature"`
	FeelsLike   string         `json:"feelsLike"`
	Humidity    string         `json:"humidity"`
	WindSpeed   string         `json:"windSpeed"`
	Visibility  string         `json:"visibility"`
	Description string         `json:"description"`
	Icon        string         `json:"icon"`
	IconURL     string         `json:"iconUrl"`
	Theme       string         `json:"theme"`
	Forecast    []ForecastCard `json:"forecast"`
	FetchedAt   Timestamp      `json:"fetchedAt"`
}

// ForecastCard is one day of the forecast.
type ForecastCard struct {
	Weekday     string `json:"weekday"`
	Date        string `json:"date"`
	Icon        string `json:"icon"`
	IconURL     string `json:"iconUrl"`
	Temperature string `json:"temperature"`
	Description string `json:"description"`
}

// NewWeatherResponse builds the response from a rendered display.
func NewWeatherResponse(d *render.Display, fetchedAt Timestamp) WeatherResponse {
	cards := d.Forecast.Cards()
	out := WeatherResponse{
		Location:    d.Fields.Location,
		Temperature: d.Fields.Temperature,
		FeelsLike:   d.Fields.FeelsLike,
		Humidity:    d.Fields.Humidity,
		WindSpeed:   d.Fields.WindSpeed,
		Visibility:  d.Fields.Visibility,
		Description: d.Fields.Description,
		Icon:        d.Fields.Icon,
		IconURL:     d.Fields.IconURL,
		Theme:       d.Theme.Name,
		Forecast:    make([]ForecastCard, 0, len(cards)),
		FetchedAt:   fetchedAt,
	}
	for _, c := range cards {
		out.Forecast = append(out.Forecast, ForecastCard{
			Weekday:     c.Weekday,
			Date:        c.MonthDay,
			Icon:        c.Icon,
			IconURL:     c.IconURL,
			Temperature: c.Temperature,
			Description: c.Description,
		})
	}
	return out
}

// LastSearchResponse is the remembered city.
type LastSearchResponse struct {
	City string `json:"city"`
}
