// Package openweathermap implements weather.Provider on top of the
// OpenWeatherMap 2.5 current weather and 5 day / 3 hour forecast APIs.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/provider/resilience"
	"github.com/weatherlens/weatherlens/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// Units is the fixed unit system: Celsius and m/s.
	Units = "metric"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenWeatherMap API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a single-attempt guarded client.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

var _ weather.Provider = (*Client)(nil)

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.SingleAttemptConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Current fetches current conditions from the /weather endpoint.
func (c *Client) Current(ctx context.Context, q weather.Query) (*weather.CurrentConditions, error) {
	var resp currentWeatherResponse
	if err := c.fetch(ctx, "weather", q, &resp); err != nil {
		return nil, err
	}
	return resp.toCurrent(), nil
}

// Forecast fetches the 3-hour forecast series from the /forecast endpoint.
func (c *Client) Forecast(ctx context.Context, q weather.Query) ([]weather.ForecastSample, error) {
	var resp forecastResponse
	if err := c.fetch(ctx, "forecast", q, &resp); err != nil {
		return nil, err
	}
	return resp.toSamples(), nil
}

// URL returns the request URL for endpoint and q.
func (c *Client) URL(endpoint string, q weather.Query) string {
	params := q.Values()
	params.Set("units", Units)
	params.Set("appid", c.apiKey)
	return c.baseURL + "/" + endpoint + "?" + params.Encode()
}

// fetch issues a GET and decodes a 2xx JSON body into out. Failures are
// classified into the weather error kinds; nothing is retried here.
func (c *Client) fetch(ctx context.Context, endpoint string, q weather.Query, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(endpoint, q), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query_type", q.Type()).
		Msg("requesting openweathermap")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return weather.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classify(endpoint, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("openweathermap returned an undecodable body")
		return &weather.ProviderError{
			Status:  resp.StatusCode,
			Message: weather.UnknownErrorMessage,
		}
	}

	return nil
}

// classify maps a non-2xx response to a weather error. The body is only
// used for the message of a generic provider error; an unreadable or
// non-JSON body counts as an empty payload.
func (c *Client) classify(endpoint string, resp *http.Response) error {
	var payload errorResponse
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			payload = errorResponse{}
		}
	}

	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("message", payload.Message).
		Msg("openweathermap returned an error")

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return weather.ErrUnauthorized
	case http.StatusNotFound:
		return weather.ErrNotFound
	case http.StatusTooManyRequests:
		return weather.ErrRateLimited
	}

	message := payload.Message
	if message == "" {
		message = weather.UnknownErrorMessage
	}
	return &weather.ProviderError{Status: resp.StatusCode, Message: message}
}

// OpenWeatherMap API response structures.

type conditionResponse struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentWeatherResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility float64             `json:"visibility"`
	Weather    []conditionResponse `json:"weather"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []conditionResponse `json:"weather"`
	} `json:"list"`
}

// errorResponse is the provider's error body; cod is a string or a number
// depending on the endpoint, so only message is decoded.
type errorResponse struct {
	Message string `json:"message"`
}

func (r *currentWeatherResponse) toCurrent() *weather.CurrentConditions {
	c := &weather.CurrentConditions{
		Place:       r.Name,
		Country:     r.Sys.Country,
		Temperature: r.Main.Temp,
		FeelsLike:   r.Main.FeelsLike,
		Humidity:    r.Main.Humidity,
		WindSpeed:   r.Wind.Speed,
		Visibility:  r.Visibility,
	}
	if len(r.Weather) > 0 {
		c.Description = r.Weather[0].Description
		c.Icon = r.Weather[0].Icon
	}
	return c
}

func (r *forecastResponse) toSamples() []weather.ForecastSample {
	samples := make([]weather.ForecastSample, 0, len(r.List))
	for _, item := range r.List {
		s := weather.ForecastSample{
			Time:        time.Unix(item.Dt, 0),
			Temperature: item.Main.Temp,
		}
		if len(item.Weather) > 0 {
			s.Description = item.Weather[0].Description
			s.Icon = item.Weather[0].Icon
		}
		samples = append(samples, s)
	}
	return samples
}
