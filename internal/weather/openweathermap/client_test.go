package openweathermap_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherlens/weatherlens/internal/provider/resilience"
	"github.com/weatherlens/weatherlens/internal/weather"
	"github.com/weatherlens/weatherlens/internal/weather/openweathermap"
)

func newClient(serverURL string) *openweathermap.Client {
	return openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "****",
		BaseURL:    serverURL,
		HTTPClient: resilience.NewClient(resilience.SingleAttemptConfig("test")),
	})
}

func cityQuery(t *testing.T, city string) weather.Query {
	t.Helper()
	q, err := weather.CityQuery(city)
	require.NoError(t, err)
	return q
}

func TestClient_Current_ByCity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		assert.Empty(t, r.URL.Query().Get("lat"))
		assert.Equal(t, "****", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		response := map[string]interface{}{
			"name": "London",
			"sys":  map[string]interface{}{"country": "GB"},
			"weather": []map[string]interface{}{
				{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"},
			},
			"main": map[string]float64{
				"temp":       15.4,
				"feels_like": 14.9,
				"humidity":   72,
			},
			"visibility": 10000,
			"wind":       map[string]float64{"speed": 5.0, "deg": 220.0},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	current, err := newClient(server.URL).Current(context.Background(), cityQuery(t, "London"))
	require.NoError(t, err)
	require.NotNil(t, current)

	assert.Equal(t, "London", current.Place)
	assert.Equal(t, "GB", current.Country)
	assert.Equal(t, 15.4, current.Temperature)
	assert.Equal(t, 14.9, current.FeelsLike)
	assert.Equal(t, 72, current.Humidity)
	assert.Equal(t, 5.0, current.WindSpeed)
	assert.Equal(t, 10000.0, current.Visibility)
	assert.Equal(t, "light rain", current.Description)
	assert.Equal(t, "10d", current.Icon)
}

func TestClient_Current_ByCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "52.37", r.URL.Query().Get("lat"))
		assert.Equal(t, "4.895", r.URL.Query().Get("lon"))
		assert.Empty(t, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Amsterdam","sys":{"country":"NL"},"main":{"temp":18.5},"weather":[]}`))
	}))
	defer server.Close()

	q, err := weather.CoordinatesQuery(52.37, 4.895)
	require.NoError(t, err)

	current, err := newClient(server.URL).Current(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Amsterdam", current.Place)
	assert.Empty(t, current.Icon, "missing weather entry leaves icon empty")
}

func TestClient_Forecast(t *testing.T) {
	start := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		list := make([]map[string]interface{}, 0, 40)
		for i := 0; i < 40; i++ {
			list = append(list, map[string]interface{}{
				"dt":   start.Add(time.Duration(i) * 3 * time.Hour).Unix(),
				"main": map[string]float64{"temp": float64(i)},
				"weather": []map[string]interface{}{
					{"main": "Clouds", "description": "few clouds", "icon": "02d"},
				},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"cnt": 40, "list": list})
	}))
	defer server.Close()

	samples, err := newClient(server.URL).Forecast(context.Background(), cityQuery(t, "Paris"))
	require.NoError(t, err)
	require.Len(t, samples, 40)

	assert.True(t, samples[0].Time.Equal(start))
	assert.Equal(t, 0.0, samples[0].Temperature)
	assert.Equal(t, "few clouds", samples[0].Description)
	assert.Equal(t, "02d", samples[0].Icon)
	assert.True(t, samples[39].Time.Equal(start.Add(39*3*time.Hour)))
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     error
		wantStatus  int
		wantMessage string
	}{
		{name: "401 with json", status: 401, body: `{"cod":401,"message":"Invalid API key"}`, wantErr: weather.ErrUnauthorized},
		{name: "401 empty body", status: 401, body: ``, wantErr: weather.ErrUnauthorized},
		{name: "401 non-json body", status: 401, body: `<html>nope</html>`, wantErr: weather.ErrUnauthorized},
		{name: "404", status: 404, body: `{"cod":"404","message":"city not found"}`, wantErr: weather.ErrNotFound},
		{name: "429", status: 429, body: `{"cod":429}`, wantErr: weather.ErrRateLimited},
		{name: "400 with message", status: 400, body: `{"cod":"400","message":"wrong latitude"}`, wantStatus: 400, wantMessage: "wrong latitude"},
		{name: "500 without message", status: 500, body: `{}`, wantStatus: 500, wantMessage: "Unknown error"},
		{name: "503 non-json body", status: 503, body: `Service Unavailable`, wantStatus: 503, wantMessage: "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newClient(server.URL).Current(context.Background(), cityQuery(t, "London"))
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			var perr *weather.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantStatus, perr.Status)
			assert.Equal(t, tt.wantMessage, perr.Message)
			assert.Equal(t, weather.KindProvider, weather.KindOf(err))
		})
	}
}

func TestClient_ServerErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newClient(server.URL).Current(context.Background(), cityQuery(t, "London"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newClient(url).Current(context.Background(), cityQuery(t, "London"))
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrNetwork)
	assert.Equal(t, weather.KindNetwork, weather.KindOf(err))
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(server.URL).Current(ctx, cityQuery(t, "London"))
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrNetwork)
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).Forecast(context.Background(), cityQuery(t, "London"))
	var perr *weather.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusOK, perr.Status)
	assert.Equal(t, weather.UnknownErrorMessage, perr.Message)
}

func TestClient_RepeatedServerErrorsKeepReachingProvider(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 5 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer server.Close()

	client := newClient(server.URL)
	q := cityQuery(t, "Atlantis")

	for i := 0; i < 5; i++ {
		_, err := client.Current(context.Background(), q)
		assert.Equal(t, weather.KindProvider, weather.KindOf(err), "call %d", i+1)
	}

	_, err := client.Current(context.Background(), q)
	assert.ErrorIs(t, err, weather.ErrNotFound)
	assert.Equal(t, weather.KindNotFound, weather.KindOf(err))
	assert.Equal(t, int32(6), hits.Load(), "every call reaches the provider")
}

func TestClient_URL(t *testing.T) {
	client := openweathermap.NewClient(openweathermap.ClientConfig{APIKey: "k"})

	got := client.URL("weather", cityQuery(t, "São Paulo"))
	assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather?appid=k&q=S%C3%A3o+Paulo&units=metric", got)
	assert.Equal(t, openweathermap.ProviderName, client.Name())
}
