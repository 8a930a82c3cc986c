package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-bot/internal/conversation"
	"github.com/i474232898/weather-bot/internal/dispatcher"
	"github.com/i474232898/weather-bot/internal/observability"
	"github.com/i474232898/weather-bot/internal/store"
	"github.com/i474232898/weather-bot/internal/weather"
)

type stubWeather struct {
	report weather.Report
	err    error

	lastCity string
	lastLat  float64
}

func (s *stubWeather) FetchByCoordinates(_ context.Context, lat, _ float64) (weather.Report, error) {
	s.lastLat = lat
	return s.report, s.err
}

func (s *stubWeather) FetchByCityName(_ context.Context, name string) (weather.Report, error) {
	s.lastCity = name
	return s.report, s.err
}

func stubReport() weather.Report {
	return weather.Report{
		Location:   weather.Location{City: "Oslo", CountryCode: "NO"},
		Conditions: weather.Conditions{Description: "fog", TempC: 3, FeelsLikeC: 1, HumidityPct: 95, WindSpeedMps: 2},
	}
}

func newTestDispatcher(t *testing.T, w *stubWeather) *dispatcher.Dispatcher {
	t.Helper()
	m := conversation.NewMachine(w, observability.DiscardLogger())
	d := dispatcher.New(m, store.NewMemoryStore(nil), nil, 4, observability.DiscardLogger(), nil)
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return d
}

func doRequest(t *testing.T, w *stubWeather, method, target, body string) (int, map[string]any) {
	t.Helper()

	app := NewApp("weather-bot-test")
	RegisterRoutes(app, Deps{ServiceName: "weather-bot", Weather: w, Events: newTestDispatcher(t, w)})

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	code, body := doRequest(t, &stubWeather{}, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "weather-bot", body["service"])
}

func TestMetricsEndpoint(t *testing.T) {
	code, _ := doRequest(t, &stubWeather{}, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestCurrentWeather_Validation(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"no parameters", "/api/v1/weather/current"},
		{"latitude out of range", "/api/v1/weather/current?lat=91&lon=0"},
		{"longitude out of range", "/api/v1/weather/current?lat=0&lon=-181"},
		{"latitude without longitude", "/api/v1/weather/current?lat=10"},
		{"not a number", "/api/v1/weather/current?lat=north&lon=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &stubWeather{report: stubReport()}
			code, body := doRequest(t, w, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, true, body["error"])
			assert.Zero(t, w.lastLat)
		})
	}
}

func TestCurrentWeather_ByCoordinates(t *testing.T) {
	w := &stubWeather{report: stubReport()}
	code, body := doRequest(t, w, http.MethodGet, "/api/v1/weather/current?lat=59.91&lon=10.75", "")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 59.91, w.lastLat)
	assert.Contains(t, body["text"], "📍 Location: Oslo, NO")
	assert.NotNil(t, body["report"])
}

func TestCurrentWeather_ByCity(t *testing.T) {
	w := &stubWeather{report: stubReport()}
	code, _ := doRequest(t, w, http.MethodGet, "/api/v1/weather/current?city=Oslo", "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Oslo", w.lastCity)
}

func TestCurrentWeather_ErrorMapping(t *testing.T) {
	code, _ := doRequest(t, &stubWeather{err: weather.ErrNoMatchingPlace}, http.MethodGet, "/api/v1/weather/current?city=Atlantis", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doRequest(t, &stubWeather{err: weather.ErrMandatorySourceUnavailable}, http.MethodGet, "/api/v1/weather/current?lat=1&lon=1", "")
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestEvents_ReturnsMachineReplies(t *testing.T) {
	w := &stubWeather{report: stubReport()}

	code, body := doRequest(t, w, http.MethodPost, "/api/v1/events",
		`{"sessionId": "web-1", "kind": "location", "latitude": 59.91, "longitude": 10.75}`)
	require.Equal(t, http.StatusOK, code)

	replies, ok := body["replies"].([]any)
	require.True(t, ok)
	require.Len(t, replies, 2)

	first := replies[0].(map[string]any)
	assert.Contains(t, first["text"], "Oslo")

	second := replies[1].(map[string]any)
	assert.Equal(t, "What would you like to do next?", second["text"])
	assert.Equal(t, []any{"Share my location", "Type a city name"}, second["keyboard"])
}

func TestEvents_Command(t *testing.T) {
	code, body := doRequest(t, &stubWeather{}, http.MethodPost, "/api/v1/events",
		`{"sessionId": "web-2", "kind": "command", "command": "/help"}`)
	require.Equal(t, http.StatusOK, code)

	replies := body["replies"].([]any)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].(map[string]any)["text"], "/cancel - Cancel the current operation")
}

func TestEvents_Validation(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"kind": "text", "text": "hi"}`,
		`{"sessionId": "a", "kind": "sticker"}`,
		`{"sessionId": "a", "kind": "location", "latitude": 100, "longitude": 0}`,
		`{"sessionId": "a", "kind": "location"}`,
		`{"sessionId": "a", "kind": "command"}`,
	}
	for _, b := range bodies {
		code, _ := doRequest(t, &stubWeather{}, http.MethodPost, "/api/v1/events", b)
		assert.Equal(t, http.StatusBadRequest, code, b)
	}
}
