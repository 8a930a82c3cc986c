package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-bot/internal/observability"
	"github.com/i474232898/weather-bot/internal/weather"
)

const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider talks to the three OpenWeatherMap endpoints a report is
// built from. It implements weather.ConditionsSource, weather.CityResolver,
// weather.PollutionSource and weather.UVAlertsSource.
type OpenWeatherProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	metrics *observability.Metrics

	weatherCB   *gobreaker.CircuitBreaker
	pollutionCB *gobreaker.CircuitBreaker
	onecallCB   *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey, baseURL string, metrics *observability.Metrics) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	return &OpenWeatherProvider{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      client,
		metrics:     metrics,
		weatherCB:   newBreaker("openweather-current"),
		pollutionCB: newBreaker("openweather-air-pollution"),
		onecallCB:   newBreaker("openweather-onecall"),
	}
}

type currentPayload struct {
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
}

func (p *OpenWeatherProvider) Current(ctx context.Context, c weather.Coordinates) (weather.CurrentReading, error) {
	start := time.Now()
	reading, err := p.current(ctx, c)
	observe(p.metrics, "current", start, err)
	return reading, err
}

func (p *OpenWeatherProvider) current(ctx context.Context, c weather.Coordinates) (weather.CurrentReading, error) {
	if p.apiKey == "" {
		return weather.CurrentReading{}, fmt.Errorf("openweather: %w", errNoAPIKey)
	}

	values := p.coordValues(c)
	values.Set("units", "metric")

	var payload currentPayload
	if err := getJSON(ctx, p.client, p.weatherCB, p.endpoint("/data/2.5/weather", values), &payload); err != nil {
		return weather.CurrentReading{}, fmt.Errorf("openweather current: %w", err)
	}

	var desc string
	if len(payload.Weather) > 0 {
		desc = payload.Weather[0].Description
	}

	reading := weather.CurrentReading{
		Location:    weather.Location{City: payload.Name, CountryCode: payload.Sys.Country},
		Coordinates: c,
		Conditions: weather.Conditions{
			Description:  desc,
			TempC:        payload.Main.Temp,
			FeelsLikeC:   payload.Main.FeelsLike,
			HumidityPct:  payload.Main.Humidity,
			WindSpeedMps: payload.Wind.Speed,
		},
	}
	return reading, nil
}

// ResolveCity looks the name up on the current-weather endpoint and returns the
// coordinates it reports.
func (p *OpenWeatherProvider) ResolveCity(ctx context.Context, name string) (weather.Coordinates, error) {
	start := time.Now()
	coords, err := p.resolveCity(ctx, name)
	observe(p.metrics, "resolve", start, ignoreNotFound(err))
	return coords, err
}

func (p *OpenWeatherProvider) resolveCity(ctx context.Context, name string) (weather.Coordinates, error) {
	if p.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("openweather: %w", errNoAPIKey)
	}

	values := url.Values{}
	values.Set("q", name)
	values.Set("units", "metric")
	values.Set("appid", p.apiKey)

	var payload currentPayload
	err := getJSON(ctx, p.client, p.weatherCB, p.endpoint("/data/2.5/weather", values), &payload)
	if errors.Is(err, errNotFound) {
		return weather.Coordinates{}, fmt.Errorf("%w: %q", weather.ErrPlaceNotFound, name)
	}
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("openweather resolve: %w", err)
	}
	if payload.Coord == nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %q has no coordinates", weather.ErrPlaceNotFound, name)
	}

	return weather.Coordinates{Latitude: payload.Coord.Lat, Longitude: payload.Coord.Lon}, nil
}

func (p *OpenWeatherProvider) coordValues(c weather.Coordinates) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
	values.Set("appid", p.apiKey)
	return values
}

func (p *OpenWeatherProvider) endpoint(path string, values url.Values) string {
	return fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
}

// A name the provider does not know is a normal outcome, not a failed call.
func ignoreNotFound(err error) error {
	if errors.Is(err, weather.ErrPlaceNotFound) {
		return nil
	}
	return err
}
