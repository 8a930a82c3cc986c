package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/i474232898/weather-bot/internal/weather"
)

type oneCallPayload struct {
	Current struct {
		UVI *float64 `json:"uvi"`
	} `json:"current"`
	Alerts []struct {
		Event       string `json:"event"`
		Description string `json:"description"`
	} `json:"alerts"`
}

// UVAndAlerts reads the UV index and active alerts from the One Call endpoint.
// This endpoint needs a separate subscription; callers treat failure as absence.
func (p *OpenWeatherProvider) UVAndAlerts(ctx context.Context, c weather.Coordinates) (weather.UVAlerts, error) {
	start := time.Now()
	uva, err := p.uvAndAlerts(ctx, c)
	observe(p.metrics, "onecall", start, err)
	return uva, err
}

func (p *OpenWeatherProvider) uvAndAlerts(ctx context.Context, c weather.Coordinates) (weather.UVAlerts, error) {
	if p.apiKey == "" {
		return weather.UVAlerts{}, fmt.Errorf("openweather: %w", errNoAPIKey)
	}

	values := p.coordValues(c)
	values.Set("exclude", "minutely,hourly,daily")
	values.Set("units", "metric")

	var payload oneCallPayload
	if err := getJSON(ctx, p.client, p.onecallCB, p.endpoint("/data/3.0/onecall", values), &payload); err != nil {
		return weather.UVAlerts{}, fmt.Errorf("openweather onecall: %w", err)
	}

	out := weather.UVAlerts{UVIndex: payload.Current.UVI}
	for _, a := range payload.Alerts {
		out.Alerts = append(out.Alerts, weather.Alert{Event: a.Event, Description: a.Description})
	}
	return out, nil
}
