package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/i474232898/weather-bot/internal/weather"
)

type airPollutionPayload struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components struct {
			PM25 *float64 `json:"pm2_5"`
			PM10 *float64 `json:"pm10"`
			NO2  *float64 `json:"no2"`
		} `json:"components"`
	} `json:"list"`
}

// AirPollution returns the current air quality for c, or nil when the provider
// has no entry for the point.
func (p *OpenWeatherProvider) AirPollution(ctx context.Context, c weather.Coordinates) (*weather.AirQuality, error) {
	start := time.Now()
	aq, err := p.airPollution(ctx, c)
	observe(p.metrics, "air_pollution", start, err)
	return aq, err
}

func (p *OpenWeatherProvider) airPollution(ctx context.Context, c weather.Coordinates) (*weather.AirQuality, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather: %w", errNoAPIKey)
	}

	var payload airPollutionPayload
	url := p.endpoint("/data/2.5/air_pollution", p.coordValues(c))
	if err := getJSON(ctx, p.client, p.pollutionCB, url, &payload); err != nil {
		return nil, fmt.Errorf("openweather air pollution: %w", err)
	}

	if len(payload.List) == 0 {
		return nil, nil
	}

	entry := payload.List[0]
	return &weather.AirQuality{
		AQI:  entry.Main.AQI,
		PM25: entry.Components.PM25,
		PM10: entry.Components.PM10,
		NO2:  entry.Components.NO2,
	}, nil
}
