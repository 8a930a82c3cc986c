package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-bot/internal/observability"
	"github.com/i474232898/weather-bot/internal/weather"
)

// geocodeFunc matches geocoder.Geocoding so tests can replace the network call.
type geocodeFunc func(geocoder.Address) (geocoder.Location, error)

// GoogleGeocoder resolves city names through the Google Geocoding API.
// It implements weather.CityResolver only.
type GoogleGeocoder struct {
	apiKey  string
	geocode geocodeFunc
	metrics *observability.Metrics
}

// NewGoogleGeocoder sets the library's package-level key, which every request
// reads. Create one per process.
func NewGoogleGeocoder(apiKey string, metrics *observability.Metrics) *GoogleGeocoder {
	geocoder.ApiKey = apiKey

	return &GoogleGeocoder{
		apiKey:  apiKey,
		geocode: geocoder.Geocoding,
		metrics: metrics,
	}
}

type geocodeResult struct {
	loc geocoder.Location
	err error
}

func (g *GoogleGeocoder) ResolveCity(ctx context.Context, name string) (weather.Coordinates, error) {
	start := time.Now()
	coords, err := g.resolveCity(ctx, name)
	observe(g.metrics, "geocode", start, ignoreNotFound(err))
	return coords, err
}

func (g *GoogleGeocoder) resolveCity(ctx context.Context, name string) (weather.Coordinates, error) {
	if g.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("google geocoder: %w", errNoAPIKey)
	}

	// The library call takes no context; run it aside and stop waiting on
	// cancel. A hung request only leaks its own goroutine.
	done := make(chan geocodeResult, 1)
	go func() {
		loc, err := g.geocode(geocoder.Address{City: name})
		done <- geocodeResult{loc: loc, err: err}
	}()

	var res geocodeResult
	select {
	case <-ctx.Done():
		return weather.Coordinates{}, ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %q: %v", weather.ErrPlaceNotFound, name, res.err)
	}

	c := weather.Coordinates{Latitude: res.loc.Latitude, Longitude: res.loc.Longitude}
	if (c == weather.Coordinates{}) || !c.Valid() {
		return weather.Coordinates{}, fmt.Errorf("%w: %q", weather.ErrPlaceNotFound, name)
	}
	return c, nil
}
