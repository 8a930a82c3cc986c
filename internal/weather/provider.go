package weather

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotAvailable is the only failure Service surfaces. Every error it
	// returns satisfies errors.Is(err, ErrNotAvailable).
	ErrNotAvailable = errors.New("weather not available")

	// ErrMandatorySourceUnavailable means the current-conditions call failed.
	ErrMandatorySourceUnavailable = fmt.Errorf("%w: current conditions unavailable", ErrNotAvailable)

	// ErrNoMatchingPlace means a city name resolved to nothing.
	ErrNoMatchingPlace = fmt.Errorf("%w: no matching place", ErrNotAvailable)

	// ErrInvalidCoordinates means the coordinates are out of range.
	ErrInvalidCoordinates = fmt.Errorf("%w: coordinates out of range", ErrNotAvailable)

	// ErrPlaceNotFound is returned by a CityResolver when the provider knows no
	// place with the requested name.
	ErrPlaceNotFound = errors.New("place not found")
)

// ConditionsSource performs the mandatory current-conditions lookup.
type ConditionsSource interface {
	Current(ctx context.Context, c Coordinates) (CurrentReading, error)
}

// CityResolver turns a free-text place name into coordinates.
type CityResolver interface {
	ResolveCity(ctx context.Context, name string) (Coordinates, error)
}

// PollutionSource looks up air quality. A nil result with a nil error means
// the provider has no data for the point.
type PollutionSource interface {
	AirPollution(ctx context.Context, c Coordinates) (*AirQuality, error)
}

// UVAlertsSource looks up the UV index and active alerts.
type UVAlertsSource interface {
	UVAndAlerts(ctx context.Context, c Coordinates) (UVAlerts, error)
}

// Sources bundles the collaborators a Service fans out to.
type Sources struct {
	Conditions ConditionsSource
	Resolver   CityResolver
	Pollution  PollutionSource
	UVAlerts   UVAlertsSource
}
