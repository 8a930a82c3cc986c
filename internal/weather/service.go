package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-bot/internal/observability"
)

// Service resolves a location into a merged Report. It holds no per-request
// state and is safe for concurrent use by many sessions.
type Service struct {
	sources     Sources
	callTimeout time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewService creates a Service. callTimeout bounds each individual provider call.
func NewService(sources Sources, callTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		sources:     sources,
		callTimeout: callTimeout,
		logger:      logger,
		metrics:     metrics,
	}
}

// FetchByCoordinates issues the current-conditions, air-pollution and UV/alerts
// calls concurrently and merges them. Only the current-conditions call is
// required; the other two degrade to absent fields.
func (s *Service) FetchByCoordinates(ctx context.Context, lat, lon float64) (Report, error) {
	report, err := s.fetch(ctx, Coordinates{Latitude: lat, Longitude: lon})
	s.recordLookup("coordinates", err)
	return report, err
}

// FetchByCityName resolves name to coordinates and then behaves like
// FetchByCoordinates. A name that resolves to nothing yields ErrNoMatchingPlace.
func (s *Service) FetchByCityName(ctx context.Context, name string) (Report, error) {
	report, err := s.fetchCity(ctx, name)
	s.recordLookup("city", err)
	return report, err
}

func (s *Service) fetchCity(ctx context.Context, name string) (Report, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Report{}, ErrNoMatchingPlace
	}
	if s.sources.Resolver == nil {
		return Report{}, fmt.Errorf("%w: no city resolver configured", ErrNoMatchingPlace)
	}

	rctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	coords, err := s.sources.Resolver.ResolveCity(rctx, name)
	cancel()
	if err != nil {
		if errors.Is(err, ErrPlaceNotFound) {
			s.logger.Info("city not found", "city", name)
			return Report{}, fmt.Errorf("%w: %q", ErrNoMatchingPlace, name)
		}
		s.logger.Error("city resolution failed", "city", name, "error", err)
		return Report{}, fmt.Errorf("%w: resolve %q: %v", ErrNoMatchingPlace, name, err)
	}

	return s.fetch(ctx, coords)
}

func (s *Service) fetch(ctx context.Context, c Coordinates) (Report, error) {
	if !c.Valid() {
		return Report{}, fmt.Errorf("%w: %s", ErrInvalidCoordinates, c.Key())
	}
	if s.sources.Conditions == nil {
		return Report{}, fmt.Errorf("%w: no conditions source configured", ErrMandatorySourceUnavailable)
	}

	// Optional calls are cancelled early once the mandatory call has failed.
	fanCtx, cancelFan := context.WithCancel(ctx)
	defer cancelFan()

	var (
		wg     sync.WaitGroup
		cur    CurrentReading
		curErr error
		aq     *AirQuality
		aqErr  error
		uva    UVAlerts
		uvaErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(fanCtx, s.callTimeout)
		defer cancel()
		cur, curErr = s.sources.Conditions.Current(callCtx, c)
		if curErr != nil {
			cancelFan()
		}
	}()

	if s.sources.Pollution != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(fanCtx, s.callTimeout)
			defer cancel()
			aq, aqErr = s.sources.Pollution.AirPollution(callCtx, c)
		}()
	}

	if s.sources.UVAlerts != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(fanCtx, s.callTimeout)
			defer cancel()
			uva, uvaErr = s.sources.UVAlerts.UVAndAlerts(callCtx, c)
		}()
	}

	wg.Wait()

	if curErr != nil {
		s.logger.Error("current conditions failed", "coordinates", c.Key(), "error", curErr)
		return Report{}, fmt.Errorf("%w: %v", ErrMandatorySourceUnavailable, curErr)
	}

	if aqErr != nil {
		s.logger.Warn("optional source degraded", "source", "air_pollution", "coordinates", c.Key(), "error", aqErr)
		aq = nil
	}

	var uvaPtr *UVAlerts
	if uvaErr != nil {
		s.logger.Warn("optional source degraded", "source", "onecall", "coordinates", c.Key(), "error", uvaErr)
	} else if s.sources.UVAlerts != nil {
		uvaPtr = &uva
	}

	// The provider may echo slightly different coordinates; keep the queried pair.
	cur.Coordinates = c

	return MergeReport(cur, aq, uvaPtr), nil
}

func (s *Service) recordLookup(kind string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "not_available"
	}
	s.metrics.Lookups.WithLabelValues(kind, outcome).Inc()
}
