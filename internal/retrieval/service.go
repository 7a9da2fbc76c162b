// Package retrieval assembles the full per-location context: county
// metadata, precipitation history and forecast, flood event history, and
// social vulnerability data.
package retrieval

import (
	"context"
	"errors"

	"github.com/mbaizhakyp/floodwise/internal/maps"
	"github.com/mbaizhakyp/floodwise/internal/observability"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

// CountyFinder resolves a point to its containing county.
type CountyFinder interface {
	FindByPoint(ctx context.Context, lat, lon float64) (*storage.CountyData, error)
}

// PrecipitationHistorian returns monthly precipitation history for a county.
type PrecipitationHistorian interface {
	HistoryByCounty(ctx context.Context, fipsCode string) ([]storage.PrecipitationMonth, error)
}

// FloodEventSource returns historical flood events near a point.
type FloodEventSource interface {
	HistoryNear(ctx context.Context, fipsCode string, lat, lon float64) ([]storage.FloodEvent, error)
}

// SVISource returns Social Vulnerability Index data for a county.
type SVISource interface {
	ByCounty(ctx context.Context, fipsCode string, releaseYear int) (*storage.SVIData, error)
}

// Deps collects the service's collaborators. Geocoder annotates flood
// events with their nearest street address and may be nil to skip that.
type Deps struct {
	Counties       CountyFinder
	Precipitation  PrecipitationHistorian
	FloodEvents    FloodEventSource
	SVI            SVISource
	Geocoder       maps.Geocoder
	Forecaster     maps.Forecaster
	SVIReleaseYear int
	Logger         *observability.Logger
}

// Service enriches geocoded locations with flood context. Individual
// category failures degrade to an absent category rather than failing the
// whole location; only a complete inability to place the location is
// surfaced through the record's status.
type Service struct {
	deps   Deps
	logger *observability.Logger
}

// NewService creates a new retrieval service.
func NewService(deps Deps) *Service {
	return &Service{
		deps:   deps,
		logger: deps.Logger.WithComponent("retrieval"),
	}
}

// Enrich builds one LocationRecord per input location, in order. The
// forecast is fetched before county resolution since it only needs
// coordinates; forecastHours <= 0 skips it entirely.
func (s *Service) Enrich(ctx context.Context, locations []storage.InputLocation, forecastHours int) []storage.LocationRecord {
	records := make([]storage.LocationRecord, 0, len(locations))
	for _, loc := range locations {
		records = append(records, s.enrichLocation(ctx, loc, forecastHours))
	}
	return records
}

func (s *Service) enrichLocation(ctx context.Context, loc storage.InputLocation, forecastHours int) storage.LocationRecord {
	logger := s.logger.WithField("location", loc.Name)
	record := storage.LocationRecord{InputLocation: loc}

	if forecastHours > 0 && s.deps.Forecaster != nil {
		forecast, err := s.deps.Forecaster.HourlyForecast(ctx, loc.Latitude, loc.Longitude, forecastHours)
		if err != nil {
			logger.Warn().Err(err).Msg("precipitation forecast unavailable")
		} else {
			record.PrecipitationForecast = forecast
		}
	}

	county, err := s.deps.Counties.FindByPoint(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Msg("location is not within a known county")
			record.Status = storage.StatusNoCountyFound
		} else {
			logger.Error().Err(err).Msg("county lookup failed")
			record.Status = storage.StatusNoCountyFound
		}
		return record
	}
	record.Status = storage.StatusOK
	record.CountyData = county
	logger.Info().Str("county", county.CountyName).Str("fips", county.FIPSCode).Msg("resolved county")

	if history, err := s.deps.Precipitation.HistoryByCounty(ctx, county.FIPSCode); err != nil {
		logger.Warn().Err(err).Msg("precipitation history unavailable")
	} else {
		record.PrecipitationHistory = history
	}

	if events, err := s.deps.FloodEvents.HistoryNear(ctx, county.FIPSCode, loc.Latitude, loc.Longitude); err != nil {
		logger.Warn().Err(err).Msg("flood event history unavailable")
	} else {
		s.annotateAddresses(ctx, events)
		record.FloodEventHistory = events
	}

	svi, err := s.deps.SVI.ByCounty(ctx, county.FIPSCode, s.deps.SVIReleaseYear)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Err(err).Msg("svi lookup failed")
		}
	} else {
		record.SocialVulnerability = svi
	}

	return record
}

// annotateAddresses reverse-geocodes each event's coordinates to its
// nearest street address. Lookup failures leave the address empty.
func (s *Service) annotateAddresses(ctx context.Context, events []storage.FloodEvent) {
	if s.deps.Geocoder == nil {
		return
	}
	for i := range events {
		loc := events[i].Location
		if loc.Latitude == 0 && loc.Longitude == 0 {
			continue
		}
		result, err := s.deps.Geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			if !errors.Is(err, maps.ErrNoResults) {
				s.logger.Warn().Err(err).Msg("reverse geocode failed for flood event")
			}
			continue
		}
		events[i].NearestAddress = result.FormattedAddress
	}
}
