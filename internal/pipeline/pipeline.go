// Package pipeline chains query understanding, geocoding, retrieval,
// context selection, and answer generation into one end-to-end run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbaizhakyp/floodwise/internal/llm"
	"github.com/mbaizhakyp/floodwise/internal/maps"
	"github.com/mbaizhakyp/floodwise/internal/observability"
	"github.com/mbaizhakyp/floodwise/internal/selection"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

// Typed pipeline failures. Anything else that goes wrong inside a stage
// degrades the result instead of aborting the run.
var (
	ErrEmptyQuery  = errors.New("pipeline: empty query")
	ErrNoLocations = errors.New("pipeline: no geocodable locations in query")
)

// Retriever enriches geocoded locations with flood context.
type Retriever interface {
	Enrich(ctx context.Context, locations []storage.InputLocation, forecastHours int) []storage.LocationRecord
}

// ContextSelector narrows enriched records to what the query needs.
type ContextSelector interface {
	Select(ctx context.Context, locations []storage.LocationRecord, query string) *selection.Selection
}

// Result is the output of one pipeline run.
type Result struct {
	QueryID         string                   `json:"query_id"`
	Query           string                   `json:"query"`
	GeneratedAt     time.Time                `json:"generated_at"`
	ForecastHours   int                      `json:"forecast_hours,omitempty"`
	Answer          string                   `json:"answer,omitempty"`
	FilteredContext *selection.Selection     `json:"filtered_context"`
	RetrievalData   []storage.LocationRecord `json:"retrieval_data,omitempty"`
	Warnings        []string                 `json:"warnings,omitempty"`
}

// Deps collects the pipeline's collaborators.
type Deps struct {
	Extractor            *Extractor
	Geocoder             maps.Geocoder
	Retriever            Retriever
	Selector             ContextSelector
	Completer            llm.Completer
	DefaultForecastHours int
	Logger               *observability.Logger
	Metrics              *observability.Metrics
}

// Pipeline runs flood-information queries end to end.
type Pipeline struct {
	deps   Deps
	logger *observability.Logger
}

// New creates a new pipeline. Metrics may be nil.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		deps:   deps,
		logger: deps.Logger.WithComponent("pipeline"),
	}
}

// Run executes the full pipeline for one query. Collaborator failures after
// geocoding degrade the result (missing categories, warnings); the only
// hard failures are an empty query, an unreachable extraction call, and a
// query with no geocodable locations.
func (p *Pipeline) Run(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		p.countQuery("empty_query")
		return nil, ErrEmptyQuery
	}

	queryID := uuid.NewString()
	logger := p.logger.WithQuery(queryID)
	logger.Info().Str("query", query).Msg("pipeline run started")

	start := time.Now()

	hours := p.timedHours(ctx, query)

	names, err := p.extractLocations(ctx, query)
	if err != nil {
		p.countQuery("extract_failed")
		return nil, err
	}
	if len(names) == 0 {
		p.countQuery("no_locations")
		return nil, ErrNoLocations
	}

	locations := p.geocodeAll(ctx, logger, names)
	if len(locations) == 0 {
		p.countQuery("no_locations")
		return nil, fmt.Errorf("%w: none of %d extracted locations geocoded", ErrNoLocations, len(names))
	}

	records := p.retrieve(ctx, locations, hours)
	sel := p.selectContext(ctx, records, query)

	result := &Result{
		QueryID:         queryID,
		Query:           query,
		GeneratedAt:     time.Now().UTC(),
		ForecastHours:   hours,
		FilteredContext: sel,
		RetrievalData:   records,
	}

	answer, err := p.timedAnswer(ctx, sel)
	if err != nil {
		logger.Warn().Err(err).Msg("answer generation failed")
		result.Warnings = append(result.Warnings, "answer generation failed: "+err.Error())
	} else {
		result.Answer = answer
	}

	p.countQuery("ok")
	logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("locations", len(result.FilteredContext.FilteredData)).
		Msg("pipeline run finished")
	return result, nil
}

func (p *Pipeline) timedHours(ctx context.Context, query string) int {
	defer p.observeStage("extract_hours", time.Now())
	return p.deps.Extractor.ForecastHours(ctx, query, p.deps.DefaultForecastHours)
}

func (p *Pipeline) extractLocations(ctx context.Context, query string) ([]string, error) {
	defer p.observeStage("extract_locations", time.Now())
	return p.deps.Extractor.Locations(ctx, query)
}

func (p *Pipeline) geocodeAll(ctx context.Context, logger *observability.Logger, names []string) []storage.InputLocation {
	defer p.observeStage("geocode", time.Now())

	locations := make([]storage.InputLocation, 0, len(names))
	for _, name := range names {
		result, err := p.deps.Geocoder.Geocode(ctx, name)
		if err != nil {
			logger.Warn().Err(err).Str("location", name).Msg("geocoding failed, skipping location")
			continue
		}
		locations = append(locations, storage.InputLocation{
			Name:             name,
			FormattedAddress: result.FormattedAddress,
			Latitude:         result.Latitude,
			Longitude:        result.Longitude,
		})
	}
	return locations
}

func (p *Pipeline) retrieve(ctx context.Context, locations []storage.InputLocation, hours int) []storage.LocationRecord {
	defer p.observeStage("retrieve", time.Now())
	return p.deps.Retriever.Enrich(ctx, locations, hours)
}

func (p *Pipeline) selectContext(ctx context.Context, records []storage.LocationRecord, query string) *selection.Selection {
	defer p.observeStage("select", time.Now())
	return p.deps.Selector.Select(ctx, records, query)
}

func (p *Pipeline) timedAnswer(ctx context.Context, sel *selection.Selection) (string, error) {
	defer p.observeStage("answer", time.Now())
	return generateAnswer(ctx, p.deps.Completer, sel)
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (p *Pipeline) countQuery(outcome string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}
