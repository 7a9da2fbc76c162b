package selection

import (
	"context"

	"github.com/mbaizhakyp/floodwise/internal/observability"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

// Selection is the output of context selection, consumed by the
// answer-generation collaborator and the report renderers.
type Selection struct {
	Query        string                   `json:"query"`
	Intent       *Intent                  `json:"intent_analysis"`
	FilteredData []storage.LocationRecord `json:"filtered_data"`
}

// Selector orchestrates context selection across locations. It classifies
// the query intent, then dispatches each data category through its filter.
// Collaborator failures degrade gracefully; Select never returns an error
// for a well-formed location sequence.
type Selector struct {
	classifier *IntentClassifier
	sviFilter  *SVIFilter
	logger     *observability.Logger
}

// NewSelector creates a new context selector.
func NewSelector(classifier *IntentClassifier, sviFilter *SVIFilter, logger *observability.Logger) *Selector {
	return &Selector{
		classifier: classifier,
		sviFilter:  sviFilter,
		logger:     logger.WithComponent("selector"),
	}
}

// Select assembles the filtered record set for the query. Output entries
// correspond 1:1 to input entries in the original order; only malformed
// records (no input location) are skipped, with a warning.
func (s *Selector) Select(ctx context.Context, locations []storage.LocationRecord, query string) *Selection {
	intent := s.classifier.Classify(ctx, query)

	filtered := make([]storage.LocationRecord, 0, len(locations))
	for i := range locations {
		loc := &locations[i]
		if !loc.HasInputLocation() {
			s.logger.Warn().Int("index", i).Msg("skipping location record without input location")
			continue
		}
		filtered = append(filtered, s.selectLocation(ctx, loc, intent, query))
	}

	return &Selection{
		Query:        query,
		Intent:       intent,
		FilteredData: filtered,
	}
}

func (s *Selector) selectLocation(ctx context.Context, loc *storage.LocationRecord, intent *Intent, query string) storage.LocationRecord {
	out := storage.LocationRecord{InputLocation: loc.InputLocation}

	if loc.Status.Failed() {
		// Enrichment failed upstream; nothing to filter except the
		// forecast, which does not depend on county resolution.
		out.Status = loc.Status
		if intent.NeedsPrecipitationForecast && len(loc.PrecipitationForecast) > 0 {
			out.PrecipitationForecast = loc.PrecipitationForecast
		}
		return out
	}
	out.Status = loc.Status

	if intent.NeedsCountyInfo && loc.CountyData != nil {
		out.CountyData = loc.CountyData
	}

	if intent.NeedsPrecipitationHistory && len(loc.PrecipitationHistory) > 0 {
		out.PrecipitationHistory = loc.PrecipitationHistory
	}

	if intent.NeedsPrecipitationForecast && len(loc.PrecipitationForecast) > 0 {
		out.PrecipitationForecast = loc.PrecipitationForecast
	}

	if intent.NeedsFloodHistory && len(loc.FloodEventHistory) > 0 {
		events := FilterFloodEvents(loc.FloodEventHistory, intent.FloodEventFilters)
		if len(events) > 0 {
			out.FloodEventHistory = events
		}
	}

	if intent.NeedsSVIData && loc.SocialVulnerability != nil {
		svi := s.sviFilter.Filter(ctx, loc.SocialVulnerability, query, intent.SVIRelevanceThreshold)
		if svi.HasContent() {
			out.SocialVulnerability = svi
		}
	}

	return out
}
