package selection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mbaizhakyp/floodwise/internal/llm"
	"github.com/mbaizhakyp/floodwise/internal/observability"
)

// Intent describes which data categories a query needs and how to filter
// them. Created fresh per query and never mutated afterwards.
type Intent struct {
	NeedsPrecipitationForecast bool              `json:"needs_precipitation_forecast"`
	NeedsPrecipitationHistory  bool              `json:"needs_precipitation_history"`
	NeedsFloodHistory          bool              `json:"needs_flood_history"`
	NeedsSVIData               bool              `json:"needs_svi_data"`
	NeedsCountyInfo            bool              `json:"needs_county_info"`
	FloodEventFilters          FloodEventFilters `json:"flood_event_filters"`
	SVIRelevanceThreshold      float64           `json:"svi_relevance_threshold"`
}

// FloodEventFilters holds the flood-event narrowing parameters. Nil means
// "no cap". RecentOnly is accepted by the schema but currently has no
// filtering behavior (see DESIGN.md).
type FloodEventFilters struct {
	MaxEvents        *int     `json:"max_events"`
	MaxDistanceMiles *float64 `json:"max_distance_miles"`
	RecentOnly       bool     `json:"recent_only"`
}

// DefaultIntent returns the fallback intent: include every category, cap
// flood events at 10, SVI threshold 0.3. It validates against the same
// schema required of classifier output.
func DefaultIntent() *Intent {
	maxEvents := 10
	return &Intent{
		NeedsPrecipitationForecast: true,
		NeedsPrecipitationHistory:  true,
		NeedsFloodHistory:          true,
		NeedsSVIData:               true,
		NeedsCountyInfo:            true,
		FloodEventFilters: FloodEventFilters{
			MaxEvents: &maxEvents,
		},
		SVIRelevanceThreshold: 0.3,
	}
}

var requiredIntentKeys = []string{
	"needs_precipitation_forecast",
	"needs_precipitation_history",
	"needs_flood_history",
	"needs_svi_data",
	"needs_county_info",
	"flood_event_filters",
}

var requiredFilterKeys = []string{
	"max_events",
	"max_distance_miles",
	"recent_only",
}

// ParseIntent parses and validates classifier output against the intent
// schema. All six required top-level keys and the flood_event_filters
// sub-keys must be present; svi_relevance_threshold defaults to 0.3 when
// omitted and must lie in [0, 1] otherwise.
func ParseIntent(data []byte) (*Intent, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("intent is not a JSON object: %w", err)
	}

	for _, key := range requiredIntentKeys {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("intent missing required key %q", key)
		}
	}

	var rawFilters map[string]json.RawMessage
	if err := json.Unmarshal(raw["flood_event_filters"], &rawFilters); err != nil {
		return nil, fmt.Errorf("flood_event_filters is not a JSON object: %w", err)
	}
	for _, key := range requiredFilterKeys {
		if _, ok := rawFilters[key]; !ok {
			return nil, fmt.Errorf("flood_event_filters missing required key %q", key)
		}
	}

	intent := &Intent{SVIRelevanceThreshold: 0.3}
	if err := json.Unmarshal(data, intent); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}

	if err := intent.Validate(); err != nil {
		return nil, err
	}
	return intent, nil
}

// Validate checks the intent's filter parameters for sane ranges.
func (i *Intent) Validate() error {
	if i.SVIRelevanceThreshold < 0 || i.SVIRelevanceThreshold > 1 {
		return fmt.Errorf("svi_relevance_threshold %v outside [0, 1]", i.SVIRelevanceThreshold)
	}
	if i.FloodEventFilters.MaxEvents != nil && *i.FloodEventFilters.MaxEvents < 0 {
		return fmt.Errorf("max_events must not be negative")
	}
	if i.FloodEventFilters.MaxDistanceMiles != nil && *i.FloodEventFilters.MaxDistanceMiles < 0 {
		return fmt.Errorf("max_distance_miles must not be negative")
	}
	return nil
}

// IntentClassifier analyzes a query to determine which data categories it
// needs. It is backed by a chat-completion service; any failure there is
// recovered locally with DefaultIntent so callers never see an error.
type IntentClassifier struct {
	completer llm.Completer
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewIntentClassifier creates a new intent classifier. metrics may be nil.
func NewIntentClassifier(completer llm.Completer, logger *observability.Logger, metrics *observability.Metrics) *IntentClassifier {
	return &IntentClassifier{
		completer: completer,
		logger:    logger.WithComponent("intent_classifier"),
		metrics:   metrics,
	}
}

const intentSystemPrompt = "You are an expert at analyzing data requirements for flood-related queries."

const intentPromptTemplate = `You are an expert at analyzing flood-related queries to determine what information is needed.

Context: The user has access to the following data types:
1. Precipitation forecast (future rainfall predictions)
2. Precipitation history (past monthly rainfall data)
3. Flood event history (historical flood occurrences with locations and dates)
4. Social Vulnerability Index (SVI) - demographic and socioeconomic risk factors
5. County information (basic geographic data)

Social Vulnerability Index includes 16 variables grouped into 4 themes:
- Socioeconomic Status (poverty, unemployment, housing cost, education, insurance)
- Household Characteristics (age groups, disabilities, single parents, language)
- Racial & Ethnic Minority Status
- Housing Type & Transportation (multi-unit, mobile homes, crowding, vehicles, group quarters)

Analyze this query and determine what data is needed:
Query: %q

Return a JSON object with these fields:
{
    "needs_precipitation_forecast": boolean,
    "needs_precipitation_history": boolean,
    "needs_flood_history": boolean,
    "needs_svi_data": boolean,
    "needs_county_info": boolean,
    "flood_event_filters": {
        "max_events": integer (suggest 5-20, or null for all),
        "max_distance_miles": float (suggest radius, or null for all),
        "recent_only": boolean (true if query mentions "recent" or a time period)
    },
    "svi_relevance_threshold": float (0.0-1.0, higher means more selective)
}

Guidelines:
- If the query asks about "why" or "vulnerability", set needs_svi_data to true
- If the query is about future weather/rain, needs_precipitation_forecast is true
- If the query is about past flooding, needs_flood_history is true
- If the query mentions demographics, poverty, housing, etc., needs_svi_data is true
- For specific questions use stricter filters; for exploratory questions be more inclusive`

// Classify maps a free-text query to an Intent. It never fails: when the
// generation call errors, times out, or returns an incomplete record, the
// fixed default intent is returned and the failure is logged as a warning.
func (c *IntentClassifier) Classify(ctx context.Context, query string) *Intent {
	content, err := c.completer.Complete(ctx, llm.CompletionRequest{
		System:   intentSystemPrompt,
		User:     fmt.Sprintf(intentPromptTemplate, query),
		JSONMode: true,
	})
	if err != nil {
		c.fallback(err, "intent classification call failed")
		return DefaultIntent()
	}

	intent, err := ParseIntent([]byte(content))
	if err != nil {
		c.fallback(err, "intent classification returned invalid record")
		return DefaultIntent()
	}

	c.logger.Debug().
		Bool("forecast", intent.NeedsPrecipitationForecast).
		Bool("history", intent.NeedsPrecipitationHistory).
		Bool("flood", intent.NeedsFloodHistory).
		Bool("svi", intent.NeedsSVIData).
		Bool("county", intent.NeedsCountyInfo).
		Float64("svi_threshold", intent.SVIRelevanceThreshold).
		Msg("classified query intent")

	return intent
}

func (c *IntentClassifier) fallback(err error, msg string) {
	c.logger.Warn().Err(err).Msg(msg + ", using default intent")
	if c.metrics != nil {
		c.metrics.CollaboratorFailures.WithLabelValues("classifier").Inc()
	}
}
