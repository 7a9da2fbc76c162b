package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mbaizhakyp/floodwise/internal/llm"
	"github.com/mbaizhakyp/floodwise/internal/observability"
)

const locationSystemPrompt = "You are a helpful and precise location extraction assistant that consolidates location information."

const locationPromptTemplate = `You are an expert geographer at identifying and consolidating location information from text.
Your task is to extract locations and combine them into the most specific strings possible
for geocoding. If a specific place (like a building, park, or address) is mentioned
with its city or region, you MUST combine them into a single string. Do not split
a single conceptual place into multiple parts.

Your answer MUST be a JSON object with a single key named "result", which contains an
array of the final location strings.

Example 1:
- User query: 'What is the weather forecast for the area around the Northeast Medical Building in Tuscaloosa?'
- Correct output: {"result": ["Northeast Medical Building, Tuscaloosa"]}

Example 2:
- User query: 'I want to know the elevation of the Eiffel Tower and the weather in Rome.'
- Correct output: {"result": ["Eiffel Tower, Paris", "Rome"]}

Now, process the following query:
User query: '%s'`

const hoursSystemPrompt = "You are a helpful assistant that analyzes weather and precipitation queries."

const hoursPromptTemplate = `You are an expert at analyzing user queries to determine if they are requesting
precipitation or rainfall forecast/prediction data.

Analyze the following query and determine:
1. Does the user want precipitation forecast/prediction data? (yes/no)
2. If yes, how many hours into the future? (extract the number)

Your answer MUST be a JSON object with these keys:
- "requested": boolean (true if precipitation forecast is requested, false otherwise)
- "hours": integer or null (number of hours if specified, null if not specified but requested, 0 if not requested)

Examples:
- "What will the rainfall be like in the next 2 hours in Tuscaloosa?"
  -> {"requested": true, "hours": 2}

- "Will it rain tomorrow in Birmingham?"
  -> {"requested": true, "hours": 24}

- "What is the flood history at this address?"
  -> {"requested": false, "hours": 0}

User query: '%s'`

// Extractor runs the LLM pre-processing stages: pulling geocodable location
// strings out of a query and detecting a forecast-window request.
type Extractor struct {
	completer llm.Completer
	logger    *observability.Logger
}

// NewExtractor creates a new query extractor.
func NewExtractor(completer llm.Completer, logger *observability.Logger) *Extractor {
	return &Extractor{
		completer: completer,
		logger:    logger.WithComponent("extractor"),
	}
}

// Locations extracts consolidated location strings from the query.
// An empty slice with a nil error means the query named no locations.
func (e *Extractor) Locations(ctx context.Context, query string) ([]string, error) {
	content, err := e.completer.Complete(ctx, llm.CompletionRequest{
		System:   locationSystemPrompt,
		User:     fmt.Sprintf(locationPromptTemplate, query),
		JSONMode: true,
	})
	if err != nil {
		return nil, fmt.Errorf("extract locations: %w", err)
	}

	var parsed struct {
		Result []string `json:"result"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("extract locations: decode response: %w", err)
	}

	locations := make([]string, 0, len(parsed.Result))
	for _, name := range parsed.Result {
		if name = strings.TrimSpace(name); name != "" {
			locations = append(locations, name)
		}
	}

	e.logger.Info().Strs("locations", locations).Msg("extracted locations from query")
	return locations, nil
}

// ForecastHours returns the requested forecast window in hours, or 0 when
// the query does not ask for a forecast. A request without an explicit
// window falls back to defaultHours. Failures degrade to 0: the pipeline
// proceeds without a forecast rather than aborting.
func (e *Extractor) ForecastHours(ctx context.Context, query string, defaultHours int) int {
	content, err := e.completer.Complete(ctx, llm.CompletionRequest{
		System:   hoursSystemPrompt,
		User:     fmt.Sprintf(hoursPromptTemplate, query),
		JSONMode: true,
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("forecast window extraction failed, skipping forecast")
		return 0
	}

	var parsed struct {
		Requested bool `json:"requested"`
		Hours     *int `json:"hours"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		e.logger.Warn().Err(err).Msg("forecast window response was not valid JSON, skipping forecast")
		return 0
	}

	if !parsed.Requested {
		return 0
	}
	if parsed.Hours == nil || *parsed.Hours <= 0 {
		return defaultHours
	}
	return *parsed.Hours
}
