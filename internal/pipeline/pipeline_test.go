package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaizhakyp/floodwise/internal/llm"
	"github.com/mbaizhakyp/floodwise/internal/maps"
	"github.com/mbaizhakyp/floodwise/internal/observability"
	"github.com/mbaizhakyp/floodwise/internal/selection"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

// promptCompleter routes canned responses by system prompt, so one fake
// can serve the extraction and answer stages.
type promptCompleter struct {
	bySystem map[string]string
	err      map[string]error
}

func (f *promptCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if err := f.err[req.System]; err != nil {
		return "", err
	}
	if content, ok := f.bySystem[req.System]; ok {
		return content, nil
	}
	return "", errors.New("unexpected prompt")
}

type fakeGeocoder struct {
	results map[string]maps.GeocodeResult
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (maps.GeocodeResult, error) {
	if r, ok := f.results[address]; ok {
		return r, nil
	}
	return maps.GeocodeResult{}, maps.ErrNoResults
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (maps.GeocodeResult, error) {
	return maps.GeocodeResult{}, maps.ErrNoResults
}

type fakeRetriever struct {
	hours int
}

func (f *fakeRetriever) Enrich(ctx context.Context, locations []storage.InputLocation, forecastHours int) []storage.LocationRecord {
	f.hours = forecastHours
	records := make([]storage.LocationRecord, 0, len(locations))
	for _, loc := range locations {
		records = append(records, storage.LocationRecord{InputLocation: loc, Status: storage.StatusOK})
	}
	return records
}

type fakeSelector struct{}

func (fakeSelector) Select(ctx context.Context, locations []storage.LocationRecord, query string) *selection.Selection {
	return &selection.Selection{
		Query:        query,
		Intent:       selection.DefaultIntent(),
		FilteredData: locations,
	}
}

func testDeps(completer llm.Completer) (Deps, *fakeRetriever) {
	retriever := &fakeRetriever{}
	return Deps{
		Extractor: NewExtractor(completer, observability.Nop()),
		Geocoder: &fakeGeocoder{results: map[string]maps.GeocodeResult{
			"Tuscaloosa, AL": {FormattedAddress: "Tuscaloosa, AL, USA", Latitude: 33.2098, Longitude: -87.5692},
		}},
		Retriever:            retriever,
		Selector:             fakeSelector{},
		Completer:            completer,
		DefaultForecastHours: 24,
		Logger:               observability.Nop(),
	}, retriever
}

func happyCompleter() *promptCompleter {
	return &promptCompleter{
		bySystem: map[string]string{
			locationSystemPrompt: `{"result": ["Tuscaloosa, AL"]}`,
			hoursSystemPrompt:    `{"requested": true, "hours": 6}`,
			answerSystemPrompt:   "Tuscaloosa has seen 14 flood events since 1996.",
		},
	}
}

func TestPipeline_Run(t *testing.T) {
	completer := happyCompleter()
	deps, retriever := testDeps(completer)
	p := New(deps)

	result, err := p.Run(context.Background(), "What is the flood history in Tuscaloosa, AL?")
	require.NoError(t, err)

	assert.NotEmpty(t, result.QueryID)
	assert.Equal(t, "What is the flood history in Tuscaloosa, AL?", result.Query)
	assert.Equal(t, 6, result.ForecastHours)
	assert.Equal(t, 6, retriever.hours)
	assert.Equal(t, "Tuscaloosa has seen 14 flood events since 1996.", result.Answer)
	require.NotNil(t, result.FilteredContext)
	require.Len(t, result.FilteredContext.FilteredData, 1)
	assert.Equal(t, "Tuscaloosa, AL", result.FilteredContext.FilteredData[0].InputLocation.Name)
	assert.Empty(t, result.Warnings)
}

func TestPipeline_Run_EmptyQuery(t *testing.T) {
	deps, _ := testDeps(happyCompleter())
	p := New(deps)

	_, err := p.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestPipeline_Run_NoLocationsExtracted(t *testing.T) {
	completer := happyCompleter()
	completer.bySystem[locationSystemPrompt] = `{"result": []}`
	deps, _ := testDeps(completer)
	p := New(deps)

	_, err := p.Run(context.Background(), "tell me about flooding in general")
	assert.ErrorIs(t, err, ErrNoLocations)
}

func TestPipeline_Run_AllGeocodesFail(t *testing.T) {
	completer := happyCompleter()
	completer.bySystem[locationSystemPrompt] = `{"result": ["Atlantis"]}`
	deps, _ := testDeps(completer)
	p := New(deps)

	_, err := p.Run(context.Background(), "flood history of Atlantis")
	assert.ErrorIs(t, err, ErrNoLocations)
}

func TestPipeline_Run_HoursExtractionFailureSkipsForecast(t *testing.T) {
	completer := happyCompleter()
	completer.err = map[string]error{hoursSystemPrompt: errors.New("upstream timeout")}
	deps, retriever := testDeps(completer)
	p := New(deps)

	result, err := p.Run(context.Background(), "flood history in Tuscaloosa, AL")
	require.NoError(t, err)

	assert.Equal(t, 0, result.ForecastHours)
	assert.Equal(t, 0, retriever.hours)
}

func TestPipeline_Run_AnswerFailureBecomesWarning(t *testing.T) {
	completer := happyCompleter()
	completer.err = map[string]error{answerSystemPrompt: errors.New("model overloaded")}
	deps, _ := testDeps(completer)
	p := New(deps)

	result, err := p.Run(context.Background(), "flood history in Tuscaloosa, AL")
	require.NoError(t, err)

	assert.Empty(t, result.Answer)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "answer generation failed")
	assert.NotNil(t, result.FilteredContext)
}

func TestExtractor_ForecastHours(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     int
	}{
		{"explicit hours", `{"requested": true, "hours": 48}`, 48},
		{"requested without hours", `{"requested": true, "hours": null}`, 24},
		{"not requested", `{"requested": false, "hours": 0}`, 0},
		{"malformed", `nope`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &promptCompleter{bySystem: map[string]string{hoursSystemPrompt: tt.response}}
			e := NewExtractor(completer, observability.Nop())

			assert.Equal(t, tt.want, e.ForecastHours(context.Background(), "q", 24))
		})
	}
}

func TestExtractor_Locations_TrimsAndDropsEmpty(t *testing.T) {
	completer := &promptCompleter{bySystem: map[string]string{
		locationSystemPrompt: `{"result": ["  Tuscaloosa, AL ", "", "Rome"]}`,
	}}
	e := NewExtractor(completer, observability.Nop())

	locations, err := e.Locations(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, []string{"Tuscaloosa, AL", "Rome"}, locations)
}
