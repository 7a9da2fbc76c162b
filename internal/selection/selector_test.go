package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaizhakyp/floodwise/internal/observability"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

func newTestSelector(completer *fakeCompleter, emb *stubEmbedder) *Selector {
	classifier := NewIntentClassifier(completer, observability.Nop(), nil)
	sviFilter := NewSVIFilter(emb, "", observability.Nop(), nil)
	return NewSelector(classifier, sviFilter, observability.Nop())
}

func fullLocationRecord() storage.LocationRecord {
	national := 77.0
	poverty := 88.0
	return storage.LocationRecord{
		InputLocation: storage.InputLocation{
			Name:             "Tuscaloosa, AL",
			FormattedAddress: "Tuscaloosa, AL, USA",
			Latitude:         33.2098,
			Longitude:        -87.5692,
		},
		Status: storage.StatusOK,
		CountyData: &storage.CountyData{
			FIPSCode:   "01125",
			CountyName: "Tuscaloosa",
			StateName:  "Alabama",
			AreaSqMi:   1335.0,
		},
		PrecipitationHistory: []storage.PrecipitationMonth{
			{Year: 2024, Month: 3, PrecipitationIn: 5.2},
		},
		PrecipitationForecast: []storage.ForecastHour{
			{Time: "2026-08-30T15:00:00Z", PrecipitationProbability: 40, PrecipitationAmountMM: 2.5, PrecipitationAmountIn: 0.0984},
		},
		FloodEventHistory: []storage.FloodEvent{
			{Type: "Flash Flood", DistanceMiles: floatPtr(1)},
			{Type: "Flash Flood", DistanceMiles: floatPtr(3)},
			{Type: "Flood", DistanceMiles: floatPtr(7)},
			{Type: "Flash Flood", DistanceMiles: floatPtr(2)},
		},
		SocialVulnerability: &storage.SVIData{
			ReleaseYear:    2022,
			OverallRanking: storage.OverallRanking{National: &national},
			Variables: map[string]map[string]*float64{
				"Socioeconomic Status": {"Below Poverty": &poverty},
			},
		},
	}
}

const allNeedsIntentJSON = `{
	"needs_precipitation_forecast": true,
	"needs_precipitation_history": true,
	"needs_flood_history": true,
	"needs_svi_data": true,
	"needs_county_info": true,
	"flood_event_filters": {
		"max_events": 2,
		"max_distance_miles": 5,
		"recent_only": false
	},
	"svi_relevance_threshold": 0.3
}`

func TestSelector_FullAndDegradedLocations(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"flood risk near me": {1, 0},
		"Below Poverty":      vecWithSimilarity(0.9),
	}}
	selector := newTestSelector(&fakeCompleter{content: allNeedsIntentJSON}, emb)

	degraded := storage.LocationRecord{
		InputLocation: storage.InputLocation{Name: "somewhere offshore", Latitude: 28.0, Longitude: -88.0},
		Status:        storage.StatusMissingCoordinates,
		PrecipitationForecast: []storage.ForecastHour{
			{Time: "2026-08-30T15:00:00Z", PrecipitationProbability: 10},
		},
	}
	locations := []storage.LocationRecord{fullLocationRecord(), degraded}

	sel := selector.Select(context.Background(), locations, "flood risk near me")

	require.NotNil(t, sel)
	assert.Equal(t, "flood risk near me", sel.Query)
	require.Len(t, sel.FilteredData, 2)

	full := sel.FilteredData[0]
	assert.Equal(t, "Tuscaloosa, AL", full.InputLocation.Name)
	assert.NotNil(t, full.CountyData)
	assert.Len(t, full.PrecipitationHistory, 1)
	assert.Len(t, full.PrecipitationForecast, 1)
	// Flood events: within 5 mi leaves {1, 3, 2}; max_events 2 keeps [1, 3].
	require.Len(t, full.FloodEventHistory, 2)
	assert.Equal(t, 1.0, *full.FloodEventHistory[0].DistanceMiles)
	assert.Equal(t, 3.0, *full.FloodEventHistory[1].DistanceMiles)
	require.NotNil(t, full.SocialVulnerability)
	assert.Contains(t, full.SocialVulnerability.Variables["Socioeconomic Status"], "Below Poverty")

	// The degraded location keeps only its identity, status, and forecast.
	got := sel.FilteredData[1]
	assert.Equal(t, storage.StatusMissingCoordinates, got.Status)
	assert.Len(t, got.PrecipitationForecast, 1)
	assert.Nil(t, got.CountyData)
	assert.Empty(t, got.PrecipitationHistory)
	assert.Empty(t, got.FloodEventHistory)
	assert.Nil(t, got.SocialVulnerability)
}

func TestSelector_FailedStatusExcludesCountyBoundData(t *testing.T) {
	selector := newTestSelector(&fakeCompleter{content: allNeedsIntentJSON}, &stubEmbedder{})

	loc := fullLocationRecord()
	loc.Status = storage.StatusNoCountyFound

	sel := selector.Select(context.Background(), []storage.LocationRecord{loc}, "flood history here")

	require.Len(t, sel.FilteredData, 1)
	got := sel.FilteredData[0]
	assert.Empty(t, got.FloodEventHistory)
	assert.Nil(t, got.CountyData)
	assert.Empty(t, got.PrecipitationHistory)
	assert.Nil(t, got.SocialVulnerability)
	// Forecast is independent of county resolution.
	assert.Len(t, got.PrecipitationForecast, 1)
}

func TestSelector_SkipsMalformedRecords(t *testing.T) {
	selector := newTestSelector(&fakeCompleter{content: allNeedsIntentJSON}, &stubEmbedder{empty: true})

	locations := []storage.LocationRecord{
		{}, // no input location
		fullLocationRecord(),
	}

	sel := selector.Select(context.Background(), locations, "q")

	require.Len(t, sel.FilteredData, 1)
	assert.Equal(t, "Tuscaloosa, AL", sel.FilteredData[0].InputLocation.Name)
}

func TestSelector_NeedsFlagsGateCategories(t *testing.T) {
	selector := newTestSelector(&fakeCompleter{content: `{
		"needs_precipitation_forecast": false,
		"needs_precipitation_history": false,
		"needs_flood_history": true,
		"needs_svi_data": false,
		"needs_county_info": false,
		"flood_event_filters": {"max_events": null, "max_distance_miles": null, "recent_only": false}
	}`}, &stubEmbedder{})

	sel := selector.Select(context.Background(), []storage.LocationRecord{fullLocationRecord()}, "q")

	require.Len(t, sel.FilteredData, 1)
	got := sel.FilteredData[0]
	assert.Len(t, got.FloodEventHistory, 4)
	assert.Nil(t, got.CountyData)
	assert.Empty(t, got.PrecipitationHistory)
	assert.Empty(t, got.PrecipitationForecast)
	assert.Nil(t, got.SocialVulnerability)
}

func TestSelector_ClassifierFallbackIncludesEverything(t *testing.T) {
	emb := &stubEmbedder{empty: true} // SVI filter fails open too
	selector := newTestSelector(&fakeCompleter{content: "not json"}, emb)

	sel := selector.Select(context.Background(), []storage.LocationRecord{fullLocationRecord()}, "q")

	assert.Equal(t, DefaultIntent(), sel.Intent)
	require.Len(t, sel.FilteredData, 1)
	got := sel.FilteredData[0]
	assert.NotNil(t, got.CountyData)
	assert.NotEmpty(t, got.FloodEventHistory)
	assert.NotNil(t, got.SocialVulnerability)
}

func TestSelector_EmptyInput(t *testing.T) {
	selector := newTestSelector(&fakeCompleter{content: allNeedsIntentJSON}, &stubEmbedder{})

	sel := selector.Select(context.Background(), nil, "q")

	require.NotNil(t, sel)
	assert.Empty(t, sel.FilteredData)
	assert.NotNil(t, sel.Intent)
}
