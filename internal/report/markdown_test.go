package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaizhakyp/floodwise/internal/pipeline"
	"github.com/mbaizhakyp/floodwise/internal/selection"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

func sampleResult() *pipeline.Result {
	distance := 1.45
	national := 82.5
	poverty := 90.0
	return &pipeline.Result{
		QueryID:     "7cf1e3a0-0000-0000-0000-000000000000",
		Query:       "What is the flood history in Tuscaloosa?",
		GeneratedAt: time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC),
		Answer:      "Tuscaloosa County has recorded 14 flood events since 1996.",
		FilteredContext: &selection.Selection{
			Query:  "What is the flood history in Tuscaloosa?",
			Intent: selection.DefaultIntent(),
			FilteredData: []storage.LocationRecord{{
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
					AreaSqMi:   1335.02,
				},
				PrecipitationHistory: []storage.PrecipitationMonth{
					{Year: 2024, Month: 1, PrecipitationIn: 4.10},
					{Year: 2024, Month: 2, PrecipitationIn: 5.33},
				},
				PrecipitationForecast: []storage.ForecastHour{
					{Time: "2026-08-30T15:00:00Z", PrecipitationProbability: 25, PrecipitationAmountIn: 0.2, WeatherCondition: "RAIN"},
				},
				FloodEventHistory: []storage.FloodEvent{
					{Type: "Flash Flood", Date: "2021-04-10T00:00:00Z", DistanceMiles: &distance, WarningZone: "ALC125", NearestAddress: "456 Bridge Ave, Tuscaloosa, AL"},
				},
				SocialVulnerability: &storage.SVIData{
					ReleaseYear:    2022,
					OverallRanking: storage.OverallRanking{National: &national},
					Variables: map[string]map[string]*float64{
						"Socioeconomic Status": {"Below Poverty": &poverty},
					},
				},
			}},
		},
	}
}

func TestMarkdown_ContainsAllSections(t *testing.T) {
	md := Markdown(sampleResult())

	assert.Contains(t, md, "# Flood Information Report")
	assert.Contains(t, md, "What is the flood history in Tuscaloosa?")
	assert.Contains(t, md, "Tuscaloosa County has recorded 14 flood events since 1996.")
	assert.Contains(t, md, "## Location: Tuscaloosa, AL")
	assert.Contains(t, md, "| **FIPS Code** | 01125 |")
	assert.Contains(t, md, "Historical Flood Events (1 events)")
	assert.Contains(t, md, "| 2021-04-10T00:00:00Z | Flash Flood | 1.45 | ALC125 |")
	assert.Contains(t, md, "Social Vulnerability Index (SVI 2022)")
	assert.Contains(t, md, "| **National** | 82.50 |")
	assert.Contains(t, md, "| Socioeconomic Status | Below Poverty | 90.00 |")
	assert.Contains(t, md, "Precipitation Forecast (1 hours)")
	assert.Contains(t, md, "| 15:00 | 25.0% | 0.20 | RAIN |")
	assert.Contains(t, md, "| 2024-02 | 5.33 |")
	assert.Contains(t, md, "### Data Selection Criteria")
	assert.Contains(t, md, "### Disclaimer")
}

func TestMarkdown_NoAnswerPlaceholder(t *testing.T) {
	result := sampleResult()
	result.Answer = ""

	md := Markdown(result)
	assert.Contains(t, md, "No answer generated.")
}

func TestMarkdown_FailedLocationShowsStatus(t *testing.T) {
	result := sampleResult()
	result.FilteredContext.FilteredData = []storage.LocationRecord{{
		InputLocation: storage.InputLocation{Name: "somewhere offshore"},
		Status:        storage.StatusNoCountyFound,
	}}

	md := Markdown(result)
	assert.Contains(t, md, "**Status:** no_county_found")
	assert.NotContains(t, md, "County Information")
}

func TestMarkdown_HistoryKeepsRecentTwelveMonths(t *testing.T) {
	result := sampleResult()
	var history []storage.PrecipitationMonth
	for month := 1; month <= 12; month++ {
		history = append(history,
			storage.PrecipitationMonth{Year: 2023, Month: month, PrecipitationIn: 1},
			storage.PrecipitationMonth{Year: 2024, Month: month, PrecipitationIn: 2},
		)
	}
	result.FilteredContext.FilteredData[0].PrecipitationHistory = history

	md := Markdown(result)

	assert.Contains(t, md, "Recent Precipitation History (12 months)")
	assert.Contains(t, md, "| 2024-01 |")
	assert.NotContains(t, md, "| 2023-01 |")
}

func TestMarkdown_TruncatesLongEventTables(t *testing.T) {
	result := sampleResult()
	events := make([]storage.FloodEvent, 20)
	for i := range events {
		events[i] = storage.FloodEvent{Type: "Flash Flood", Date: "2020-01-01T00:00:00Z"}
	}
	result.FilteredContext.FilteredData[0].FloodEventHistory = events

	md := Markdown(result)

	assert.Contains(t, md, "Showing 15 of 20 total events")
	assert.Equal(t, 15, strings.Count(md, "| 2020-01-01T00:00:00Z |"))
}

func TestPDF_ProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	err := PDF(sampleResult(), &buf)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Greater(t, buf.Len(), 1000)
}
