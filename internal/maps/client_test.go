package maps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaizhakyp/floodwise/internal/observability"
)

const testKey = "test-api-key"

func testClient(geocodeURL, weatherURL string) *Client {
	return NewClient(testKey, geocodeURL, weatherURL, 5*time.Second, observability.Nop())
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Tuscaloosa, AL", r.URL.Query().Get("address"))
		assert.Equal(t, testKey, r.URL.Query().Get("key"))

		fmt.Fprint(w, `{
			"status": "OK",
			"results": [{
				"formatted_address": "Tuscaloosa, AL, USA",
				"geometry": {"location": {"lat": 33.2098, "lng": -87.5692}}
			}]
		}`)
	}))
	defer srv.Close()

	result, err := testClient(srv.URL, "").Geocode(context.Background(), "Tuscaloosa, AL")
	require.NoError(t, err)

	assert.Equal(t, "Tuscaloosa, AL, USA", result.FormattedAddress)
	assert.Equal(t, 33.2098, result.Latitude)
	assert.Equal(t, -87.5692, result.Longitude)
}

func TestClient_Geocode_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": []}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "").Geocode(context.Background(), "xyzzy")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestClient_Geocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "REQUEST_DENIED", "error_message": "bad key", "results": [{}]}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "").Geocode(context.Background(), "anywhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestClient_ReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("latlng"))
		fmt.Fprint(w, `{
			"status": "OK",
			"results": [{
				"formatted_address": "123 River Rd, Northport, AL 35476, USA",
				"geometry": {"location": {"lat": 33.2, "lng": -87.5}}
			}]
		}`)
	}))
	defer srv.Close()

	result, err := testClient(srv.URL, "").ReverseGeocode(context.Background(), 33.2, -87.5)
	require.NoError(t, err)
	assert.Equal(t, "123 River Rd, Northport, AL 35476, USA", result.FormattedAddress)
}

func TestClient_HourlyForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast/hours:lookup", r.URL.Path)
		assert.Equal(t, "6", r.URL.Query().Get("hours"))

		fmt.Fprint(w, `{
			"forecastHours": [{
				"interval": {"startTime": "2026-08-30T15:00:00Z"},
				"precipitation": {
					"probability": {"value": 0.25},
					"amount": {"value": 5.08}
				},
				"weather": {"condition": "RAIN"},
				"temperature": {"degrees": 20, "unit": "CELSIUS"}
			}]
		}`)
	}))
	defer srv.Close()

	forecast, err := testClient("", srv.URL).HourlyForecast(context.Background(), 33.2, -87.5, 6)
	require.NoError(t, err)
	require.Len(t, forecast, 1)

	hour := forecast[0]
	assert.Equal(t, "2026-08-30T15:00:00Z", hour.Time)
	assert.Equal(t, 25.0, hour.PrecipitationProbability)
	assert.Equal(t, 5.08, hour.PrecipitationAmountMM)
	assert.Equal(t, 0.2, hour.PrecipitationAmountIn)
	assert.Equal(t, "RAIN", hour.WeatherCondition)
	require.NotNil(t, hour.TemperatureF)
	assert.Equal(t, 68.0, *hour.TemperatureF)
}

func TestClient_HourlyForecast_BareNumberShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"forecastHours": [{
				"interval": {"startTime": "2026-08-30T16:00:00Z"},
				"precipitation": {"probability": 0.5, "amount": 2.54},
				"weather": {"condition": "THUNDERSTORM"}
			}]
		}`)
	}))
	defer srv.Close()

	forecast, err := testClient("", srv.URL).HourlyForecast(context.Background(), 33.2, -87.5, 1)
	require.NoError(t, err)
	require.Len(t, forecast, 1)

	assert.Equal(t, 50.0, forecast[0].PrecipitationProbability)
	assert.Equal(t, 0.1, forecast[0].PrecipitationAmountIn)
	assert.Nil(t, forecast[0].TemperatureF)
}

func TestClient_HourlyForecast_ZeroHours(t *testing.T) {
	forecast, err := testClient("", "http://unused.invalid").HourlyForecast(context.Background(), 33.2, -87.5, 0)
	require.NoError(t, err)
	assert.Empty(t, forecast)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "").Geocode(context.Background(), "anywhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
