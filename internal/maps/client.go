// Package maps talks to the Google Maps Platform: geocoding for turning
// extracted location names into coordinates and the Weather API for hourly
// precipitation forecasts.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mbaizhakyp/floodwise/internal/observability"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

const (
	defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultWeatherURL = "https://weather.googleapis.com/v1"
)

// ErrNoResults is returned when the API answers successfully but has no
// match for the request.
var ErrNoResults = errors.New("maps: no results")

// GeocodeResult is a resolved location.
type GeocodeResult struct {
	FormattedAddress string
	Latitude         float64
	Longitude        float64
}

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodeResult, error)
}

// Forecaster retrieves hourly precipitation forecasts.
type Forecaster interface {
	HourlyForecast(ctx context.Context, lat, lon float64, hours int) ([]storage.ForecastHour, error)
}

// Client implements Geocoder and Forecaster against the Google Maps APIs.
type Client struct {
	apiKey     string
	geocodeURL string
	weatherURL string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates a Google Maps client. Empty geocodeURL/weatherURL fall
// back to the production endpoints.
func NewClient(apiKey, geocodeURL, weatherURL string, timeout time.Duration, logger *observability.Logger) *Client {
	if geocodeURL == "" {
		geocodeURL = defaultGeocodeURL
	}
	if weatherURL == "" {
		weatherURL = defaultWeatherURL
	}
	return &Client{
		apiKey:     apiKey,
		geocodeURL: geocodeURL,
		weatherURL: weatherURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithComponent("maps"),
	}
}

// Geocode resolves a free-text address to coordinates. The first result
// wins, matching the API's own relevance ordering.
func (c *Client) Geocode(ctx context.Context, address string) (GeocodeResult, error) {
	params := url.Values{
		"address":  {address},
		"language": {"en"},
	}
	return c.geocode(ctx, params)
}

// ReverseGeocode resolves coordinates to the nearest formatted address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodeResult, error) {
	params := url.Values{
		"latlng":   {fmt.Sprintf("%f,%f", lat, lon)},
		"language": {"en"},
	}
	return c.geocode(ctx, params)
}

func (c *Client) geocode(ctx context.Context, params url.Values) (GeocodeResult, error) {
	var resp geocodeResponse
	if err := c.get(ctx, c.geocodeURL, params, &resp); err != nil {
		return GeocodeResult{}, err
	}

	if resp.Status == "ZERO_RESULTS" || len(resp.Results) == 0 {
		return GeocodeResult{}, ErrNoResults
	}
	if resp.Status != "OK" {
		return GeocodeResult{}, fmt.Errorf("geocode API status %s: %s", resp.Status, resp.ErrorMessage)
	}

	first := resp.Results[0]
	return GeocodeResult{
		FormattedAddress: first.FormattedAddress,
		Latitude:         first.Geometry.Location.Lat,
		Longitude:        first.Geometry.Location.Lng,
	}, nil
}

// HourlyForecast returns up to hours of precipitation forecast for a point.
// Probabilities are normalized to 0-100 and amounts are carried in both
// millimeters and inches.
func (c *Client) HourlyForecast(ctx context.Context, lat, lon float64, hours int) ([]storage.ForecastHour, error) {
	if hours <= 0 {
		return nil, nil
	}

	params := url.Values{
		"location.latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"location.longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
		"hours":              {strconv.Itoa(hours)},
	}

	var resp forecastResponse
	if err := c.get(ctx, c.weatherURL+"/forecast/hours:lookup", params, &resp); err != nil {
		return nil, err
	}

	forecast := make([]storage.ForecastHour, 0, len(resp.ForecastHours))
	for _, hour := range resp.ForecastHours {
		amountMM := hour.Precipitation.Amount.Value
		fh := storage.ForecastHour{
			Time:                     hour.Interval.StartTime,
			PrecipitationProbability: math.Round(hour.Precipitation.Probability.Value*1000) / 10,
			PrecipitationAmountMM:    amountMM,
			PrecipitationAmountIn:    math.Round(amountMM/25.4*100) / 100,
			WeatherCondition:         hour.Weather.Condition,
		}
		if hour.Temperature != nil {
			f := hour.Temperature.fahrenheit()
			fh.TemperatureF = &f
		}
		forecast = append(forecast, fh)
	}

	c.logger.Debug().Int("hours", len(forecast)).Msg("retrieved hourly precipitation forecast")
	return forecast, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("maps request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("maps API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Geocoding API response types.

type geocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
	Results      []geocodeResult `json:"results"`
}

type geocodeResult struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// Weather API response types.

type forecastResponse struct {
	ForecastHours []forecastHour `json:"forecastHours"`
}

type forecastHour struct {
	Interval struct {
		StartTime string `json:"startTime"`
	} `json:"interval"`
	Precipitation struct {
		Probability flexValue `json:"probability"`
		Amount      flexValue `json:"amount"`
	} `json:"precipitation"`
	Weather struct {
		Condition string `json:"condition"`
	} `json:"weather"`
	Temperature *temperature `json:"temperature"`
}

type temperature struct {
	Degrees float64 `json:"degrees"`
	Unit    string  `json:"unit"`
}

func (t *temperature) fahrenheit() float64 {
	if t.Unit == "CELSIUS" {
		return math.Round((t.Degrees*9/5+32)*10) / 10
	}
	return t.Degrees
}

// flexValue accepts either a bare number or an object wrapping the number
// in a "value" field; the API has shipped both shapes.
type flexValue struct {
	Value float64
}

func (v *flexValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		v.Value = n
		return nil
	}
	var obj struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	v.Value = obj.Value
	return nil
}
