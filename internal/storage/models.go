// Package storage provides the flood-context data model and the Postgres
// repositories that retrieve it.
package storage

// Status marks a location whose downstream enrichment was impossible.
// When set to anything other than StatusOK, most other fields are absent.
type Status string

const (
	StatusOK                 Status = "ok"
	StatusNoCountyFound      Status = "no_county_found"
	StatusMissingFIPS        Status = "missing_fips"
	StatusMissingCoordinates Status = "missing_coordinates"
)

// Failed reports whether the status indicates enrichment could not happen.
func (s Status) Failed() bool {
	return s != "" && s != StatusOK
}

// InputLocation describes a geocoded location from the user query.
// Created at geocoding time and never mutated afterwards.
type InputLocation struct {
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// CountyData holds county metadata for a location.
type CountyData struct {
	FIPSCode   string  `json:"fips_code"`
	CountyName string  `json:"county_name"`
	StateName  string  `json:"state_name"`
	AreaSqMi   float64 `json:"area_sqmi"`
}

// PrecipitationMonth is one month of observed precipitation.
type PrecipitationMonth struct {
	Year            int     `json:"year"`
	Month           int     `json:"month"`
	PrecipitationIn float64 `json:"precipitation_in"`
}

// ForecastHour is one hour of precipitation forecast.
type ForecastHour struct {
	Time                     string   `json:"time"`
	PrecipitationProbability float64  `json:"precipitation_probability"` // 0-100
	PrecipitationAmountMM    float64  `json:"precipitation_amount_mm"`
	PrecipitationAmountIn    float64  `json:"precipitation_amount_in"`
	WeatherCondition         string   `json:"weather_condition"`
	TemperatureF             *float64 `json:"temperature_f,omitempty"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FloodEvent is one historical flood occurrence. DistanceMiles is nil when
// the source row carried no usable geometry.
type FloodEvent struct {
	Type           string      `json:"type"`
	Date           string      `json:"date"`
	DistanceMiles  *float64    `json:"distance_from_query_point_miles,omitempty"`
	WarningZone    string      `json:"warning_zone"`
	County         string      `json:"county"`
	Location       Coordinates `json:"location"`
	NearestAddress string      `json:"nearest_address,omitempty"`
}

// OverallRanking holds the SVI overall percentile ranks.
type OverallRanking struct {
	National *float64 `json:"national"`
	State    *float64 `json:"state"`
}

// SVIData holds Social Vulnerability Index data for a county. Themes maps
// theme name to its aggregate percentile; Variables nests variable
// percentiles under their theme.
type SVIData struct {
	ReleaseYear    int                            `json:"release_year"`
	OverallRanking OverallRanking                 `json:"overall_ranking"`
	Themes         map[string]*float64            `json:"themes"`
	Variables      map[string]map[string]*float64 `json:"variables"`
}

// HasContent reports whether the SVI record carries anything worth keeping:
// a non-null overall rank, a theme aggregate, or at least one variable.
func (s *SVIData) HasContent() bool {
	if s == nil {
		return false
	}
	if s.OverallRanking.National != nil || s.OverallRanking.State != nil {
		return true
	}
	if len(s.Themes) > 0 {
		return true
	}
	for _, vars := range s.Variables {
		if len(vars) > 0 {
			return true
		}
	}
	return false
}

// LocationRecord is the per-location context assembled by retrieval and
// narrowed by selection. Optional categories are nil/empty when absent.
type LocationRecord struct {
	InputLocation         InputLocation        `json:"input_location"`
	Status                Status               `json:"status,omitempty"`
	CountyData            *CountyData          `json:"county_data,omitempty"`
	PrecipitationHistory  []PrecipitationMonth `json:"precipitation_history,omitempty"`
	PrecipitationForecast []ForecastHour       `json:"precipitation_forecast,omitempty"`
	FloodEventHistory     []FloodEvent         `json:"flood_event_history,omitempty"`
	SocialVulnerability   *SVIData             `json:"social_vulnerability_index,omitempty"`
}

// HasInputLocation reports whether the record carries a usable input
// location. Records without one are malformed and skipped by the selector.
func (r *LocationRecord) HasInputLocation() bool {
	loc := r.InputLocation
	return loc.Name != "" || loc.FormattedAddress != "" ||
		loc.Latitude != 0 || loc.Longitude != 0
}
