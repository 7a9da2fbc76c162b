package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

// Common errors.
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const metersPerMile = 1609.344

// CountyRepository resolves coordinates to counties via PostGIS.
type CountyRepository struct {
	db DB
}

// NewCountyRepository creates a new county repository.
func NewCountyRepository(db DB) *CountyRepository {
	return &CountyRepository{db: db}
}

// FindByPoint returns the county containing the given coordinates, or
// ErrNotFound when the point falls outside every known county.
func (r *CountyRepository) FindByPoint(ctx context.Context, lat, lon float64) (*CountyData, error) {
	query := `
		SELECT c.fips_county_code, c.County, s.State, c.areaSQMI
		FROM flai.TCLCounties c
		JOIN flai.TCLStates s ON c.idState = s.idState
		WHERE ST_Intersects(c.geometry, ST_Transform(ST_SetSRID(ST_MakePoint($1, $2), 4326), 5070))
	`
	county := &CountyData{}
	err := r.db.QueryRowContext(ctx, query, lon, lat).Scan(
		&county.FIPSCode, &county.CountyName, &county.StateName, &county.AreaSqMi,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find county by point: %w", err)
	}
	return county, nil
}

// PrecipitationRepository retrieves monthly precipitation history.
type PrecipitationRepository struct {
	db DB
}

// NewPrecipitationRepository creates a new precipitation repository.
func NewPrecipitationRepository(db DB) *PrecipitationRepository {
	return &PrecipitationRepository{db: db}
}

// HistoryByCounty returns the monthly precipitation history for a county,
// chronological, one row per (year, month).
func (r *PrecipitationRepository) HistoryByCounty(ctx context.Context, fipsCode string) ([]PrecipitationMonth, error) {
	query := `
		SELECT year, month, totalPrecipitation_in
		FROM flai.TBLMonthlyPrecipitation
		WHERE fips_county_code = $1
		ORDER BY year, month
	`
	rows, err := r.db.QueryContext(ctx, query, fipsCode)
	if err != nil {
		return nil, fmt.Errorf("query precipitation history: %w", err)
	}
	defer rows.Close()

	var history []PrecipitationMonth
	for rows.Next() {
		var m PrecipitationMonth
		if err := rows.Scan(&m.Year, &m.Month, &m.PrecipitationIn); err != nil {
			return nil, fmt.Errorf("scan precipitation row: %w", err)
		}
		history = append(history, m)
	}
	return history, rows.Err()
}

// FloodEventRepository retrieves historical flood events.
type FloodEventRepository struct {
	db DB
}

// NewFloodEventRepository creates a new flood event repository.
func NewFloodEventRepository(db DB) *FloodEventRepository {
	return &FloodEventRepository{db: db}
}

// HistoryNear returns the flood events recorded for a county with the
// distance from the query point, sorted nearest first. Join fan-out
// duplicates are returned as-is; the selection layer caps the list.
func (r *FloodEventRepository) HistoryNear(ctx context.Context, fipsCode string, lat, lon float64) ([]FloodEvent, error) {
	query := `
		SELECT
			et.EventType,
			e.beginDate,
			e.warning_zone,
			c.County,
			ST_Y(e.geometry) AS latitude,
			ST_X(e.geometry) AS longitude,
			ST_Distance(
				e.geometry::geography,
				ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
			) AS distance_meters
		FROM flai.TBLFloodEvents e
		JOIN flai.TCLEventTypes et ON e.idEventType = et.idEventType
		LEFT JOIN flai.TCLCounties c ON e.fips_county_code = c.fips_county_code
		WHERE e.fips_county_code = $3
		ORDER BY distance_meters ASC
	`
	rows, err := r.db.QueryContext(ctx, query, lon, lat, fipsCode)
	if err != nil {
		return nil, fmt.Errorf("query flood events: %w", err)
	}
	defer rows.Close()

	var events []FloodEvent
	for rows.Next() {
		var (
			eventType      string
			beginDate      time.Time
			warningZone    sql.NullString
			county         sql.NullString
			evLat, evLon   sql.NullFloat64
			distanceMeters sql.NullFloat64
		)
		if err := rows.Scan(&eventType, &beginDate, &warningZone, &county, &evLat, &evLon, &distanceMeters); err != nil {
			return nil, fmt.Errorf("scan flood event row: %w", err)
		}

		event := FloodEvent{
			Type:        eventType,
			Date:        beginDate.Format(time.RFC3339),
			WarningZone: warningZone.String,
			County:      "Not Assigned (e.g., Offshore)",
			Location: Coordinates{
				Latitude:  evLat.Float64,
				Longitude: evLon.Float64,
			},
		}
		if county.Valid {
			event.County = county.String
		}
		if distanceMeters.Valid {
			miles := math.Round(distanceMeters.Float64/metersPerMile*100) / 100
			event.DistanceMiles = &miles
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// SVIRepository retrieves Social Vulnerability Index data.
type SVIRepository struct {
	db DB
}

// NewSVIRepository creates a new SVI repository.
func NewSVIRepository(db DB) *SVIRepository {
	return &SVIRepository{db: db}
}

// ByCounty returns the SVI record for a county and release year, pivoting
// rows into overall ranking, theme aggregates, and per-theme variables.
// Rows without a variable name carry the theme-level aggregate.
func (r *SVIRepository) ByCounty(ctx context.Context, fipsCode string, releaseYear int) (*SVIData, error) {
	query := `
		SELECT
			s.overallNational,
			s.overallState,
			t.Theme,
			v.SVIVariable,
			s.SVIValue
		FROM flai.TBLSVI s
		JOIN flai.TCLSVIThemes t ON s.idSVITheme = t.idSVITheme
		LEFT JOIN flai.TCLSVIVariables v ON s.idSVIVariable = v.idSVIVariable
		WHERE s.fips_county_code = $1 AND s.release_year = $2
	`
	rows, err := r.db.QueryContext(ctx, query, fipsCode, releaseYear)
	if err != nil {
		return nil, fmt.Errorf("query svi data: %w", err)
	}
	defer rows.Close()

	svi := &SVIData{
		ReleaseYear: releaseYear,
		Themes:      make(map[string]*float64),
		Variables:   make(map[string]map[string]*float64),
	}

	found := false
	for rows.Next() {
		var (
			national, state sql.NullFloat64
			theme           string
			variable        sql.NullString
			value           sql.NullFloat64
		)
		if err := rows.Scan(&national, &state, &theme, &variable, &value); err != nil {
			return nil, fmt.Errorf("scan svi row: %w", err)
		}

		if !found {
			svi.OverallRanking = OverallRanking{
				National: nullableFloat(national),
				State:    nullableFloat(state),
			}
			found = true
		}

		val := nullableFloat(value)
		if !variable.Valid {
			svi.Themes[theme] = val
			continue
		}
		if svi.Variables[theme] == nil {
			svi.Variables[theme] = make(map[string]*float64)
		}
		svi.Variables[theme][variable.String] = val
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return svi, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
