package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaizhakyp/floodwise/internal/storage"
)

func eventAt(miles float64) storage.FloodEvent {
	return storage.FloodEvent{Type: "Flash Flood", DistanceMiles: &miles}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestFilterFloodEvents_NoFilters(t *testing.T) {
	events := []storage.FloodEvent{eventAt(1), eventAt(3)}

	got := FilterFloodEvents(events, FloodEventFilters{})

	assert.Equal(t, events, got)
}

func TestFilterFloodEvents_DistanceThenCount(t *testing.T) {
	// Distance cap narrows the candidate set first, then the count cap
	// truncates in input order: [1, 3, 7, 2] -> within 5 mi {1, 3, 2}
	// -> first two = [1, 3].
	events := []storage.FloodEvent{eventAt(1), eventAt(3), eventAt(7), eventAt(2)}

	got := FilterFloodEvents(events, FloodEventFilters{
		MaxEvents:        intPtr(2),
		MaxDistanceMiles: floatPtr(5),
	})

	require.Len(t, got, 2)
	assert.Equal(t, 1.0, *got[0].DistanceMiles)
	assert.Equal(t, 3.0, *got[1].DistanceMiles)
}

func TestFilterFloodEvents_MissingDistanceExcludedUnderCap(t *testing.T) {
	events := []storage.FloodEvent{
		eventAt(2),
		{Type: "Coastal Flood"}, // no distance
		eventAt(4),
	}

	got := FilterFloodEvents(events, FloodEventFilters{MaxDistanceMiles: floatPtr(10)})

	require.Len(t, got, 2)
	assert.Equal(t, 2.0, *got[0].DistanceMiles)
	assert.Equal(t, 4.0, *got[1].DistanceMiles)
}

func TestFilterFloodEvents_MissingDistanceKeptWithoutCap(t *testing.T) {
	events := []storage.FloodEvent{
		eventAt(2),
		{Type: "Coastal Flood"},
	}

	got := FilterFloodEvents(events, FloodEventFilters{MaxEvents: intPtr(10)})

	assert.Len(t, got, 2)
}

func TestFilterFloodEvents_CountCapOnly(t *testing.T) {
	events := []storage.FloodEvent{eventAt(1), eventAt(2), eventAt(3)}

	got := FilterFloodEvents(events, FloodEventFilters{MaxEvents: intPtr(2)})

	require.Len(t, got, 2)
	assert.Equal(t, 1.0, *got[0].DistanceMiles)
	assert.Equal(t, 2.0, *got[1].DistanceMiles)
}

func TestFilterFloodEvents_Idempotent(t *testing.T) {
	events := []storage.FloodEvent{eventAt(1), eventAt(3), eventAt(7), eventAt(2)}
	filters := FloodEventFilters{
		MaxEvents:        intPtr(3),
		MaxDistanceMiles: floatPtr(5),
	}

	once := FilterFloodEvents(events, filters)
	twice := FilterFloodEvents(once, filters)

	assert.Equal(t, once, twice)
}

func TestFilterFloodEvents_RecentOnlyIsNoOp(t *testing.T) {
	events := []storage.FloodEvent{eventAt(1), eventAt(2)}

	got := FilterFloodEvents(events, FloodEventFilters{RecentOnly: true})

	assert.Equal(t, events, got)
}

func TestFilterFloodEvents_DoesNotMutateInput(t *testing.T) {
	events := []storage.FloodEvent{eventAt(7), eventAt(1)}

	_ = FilterFloodEvents(events, FloodEventFilters{
		MaxEvents:        intPtr(1),
		MaxDistanceMiles: floatPtr(5),
	})

	require.Len(t, events, 2)
	assert.Equal(t, 7.0, *events[0].DistanceMiles)
}

func TestFilterFloodEvents_Empty(t *testing.T) {
	assert.Empty(t, FilterFloodEvents(nil, FloodEventFilters{MaxEvents: intPtr(5)}))
}
