package selection

import (
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

// FilterFloodEvents narrows a flood-event list by two composable rules:
// a distance cap applied first, then a count cap that truncates the
// remaining list. Input order (ascending distance, nearest first) is
// preserved, so truncation keeps the nearest events. Events without a
// distance are treated as infinitely far whenever a distance cap is active.
// Fully deterministic; the input slice is never mutated.
func FilterFloodEvents(events []storage.FloodEvent, filters FloodEventFilters) []storage.FloodEvent {
	if len(events) == 0 {
		return events
	}

	filtered := events
	if filters.MaxDistanceMiles != nil {
		maxDist := *filters.MaxDistanceMiles
		filtered = make([]storage.FloodEvent, 0, len(events))
		for _, event := range events {
			if event.DistanceMiles != nil && *event.DistanceMiles <= maxDist {
				filtered = append(filtered, event)
			}
		}
	}

	// RecentOnly has no defined semantics; it is deliberately a no-op so
	// events are never silently dropped.

	if filters.MaxEvents != nil && len(filtered) > *filters.MaxEvents {
		filtered = filtered[:*filters.MaxEvents]
	}

	return filtered
}
