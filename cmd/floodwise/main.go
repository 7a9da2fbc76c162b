// Command floodwise answers natural-language flood questions from PostGIS
// flood data, precipitation records, SVI rankings, and live forecasts.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
