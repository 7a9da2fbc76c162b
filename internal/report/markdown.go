// Package report renders pipeline results as Markdown and PDF documents.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mbaizhakyp/floodwise/internal/pipeline"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

const (
	maxFloodEventRows = 15
	maxForecastRows   = 12
	maxHistoryMonths  = 12
	maxAddressWidth   = 50

	reportDisclaimer = `This report is generated automatically based on available data and AI-powered analysis.
The information should be used for informational purposes only. For critical decisions
regarding flood safety and preparedness, please consult official sources such as
NOAA, FEMA, and local emergency management agencies.`
)

// Markdown renders a pipeline result as a Markdown report.
func Markdown(result *pipeline.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Flood Information Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n---\n\n", result.GeneratedAt.Format("January 2, 2006 at 3:04 PM"))

	fmt.Fprintf(&b, "## Query\n\n> **%q**\n\n", result.Query)
	answer := result.Answer
	if answer == "" {
		answer = "No answer generated."
	}
	fmt.Fprintf(&b, "## Answer\n\n%s\n\n---\n\n", answer)

	if result.FilteredContext != nil {
		for i := range result.FilteredContext.FilteredData {
			writeLocationMD(&b, &result.FilteredContext.FilteredData[i])
		}
		writeIntentMD(&b, result)
	}

	b.WriteString("### Disclaimer\n\n")
	b.WriteString(reportDisclaimer)
	b.WriteString("\n\n---\n\n*Generated by floodwise*\n")

	return b.String()
}

func writeLocationMD(b *strings.Builder, loc *storage.LocationRecord) {
	fmt.Fprintf(b, "## Location: %s\n\n", loc.InputLocation.Name)
	fmt.Fprintf(b, "**Address:** %s\n", loc.InputLocation.FormattedAddress)
	fmt.Fprintf(b, "**Coordinates:** %g, %g\n\n", loc.InputLocation.Latitude, loc.InputLocation.Longitude)

	if loc.Status.Failed() {
		fmt.Fprintf(b, "**Status:** %s\n\n", loc.Status)
	}

	if loc.CountyData != nil {
		c := loc.CountyData
		b.WriteString("### County Information\n\n")
		b.WriteString("| Field | Value |\n|-------|-------|\n")
		fmt.Fprintf(b, "| **County** | %s |\n", c.CountyName)
		fmt.Fprintf(b, "| **State** | %s |\n", c.StateName)
		fmt.Fprintf(b, "| **FIPS Code** | %s |\n", c.FIPSCode)
		fmt.Fprintf(b, "| **Area (sq mi)** | %.2f |\n\n", c.AreaSqMi)
	}

	if len(loc.FloodEventHistory) > 0 {
		writeFloodEventsMD(b, loc.FloodEventHistory)
	}
	if loc.SocialVulnerability != nil {
		writeSVIMD(b, loc.SocialVulnerability)
	}
	if len(loc.PrecipitationForecast) > 0 {
		writeForecastMD(b, loc.PrecipitationForecast)
	}
	if len(loc.PrecipitationHistory) > 0 {
		writeHistoryMD(b, loc.PrecipitationHistory)
	}
}

func writeFloodEventsMD(b *strings.Builder, events []storage.FloodEvent) {
	fmt.Fprintf(b, "### Historical Flood Events (%d events)\n\n", len(events))
	b.WriteString("| Date | Type | Distance (mi) | Warning Zone | Nearest Address |\n")
	b.WriteString("|------|------|---------------|--------------|----------------|\n")

	shown := events
	if len(shown) > maxFloodEventRows {
		shown = shown[:maxFloodEventRows]
	}
	for _, ev := range shown {
		distance := "N/A"
		if ev.DistanceMiles != nil {
			distance = fmt.Sprintf("%.2f", *ev.DistanceMiles)
		}
		address := ev.NearestAddress
		if address == "" {
			address = "N/A"
		}
		if len(address) > maxAddressWidth {
			address = address[:maxAddressWidth-3] + "..."
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", ev.Date, ev.Type, distance, ev.WarningZone, address)
	}
	if len(events) > maxFloodEventRows {
		fmt.Fprintf(b, "\n*Showing %d of %d total events*\n", maxFloodEventRows, len(events))
	}
	b.WriteString("\n")
}

func writeSVIMD(b *strings.Builder, svi *storage.SVIData) {
	fmt.Fprintf(b, "### Social Vulnerability Index (SVI %d)\n\n", svi.ReleaseYear)

	if svi.OverallRanking.National != nil || svi.OverallRanking.State != nil {
		b.WriteString("#### Overall Rankings\n\n| Ranking Type | Percentile |\n|--------------|------------|\n")
		if svi.OverallRanking.National != nil {
			fmt.Fprintf(b, "| **National** | %.2f |\n", *svi.OverallRanking.National)
		}
		if svi.OverallRanking.State != nil {
			fmt.Fprintf(b, "| **State** | %.2f |\n", *svi.OverallRanking.State)
		}
		b.WriteString("\n")
	}

	if len(svi.Themes) > 0 {
		b.WriteString("#### Theme Rankings\n\n| Theme | Percentile |\n|-------|------------|\n")
		for _, theme := range sortedKeys(svi.Themes) {
			fmt.Fprintf(b, "| %s | %s |\n", theme, formatRank(svi.Themes[theme]))
		}
		b.WriteString("\n")
	}

	if len(svi.Variables) > 0 {
		b.WriteString("#### Key Variables\n\n| Theme | Variable | Percentile |\n|-------|----------|------------|\n")
		for _, theme := range sortedKeys(svi.Variables) {
			vars := svi.Variables[theme]
			for _, name := range sortedKeys(vars) {
				fmt.Fprintf(b, "| %s | %s | %s |\n", theme, name, formatRank(vars[name]))
			}
		}
		b.WriteString("\n")
	}
}

func writeForecastMD(b *strings.Builder, forecast []storage.ForecastHour) {
	fmt.Fprintf(b, "### Precipitation Forecast (%d hours)\n\n", len(forecast))
	b.WriteString("| Time | Probability | Amount (in) | Condition |\n")
	b.WriteString("|------|-------------|-------------|-----------|\n")

	shown := forecast
	if len(shown) > maxForecastRows {
		shown = shown[:maxForecastRows]
	}
	for _, hour := range shown {
		fmt.Fprintf(b, "| %s | %.1f%% | %.2f | %s |\n",
			formatHour(hour.Time), hour.PrecipitationProbability, hour.PrecipitationAmountIn, hour.WeatherCondition)
	}
	if len(forecast) > maxForecastRows {
		fmt.Fprintf(b, "\n*Showing %d of %d total hours*\n", maxForecastRows, len(forecast))
	}
	b.WriteString("\n")
}

func writeHistoryMD(b *strings.Builder, history []storage.PrecipitationMonth) {
	recent := recentMonths(history, maxHistoryMonths)
	if len(recent) == 0 {
		return
	}

	fmt.Fprintf(b, "### Recent Precipitation History (%d months)\n\n", len(recent))
	b.WriteString("| Year-Month | Precipitation (in) |\n|------------|--------------------|\n")
	for _, m := range recent {
		fmt.Fprintf(b, "| %d-%02d | %.2f |\n", m.Year, m.Month, m.PrecipitationIn)
	}
	b.WriteString("\n")
}

func writeIntentMD(b *strings.Builder, result *pipeline.Result) {
	intent := result.FilteredContext.Intent
	if intent == nil {
		return
	}

	b.WriteString("---\n\n## Report Metadata\n\n### Data Selection Criteria\n\n")
	b.WriteString("| Data Type | Included |\n|-----------|----------|\n")
	fmt.Fprintf(b, "| Precipitation Forecast | %s |\n", yesNo(intent.NeedsPrecipitationForecast))
	fmt.Fprintf(b, "| Precipitation History | %s |\n", yesNo(intent.NeedsPrecipitationHistory))
	fmt.Fprintf(b, "| Flood History | %s |\n", yesNo(intent.NeedsFloodHistory))
	fmt.Fprintf(b, "| SVI Data | %s |\n", yesNo(intent.NeedsSVIData))
	fmt.Fprintf(b, "| County Information | %s |\n\n", yesNo(intent.NeedsCountyInfo))
}

// recentMonths returns the most recent n months in chronological order.
func recentMonths(history []storage.PrecipitationMonth, n int) []storage.PrecipitationMonth {
	sorted := make([]storage.PrecipitationMonth, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		return sorted[i].Month < sorted[j].Month
	})
	if len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}

// formatHour reduces an RFC3339 timestamp to HH:MM; anything unparseable
// is rendered as-is.
func formatHour(ts string) string {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Format("15:04")
	}
	return ts
}

func formatRank(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
