package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/mbaizhakyp/floodwise/internal/pipeline"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

// PDF renders a pipeline result as a PDF document and writes it to w.
func PDF(result *pipeline.Result, w io.Writer) error {
	doc := newPDFDoc()
	doc.title(result)
	doc.queryAndAnswer(result)

	if result.FilteredContext != nil {
		for i := range result.FilteredContext.FilteredData {
			doc.location(&result.FilteredContext.FilteredData[i])
		}
	}
	doc.disclaimer()

	if err := doc.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type pdfDoc struct {
	pdf *fpdf.Fpdf
}

func newPDFDoc() *pdfDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	return &pdfDoc{pdf: pdf}
}

func (d *pdfDoc) title(result *pipeline.Result) {
	d.pdf.SetFont("Helvetica", "B", 18)
	d.pdf.CellFormat(0, 12, "Flood Information Report", "", 1, "C", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.SetTextColor(100, 100, 100)
	generated := fmt.Sprintf("Generated: %s", result.GeneratedAt.Format("January 2, 2006 at 3:04 PM"))
	d.pdf.CellFormat(0, 6, generated, "", 1, "C", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(4)
}

func (d *pdfDoc) queryAndAnswer(result *pipeline.Result) {
	d.heading("Query")
	d.pdf.SetFont("Helvetica", "I", 11)
	d.pdf.MultiCell(0, 6, result.Query, "", "L", false)
	d.pdf.Ln(2)

	d.heading("Answer")
	answer := result.Answer
	if answer == "" {
		answer = "No answer generated."
	}
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, 5, answer, "", "L", false)
	d.pdf.Ln(4)
}

func (d *pdfDoc) location(loc *storage.LocationRecord) {
	d.heading("Location: " + loc.InputLocation.Name)
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, 5, "Address: "+loc.InputLocation.FormattedAddress, "", "L", false)
	coords := fmt.Sprintf("Coordinates: %g, %g", loc.InputLocation.Latitude, loc.InputLocation.Longitude)
	d.pdf.MultiCell(0, 5, coords, "", "L", false)
	if loc.Status.Failed() {
		d.pdf.MultiCell(0, 5, "Status: "+string(loc.Status), "", "L", false)
	}
	d.pdf.Ln(2)

	if loc.CountyData != nil {
		d.subheading("County Information")
		c := loc.CountyData
		d.tableRow([]string{"County", c.CountyName}, []float64{45, 0})
		d.tableRow([]string{"State", c.StateName}, []float64{45, 0})
		d.tableRow([]string{"FIPS Code", c.FIPSCode}, []float64{45, 0})
		d.tableRow([]string{"Area (sq mi)", fmt.Sprintf("%.2f", c.AreaSqMi)}, []float64{45, 0})
		d.pdf.Ln(2)
	}

	if len(loc.FloodEventHistory) > 0 {
		d.floodEvents(loc.FloodEventHistory)
	}
	if loc.SocialVulnerability != nil {
		d.svi(loc.SocialVulnerability)
	}
	if len(loc.PrecipitationForecast) > 0 {
		d.forecast(loc.PrecipitationForecast)
	}
	if len(loc.PrecipitationHistory) > 0 {
		d.history(loc.PrecipitationHistory)
	}
}

func (d *pdfDoc) floodEvents(events []storage.FloodEvent) {
	d.subheading(fmt.Sprintf("Historical Flood Events (%d events)", len(events)))
	widths := []float64{40, 35, 25, 30, 0}
	d.tableHeader([]string{"Date", "Type", "Dist (mi)", "Zone", "Nearest Address"}, widths)

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
		if len(address) > 40 {
			address = address[:37] + "..."
		}
		d.tableRow([]string{ev.Date, ev.Type, distance, ev.WarningZone, address}, widths)
	}
	if len(events) > maxFloodEventRows {
		d.note(fmt.Sprintf("Showing %d of %d total events", maxFloodEventRows, len(events)))
	}
	d.pdf.Ln(2)
}

func (d *pdfDoc) svi(svi *storage.SVIData) {
	d.subheading(fmt.Sprintf("Social Vulnerability Index (SVI %d)", svi.ReleaseYear))

	if svi.OverallRanking.National != nil {
		d.tableRow([]string{"National Ranking", formatRank(svi.OverallRanking.National)}, []float64{60, 0})
	}
	if svi.OverallRanking.State != nil {
		d.tableRow([]string{"State Ranking", formatRank(svi.OverallRanking.State)}, []float64{60, 0})
	}

	for _, theme := range sortedKeys(svi.Themes) {
		d.tableRow([]string{theme, formatRank(svi.Themes[theme])}, []float64{110, 0})
	}
	for _, theme := range sortedKeys(svi.Variables) {
		vars := svi.Variables[theme]
		for _, name := range sortedKeys(vars) {
			d.tableRow([]string{theme + " / " + name, formatRank(vars[name])}, []float64{110, 0})
		}
	}
	d.pdf.Ln(2)
}

func (d *pdfDoc) forecast(forecast []storage.ForecastHour) {
	d.subheading(fmt.Sprintf("Precipitation Forecast (%d hours)", len(forecast)))
	widths := []float64{35, 35, 35, 0}
	d.tableHeader([]string{"Time", "Probability", "Amount (in)", "Condition"}, widths)

	shown := forecast
	if len(shown) > maxForecastRows {
		shown = shown[:maxForecastRows]
	}
	for _, hour := range shown {
		d.tableRow([]string{
			formatHour(hour.Time),
			fmt.Sprintf("%.1f%%", hour.PrecipitationProbability),
			fmt.Sprintf("%.2f", hour.PrecipitationAmountIn),
			hour.WeatherCondition,
		}, widths)
	}
	if len(forecast) > maxForecastRows {
		d.note(fmt.Sprintf("Showing %d of %d total hours", maxForecastRows, len(forecast)))
	}
	d.pdf.Ln(2)
}

func (d *pdfDoc) history(history []storage.PrecipitationMonth) {
	recent := recentMonths(history, maxHistoryMonths)
	d.subheading(fmt.Sprintf("Recent Precipitation History (%d months)", len(recent)))
	widths := []float64{40, 0}
	d.tableHeader([]string{"Year-Month", "Precipitation (in)"}, widths)
	for _, m := range recent {
		d.tableRow([]string{
			fmt.Sprintf("%d-%02d", m.Year, m.Month),
			fmt.Sprintf("%.2f", m.PrecipitationIn),
		}, widths)
	}
	d.pdf.Ln(2)
}

func (d *pdfDoc) disclaimer() {
	d.pdf.Ln(4)
	d.subheading("Disclaimer")
	d.pdf.SetFont("Helvetica", "", 8)
	d.pdf.SetTextColor(100, 100, 100)
	d.pdf.MultiCell(0, 4, reportDisclaimer, "", "L", false)
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *pdfDoc) heading(text string) {
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
}

func (d *pdfDoc) subheading(text string) {
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
}

func (d *pdfDoc) tableHeader(cells []string, widths []float64) {
	d.pdf.SetFont("Helvetica", "B", 9)
	d.pdf.SetFillColor(230, 236, 245)
	for i, cell := range cells {
		d.pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", true, 0, "")
	}
	d.pdf.Ln(-1)
}

func (d *pdfDoc) tableRow(cells []string, widths []float64) {
	d.pdf.SetFont("Helvetica", "", 9)
	for i, cell := range cells {
		d.pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
	}
	d.pdf.Ln(-1)
}

func (d *pdfDoc) note(text string) {
	d.pdf.SetFont("Helvetica", "I", 8)
	d.pdf.CellFormat(0, 5, text, "", 1, "L", false, 0, "")
}
