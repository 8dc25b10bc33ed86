package analytics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fgeck/nodewake/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// maxBarWidth is the width of the longest histogram bar.
const maxBarWidth = 40

var weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ValidFormat reports whether format names a known renderer.
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Render writes report in the given format.
func Render(w io.Writer, format string, report *models.AggregateReport) error {
	switch format {
	case FormatText:
		return RenderText(w, report)
	case FormatJSON:
		return RenderJSON(w, report)
	case FormatYAML:
		return RenderYAML(w, report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// RenderJSON writes report as indented JSON.
func RenderJSON(w io.Writer, report *models.AggregateReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// RenderYAML writes report as YAML.
func RenderYAML(w io.Writer, report *models.AggregateReport) error {
	return encodeYAML(w, report)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

type noDataReport struct {
	NoData     bool `json:"no_data" yaml:"no_data"`
	WindowDays int  `json:"window_days" yaml:"window_days"`
}

// RenderNoData writes the "no data" result, distinct from a report of zeros.
func RenderNoData(w io.Writer, format string, window models.AnalysisWindow) error {
	nd := noDataReport{NoData: true, WindowDays: window.Days}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(nd)
	case FormatYAML:
		return encodeYAML(w, nd)
	case FormatText:
		_, err := fmt.Fprintf(w, "No wake events recorded in the last %d day(s).\n", window.Days)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// RenderText writes a human readable report.
func RenderText(w io.Writer, report *models.AggregateReport) error {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	p.Fprintf(&b, "Wake report: last %d day(s), %s to %s\n", report.WindowDays, report.From, report.To)

	b.WriteString("\nOutcomes\n")
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	p.Fprintf(tw, "  Total events\t%d\n", report.TotalEvents)
	p.Fprintf(tw, "  WOL sent\t%d\n", report.WolSent)
	p.Fprintf(tw, "  Online\t%d\n", report.Online)
	p.Fprintf(tw, "  Timeout\t%d\n", report.Timeout)
	p.Fprintf(tw, "  Failed\t%d\n", report.Failed)
	p.Fprintf(tw, "  Success rate\t%s\n", formatRate(report.SuccessRate))
	if err := tw.Flush(); err != nil {
		return err
	}

	b.WriteString("\nPer Host\n")
	tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	p.Fprintf(tw, "  MAC\tEVENTS\tSENT\tONLINE\tTIMEOUT\tFAILED\tSUCCESS\n")
	for _, h := range report.Hosts {
		p.Fprintf(tw, "  %s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			h.MACAddress, h.Events, h.WolSent, h.Online, h.Timeout, h.Failed, formatRate(h.SuccessRate))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	b.WriteString("\nHour Of Day\n")
	hourMax := maxOf(report.HourHistogram[:])
	for hour, count := range report.HourHistogram {
		p.Fprintf(&b, "  %02d %-40s %d\n", hour, bar(count, hourMax), count)
	}

	b.WriteString("\nDay Of Week\n")
	dayMax := maxOf(report.DayHistogram[:])
	for day, count := range report.DayHistogram {
		p.Fprintf(&b, "  %s %-40s %d\n", weekdays[day], bar(count, dayMax), count)
	}

	b.WriteString("\nTrends\n")
	tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	p.Fprintf(tw, "  Active days\t%d\n", report.DistinctDays)
	p.Fprintf(tw, "  Busiest day\t%s (%d events)\n", report.BusiestDay.Date, report.BusiestDay.Events)
	p.Fprintf(tw, "  Avg events per day\t%.1f\n", report.AvgEventsPerDay)
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatRate(rate *int) string {
	if rate == nil {
		return "undefined (no packets sent)"
	}
	return fmt.Sprintf("%d%%", *rate)
}

// bar scales count against maxCount; any non-zero count gets at least one mark.
func bar(count, maxCount int) string {
	if count == 0 || maxCount == 0 {
		return ""
	}
	n := count * maxBarWidth / maxCount
	if n == 0 {
		n = 1
	}
	return strings.Repeat("#", n)
}

func maxOf(counts []int) int {
	m := 0
	for _, c := range counts {
		if c > m {
			m = c
		}
	}
	return m
}
