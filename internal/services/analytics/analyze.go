// Package analytics aggregates the wake event log into reliability and usage statistics.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fgeck/nodewake/internal/models"
)

const dateLayout = "2006-01-02"

var (
	// ErrNoData is returned when the log is empty or the window selects nothing.
	// It is an expected outcome, not a failure.
	ErrNoData = errors.New("no wake events in window")
	// ErrInvalidWindow is returned for windows shorter than one day.
	ErrInvalidWindow = errors.New("analysis window must be at least 1 day")
)

// Analyze folds the events that fall inside window into a report.
//
// An event is inside the window when its recorded calendar date is on or after
// the date (days-1) days before now, compared as YYYY-MM-DD strings. A window of
// one day is therefore today only, however recent yesterday's events are.
func Analyze(events []models.WakeEvent, window models.AnalysisWindow, now time.Time) (*models.AggregateReport, error) {
	if window.Days < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window.Days)
	}

	today := now.Format(dateLayout)
	cutoff := now.AddDate(0, 0, -(window.Days - 1)).Format(dateLayout)

	report := &models.AggregateReport{
		WindowDays: window.Days,
		From:       cutoff,
		To:         today,
	}

	hosts := make(map[string]*models.HostStats)
	perDay := make(map[string]int)

	for _, ev := range events {
		date := ev.Timestamp.Format(dateLayout)
		if date < cutoff {
			continue
		}

		report.TotalEvents++
		host, ok := hosts[ev.MACAddress]
		if !ok {
			host = &models.HostStats{MACAddress: ev.MACAddress}
			hosts[ev.MACAddress] = host
		}
		host.Events++

		switch ev.Outcome {
		case models.OutcomeSent:
			report.WolSent++
			host.WolSent++
		case models.OutcomeOnline:
			report.Online++
			host.Online++
		case models.OutcomeTimeout:
			report.Timeout++
			host.Timeout++
		case models.OutcomeFailed:
			report.Failed++
			host.Failed++
		}

		report.HourHistogram[ev.Timestamp.Hour()]++
		report.DayHistogram[ev.Timestamp.Weekday()]++
		perDay[date]++
	}

	if report.TotalEvents == 0 {
		return nil, ErrNoData
	}

	report.SuccessRate = successRate(report.Online, report.WolSent)

	report.Hosts = make([]models.HostStats, 0, len(hosts))
	for _, host := range hosts {
		host.SuccessRate = successRate(host.Online, host.WolSent)
		report.Hosts = append(report.Hosts, *host)
	}
	sort.Slice(report.Hosts, func(i, j int) bool {
		if report.Hosts[i].Events != report.Hosts[j].Events {
			return report.Hosts[i].Events > report.Hosts[j].Events
		}
		return report.Hosts[i].MACAddress < report.Hosts[j].MACAddress
	})

	report.DistinctDays = len(perDay)
	report.BusiestDay = busiestDay(perDay)
	report.AvgEventsPerDay = math.Round(float64(report.TotalEvents)/float64(report.DistinctDays)*10) / 10

	return report, nil
}

// successRate returns round(online/sent*100), or nil when nothing was sent.
func successRate(online, sent int) *int {
	if sent == 0 {
		return nil
	}
	rate := int(math.Round(float64(online) / float64(sent) * 100))
	return &rate
}

// busiestDay picks the date with the most events, the earliest on ties.
func busiestDay(perDay map[string]int) models.DayCount {
	var best models.DayCount
	for date, count := range perDay {
		if count > best.Events || (count == best.Events && date < best.Date) {
			best = models.DayCount{Date: date, Events: count}
		}
	}
	return best
}
