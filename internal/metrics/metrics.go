// Package metrics exports analytics reports in the Prometheus textfile format,
// for node_exporter's textfile collector.
package metrics

import (
	"github.com/fgeck/nodewake/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Gauges describing one analytics run.
type Gauges struct {
	Events          *prometheus.GaugeVec
	SuccessRate     prometheus.Gauge
	HostEvents      *prometheus.GaugeVec
	HostSuccessRate *prometheus.GaugeVec
	WindowDays      prometheus.Gauge
	AvgEventsPerDay prometheus.Gauge
}

// NewRegistry builds a private registry holding the gauges for report.
// Undefined success rates are left out rather than exported as zero.
func NewRegistry(report *models.AggregateReport) (*prometheus.Registry, *Gauges) {
	g := &Gauges{
		Events: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nodewake_events",
				Help: "Wake events in the analysis window by outcome",
			},
			[]string{"outcome"},
		),
		SuccessRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nodewake_success_rate_percent",
				Help: "Nodes that came online per magic packet burst sent",
			},
		),
		HostEvents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nodewake_host_events",
				Help: "Wake events in the analysis window by MAC address",
			},
			[]string{"mac"},
		),
		HostSuccessRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nodewake_host_success_rate_percent",
				Help: "Success rate by MAC address",
			},
			[]string{"mac"},
		),
		WindowDays: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nodewake_window_days",
				Help: "Length of the analysis window in days",
			},
		),
		AvgEventsPerDay: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nodewake_avg_events_per_day",
				Help: "Average wake events per active day",
			},
		),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(g.Events, g.HostEvents, g.HostSuccessRate, g.WindowDays, g.AvgEventsPerDay)

	g.Events.WithLabelValues(string(models.OutcomeSent)).Set(float64(report.WolSent))
	g.Events.WithLabelValues(string(models.OutcomeOnline)).Set(float64(report.Online))
	g.Events.WithLabelValues(string(models.OutcomeTimeout)).Set(float64(report.Timeout))
	g.Events.WithLabelValues(string(models.OutcomeFailed)).Set(float64(report.Failed))
	g.WindowDays.Set(float64(report.WindowDays))
	g.AvgEventsPerDay.Set(report.AvgEventsPerDay)

	if report.SuccessRate != nil {
		reg.MustRegister(g.SuccessRate)
		g.SuccessRate.Set(float64(*report.SuccessRate))
	}

	for _, h := range report.Hosts {
		g.HostEvents.WithLabelValues(h.MACAddress).Set(float64(h.Events))
		if h.SuccessRate != nil {
			g.HostSuccessRate.WithLabelValues(h.MACAddress).Set(float64(*h.SuccessRate))
		}
	}

	return reg, g
}

// WriteTextfile writes the gauges for report to path atomically.
func WriteTextfile(path string, report *models.AggregateReport) error {
	reg, _ := NewRegistry(report)
	return prometheus.WriteToTextfile(path, reg)
}
