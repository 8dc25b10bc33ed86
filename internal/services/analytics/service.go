package analytics

import (
	"fmt"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
)

// EventReader is the read side of the wake event log.
type EventReader interface {
	ReadAll() ([]models.WakeEvent, error)
}

// Service defines the interface for the analytics engine.
type Service interface {
	Run(window models.AnalysisWindow) (*models.AggregateReport, error)
}

// Impl implements the analytics Service interface.
type Impl struct {
	reader EventReader
	now    func() time.Time
	logger zerolog.Logger
}

// New creates an analytics service reading from reader.
func New(logger zerolog.Logger, reader EventReader) *Impl {
	return NewWithClock(logger, reader, time.Now)
}

// NewWithClock creates an analytics service with a custom clock (for testing).
func NewWithClock(logger zerolog.Logger, reader EventReader, now func() time.Time) *Impl {
	return &Impl{
		reader: reader,
		now:    now,
		logger: logger,
	}
}

// Run reads the whole log and analyses the trailing window.
// It returns ErrNoData when there is nothing to report.
func (s *Impl) Run(window models.AnalysisWindow) (*models.AggregateReport, error) {
	events, err := s.reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	s.logger.Debug().Int("events", len(events)).Int("days", window.Days).Msg("analysing wake events")

	report, err := Analyze(events, window, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("events", report.TotalEvents).
		Int("hosts", len(report.Hosts)).
		Str("from", report.From).
		Str("to", report.To).
		Msg("analysis completed")

	return report, nil
}
