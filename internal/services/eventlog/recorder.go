package eventlog

import (
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
)

// Recorder appends events on a best-effort basis: a store failure is logged
// and the event dropped, never returned to the wake flow.
type Recorder struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// NewRecorderWithClock creates a recorder with a custom clock (for testing).
func NewRecorderWithClock(store Store, logger zerolog.Logger, now func() time.Time) *Recorder {
	return &Recorder{store: store, logger: logger, now: now}
}

// Record appends one lifecycle transition.
func (r *Recorder) Record(outcome models.Outcome, mac, host string) {
	ev := models.WakeEvent{
		Timestamp:      r.now().Truncate(time.Second),
		Outcome:        outcome,
		MACAddress:     mac,
		NetworkAddress: host,
	}

	if err := r.store.Append(ev); err != nil {
		r.logger.Warn().
			Err(err).
			Str("outcome", string(outcome)).
			Str("mac", mac).
			Msg("wake event not recorded")
		return
	}

	r.logger.Debug().Str("outcome", string(outcome)).Str("mac", mac).Msg("wake event recorded")
}
