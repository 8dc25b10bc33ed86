package eventlog

import (
	"fmt"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
)

// Store is an append-only sequence of wake events.
type Store interface {
	Append(ev models.WakeEvent) error
	ReadAll() ([]models.WakeEvent, error)
}

// New returns the store selected by cfg.
func New(cfg models.EventLogConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", models.BackendFile:
		return NewFileStore(cfg.Path, logger), nil
	case models.BackendBolt:
		return NewBoltStore(cfg.Path, logger), nil
	default:
		return nil, fmt.Errorf("unknown event log backend %q", cfg.Backend)
	}
}
