// Package eventlog persists wake lifecycle events.
//
// Each event is one line of text:
//
//	2026-10-17T07:42:10+02:00 WOL_SENT MAC=AA:BB:CC:DD:EE:FF HOST=192.168.1.10
//
// The same encoding is used by every backend so readers never need a schema version.
package eventlog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/nodewake/internal/models"
)

const (
	macPrefix  = "MAC="
	hostPrefix = "HOST="
)

// ErrMalformedLine is returned by ParseLine for lines that are not wake events.
var ErrMalformedLine = errors.New("malformed event line")

// FormatLine encodes an event without a trailing newline.
func FormatLine(ev models.WakeEvent) string {
	return fmt.Sprintf("%s %s %s%s %s%s",
		ev.Timestamp.Format(time.RFC3339),
		ev.Outcome,
		macPrefix, ev.MACAddress,
		hostPrefix, ev.NetworkAddress,
	)
}

// ParseLine decodes one event line. HOST= may be empty or missing.
func ParseLine(line string) (models.WakeEvent, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || len(fields) > 4 {
		return models.WakeEvent{}, fmt.Errorf("%w: expected 3 or 4 fields, got %d", ErrMalformedLine, len(fields))
	}

	ts, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return models.WakeEvent{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedLine, fields[0])
	}

	outcome := models.Outcome(fields[1])
	if !outcome.Valid() {
		return models.WakeEvent{}, fmt.Errorf("%w: unknown outcome %q", ErrMalformedLine, fields[1])
	}

	if !strings.HasPrefix(fields[2], macPrefix) || len(fields[2]) == len(macPrefix) {
		return models.WakeEvent{}, fmt.Errorf("%w: missing MAC field", ErrMalformedLine)
	}

	ev := models.WakeEvent{
		Timestamp:  ts,
		Outcome:    outcome,
		MACAddress: strings.ToUpper(strings.TrimPrefix(fields[2], macPrefix)),
	}

	if len(fields) == 4 {
		if !strings.HasPrefix(fields[3], hostPrefix) {
			return models.WakeEvent{}, fmt.Errorf("%w: bad HOST field %q", ErrMalformedLine, fields[3])
		}
		ev.NetworkAddress = strings.TrimPrefix(fields[3], hostPrefix)
	}

	return ev, nil
}
