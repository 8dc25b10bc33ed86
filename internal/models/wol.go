package models

import "time"

// Outcome is a wake lifecycle transition.
type Outcome string

// Persisted outcomes. OutcomeCancelled is only ever returned by the poller.
const (
	OutcomeSent      Outcome = "WOL_SENT"
	OutcomeFailed    Outcome = "WOL_FAILED"
	OutcomeOnline    Outcome = "ONLINE"
	OutcomeTimeout   Outcome = "TIMEOUT"
	OutcomeCancelled Outcome = "CANCELLED"
)

// Valid reports whether o may appear in the wake event log.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSent, OutcomeFailed, OutcomeOnline, OutcomeTimeout:
		return true
	}
	return false
}

// WakeTarget is a node that can be woken.
type WakeTarget struct {
	Name           string
	MACAddress     string // upper case, colon separated
	NetworkAddress string // empty if unknown
}

// SendRequest describes one magic packet burst.
type SendRequest struct {
	MACAddress     string
	NetworkAddress string // only used to tag the event
	BroadcastIP    string
	Port           int
	PacketCount    int
	PacketDelay    time.Duration
}

// SendResult holds the result of a magic packet burst.
type SendResult struct {
	Transport   string
	PacketsSent int
	Error       error
}

// WakeRequest is the input of a full wake flow.
type WakeRequest struct {
	Target      string // MAC address or registry name
	BroadcastIP string
	Port        int
	PacketCount int
	PacketDelay time.Duration
	Wait        bool
	Timeout     time.Duration
	Interval    time.Duration
}

// WakeResult holds the result of a full wake flow.
type WakeResult struct {
	Target       WakeTarget
	Transport    string
	PacketsSent  int
	Outcome      Outcome // last recorded outcome
	Waited       bool
	WaitSkipped  bool
	WaitDuration time.Duration
}
