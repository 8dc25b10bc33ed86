package models

import "time"

// WakeEvent is one line of the wake event log.
type WakeEvent struct {
	Timestamp      time.Time
	Outcome        Outcome
	MACAddress     string
	NetworkAddress string // empty if unknown
}

// AnalysisWindow selects the trailing calendar days to analyse.
type AnalysisWindow struct {
	Days int
}
