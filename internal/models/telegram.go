package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// WakeNotification holds the data for a wake notification.
type WakeNotification struct {
	Success      bool
	Name         string
	MACAddress   string
	Transport    string
	Outcome      Outcome
	StartTime    time.Time
	WaitDuration time.Duration

	// Error info (if failed).
	ErrorMessage string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
