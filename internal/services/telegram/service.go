// Package telegram sends wake outcome notifications through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.WakeNotification) (*models.TelegramResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient HTTPClient
	baseURL    string
	logger     zerolog.Logger
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return NewWithClient(logger, &http.Client{Timeout: 15 * time.Second}, DefaultBaseURL)
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

type sendMessageRequest struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendNotification reports the outcome of one wake flow. Successful wakes
// are delivered silently; failures ring.
func (s *Impl) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.WakeNotification) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	s.logger.Debug().
		Str("chat_id", cfg.ChatID).
		Str("outcome", string(msg.Outcome)).
		Bool("success", msg.Success).
		Msg("sending Telegram notification")

	body, err := json.Marshal(sendMessageRequest{
		ChatID:              cfg.ChatID,
		Text:                formatMessage(msg),
		ParseMode:           "HTML",
		DisableNotification: msg.Success,
	})
	if err != nil {
		result.Error = fmt.Errorf("failed to marshal request: %w", err)
		return result, nil
	}

	endpoint := s.baseURL + "/bot" + cfg.BotToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("failed to send request: %w", err)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = apiError(resp)
		return result, nil
	}

	result.MessageSent = true
	s.logger.Debug().Msg("Telegram notification delivered")

	return result, nil
}

// apiError names the HTTP status and, when the body carries one, the Bot API description.
func apiError(resp *http.Response) error {
	var decoded apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &decoded) == nil && decoded.Description != "" {
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, decoded.Description)
	}
	return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
}

func formatMessage(msg models.WakeNotification) string {
	var b strings.Builder

	if msg.Success {
		b.WriteString("✅ <b>Node Woken</b>\n\n")
	} else {
		b.WriteString("❌ <b>Wake Failed</b>\n\n")
	}

	if msg.Name != "" {
		fmt.Fprintf(&b, "🖥 <b>Node:</b> %s\n", html.EscapeString(msg.Name))
	}
	fmt.Fprintf(&b, "🔌 <b>MAC:</b> <code>%s</code>\n", html.EscapeString(msg.MACAddress))
	if msg.Transport != "" {
		fmt.Fprintf(&b, "📡 <b>Transport:</b> %s\n", html.EscapeString(msg.Transport))
	}
	if msg.Outcome != "" {
		fmt.Fprintf(&b, "📋 <b>Outcome:</b> %s\n", msg.Outcome)
	}
	fmt.Fprintf(&b, "⏰ <b>Started:</b> %s\n", msg.StartTime.Format("2006-01-02 15:04:05"))
	if msg.WaitDuration > 0 {
		fmt.Fprintf(&b, "⏱ <b>Online after:</b> %s\n", msg.WaitDuration.Round(time.Second))
	}

	if !msg.Success && msg.ErrorMessage != "" {
		fmt.Fprintf(&b, "\n<b>⚠️ Error:</b> <code>%s</code>\n", html.EscapeString(msg.ErrorMessage))
	}

	return b.String()
}
