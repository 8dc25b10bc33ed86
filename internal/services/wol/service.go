// Package wol provides Wake-on-LAN operations.
package wol

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrTransmit wraps a failure of the selected transport.
	ErrTransmit = errors.New("failed to transmit magic packet")
	// ErrInvalidBroadcast is returned for a broadcast address that is not an IP.
	ErrInvalidBroadcast = errors.New("invalid broadcast IP")
	// ErrCancelled is returned when the caller gave up before the first packet went out.
	ErrCancelled = errors.New("wake cancelled before any packet was sent")
)

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Send(ctx context.Context, req models.SendRequest) (*models.SendResult, error)
}

// EventRecorder receives lifecycle transitions.
type EventRecorder interface {
	Record(outcome models.Outcome, mac, host string)
}

// Impl implements the WOL Service interface.
type Impl struct {
	transports []Transport
	recorder   EventRecorder
	logger     zerolog.Logger
}

// New creates a new WOL service using the named transports in priority order.
func New(logger zerolog.Logger, recorder EventRecorder, transportNames []string) (*Impl, error) {
	transports, err := NewTransports(transportNames, &DefaultClient{}, &DefaultExecutor{})
	if err != nil {
		return nil, err
	}
	return NewWithTransports(logger, recorder, transports), nil
}

// NewWithTransports creates a new WOL service with custom transports (for testing).
func NewWithTransports(logger zerolog.Logger, recorder EventRecorder, transports []Transport) *Impl {
	return &Impl{
		transports: transports,
		recorder:   recorder,
		logger:     logger,
	}
}

// Send validates the MAC, picks a transport and emits a burst of magic packets.
//
// Invalid input is returned as an error before any I/O and nothing is recorded.
// Transmit problems, including the absence of any transport, are recorded as
// WOL_FAILED; a missing transport is returned as an error, a failed send is
// stored in the result. Cancellation before the first packet records nothing
// and returns ErrCancelled.
func (s *Impl) Send(ctx context.Context, req models.SendRequest) (*models.SendResult, error) {
	mac, err := ValidateMAC(req.MACAddress)
	if err != nil {
		return nil, err
	}
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidMAC, req.MACAddress, err)
	}
	if net.ParseIP(req.BroadcastIP) == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBroadcast, req.BroadcastIP)
	}

	transport, err := SelectTransport(s.transports)
	if err != nil {
		s.recorder.Record(models.OutcomeFailed, mac, req.NetworkAddress)
		return nil, err
	}

	count := req.PacketCount
	if count < 1 {
		count = 1
	}

	s.logger.Info().
		Str("mac", mac).
		Str("broadcast", req.BroadcastIP).
		Int("port", req.Port).
		Str("transport", transport.Name()).
		Int("packets", count).
		Msg("sending WOL packets")

	result := &models.SendResult{Transport: transport.Name()}
	limiter := rate.NewLimiter(rate.Every(req.PacketDelay), 1)

	for i := 0; i < count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			result.Error = err
			break
		}
		if err := transport.Send(ctx, hw, req.BroadcastIP, req.Port); err != nil {
			result.Error = fmt.Errorf("%w via %s: %v", ErrTransmit, transport.Name(), err)
			break
		}
		result.PacketsSent++
		s.logger.Debug().Int("packet", i+1).Msg("WOL packet sent")
	}

	if result.PacketsSent == 0 && (ctx.Err() != nil || !errors.Is(result.Error, ErrTransmit)) {
		s.logger.Warn().Err(result.Error).Str("mac", mac).Msg("wake cancelled before sending")
		return nil, fmt.Errorf("%w: %w", ErrCancelled, result.Error)
	}

	if result.PacketsSent == 0 {
		s.recorder.Record(models.OutcomeFailed, mac, req.NetworkAddress)
		s.logger.Error().Err(result.Error).Str("mac", mac).Msg("WOL transmit failed")
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	if result.Error != nil {
		s.logger.Warn().
			Err(result.Error).
			Int("sent", result.PacketsSent).
			Int("requested", count).
			Msg("WOL burst cut short")
		result.Error = nil
	}

	s.recorder.Record(models.OutcomeSent, mac, req.NetworkAddress)
	s.logger.Info().Int("sent", result.PacketsSent).Msg("WOL packets sent successfully")

	return result, nil
}
