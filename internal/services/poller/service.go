// Package poller waits for a woken node to answer on the network.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
)

var (
	// ErrTimeout is returned when a node did not come online before the deadline.
	ErrTimeout = errors.New("timed out waiting for node to come online")
	// ErrCancelled is returned when the wait was aborted by the caller.
	ErrCancelled = errors.New("wait for node cancelled")
)

// Prober is the reachability check the poller repeats.
type Prober interface {
	IsReachable(ctx context.Context, addr string, timeout time.Duration) bool
}

// Service defines the interface for the online-wait poller.
type Service interface {
	WaitForOnline(ctx context.Context, addr string, timeout, interval time.Duration) models.Outcome
}

// Impl implements the poller Service interface.
type Impl struct {
	prober      Prober
	pingTimeout time.Duration
	after       func(d time.Duration) <-chan time.Time
	logger      zerolog.Logger
}

// New creates a poller probing with prober, each probe bounded by pingTimeout.
func New(logger zerolog.Logger, prober Prober, pingTimeout time.Duration) *Impl {
	return NewWithTimer(logger, prober, pingTimeout, time.After)
}

// NewWithTimer creates a poller with a custom sleep source (for testing).
func NewWithTimer(
	logger zerolog.Logger,
	prober Prober,
	pingTimeout time.Duration,
	after func(d time.Duration) <-chan time.Time,
) *Impl {
	return &Impl{
		prober:      prober,
		pingTimeout: pingTimeout,
		after:       after,
		logger:      logger,
	}
}

// WaitForOnline probes addr every interval until it answers or timeout elapses.
//
// Elapsed time is counted as iterations*interval, not wall clock. The first
// probe happens immediately. It returns ONLINE, TIMEOUT, or CANCELLED when
// ctx is done before either.
func (s *Impl) WaitForOnline(ctx context.Context, addr string, timeout, interval time.Duration) models.Outcome {
	if interval <= 0 {
		interval = timeout
	}

	s.logger.Info().
		Str("addr", addr).
		Dur("timeout", timeout).
		Dur("interval", interval).
		Msg("waiting for node to come online")

	var elapsed time.Duration
	for {
		if ctx.Err() != nil {
			return s.cancelled(addr, elapsed)
		}

		if s.prober.IsReachable(ctx, addr, s.pingTimeout) {
			s.logger.Info().Str("addr", addr).Dur("elapsed", elapsed).Msg("node is online")
			return models.OutcomeOnline
		}

		s.logger.Debug().Str("addr", addr).Dur("elapsed", elapsed).Msg("node not reachable yet")

		select {
		case <-ctx.Done():
			return s.cancelled(addr, elapsed)
		case <-s.after(interval):
		}

		elapsed += interval
		if elapsed >= timeout {
			s.logger.Warn().Str("addr", addr).Dur("elapsed", elapsed).Msg("node did not come online")
			return models.OutcomeTimeout
		}
	}
}

func (s *Impl) cancelled(addr string, elapsed time.Duration) models.Outcome {
	s.logger.Warn().Str("addr", addr).Dur("elapsed", elapsed).Msg("wait cancelled")
	return models.OutcomeCancelled
}

// Err maps a poll outcome to its error, nil for ONLINE.
func Err(outcome models.Outcome) error {
	switch outcome {
	case models.OutcomeOnline:
		return nil
	case models.OutcomeCancelled:
		return ErrCancelled
	default:
		return ErrTimeout
	}
}
