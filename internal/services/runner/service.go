// Package runner orchestrates the wake and sleep workflows.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/fgeck/nodewake/internal/services/eventlog"
	"github.com/fgeck/nodewake/internal/services/poller"
	"github.com/fgeck/nodewake/internal/services/power"
	"github.com/fgeck/nodewake/internal/services/probe"
	"github.com/fgeck/nodewake/internal/services/resolver"
	"github.com/fgeck/nodewake/internal/services/telegram"
	"github.com/fgeck/nodewake/internal/services/wol"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrMissingTarget is returned when no MAC address or name was given.
	ErrMissingTarget = errors.New("missing wake target: a MAC address or registry name is required")
	// ErrNoNetworkAddress is returned when an operation needs the node's IP but the registry has none.
	ErrNoNetworkAddress = errors.New("target has no network address")
	// ErrSuspend is returned when the suspend command could not be run.
	ErrSuspend = errors.New("suspend failed")
)

// Service defines the interface for the wake runner.
type Service interface {
	Wake(ctx context.Context, req models.WakeRequest) (*models.WakeResult, error)
	Sleep(ctx context.Context, token string, cfg models.SSHConfig) (*models.SSHResult, error)
	CheckSleep(ctx context.Context, token string, cfg models.SSHConfig) (*models.SSHResult, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	resolverSvc resolver.Service
	wolSvc      wol.Service
	pollerSvc   poller.Service
	recorder    wol.EventRecorder
	powerSvc    power.Service
	telegramSvc telegram.Service
	telegramCfg *models.TelegramConfig
	logger      zerolog.Logger
}

// New wires the runner from configuration.
func New(logger zerolog.Logger, cfg *models.Config) (*Impl, error) {
	store, err := eventlog.New(cfg.EventLog, logger)
	if err != nil {
		return nil, err
	}
	recorder := eventlog.NewRecorder(store, logger)

	wolSvc, err := wol.New(logger, recorder, cfg.Wake.Transports)
	if err != nil {
		return nil, err
	}

	return &Impl{
		resolverSvc: resolver.New(logger, cfg.Registry.Path),
		wolSvc:      wolSvc,
		pollerSvc:   poller.New(logger, probe.New(logger), cfg.Wake.PingTimeout),
		recorder:    recorder,
		powerSvc:    power.New(logger),
		telegramSvc: telegram.New(logger),
		telegramCfg: cfg.Telegram,
		logger:      logger,
	}, nil
}

// NewWithServices creates a new runner with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	resolverSvc resolver.Service,
	wolSvc wol.Service,
	pollerSvc poller.Service,
	recorder wol.EventRecorder,
	powerSvc power.Service,
	telegramSvc telegram.Service,
	telegramCfg *models.TelegramConfig,
) *Impl {
	return &Impl{
		resolverSvc: resolverSvc,
		wolSvc:      wolSvc,
		pollerSvc:   pollerSvc,
		recorder:    recorder,
		powerSvc:    powerSvc,
		telegramSvc: telegramSvc,
		telegramCfg: telegramCfg,
		logger:      logger,
	}
}

// Wake resolves the target, sends the magic packets and optionally waits for
// the node to come online.
//
// Validation and resolution errors abort before any I/O. A transmit failure is
// returned wrapped in wol.ErrTransmit. A node that never answers yields
// poller.ErrTimeout, an aborted wait poller.ErrCancelled and a wake cancelled
// before the first packet wol.ErrCancelled. The returned result
// is non-nil once packets were attempted.
func (s *Impl) Wake(ctx context.Context, req models.WakeRequest) (*models.WakeResult, error) {
	logger := s.logger.With().Str("attempt", uuid.NewString()).Logger()
	startTime := time.Now()

	if strings.TrimSpace(req.Target) == "" {
		return nil, ErrMissingTarget
	}

	target, err := s.resolverSvc.Resolve(req.Target)
	if err != nil {
		logger.Error().Err(err).Str("target", req.Target).Msg("failed to resolve target")
		return nil, err
	}

	logger.Info().
		Str("name", target.Name).
		Str("mac", target.MACAddress).
		Str("ip", target.NetworkAddress).
		Msg("starting wake")

	result := &models.WakeResult{Target: *target}
	var runErr error
	attempted := false

	defer func() {
		if attempted && s.telegramCfg != nil && !errors.Is(runErr, poller.ErrCancelled) {
			s.sendNotification(ctx, logger, result, startTime, runErr)
		}
	}()

	sendResult, err := s.wolSvc.Send(ctx, models.SendRequest{
		MACAddress:     target.MACAddress,
		NetworkAddress: target.NetworkAddress,
		BroadcastIP:    req.BroadcastIP,
		Port:           req.Port,
		PacketCount:    req.PacketCount,
		PacketDelay:    req.PacketDelay,
	})
	if err != nil {
		logger.Error().Err(err).Str("mac", target.MACAddress).Msg("wake failed")
		if errors.Is(err, wol.ErrInvalidMAC) || errors.Is(err, wol.ErrInvalidBroadcast) || errors.Is(err, wol.ErrCancelled) {
			return nil, err
		}
		attempted = true
		result.Outcome = models.OutcomeFailed
		runErr = err
		return result, err
	}

	attempted = true
	result.Transport = sendResult.Transport
	result.PacketsSent = sendResult.PacketsSent

	if sendResult.Error != nil {
		result.Outcome = models.OutcomeFailed
		runErr = sendResult.Error
		return result, sendResult.Error
	}
	result.Outcome = models.OutcomeSent

	if !req.Wait {
		logger.Info().Str("transport", result.Transport).Int("packets", result.PacketsSent).Msg("wake packets sent")
		return result, nil
	}

	if target.NetworkAddress == "" {
		result.WaitSkipped = true
		logger.Warn().
			Str("mac", target.MACAddress).
			Msg("network address unknown, cannot wait for node to come online")
		return result, nil
	}

	waitStart := time.Now()
	outcome := s.pollerSvc.WaitForOnline(ctx, target.NetworkAddress, req.Timeout, req.Interval)
	result.Waited = true
	result.WaitDuration = time.Since(waitStart)
	result.Outcome = outcome

	if outcome != models.OutcomeCancelled {
		s.recorder.Record(outcome, target.MACAddress, target.NetworkAddress)
	}

	runErr = poller.Err(outcome)
	if runErr != nil {
		logger.Error().
			Err(runErr).
			Str("ip", target.NetworkAddress).
			Dur("timeout", req.Timeout).
			Msg("node did not come online")
		return result, runErr
	}

	logger.Info().
		Str("ip", target.NetworkAddress).
		Dur("wait_duration", result.WaitDuration).
		Msg("node is online")

	return result, nil
}

// Sleep suspends a registered node over SSH.
func (s *Impl) Sleep(ctx context.Context, token string, cfg models.SSHConfig) (*models.SSHResult, error) {
	target, suspendCfg, err := s.suspendConfig(token, cfg)
	if err != nil {
		return nil, err
	}

	result, err := s.powerSvc.Suspend(ctx, suspendCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSuspend, err)
	}
	if result.Error != nil {
		if !result.CommandRun {
			return result, fmt.Errorf("%w: %w", ErrSuspend, result.Error)
		}
		s.logger.Warn().
			Err(result.Error).
			Str("output", result.Output).
			Msg("suspend command returned error (may be expected)")
	}

	s.logger.Info().
		Str("name", target.Name).
		Str("host", target.NetworkAddress).
		Msg("suspend command sent")

	return result, nil
}

// CheckSleep verifies that a registered node accepts the SSH login used by
// Sleep without suspending it.
func (s *Impl) CheckSleep(ctx context.Context, token string, cfg models.SSHConfig) (*models.SSHResult, error) {
	target, suspendCfg, err := s.suspendConfig(token, cfg)
	if err != nil {
		return nil, err
	}

	result, err := s.powerSvc.TestConnection(ctx, suspendCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSuspend, err)
	}
	if result.Error != nil {
		return result, fmt.Errorf("%w: %w", ErrSuspend, result.Error)
	}

	s.logger.Info().Str("name", target.Name).Str("host", target.NetworkAddress).Msg("SSH connection OK")
	return result, nil
}

func (s *Impl) suspendConfig(token string, cfg models.SSHConfig) (*models.WakeTarget, models.SuspendConfig, error) {
	if strings.TrimSpace(token) == "" {
		return nil, models.SuspendConfig{}, ErrMissingTarget
	}

	target, err := s.resolverSvc.Resolve(token)
	if err != nil {
		s.logger.Error().Err(err).Str("target", token).Msg("failed to resolve target")
		return nil, models.SuspendConfig{}, err
	}
	if target.NetworkAddress == "" {
		return nil, models.SuspendConfig{}, fmt.Errorf("%w: %s", ErrNoNetworkAddress, token)
	}

	suspendCfg := models.SuspendConfig{
		Host:           target.NetworkAddress,
		Port:           cfg.Port,
		Username:       cfg.Username,
		KeyPath:        cfg.KeyPath,
		Command:        cfg.Command,
		KnownHostsPath: cfg.KnownHosts,
	}

	if cfg.KeyPath != "" {
		key, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, models.SuspendConfig{}, fmt.Errorf("failed to read SSH key: %w", err)
		}
		suspendCfg.PrivateKey = key
	}

	return target, suspendCfg, nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	logger zerolog.Logger,
	result *models.WakeResult,
	startTime time.Time,
	runErr error,
) {
	msg := models.WakeNotification{
		Success:      runErr == nil,
		Name:         result.Target.Name,
		MACAddress:   result.Target.MACAddress,
		Transport:    result.Transport,
		Outcome:      result.Outcome,
		StartTime:    startTime,
		WaitDuration: result.WaitDuration,
	}
	if runErr != nil {
		msg.ErrorMessage = runErr.Error()
	}

	sent, err := s.telegramSvc.SendNotification(ctx, *s.telegramCfg, msg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if sent.Error != nil {
		logger.Error().Err(sent.Error).Msg("failed to send Telegram notification")
		return
	}

	logger.Info().Msg("Telegram notification sent")
}
