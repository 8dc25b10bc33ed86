// Package power suspends nodes over SSH so they can later be woken with a magic packet.
package power

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultSuspendCommand puts a systemd host to sleep.
const DefaultSuspendCommand = "sudo systemctl suspend"

const dialTimeout = 15 * time.Second

// ErrNoPrivateKey is returned when neither a key nor a key path is configured.
var ErrNoPrivateKey = errors.New("no private key provided")

// Service defines the interface for remote power operations.
type Service interface {
	Suspend(ctx context.Context, cfg models.SuspendConfig) (*models.SSHResult, error)
	TestConnection(ctx context.Context, cfg models.SuspendConfig) (*models.SSHResult, error)
}

// SSHClient wraps ssh.Client for mocking.
type SSHClient interface {
	NewSession() (SSHSession, error)
	Close() error
}

// SSHSession wraps ssh.Session for mocking.
type SSHSession interface {
	CombinedOutput(cmd string) ([]byte, error)
	Close() error
}

// ClientFactory creates SSH clients.
type ClientFactory interface {
	NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error)
}

// DefaultClientFactory dials real SSH servers.
type DefaultClientFactory struct{}

// NewClient creates a new SSH client.
func (f *DefaultClientFactory) NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, err
	}
	return &defaultSSHClient{client: client}, nil
}

type defaultSSHClient struct {
	client *ssh.Client
}

func (c *defaultSSHClient) NewSession() (SSHSession, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (c *defaultSSHClient) Close() error {
	return c.client.Close()
}

// Impl implements the power Service interface.
type Impl struct {
	clientFactory ClientFactory
	logger        zerolog.Logger
}

// New creates a new power service.
func New(logger zerolog.Logger) *Impl {
	return NewWithClientFactory(logger, &DefaultClientFactory{})
}

// NewWithClientFactory creates a new power service with a custom client factory (for testing).
func NewWithClientFactory(logger zerolog.Logger, factory ClientFactory) *Impl {
	return &Impl{
		clientFactory: factory,
		logger:        logger,
	}
}

func (s *Impl) buildConfig(cfg models.SuspendConfig) (*ssh.ClientConfig, error) {
	key := cfg.PrivateKey
	if len(key) == 0 {
		if cfg.KeyPath == "" {
			return nil, ErrNoPrivateKey
		}
		var err error
		key, err = os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.KeyPath, err)
		}
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // opt in to verification with known_hosts
	if cfg.KnownHostsPath != "" {
		hostKeyCallback, err = knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         dialTimeout,
	}, nil
}

// connect dials the host, giving up when ctx is done. A client that
// connects after ctx expired is closed in the background.
func (s *Impl) connect(ctx context.Context, cfg models.SuspendConfig) (SSHClient, error) {
	sshConfig, err := s.buildConfig(cfg)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	type dialResult struct {
		client SSHClient
		err    error
	}
	dialed := make(chan dialResult, 1)

	go func() {
		client, err := s.clientFactory.NewClient("tcp", addr, sshConfig)
		dialed <- dialResult{client, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if late := <-dialed; late.client != nil {
				_ = late.client.Close()
			}
		}()
		return nil, ctx.Err()
	case res := <-dialed:
		if res.err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, res.err)
		}
		return res.client, nil
	}
}

// run executes command in a fresh session. Setup failures land in
// result.Error with CommandRun false; the command's own error is returned
// separately so callers can decide whether it matters.
func (s *Impl) run(ctx context.Context, cfg models.SuspendConfig, command string) (*models.SSHResult, error) {
	result := &models.SSHResult{}

	client, err := s.connect(ctx, cfg)
	if err != nil {
		result.Error = err
		return result, nil
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		return result, nil
	}
	defer func() { _ = session.Close() }()

	s.logger.Debug().Str("host", cfg.Host).Str("command", command).Msg("executing remote command")

	output, err := session.CombinedOutput(command)
	result.Output = string(output)
	result.CommandRun = true

	return result, err
}

// Suspend runs the suspend command on the node. The node usually drops the
// connection while the command runs, so an error after the command started is
// only logged.
func (s *Impl) Suspend(ctx context.Context, cfg models.SuspendConfig) (*models.SSHResult, error) {
	command := cfg.Command
	if command == "" {
		command = DefaultSuspendCommand
	}

	s.logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("user", cfg.Username).
		Msg("suspending remote node")

	result, cmdErr := s.run(ctx, cfg, command)
	switch {
	case !result.CommandRun:
		return result, nil
	case cmdErr != nil && ctx.Err() != nil:
		result.Error = ctx.Err()
	case cmdErr != nil:
		s.logger.Warn().Err(cmdErr).Str("output", result.Output).Msg("suspend command returned error (may be expected)")
	}

	s.logger.Info().
		Str("host", cfg.Host).
		Str("output", result.Output).
		Msg("suspend command completed")

	return result, nil
}

// TestConnection verifies SSH connectivity by running "echo OK".
func (s *Impl) TestConnection(ctx context.Context, cfg models.SuspendConfig) (*models.SSHResult, error) {
	s.logger.Debug().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("testing SSH connection")

	result, cmdErr := s.run(ctx, cfg, "echo OK")
	if cmdErr != nil {
		result.Error = fmt.Errorf("test command failed: %w", cmdErr)
	}

	return result, nil
}
