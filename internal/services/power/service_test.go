package power

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type mockSSHSession struct {
	combinedOutputFunc func(cmd string) ([]byte, error)
}

func (m *mockSSHSession) CombinedOutput(cmd string) ([]byte, error) {
	if m.combinedOutputFunc != nil {
		return m.combinedOutputFunc(cmd)
	}
	return []byte(""), nil
}

func (m *mockSSHSession) Close() error {
	return nil
}

type mockSSHClient struct {
	newSessionFunc func() (SSHSession, error)
	closed         bool
}

func (m *mockSSHClient) NewSession() (SSHSession, error) {
	if m.newSessionFunc != nil {
		return m.newSessionFunc()
	}
	return &mockSSHSession{}, nil
}

func (m *mockSSHClient) Close() error {
	m.closed = true
	return nil
}

type mockClientFactory struct {
	newClientFunc func(network, addr string, config *ssh.ClientConfig) (SSHClient, error)
}

func (m *mockClientFactory) NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
	if m.newClientFunc != nil {
		return m.newClientFunc(network, addr, config)
	}
	return &mockSSHClient{}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func generateTestKey(t *testing.T) []byte {
	t.Helper()

	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	pemBlock, err := ssh.MarshalPrivateKey(privateKey, "")
	require.NoError(t, err)

	return pem.EncodeToMemory(pemBlock)
}

func testConfig(t *testing.T) models.SuspendConfig {
	return models.SuspendConfig{
		Host:       "192.168.1.10",
		Port:       22,
		Username:   "root",
		PrivateKey: generateTestKey(t),
		Command:    "sudo systemctl suspend",
	}
}

// sessionFactory returns a factory whose sessions answer with run.
func sessionFactory(run func(cmd string) ([]byte, error)) (*mockClientFactory, *mockSSHClient, *string) {
	var addr string
	client := &mockSSHClient{
		newSessionFunc: func() (SSHSession, error) {
			return &mockSSHSession{combinedOutputFunc: run}, nil
		},
	}
	factory := &mockClientFactory{
		newClientFunc: func(_, a string, _ *ssh.ClientConfig) (SSHClient, error) {
			addr = a
			return client, nil
		},
	}
	return factory, client, &addr
}

func TestSuspend_Success(t *testing.T) {
	var capturedCommand string
	factory, client, addr := sessionFactory(func(cmd string) ([]byte, error) {
		capturedCommand = cmd
		return []byte(""), nil
	})

	svc := NewWithClientFactory(testLogger(), factory)
	result, err := svc.Suspend(context.Background(), testConfig(t))

	require.NoError(t, err)
	assert.True(t, result.CommandRun)
	assert.Nil(t, result.Error)
	assert.Equal(t, "sudo systemctl suspend", capturedCommand)
	assert.Equal(t, "192.168.1.10:22", *addr)
	assert.True(t, client.closed)
}

func TestSuspend_DefaultCommand(t *testing.T) {
	var capturedCommand string
	factory, _, _ := sessionFactory(func(cmd string) ([]byte, error) {
		capturedCommand = cmd
		return nil, nil
	})

	cfg := testConfig(t)
	cfg.Command = ""
	svc := NewWithClientFactory(testLogger(), factory)
	_, err := svc.Suspend(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, DefaultSuspendCommand, capturedCommand)
}

func TestSuspend_ConnectionDroppedIsExpected(t *testing.T) {
	factory, _, _ := sessionFactory(func(string) ([]byte, error) {
		return nil, errors.New("wait: remote command exited without exit status or exit signal")
	})

	svc := NewWithClientFactory(testLogger(), factory)
	result, err := svc.Suspend(context.Background(), testConfig(t))

	require.NoError(t, err)
	assert.True(t, result.CommandRun)
	assert.Nil(t, result.Error)
}

func TestSuspend_ConnectionFailed(t *testing.T) {
	factory := &mockClientFactory{
		newClientFunc: func(string, string, *ssh.ClientConfig) (SSHClient, error) {
			return nil, errors.New("connection refused")
		},
	}

	svc := NewWithClientFactory(testLogger(), factory)
	result, err := svc.Suspend(context.Background(), testConfig(t))

	require.NoError(t, err)
	assert.False(t, result.CommandRun)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "failed to connect")
	assert.Contains(t, result.Error.Error(), "192.168.1.10:22")
}

func TestSuspend_SessionFailed(t *testing.T) {
	factory := &mockClientFactory{
		newClientFunc: func(string, string, *ssh.ClientConfig) (SSHClient, error) {
			return &mockSSHClient{
				newSessionFunc: func() (SSHSession, error) {
					return nil, errors.New("session creation failed")
				},
			}, nil
		},
	}

	svc := NewWithClientFactory(testLogger(), factory)
	result, err := svc.Suspend(context.Background(), testConfig(t))

	require.NoError(t, err)
	assert.False(t, result.CommandRun)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "failed to create session")
}

func TestSuspend_KeyErrors(t *testing.T) {
	tests := []struct {
		name        string
		key         []byte
		keyPath     string
		errContains string
	}{
		{"no key", nil, "", "no private key"},
		{"invalid key", []byte("invalid key"), "", "failed to parse private key"},
		{"missing key file", nil, "/nonexistent/path/id_ed25519", "failed to read private key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewWithClientFactory(testLogger(), &mockClientFactory{})
			cfg := models.SuspendConfig{
				Host:       "192.168.1.10",
				Port:       22,
				Username:   "root",
				PrivateKey: tt.key,
				KeyPath:    tt.keyPath,
			}

			result, err := svc.Suspend(context.Background(), cfg)

			require.NoError(t, err)
			assert.False(t, result.CommandRun)
			require.Error(t, result.Error)
			assert.Contains(t, result.Error.Error(), tt.errContains)
		})
	}
}

func TestSuspend_KnownHostsMissing(t *testing.T) {
	factory, _, _ := sessionFactory(nil)
	cfg := testConfig(t)
	cfg.KnownHostsPath = filepath.Join(t.TempDir(), "known_hosts")

	result, err := NewWithClientFactory(testLogger(), factory).Suspend(context.Background(), cfg)

	require.NoError(t, err)
	assert.False(t, result.CommandRun)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "failed to load known hosts")
}

func TestSuspend_ContextCancelled(t *testing.T) {
	factory := &mockClientFactory{
		newClientFunc: func(string, string, *ssh.ClientConfig) (SSHClient, error) {
			time.Sleep(100 * time.Millisecond)
			return &mockSSHClient{}, nil
		},
	}

	svc := NewWithClientFactory(testLogger(), factory)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	result, err := svc.Suspend(ctx, testConfig(t))

	require.NoError(t, err)
	assert.False(t, result.CommandRun)
	assert.Equal(t, context.DeadlineExceeded, result.Error)
}

func TestTestConnection_Success(t *testing.T) {
	factory, _, _ := sessionFactory(func(cmd string) ([]byte, error) {
		if cmd == "echo OK" {
			return []byte("OK\n"), nil
		}
		return nil, errors.New("unexpected command")
	})

	svc := NewWithClientFactory(testLogger(), factory)
	result, err := svc.TestConnection(context.Background(), testConfig(t))

	require.NoError(t, err)
	assert.True(t, result.CommandRun)
	assert.Contains(t, result.Output, "OK")
	assert.Nil(t, result.Error)
}

func TestTestConnection_CommandFailed(t *testing.T) {
	factory, _, _ := sessionFactory(func(string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	})

	svc := NewWithClientFactory(testLogger(), factory)
	result, err := svc.TestConnection(context.Background(), testConfig(t))

	require.NoError(t, err)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "test command failed")
}

func TestBuildConfig_WithKeyPath(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, generateTestKey(t), 0o600))

	svc := NewWithClientFactory(testLogger(), &mockClientFactory{})
	sshConfig, err := svc.buildConfig(models.SuspendConfig{Username: "admin", KeyPath: keyPath})

	require.NoError(t, err)
	assert.Equal(t, "admin", sshConfig.User)
}
