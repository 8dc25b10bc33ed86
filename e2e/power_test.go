//go:build e2e

package e2e

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/fgeck/nodewake/internal/services/power"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getSuspendConfig(t *testing.T) models.SuspendConfig {
	t.Helper()

	host := os.Getenv("TEST_SSH_HOST")
	if host == "" {
		t.Skip("TEST_SSH_HOST not set")
	}

	portStr := os.Getenv("TEST_SSH_PORT")
	if portStr == "" {
		portStr = "22"
	}
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	user := os.Getenv("TEST_SSH_USER")
	if user == "" {
		user = "root"
	}

	keyPath := os.Getenv("TEST_SSH_KEY_PATH")
	if keyPath == "" {
		t.Skip("TEST_SSH_KEY_PATH not set")
	}

	return models.SuspendConfig{
		Host:     host,
		Port:     port,
		Username: user,
		KeyPath:  keyPath,
		// Harmless stand-in so the test machine stays up.
		Command: "true",
	}
}

func TestPowerTestConnection_E2E(t *testing.T) {
	cfg := getSuspendConfig(t)

	result, err := power.New(testLogger()).TestConnection(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, result.CommandRun)
	assert.Contains(t, result.Output, "OK")
	assert.Nil(t, result.Error)
}

func TestPowerSuspendCommand_E2E(t *testing.T) {
	cfg := getSuspendConfig(t)

	result, err := power.New(testLogger()).Suspend(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, result.CommandRun)
	assert.Nil(t, result.Error)
}

func TestPowerConnectionFailed_E2E(t *testing.T) {
	keyPath := os.Getenv("TEST_SSH_KEY_PATH")
	if keyPath == "" {
		t.Skip("TEST_SSH_KEY_PATH not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := power.New(testLogger()).Suspend(ctx, models.SuspendConfig{
		Host:     "192.168.255.254",
		Port:     22,
		Username: "root",
		KeyPath:  keyPath,
	})

	require.NoError(t, err)
	assert.False(t, result.CommandRun)
	assert.Error(t, result.Error)
}
