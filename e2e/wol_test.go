//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/fgeck/nodewake/internal/services/analytics"
	"github.com/fgeck/nodewake/internal/services/eventlog"
	"github.com/fgeck/nodewake/internal/services/poller"
	"github.com/fgeck/nodewake/internal/services/probe"
	"github.com/fgeck/nodewake/internal/services/resolver"
	"github.com/fgeck/nodewake/internal/services/runner"
	"github.com/fgeck/nodewake/internal/services/wol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// listenUDP opens a loopback socket standing in for the sleeping node's NIC.
func listenUDP(t *testing.T) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

func readPacket(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestNativeTransport_RealUDP_E2E(t *testing.T) {
	conn, port := listenUDP(t)

	transport, err := wol.NewTransport(wol.TransportNative, &wol.DefaultClient{}, &wol.DefaultExecutor{})
	require.NoError(t, err)
	if !transport.Available() {
		t.Skip("cannot open a UDP socket on this host")
	}

	mac, err := net.ParseMAC("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	require.NoError(t, transport.Send(context.Background(), mac, "127.0.0.1", port))

	expected, err := wol.NewMagicPacket("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Equal(t, expected.Bytes(), readPacket(t, conn))
}

func TestSend_BurstOverRealSocket_E2E(t *testing.T) {
	conn, port := listenUDP(t)
	logPath := filepath.Join(t.TempDir(), "wake-events.log")
	recorder := eventlog.NewRecorder(eventlog.NewFileStore(logPath, testLogger()), testLogger())

	svc, err := wol.New(testLogger(), recorder, []string{wol.TransportNative})
	require.NoError(t, err)

	result, err := svc.Send(context.Background(), models.SendRequest{
		MACAddress:  "aa:bb:cc:dd:ee:ff",
		BroadcastIP: "127.0.0.1",
		Port:        port,
		PacketCount: 3,
		PacketDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, 3, result.PacketsSent)

	for i := 0; i < 3; i++ {
		assert.Len(t, readPacket(t, conn), wol.MagicPacketSize)
	}

	events, err := eventlog.NewFileStore(logPath, testLogger()).ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.OutcomeSent, events[0].Outcome)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", events[0].MACAddress)
}

// wakeEnv wires the real components against files in a temp dir.
type wakeEnv struct {
	runner  *runner.Impl
	store   eventlog.Store
	logPath string
}

func newWakeEnv(t *testing.T, registry string, prober poller.Prober) wakeEnv {
	t.Helper()
	dir := t.TempDir()
	registryPath := filepath.Join(dir, "nodes")
	require.NoError(t, os.WriteFile(registryPath, []byte(registry), 0o600))
	logPath := filepath.Join(dir, "wake-events.log")

	store := eventlog.NewFileStore(logPath, testLogger())
	recorder := eventlog.NewRecorder(store, testLogger())
	wolSvc, err := wol.New(testLogger(), recorder, []string{wol.TransportNative})
	require.NoError(t, err)

	r := runner.NewWithServices(
		testLogger(),
		resolver.New(testLogger(), registryPath),
		wolSvc,
		poller.New(testLogger(), prober, time.Second),
		recorder,
		nil, nil, nil,
	)
	return wakeEnv{runner: r, store: store, logPath: logPath}
}

func TestWakeFlow_LocalhostComesOnline_E2E(t *testing.T) {
	prober := probe.New(testLogger())
	if !prober.IsReachable(context.Background(), "127.0.0.1", time.Second) {
		t.Skip("unprivileged ICMP is not permitted on this host")
	}

	conn, port := listenUDP(t)
	env := newWakeEnv(t, "local 02:00:00:00:00:01 127.0.0.1\n", prober)

	result, err := env.runner.Wake(context.Background(), models.WakeRequest{
		Target:      "local",
		BroadcastIP: "127.0.0.1",
		Port:        port,
		PacketCount: 1,
		Wait:        true,
		Timeout:     5 * time.Second,
		Interval:    500 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeOnline, result.Outcome)
	assert.True(t, result.Waited)
	assert.Len(t, readPacket(t, conn), wol.MagicPacketSize)

	report, err := analytics.New(testLogger(), env.store).Run(models.AnalysisWindow{Days: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, report.WolSent)
	assert.Equal(t, 1, report.Online)
	require.NotNil(t, report.SuccessRate)
	assert.Equal(t, 100, *report.SuccessRate)
}

type unreachable struct{}

func (unreachable) IsReachable(context.Context, string, time.Duration) bool { return false }

func TestWakeFlow_Timeout_E2E(t *testing.T) {
	_, port := listenUDP(t)
	env := newWakeEnv(t, "node1 AA:BB:CC:DD:EE:01 192.0.2.10\n", unreachable{})

	result, err := env.runner.Wake(context.Background(), models.WakeRequest{
		Target:      "node1",
		BroadcastIP: "127.0.0.1",
		Port:        port,
		PacketCount: 1,
		Wait:        true,
		Timeout:     300 * time.Millisecond,
		Interval:    100 * time.Millisecond,
	})

	require.ErrorIs(t, err, poller.ErrTimeout)
	assert.Equal(t, models.OutcomeTimeout, result.Outcome)

	data, err := os.ReadFile(env.logPath)
	require.NoError(t, err)
	assert.Regexp(t, `^\S+ WOL_SENT MAC=AA:BB:CC:DD:EE:01 HOST=192\.0\.2\.10\n\S+ TIMEOUT MAC=AA:BB:CC:DD:EE:01 HOST=192\.0\.2\.10\n$`, string(data))
}

func TestWakeFlow_UnregisteredName_E2E(t *testing.T) {
	env := newWakeEnv(t, "node1 AA:BB:CC:DD:EE:01 192.168.1.10\n", unreachable{})

	_, err := env.runner.Wake(context.Background(), models.WakeRequest{
		Target:      "ghost-node",
		BroadcastIP: "127.0.0.1",
		Port:        9,
		Wait:        true,
	})

	require.ErrorIs(t, err, resolver.ErrNameNotFound)
	assert.NoFileExists(t, env.logPath)
}

func TestWakeFlow_CancelledWaitNotRecorded_E2E(t *testing.T) {
	_, port := listenUDP(t)
	env := newWakeEnv(t, "node1 AA:BB:CC:DD:EE:01 192.0.2.10\n", unreachable{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	result, err := env.runner.Wake(ctx, models.WakeRequest{
		Target:      "node1",
		BroadcastIP: "127.0.0.1",
		Port:        port,
		PacketCount: 1,
		Wait:        true,
		Timeout:     time.Minute,
		Interval:    50 * time.Millisecond,
	})

	require.ErrorIs(t, err, poller.ErrCancelled)
	assert.Equal(t, models.OutcomeCancelled, result.Outcome)

	events, err := env.store.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1, fmt.Sprintf("%+v", events))
	assert.Equal(t, models.OutcomeSent, events[0].Outcome)
}
