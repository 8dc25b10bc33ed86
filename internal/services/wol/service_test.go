package wol

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	outcome models.Outcome
	mac     string
	host    string
}

type mockRecorder struct {
	events []recordedEvent
}

func (m *mockRecorder) Record(outcome models.Outcome, mac, host string) {
	m.events = append(m.events, recordedEvent{outcome: outcome, mac: mac, host: host})
}

type mockTransport struct {
	name      string
	available bool
	sendFunc  func(mac net.HardwareAddr, broadcastIP string, port int) error
	calls     int
}

func (m *mockTransport) Name() string    { return m.name }
func (m *mockTransport) Available() bool { return m.available }

func (m *mockTransport) Send(_ context.Context, mac net.HardwareAddr, broadcastIP string, port int) error {
	m.calls++
	if m.sendFunc != nil {
		return m.sendFunc(mac, broadcastIP, port)
	}
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testRequest() models.SendRequest {
	return models.SendRequest{
		MACAddress:     "aa:bb:cc:dd:ee:ff",
		NetworkAddress: "192.168.1.10",
		BroadcastIP:    "192.168.1.255",
		Port:           9,
		PacketCount:    1,
	}
}

func TestSend_Success(t *testing.T) {
	var capturedMAC net.HardwareAddr
	var capturedBroadcastIP string
	var capturedPort int

	transport := &mockTransport{
		name:      "native",
		available: true,
		sendFunc: func(mac net.HardwareAddr, broadcastIP string, port int) error {
			capturedMAC = mac
			capturedBroadcastIP = broadcastIP
			capturedPort = port
			return nil
		},
	}
	recorder := &mockRecorder{}
	svc := NewWithTransports(testLogger(), recorder, []Transport{transport})

	result, err := svc.Send(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Equal(t, "native", result.Transport)
	assert.Equal(t, 1, result.PacketsSent)

	expectedMAC, _ := net.ParseMAC("AA:BB:CC:DD:EE:FF")
	assert.Equal(t, expectedMAC, capturedMAC)
	assert.Equal(t, "192.168.1.255", capturedBroadcastIP)
	assert.Equal(t, 9, capturedPort)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, recordedEvent{models.OutcomeSent, "AA:BB:CC:DD:EE:FF", "192.168.1.10"}, recorder.events[0])
}

func TestSend_InvalidMAC_NoIO(t *testing.T) {
	transport := &mockTransport{name: "native", available: true}
	recorder := &mockRecorder{}
	svc := NewWithTransports(testLogger(), recorder, []Transport{transport})

	req := testRequest()
	req.MACAddress = "invalid-mac"
	result, err := svc.Send(context.Background(), req)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidMAC)
	assert.Contains(t, err.Error(), "invalid-mac")
	assert.Zero(t, transport.calls)
	assert.Empty(t, recorder.events)
}

func TestSend_InvalidBroadcast(t *testing.T) {
	transport := &mockTransport{name: "native", available: true}
	svc := NewWithTransports(testLogger(), &mockRecorder{}, []Transport{transport})

	req := testRequest()
	req.BroadcastIP = "broadcast"
	_, err := svc.Send(context.Background(), req)

	assert.ErrorIs(t, err, ErrInvalidBroadcast)
	assert.Zero(t, transport.calls)
}

func TestSend_NoTransportAvailable(t *testing.T) {
	recorder := &mockRecorder{}
	svc := NewWithTransports(testLogger(), recorder, []Transport{
		&mockTransport{name: "wakeonlan"},
		&mockTransport{name: "nc"},
	})

	result, err := svc.Send(context.Background(), testRequest())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNoTransportAvailable)
	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.OutcomeFailed, recorder.events[0].outcome)
}

func TestSend_TransmitFailure_NoFallthrough(t *testing.T) {
	first := &mockTransport{
		name:      "wakeonlan",
		available: true,
		sendFunc: func(net.HardwareAddr, string, int) error {
			return errors.New("network error")
		},
	}
	second := &mockTransport{name: "nc", available: true}
	recorder := &mockRecorder{}
	svc := NewWithTransports(testLogger(), recorder, []Transport{first, second})

	result, err := svc.Send(context.Background(), testRequest())

	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.ErrorIs(t, result.Error, ErrTransmit)
	assert.Contains(t, result.Error.Error(), "network error")
	assert.Zero(t, result.PacketsSent)
	assert.Zero(t, second.calls)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.OutcomeFailed, recorder.events[0].outcome)
	assert.Equal(t, "192.168.1.10", recorder.events[0].host)
}

func TestSend_CancelledBeforeFirstPacket(t *testing.T) {
	transport := &mockTransport{name: "native", available: true}
	recorder := &mockRecorder{}
	svc := NewWithTransports(testLogger(), recorder, []Transport{transport})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Send(ctx, testRequest())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTransmit)
	assert.Zero(t, transport.calls)
	assert.Empty(t, recorder.events, "nothing is recorded for a cancelled wake")
}

func TestSend_CancelledMidBurstStillSent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := &mockTransport{name: "native", available: true}
	transport.sendFunc = func(net.HardwareAddr, string, int) error {
		cancel()
		return nil
	}
	recorder := &mockRecorder{}
	svc := NewWithTransports(testLogger(), recorder, []Transport{transport})

	req := testRequest()
	req.PacketCount = 3
	req.PacketDelay = time.Hour
	result, err := svc.Send(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, 1, result.PacketsSent)
	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.OutcomeSent, recorder.events[0].outcome)
}

func TestSend_Burst(t *testing.T) {
	transport := &mockTransport{name: "native", available: true}
	recorder := &mockRecorder{}
	svc := NewWithTransports(testLogger(), recorder, []Transport{transport})

	req := testRequest()
	req.PacketCount = 3
	req.PacketDelay = 20 * time.Millisecond

	start := time.Now()
	result, err := svc.Send(context.Background(), req)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Equal(t, 3, result.PacketsSent)
	assert.Equal(t, 3, transport.calls)
	// Two gaps between three packets.
	assert.GreaterOrEqual(t, elapsed, 35*time.Millisecond)

	require.Len(t, recorder.events, 1, "a burst records a single WOL_SENT")
	assert.Equal(t, models.OutcomeSent, recorder.events[0].outcome)
}

func TestSend_BurstCutShortStillSent(t *testing.T) {
	transport := &mockTransport{name: "native", available: true}
	transport.sendFunc = func(net.HardwareAddr, string, int) error {
		if transport.calls > 1 {
			return errors.New("network unreachable")
		}
		return nil
	}
	recorder := &mockRecorder{}
	svc := NewWithTransports(testLogger(), recorder, []Transport{transport})

	req := testRequest()
	req.PacketCount = 3
	result, err := svc.Send(context.Background(), req)

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Equal(t, 1, result.PacketsSent)
	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.OutcomeSent, recorder.events[0].outcome)
}

func TestSend_ZeroPacketCountSendsOne(t *testing.T) {
	transport := &mockTransport{name: "native", available: true}
	svc := NewWithTransports(testLogger(), &mockRecorder{}, []Transport{transport})

	req := testRequest()
	req.PacketCount = 0
	result, err := svc.Send(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 1, result.PacketsSent)
}
