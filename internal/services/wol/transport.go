package wol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strconv"

	"github.com/mdlayher/wol"
)

// Transport names, usable in wake.transports.
const (
	TransportNative    = "native"
	TransportWakeonlan = "wakeonlan"
	TransportWol       = "wol"
	TransportPython    = "python"
	TransportNetcat    = "netcat"
)

// DefaultTransportOrder is the priority order used when none is configured.
var DefaultTransportOrder = []string{
	TransportNative,
	TransportWakeonlan,
	TransportWol,
	TransportPython,
	TransportNetcat,
}

// ErrNoTransportAvailable is returned when no configured transport can be used on this host.
var ErrNoTransportAvailable = errors.New("no wake transport available")

// Transport emits a magic packet as a UDP broadcast.
type Transport interface {
	Name() string
	Available() bool
	Send(ctx context.Context, mac net.HardwareAddr, broadcastIP string, port int) error
}

// Client wraps the wol library for mocking.
type Client interface {
	Available() bool
	Wake(addr string, mac net.HardwareAddr) error
}

// DefaultClient is the default implementation using mdlayher/wol.
type DefaultClient struct{}

// Available reports whether a broadcast UDP socket can be opened.
func (c *DefaultClient) Available() bool {
	client, err := wol.NewClient()
	if err != nil {
		return false
	}
	_ = client.Close()
	return true
}

// Wake sends a magic packet to addr (host:port).
func (c *DefaultClient) Wake(addr string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create WOL client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Wake(addr, mac); err != nil {
		return fmt.Errorf("failed to send WOL packet: %w", err)
	}

	return nil
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	LookPath(name string) (string, error)
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
	ExecuteWithInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// LookPath searches PATH for name.
func (e *DefaultExecutor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Execute runs a command and returns its output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// ExecuteWithInput runs a command with input on stdin.
func (e *DefaultExecutor) ExecuteWithInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(input)
	return cmd.CombinedOutput()
}

type nativeTransport struct {
	client Client
}

func (t *nativeTransport) Name() string    { return TransportNative }
func (t *nativeTransport) Available() bool { return t.client.Available() }

func (t *nativeTransport) Send(_ context.Context, mac net.HardwareAddr, broadcastIP string, port int) error {
	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return fmt.Errorf("invalid broadcast IP: %s", broadcastIP)
	}
	return t.client.Wake(net.JoinHostPort(ip.String(), strconv.Itoa(port)), mac)
}

// pythonWake opens a SO_BROADCAST datagram socket and sends the packet.
const pythonWake = `import socket,sys
m=bytes.fromhex(sys.argv[1].replace(':',''))
s=socket.socket(socket.AF_INET,socket.SOCK_DGRAM)
s.setsockopt(socket.SOL_SOCKET,socket.SO_BROADCAST,1)
s.sendto(b'\xff'*6+m*16,(sys.argv[2],int(sys.argv[3])))
s.close()`

// commandTransport shells out to a utility found on PATH.
type commandTransport struct {
	name     string
	binary   string
	executor CommandExecutor
	args     func(mac, broadcastIP, port string) []string
	stdin    bool // pipe the hand-built packet to the command
}

func (t *commandTransport) Name() string { return t.name }

func (t *commandTransport) Available() bool {
	_, err := t.executor.LookPath(t.binary)
	return err == nil
}

func (t *commandTransport) Send(ctx context.Context, mac net.HardwareAddr, broadcastIP string, port int) error {
	args := t.args(mac.String(), broadcastIP, strconv.Itoa(port))

	var (
		output []byte
		err    error
	)
	if t.stdin {
		packet := magicPacketFor(mac)
		output, err = t.executor.ExecuteWithInput(ctx, packet.Bytes(), t.binary, args...)
	} else {
		output, err = t.executor.Execute(ctx, t.binary, args...)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w, output: %s", t.binary, err, string(output))
	}
	return nil
}

// NewTransport builds the named transport.
func NewTransport(name string, client Client, executor CommandExecutor) (Transport, error) {
	switch name {
	case TransportNative:
		return &nativeTransport{client: client}, nil
	case TransportWakeonlan:
		return &commandTransport{
			name: name, binary: "wakeonlan", executor: executor,
			args: func(mac, bcast, port string) []string { return []string{"-i", bcast, "-p", port, mac} },
		}, nil
	case TransportWol:
		return &commandTransport{
			name: name, binary: "wol", executor: executor,
			args: func(mac, bcast, port string) []string { return []string{"-i", bcast, "-p", port, mac} },
		}, nil
	case TransportPython:
		return &commandTransport{
			name: name, binary: "python3", executor: executor,
			args: func(mac, bcast, port string) []string { return []string{"-c", pythonWake, mac, bcast, port} },
		}, nil
	case TransportNetcat:
		return &commandTransport{
			name: name, binary: "nc", executor: executor, stdin: true,
			args: func(_, bcast, port string) []string { return []string{"-u", "-b", "-w1", bcast, port} },
		}, nil
	default:
		return nil, fmt.Errorf("unknown wake transport %q", name)
	}
}

// KnownTransport reports whether name can be passed to NewTransport.
func KnownTransport(name string) bool {
	for _, n := range DefaultTransportOrder {
		if n == name {
			return true
		}
	}
	return false
}

// NewTransports builds transports in the given priority order.
func NewTransports(names []string, client Client, executor CommandExecutor) ([]Transport, error) {
	if len(names) == 0 {
		names = DefaultTransportOrder
	}
	transports := make([]Transport, 0, len(names))
	for _, name := range names {
		t, err := NewTransport(name, client, executor)
		if err != nil {
			return nil, err
		}
		transports = append(transports, t)
	}
	return transports, nil
}

// SelectTransport returns the first available transport. Later transports are
// never tried once one is available, even if its send fails.
func SelectTransport(transports []Transport) (Transport, error) {
	for _, t := range transports {
		if t.Available() {
			return t, nil
		}
	}
	return nil, ErrNoTransportAvailable
}
