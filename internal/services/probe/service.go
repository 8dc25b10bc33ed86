// Package probe checks whether a node answers on the network.
package probe

import (
	"context"
	"net"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/rs/zerolog"
)

// Service defines the interface for reachability checks.
// Neither method returns an error: any failure means unreachable.
type Service interface {
	IsReachable(ctx context.Context, addr string, timeout time.Duration) bool
	CheckPort(ctx context.Context, addr string, port int, timeout time.Duration) bool
}

// PingFunc sends one echo request and reports whether a reply arrived.
type PingFunc func(ctx context.Context, addr string, timeout time.Duration) (bool, error)

// DialFunc opens a connection, as net.Dialer.DialContext does.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Impl implements the probe Service interface.
type Impl struct {
	ping   PingFunc
	dial   DialFunc
	logger zerolog.Logger

	pingWarned atomic.Bool
}

// New creates a probe using ICMP echo and plain TCP connects.
func New(logger zerolog.Logger) *Impl {
	dialer := &net.Dialer{}
	return NewWithFuncs(logger, icmpPing, dialer.DialContext)
}

// NewWithFuncs creates a probe with custom ping and dial functions (for testing).
func NewWithFuncs(logger zerolog.Logger, ping PingFunc, dial DialFunc) *Impl {
	return &Impl{
		ping:   ping,
		dial:   dial,
		logger: logger,
	}
}

// IsReachable sends a single echo request and waits at most timeout for the reply.
// The first ping error is logged as a warning, later ones at debug level.
func (s *Impl) IsReachable(ctx context.Context, addr string, timeout time.Duration) bool {
	ok, err := s.ping(ctx, addr, timeout)
	if err != nil {
		if ctx.Err() == nil && s.pingWarned.CompareAndSwap(false, true) {
			s.logger.Warn().Err(err).Str("addr", addr).
				Msg("ping failed, check that unprivileged ICMP is allowed (net.ipv4.ping_group_range)")
			return false
		}
		s.logger.Debug().Err(err).Str("addr", addr).Msg("ping failed")
		return false
	}

	s.logger.Debug().Str("addr", addr).Bool("reachable", ok).Msg("ping completed")
	return ok
}

// CheckPort reports whether a TCP connection to addr:port succeeds within timeout.
func (s *Impl) CheckPort(ctx context.Context, addr string, port int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := net.JoinHostPort(addr, strconv.Itoa(port))
	conn, err := s.dial(ctx, "tcp", target)
	if err != nil {
		s.logger.Debug().Err(err).Str("target", target).Msg("port closed")
		return false
	}
	_ = conn.Close()

	s.logger.Debug().Str("target", target).Msg("port open")
	return true
}

func icmpPing(ctx context.Context, addr string, timeout time.Duration) (bool, error) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return false, err
	}

	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case err := <-done:
		if err != nil {
			return false, err
		}
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return false, ctx.Err()
	}

	return pinger.Statistics().PacketsRecv > 0, nil
}
