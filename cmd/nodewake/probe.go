package main

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/fgeck/nodewake/internal/services/probe"
	"github.com/fgeck/nodewake/internal/services/resolver"
	"github.com/fgeck/nodewake/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// errUnreachable is returned when a probed node or port does not answer.
var errUnreachable = errors.New("target unreachable")

var (
	probePort    int
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe <address|name>",
	Short: "Check whether a node answers ping and optionally a TCP port",
	Args:  maxArgs(1),
	RunE:  runProbe,
}

func init() {
	probeCmd.Flags().IntVarP(&probePort, "port", "p", 0, "also check that this TCP port accepts connections")
	probeCmd.Flags().DurationVarP(&probeTimeout, "timeout", "t", 0, "probe timeout (default wake.ping_timeout)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: an address or registry name is required", errInvalidInput)
	}
	if probePort < 0 || probePort > 65535 {
		return fmt.Errorf("%w: --port must be between 1 and 65535, got %d", errInvalidInput, probePort)
	}

	addr, err := probeAddress(args[0])
	if err != nil {
		return err
	}

	timeout := cfg.Wake.PingTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = probeTimeout
	}

	ctx, cancel := signalContext()
	defer cancel()

	probeSvc := probe.New(log.Logger)
	out := cmd.OutOrStdout()

	if !probeSvc.IsReachable(ctx, addr, timeout) {
		fmt.Fprintf(out, "%s: unreachable\n", addr)
		return fmt.Errorf("%w: %s did not answer ping", errUnreachable, addr)
	}
	fmt.Fprintf(out, "%s: reachable\n", addr)

	if probePort == 0 {
		return nil
	}
	if !probeSvc.CheckPort(ctx, addr, probePort, timeout) {
		fmt.Fprintf(out, "%s:%d: closed\n", addr, probePort)
		return fmt.Errorf("%w: %s port %d is closed", errUnreachable, addr, probePort)
	}
	fmt.Fprintf(out, "%s:%d: open\n", addr, probePort)

	return nil
}

// probeAddress turns an IP, registry name or host name into an address to probe.
func probeAddress(token string) (string, error) {
	if net.ParseIP(token) != nil {
		return token, nil
	}

	target, err := resolver.New(log.Logger, cfg.Registry.Path).Resolve(token)
	switch {
	case errors.Is(err, resolver.ErrNameNotFound), errors.Is(err, resolver.ErrRegistryNotFound):
		log.Debug().Str("host", token).Msg("not in registry, probing as host name")
		return token, nil
	case err != nil:
		return "", err
	case target.NetworkAddress == "":
		return "", fmt.Errorf("%w: %s", runner.ErrNoNetworkAddress, token)
	}

	return target.NetworkAddress, nil
}
