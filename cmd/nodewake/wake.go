package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/fgeck/nodewake/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	wakeBroadcast string
	wakePort      int
	wakeCount     int
	wakeDelay     time.Duration
	wakeWait      bool
	wakeTimeout   time.Duration
	wakeInterval  time.Duration
)

var wakeCmd = &cobra.Command{
	Use:   "wake <mac|name>",
	Short: "Wake a node with Wake-on-LAN",
	Long: `Wake a node by MAC address or registry name:
1. Resolve the target (a MAC address is used as is)
2. Send a burst of magic packets with the first available transport
3. Wait until the node answers ping (with --wait and a known IP)
4. Record every transition in the wake event log
5. Send a Telegram notification (if configured)`,
	Args: maxArgs(1),
	RunE: runWake,
}

func init() {
	wakeCmd.Flags().StringVarP(&wakeBroadcast, "broadcast", "b", "", "broadcast address (default from config)")
	wakeCmd.Flags().IntVarP(&wakePort, "port", "p", 0, "UDP port (default from config)")
	wakeCmd.Flags().IntVarP(&wakeCount, "count", "n", 0, "number of magic packets (default from config)")
	wakeCmd.Flags().DurationVar(&wakeDelay, "delay", 0, "delay between packets (default from config)")
	wakeCmd.Flags().BoolVarP(&wakeWait, "wait", "w", false, "wait for the node to come online")
	wakeCmd.Flags().DurationVarP(&wakeTimeout, "timeout", "t", 0, "how long to wait (default from config)")
	wakeCmd.Flags().DurationVar(&wakeInterval, "interval", 0, "probe interval while waiting (default from config)")
}

func runWake(cmd *cobra.Command, args []string) error {
	req, err := wakeRequest(cmd, args)
	if err != nil {
		return err
	}

	runnerSvc, err := runner.New(log.Logger, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := runnerSvc.Wake(ctx, req)
	if result != nil {
		printWakeResult(cmd.OutOrStdout(), result)
	}
	return err
}

// wakeRequest builds the request from config defaults and explicitly set flags.
func wakeRequest(cmd *cobra.Command, args []string) (models.WakeRequest, error) {
	req := models.WakeRequest{
		BroadcastIP: cfg.Wake.BroadcastIP,
		Port:        cfg.Wake.Port,
		PacketCount: cfg.Wake.PacketCount,
		PacketDelay: cfg.Wake.PacketDelay,
		Wait:        cfg.Wake.Wait,
		Timeout:     cfg.Wake.Timeout,
		Interval:    cfg.Wake.Interval,
	}
	if len(args) > 0 {
		req.Target = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("broadcast") {
		req.BroadcastIP = wakeBroadcast
	}
	if flags.Changed("port") {
		if wakePort < 1 || wakePort > 65535 {
			return req, fmt.Errorf("%w: --port must be between 1 and 65535, got %d", errInvalidInput, wakePort)
		}
		req.Port = wakePort
	}
	if flags.Changed("count") {
		if wakeCount < 1 {
			return req, fmt.Errorf("%w: --count must be at least 1, got %d", errInvalidInput, wakeCount)
		}
		req.PacketCount = wakeCount
	}
	if flags.Changed("delay") {
		req.PacketDelay = wakeDelay
	}
	if flags.Changed("wait") {
		req.Wait = wakeWait
	}
	if flags.Changed("timeout") {
		req.Timeout = wakeTimeout
	}
	if flags.Changed("interval") {
		req.Interval = wakeInterval
	}
	if req.Timeout < 0 || req.Interval < 0 || req.PacketDelay < 0 {
		return req, fmt.Errorf("%w: durations must not be negative", errInvalidInput)
	}

	return req, nil
}

func printWakeResult(w io.Writer, result *models.WakeResult) {
	label := result.Target.MACAddress
	if result.Target.Name != "" {
		label = fmt.Sprintf("%s (%s)", result.Target.Name, result.Target.MACAddress)
	}

	if result.PacketsSent > 0 {
		fmt.Fprintf(w, "%s: sent %d magic packet(s) via %s\n", label, result.PacketsSent, result.Transport)
	}

	switch {
	case result.WaitSkipped:
		fmt.Fprintf(w, "%s: no IP address known, not waiting\n", label)
	case result.Waited:
		fmt.Fprintf(w, "%s: %s after %s\n", label, result.Outcome, result.WaitDuration.Round(time.Second))
	case result.Outcome == models.OutcomeFailed:
		fmt.Fprintf(w, "%s: %s\n", label, result.Outcome)
	}
}
