package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/fgeck/nodewake/internal/services/resolver"
	"github.com/fgeck/nodewake/internal/services/wol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and prerequisites",
	Long: `Validate the configuration, list the target registry, check that the
event log directory exists and show which wake transports are available.
Nothing is sent and nothing is recorded.`,
	Args: maxArgs(0),
	RunE: validateConfig,
}

func validateConfig(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	printConfigSummary(out, cfg)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Registry:")
	targets, err := resolver.New(log.Logger, cfg.Registry.Path).List()
	switch {
	case errors.Is(err, resolver.ErrRegistryNotFound):
		log.Warn().Str("path", cfg.Registry.Path).Msg("registry not found, only MAC addresses can be woken")
		fmt.Fprintf(out, "  %s (not found)\n", cfg.Registry.Path)
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "  %s (%d node(s))\n", cfg.Registry.Path, len(targets))
		for _, t := range targets {
			ip := t.NetworkAddress
			if ip == "" {
				ip = "-"
			}
			fmt.Fprintf(out, "  %-16s %s  %s\n", t.Name, t.MACAddress, ip)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Transports:")
	transports, err := wol.NewTransports(cfg.Wake.Transports, &wol.DefaultClient{}, &wol.DefaultExecutor{})
	if err != nil {
		return err
	}
	for _, t := range transports {
		fmt.Fprintf(out, "  %-10s available: %v\n", t.Name(), t.Available())
	}
	selected, err := wol.SelectTransport(transports)
	if err != nil {
		log.Error().Strs("transports", cfg.Wake.Transports).Msg("no wake transport available")
		return err
	}
	fmt.Fprintf(out, "  selected: %s\n", selected.Name())

	dir := filepath.Dir(cfg.EventLog.Path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Error().Str("dir", dir).Msg("event log directory does not exist")
		return fmt.Errorf("%w: event log directory %s does not exist", errInvalidInput, dir)
	}

	return nil
}

func printConfigSummary(out io.Writer, c *models.Config) {
	fmt.Fprintln(out, "Summary:")
	if configFile != "" {
		fmt.Fprintf(out, "  Config file: %s\n", configFile)
	}
	fmt.Fprintf(out, "  Registry: %s\n", c.Registry.Path)
	fmt.Fprintf(out, "  Event log: %s (%s)\n", c.EventLog.Path, c.EventLog.Backend)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Wake Defaults:")
	fmt.Fprintf(out, "  Broadcast IP: %s\n", c.Wake.BroadcastIP)
	fmt.Fprintf(out, "  Port: %d\n", c.Wake.Port)
	fmt.Fprintf(out, "  Packets: %d every %s\n", c.Wake.PacketCount, c.Wake.PacketDelay)
	fmt.Fprintf(out, "  Transports: %v\n", c.Wake.Transports)
	fmt.Fprintf(out, "  Wait: %v (timeout %s, interval %s)\n", c.Wake.Wait, c.Wake.Timeout, c.Wake.Interval)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Optional Features:")
	fmt.Fprintf(out, "  Telegram: %v\n", c.Telegram != nil)
	fmt.Fprintf(out, "  Metrics textfile: %v\n", c.Metrics.Textfile != "")
	fmt.Fprintf(out, "  Log file: %v\n", c.Logging.File != "" || logFile != "")

	if c.SSH.KeyPath != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "SSH Suspend:")
		fmt.Fprintf(out, "  Username: %s\n", c.SSH.Username)
		fmt.Fprintf(out, "  Port: %d\n", c.SSH.Port)
		fmt.Fprintf(out, "  Key: %s\n", c.SSH.KeyPath)
		fmt.Fprintf(out, "  Command: %s\n", c.SSH.Command)
	}

	if c.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", c.Telegram.ChatID)
		fmt.Fprintf(out, "  Bot Token: (configured)\n")
	}
}
