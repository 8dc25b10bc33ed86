package main

import (
	"fmt"

	"github.com/fgeck/nodewake/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	sleepUser    string
	sleepPort    int
	sleepKey     string
	sleepCommand string
	sleepKnown   string
	sleepCheck   bool
)

var sleepCmd = &cobra.Command{
	Use:   "sleep <name>",
	Short: "Suspend a registered node over SSH",
	Long: `Connect to a node from the target registry over SSH and run the
suspend command (default "sudo systemctl suspend"). A connection dropped
after the command started is expected and not an error.`,
	Args: maxArgs(1),
	RunE: runSleep,
}

func init() {
	sleepCmd.Flags().StringVarP(&sleepUser, "user", "u", "", "SSH username (default from config)")
	sleepCmd.Flags().IntVarP(&sleepPort, "port", "p", 0, "SSH port (default from config)")
	sleepCmd.Flags().StringVarP(&sleepKey, "key", "k", "", "SSH private key file (default from config)")
	sleepCmd.Flags().StringVar(&sleepCommand, "command", "", "suspend command (default from config)")
	sleepCmd.Flags().StringVar(&sleepKnown, "known-hosts", "", "verify the host key against this known_hosts file (default from config)")
	sleepCmd.Flags().BoolVar(&sleepCheck, "check", false, "only verify the SSH login, do not suspend")
}

func runSleep(cmd *cobra.Command, args []string) error {
	sshCfg := cfg.SSH
	flags := cmd.Flags()
	if flags.Changed("user") {
		sshCfg.Username = sleepUser
	}
	if flags.Changed("port") {
		if sleepPort < 1 || sleepPort > 65535 {
			return fmt.Errorf("%w: --port must be between 1 and 65535, got %d", errInvalidInput, sleepPort)
		}
		sshCfg.Port = sleepPort
	}
	if flags.Changed("key") {
		sshCfg.KeyPath = sleepKey
	}
	if flags.Changed("command") {
		sshCfg.Command = sleepCommand
	}
	if flags.Changed("known-hosts") {
		sshCfg.KnownHosts = sleepKnown
	}

	var token string
	if len(args) > 0 {
		token = args[0]
	}

	runnerSvc, err := runner.New(log.Logger, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if sleepCheck {
		if _, err := runnerSvc.CheckSleep(ctx, token, sshCfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: SSH connection OK\n", token)
		return nil
	}

	if _, err := runnerSvc.Sleep(ctx, token, sshCfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: suspend command sent\n", token)
	return nil
}
