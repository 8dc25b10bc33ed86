package main

import (
	"errors"
	"fmt"

	"github.com/fgeck/nodewake/internal/config"
	"github.com/fgeck/nodewake/internal/services/analytics"
	"github.com/fgeck/nodewake/internal/services/resolver"
	"github.com/fgeck/nodewake/internal/services/runner"
	"github.com/fgeck/nodewake/internal/services/wol"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitInvalid = 2
)

// errInvalidInput marks bad flags, arguments or missing prerequisites.
var errInvalidInput = errors.New("invalid input")

var invalidInput = []error{
	errInvalidInput,
	config.ErrInvalidConfig,
	runner.ErrMissingTarget,
	runner.ErrNoNetworkAddress,
	wol.ErrInvalidMAC,
	wol.ErrInvalidBroadcast,
	wol.ErrNoTransportAvailable,
	resolver.ErrRegistryNotFound,
	resolver.ErrNameNotFound,
	analytics.ErrInvalidWindow,
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	for _, target := range invalidInput {
		if errors.Is(err, target) {
			return exitInvalid
		}
	}
	return exitFailed
}

// maxArgs is cobra.MaximumNArgs with the error marked as invalid input.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errInvalidInput, err)
		}
		return nil
	}
}
