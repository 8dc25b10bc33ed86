// Package main is the entry point for nodewake.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	err := Execute()
	if err != nil {
		log.Error().Err(err).Msg("nodewake failed")
	}
	os.Exit(exitCode(err))
}
