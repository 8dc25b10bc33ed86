package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fgeck/nodewake/internal/config"
	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Global flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool
	logFile    string

	// cfg is loaded once per invocation before any subcommand runs.
	cfg *models.Config
)

var rootCmd = &cobra.Command{
	Use:   "nodewake",
	Short: "Wake, watch and account for suspended homelab nodes",
	Long: `nodewake manages the power state of physical nodes:
  - Wake-on-LAN with transport fallbacks (native, wakeonlan, wol, python3, nc)
  - Waiting for a woken node to answer ping
  - A durable wake event log and reliability analytics over it
  - Suspending nodes over SSH
  - Telegram notifications

Nodes are addressed by MAC address or by name from the target registry.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(nil)
		return loadConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (optional, defaults apply)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to a rotating file")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errInvalidInput, err)
	})

	rootCmd.AddCommand(wakeCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sleepCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(validateCmd)
}

func loadConfig() error {
	loaded, err := config.NewParser().Load(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return fmt.Errorf("%w: %w", errInvalidInput, err)
	}
	cfg = loaded

	path := logFile
	if path == "" {
		path = cfg.Logging.File
	}
	if path != "" {
		setupLogging(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAge,
			Compress:   cfg.Logging.Compress,
		})
	}

	log.Debug().
		Str("config", configFile).
		Str("registry", cfg.Registry.Path).
		Str("event_log", cfg.EventLog.Path).
		Str("backend", cfg.EventLog.Backend).
		Msg("configuration loaded")

	return nil
}

// setupLogging configures the global logger on stderr, teeing JSON lines
// into file when it is not nil.
func setupLogging(file io.Writer) {
	var out io.Writer = os.Stderr
	if !jsonOutput {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		out = output
	}
	if file != nil {
		out = zerolog.MultiLevelWriter(out, file)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
