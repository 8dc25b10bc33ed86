package main

import (
	"errors"
	"fmt"

	"github.com/fgeck/nodewake/internal/metrics"
	"github.com/fgeck/nodewake/internal/models"
	"github.com/fgeck/nodewake/internal/services/analytics"
	"github.com/fgeck/nodewake/internal/services/eventlog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	analyzeDays     int
	analyzeOutput   string
	analyzeTextfile string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report wake reliability and usage from the event log",
	Long: `Analyse the trailing days of the wake event log: outcome counts, success
rate, per-host breakdown, hour-of-day and day-of-week histograms and trends.

An empty log or window is reported as "no data" and is not an error.`,
	Args: maxArgs(0),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeDays, "days", "d", 7, "number of trailing calendar days, including today")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", analytics.FormatText, "report format: text, json or yaml")
	analyzeCmd.Flags().StringVar(&analyzeTextfile, "textfile", "", "also write prometheus gauges to this file (default from config)")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if !analytics.ValidFormat(analyzeOutput) {
		return fmt.Errorf("%w: unknown output format %q", errInvalidInput, analyzeOutput)
	}

	store, err := eventlog.New(cfg.EventLog, log.Logger)
	if err != nil {
		return err
	}

	window := models.AnalysisWindow{Days: analyzeDays}
	report, err := analytics.New(log.Logger, store).Run(window)
	if errors.Is(err, analytics.ErrNoData) {
		log.Info().Int("days", window.Days).Msg("no wake events to analyse")
		return analytics.RenderNoData(cmd.OutOrStdout(), analyzeOutput, window)
	}
	if err != nil {
		return err
	}

	textfile := cfg.Metrics.Textfile
	if cmd.Flags().Changed("textfile") {
		textfile = analyzeTextfile
	}
	if textfile != "" {
		if err := metrics.WriteTextfile(textfile, report); err != nil {
			return fmt.Errorf("failed to write metrics textfile: %w", err)
		}
		log.Debug().Str("path", textfile).Msg("metrics textfile written")
	}

	return analytics.Render(cmd.OutOrStdout(), analyzeOutput, report)
}
