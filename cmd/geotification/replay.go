package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"geotification/internal/monitor"
)

var (
	replayInput  string
	replaySpeed  float64
	replayFormat string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a geofence event log",
	Long:  "replay feeds events from a JSONL log back into the configured writers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("format") {
			cfg.Output.Format = replayFormat
		}
		// the replayed log is the input; never write back into it
		cfg.Output.LogFile = ""
		writer, cleanup, err := newWriters(cfg, resolveFormat(cfg.Output.Format, stdoutIsTerminal()), "replay")
		if err != nil {
			return err
		}
		defer cleanup()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		n, err := monitor.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
		if err != nil {
			return fmt.Errorf("replay stopped after %d events: %w", n, err)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to event log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 disables pacing)")
	replayCmd.Flags().StringVar(&replayFormat, "format", "", "Output format: auto, json, color, tui")
	replayCmd.MarkFlagRequired("input")
}
