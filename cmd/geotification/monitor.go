package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"geotification/internal/admin"
	"geotification/internal/config"
	"geotification/internal/fix"
	"geotification/internal/geo"
	"geotification/internal/geofence"
	"geotification/internal/logging"
	"geotification/internal/monitor"
	"geotification/internal/track"
)

var (
	monFormat  string
	monSource  string
	monFixPath string
	monLogFile string
	monAdmin   string
	monRadius  float64
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor geofences around the track waypoints",
	Long: "monitor registers one circular region per waypoint of the configured track " +
		"and reports enter/exit transitions for the selected position fix source.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyMonitorFlags(cmd, cfg)

		format := resolveFormat(cfg.Output.Format, stdoutIsTerminal())
		logOut, closeLog, err := logDestination(format)
		if err != nil {
			return err
		}
		defer closeLog()
		log := logging.NewWithWriter(logOut, cfg.Log.Level, cfg.Log.Format)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		return runMonitor(ctx, cfg, format)
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monFormat, "format", "", "Output format: auto, json, color, tui")
	monitorCmd.Flags().StringVar(&monSource, "source", "", "Fix source: walk, replay, gpx, kafka, mqtt")
	monitorCmd.Flags().StringVar(&monFixPath, "fixes", "", "Path to the fix file for replay/gpx sources")
	monitorCmd.Flags().StringVar(&monLogFile, "log-file", "", "Path to export events (JSONL)")
	monitorCmd.Flags().StringVar(&monAdmin, "admin", "", "Admin server listen address, e.g. :8080")
	monitorCmd.Flags().Float64Var(&monRadius, "radius", 0, "Region radius in meters")
}

func applyMonitorFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Output.Format = monFormat
	}
	if f.Changed("source") {
		cfg.Fixes.Source = monSource
	}
	if f.Changed("fixes") {
		cfg.Fixes.Path = monFixPath
	}
	if f.Changed("log-file") {
		cfg.Output.LogFile = monLogFile
	}
	if f.Changed("admin") {
		cfg.Admin.Addr = monAdmin
	}
	if f.Changed("radius") && monRadius > 0 {
		cfg.Region.RadiusM = monRadius
	}
}

// logDestination keeps log output off the terminal while the TUI owns it.
func logDestination(format string) (io.Writer, func(), error) {
	if format != config.FormatTUI {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile("geotification.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func loadTrack(cfg *config.Config) ([]geo.Coordinate, error) {
	path, err := track.Resolve(cfg.Track.BundleDir, cfg.Track.Name)
	if err != nil {
		return nil, err
	}
	coords, err := track.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return coords, nil
}

func newManager(cfg *config.Config, log *slog.Logger) *geofence.Manager {
	return geofence.NewManager(
		geofence.NewRegistry(cfg.MonitoringAvailable()),
		geofence.WithRadius(cfg.Region.RadiusM),
		geofence.WithLabel(cfg.Region.Label),
		geofence.WithLogger(log),
	)
}

func runMonitor(ctx context.Context, cfg *config.Config, format string) error {
	log := logging.FromContext(ctx)

	coords, err := loadTrack(cfg)
	if err != nil {
		return fmt.Errorf("geofencing setup failed: %w", err)
	}
	log.Info("track loaded", "track", cfg.Track.Name, "waypoints", len(coords))

	session := uuid.NewString()
	writer, cleanup, err := newWriters(cfg, format, session)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := monitor.NewRunner(newManager(cfg, log), writer, monitor.WithSession(session))
	if err := runner.Start(ctx, coords); err != nil {
		if errors.Is(err, geofence.ErrMonitoringUnavailable) {
			return errors.New("geofencing is not supported on this device: region monitoring is unavailable")
		}
		return fmt.Errorf("geofencing setup failed: %w", err)
	}

	source, err := newSource(cfg, coords)
	if err != nil {
		return err
	}
	if c, ok := source.(io.Closer); ok {
		defer c.Close()
	}

	if cfg.Admin.Addr != "" {
		srv := admin.NewServer(runner)
		go func() {
			if err := srv.Start(ctx, cfg.Admin.Addr); err != nil {
				log.Error("admin server failed", "error", err)
			}
		}()
	}

	fixes := make(chan geo.Fix)
	srcErr := make(chan error, 1)
	go func() {
		err := source.Run(ctx, fixes)
		close(fixes)
		srcErr <- err
	}()

	runErr := runner.Run(ctx, fixes)
	err = <-srcErr

	stats := runner.Snapshot().Stats
	log.Info("monitoring finished", "session", session, "fixes", stats.Fixes,
		"rejected", stats.Rejected, "enters", stats.Enters, "exits", stats.Exits)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("fix source %s: %w", cfg.Fixes.Source, err)
	}
	return nil
}

func newSource(cfg *config.Config, coords []geo.Coordinate) (fix.Source, error) {
	fc := cfg.Fixes
	switch fc.Source {
	case config.SourceReplay:
		if fc.Path == "" {
			return nil, errors.New("replay source needs fixes.path")
		}
		return fix.NewReplaySource(fc.Path, fc.Speed), nil
	case config.SourceGPX:
		if fc.Path == "" {
			return nil, errors.New("gpx source needs fixes.path")
		}
		return fix.NewGPXSource(fc.Path, fc.Speed), nil
	case config.SourceKafka:
		if len(fc.Kafka.Brokers) == 0 {
			return nil, errors.New("kafka source needs fixes.kafka.brokers")
		}
		return fix.NewKafkaSource(fc.Kafka.Brokers, fc.Kafka.Topic, fc.Kafka.GroupID), nil
	case config.SourceMQTT:
		if fc.MQTT.Broker == "" {
			return nil, errors.New("mqtt source needs fixes.mqtt.broker")
		}
		return fix.NewMQTTSource(fc.MQTT.Broker, fc.MQTT.ClientID, fc.MQTT.Topic)
	case config.SourceWalk:
		if len(coords) == 0 {
			return nil, errors.New("walk source needs at least one waypoint to start from")
		}
		w := fc.Walk
		var targets []geo.Coordinate
		if w.Tour {
			targets = coords
		}
		seed := w.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		src := fix.NewWalkSource(coords[0], targets, w.SpeedMinMPS, w.SpeedMaxMPS, w.Interval, seed)
		src.Steps = w.Steps
		return src, nil
	default:
		return nil, fmt.Errorf("unknown fix source %q", fc.Source)
	}
}
