package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"geotification/internal/config"
	"geotification/internal/monitor"
)

// resolveFormat turns "auto" into color on a terminal and json otherwise.
func resolveFormat(format string, tty bool) string {
	if format != config.FormatAuto {
		return format
	}
	if tty {
		return config.FormatColor
	}
	return config.FormatJSON
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newWriters builds the event writers selected by cfg. The returned cleanup
// closes every writer that holds resources.
func newWriters(cfg *config.Config, format, session string) (*monitor.MultiWriter, func(), error) {
	var writers []monitor.EventWriter

	switch format {
	case config.FormatJSON:
		writers = append(writers, monitor.NewJSONStdoutWriter())
	case config.FormatColor:
		writers = append(writers, monitor.NewColorStdoutWriter())
	case config.FormatTUI:
		writers = append(writers, monitor.NewTUIWriter(session))
	case "none":
	default:
		return nil, nil, fmt.Errorf("unknown output format %q", format)
	}

	closeAll := func() {
		_ = monitor.NewMultiWriter(writers...).Close()
	}

	if cfg.Output.LogFile != "" {
		fw, err := monitor.NewFileWriter(cfg.Output.LogFile, cfg.Output.LogFile+".positions")
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("create event log: %w", err)
		}
		writers = append(writers, fw)
	}

	if g := cfg.Output.Greptime; g.Endpoint != "" {
		gw, err := monitor.NewGreptimeDBWriter(g.Endpoint, g.Database, g.Table)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("init GreptimeDB writer: %w", err)
		}
		writers = append(writers, gw)
	}

	if k := cfg.Output.Kafka; len(k.Brokers) > 0 {
		writers = append(writers, monitor.NewKafkaWriter(k.Brokers, k.Topic))
	}

	mw := monitor.NewMultiWriter(writers...)
	return mw, func() { _ = mw.Close() }, nil
}
