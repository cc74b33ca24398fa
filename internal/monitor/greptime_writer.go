package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"geotification/internal/geofence"
)

const defaultGreptimePort = 4001

// greptimeClient abstracts the ingester client for testing.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes geofence events to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client  greptimeClient
	table   string
	timeout time.Duration
}

// NewGreptimeDBWriter connects to endpoint (host or host:port).
func NewGreptimeDBWriter(endpoint, database, tableName string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{client: client, table: tableName, timeout: 5 * time.Second}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	if endpoint == "" {
		return "", 0, errors.New("greptime endpoint required")
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptime port %q: %w", portStr, err)
	}
	return host, port, nil
}

// WriteEvent inserts a single event row.
func (w *GreptimeDBWriter) WriteEvent(e geofence.Event) error {
	return w.WriteEvents([]geofence.Event{e})
}

// WriteEvents inserts multiple event rows in one request.
func (w *GreptimeDBWriter) WriteEvents(events []geofence.Event) error {
	if len(events) == 0 {
		return nil
	}
	tbl, err := w.eventTable(events)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write %s: %w", w.table, err)
	}
	return nil
}

func (w *GreptimeDBWriter) eventTable(events []geofence.Event) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(
		tbl.AddTagColumn("session", types.STRING),
		tbl.AddTagColumn("identifier", types.STRING),
		tbl.AddFieldColumn("event_id", types.STRING),
		tbl.AddFieldColumn("event_type", types.STRING),
		tbl.AddFieldColumn("lat", types.FLOAT64),
		tbl.AddFieldColumn("lon", types.FLOAT64),
		tbl.AddFieldColumn("radius_m", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return nil, fmt.Errorf("greptime schema: %w", err)
	}
	for _, e := range events {
		if err := tbl.AddRow(e.Session, e.Identifier, e.ID, string(e.Type), e.Lat, e.Lon, e.RadiusM, e.Timestamp); err != nil {
			return nil, fmt.Errorf("greptime row: %w", err)
		}
	}
	return tbl, nil
}
