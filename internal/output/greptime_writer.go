package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"cascade-sim/internal/analysis"
)

const (
	ForecastTable = "cascade_node_forecast"
	SummaryTable  = "cascade_summary"
)

const greptimeWriteTimeout = 10 * time.Second

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter exports results to GreptimeDB: one summary row per
// simulation and one forecast row per node.
type GreptimeDBWriter struct {
	client        greptimeClient
	forecastTable string
	summaryTable  string
	log           *slog.Logger
}

// NewGreptimeDBWriter connects to GreptimeDB at host:port.
func NewGreptimeDBWriter(host string, port int, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{
		client:        client,
		forecastTable: ForecastTable,
		summaryTable:  SummaryTable,
		log:           log,
	}, nil
}

func (w *GreptimeDBWriter) logger() *slog.Logger {
	if w.log == nil {
		return slog.Default()
	}
	return w.log
}

// WriteResult implements ResultWriter.
func (w *GreptimeDBWriter) WriteResult(res *analysis.AggregateResult) error {
	summary, err := w.summaryRows(res)
	if err != nil {
		return err
	}
	tables := []*table.Table{summary}
	forecast, n, err := w.forecastRows(res)
	if err != nil {
		return err
	}
	if n > 0 {
		tables = append(tables, forecast)
	}

	ctx, cancel := context.WithTimeout(context.Background(), greptimeWriteTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tables...); err != nil {
		w.logger().Error("greptime write failed", "simulation_id", res.ID, "error", err)
		return fmt.Errorf("greptime write: %w", err)
	}
	w.logger().Debug("greptime write", "simulation_id", res.ID, "forecast_rows", n)
	return nil
}

func (w *GreptimeDBWriter) summaryRows(res *analysis.AggregateResult) (*table.Table, error) {
	tbl, err := table.New(w.summaryTable)
	if err != nil {
		return nil, err
	}
	cols := []struct {
		name string
		typ  types.ColumnType
		tag  bool
	}{
		{"simulation_id", types.STRING, true},
		{"scenario_name", types.STRING, true},
		{"runs_completed", types.INT64, false},
		{"total_affected_nodes", types.FLOAT64, false},
		{"cascade_depth", types.FLOAT64, false},
		{"mean_cascade_time_minutes", types.FLOAT64, false},
		{"total_impact_score", types.FLOAT64, false},
		{"cascade_probability", types.FLOAT64, false},
		{"graph_fetch_errors", types.INT64, false},
		{"computation_time_seconds", types.FLOAT64, false},
		{"cancelled", types.BOOLEAN, false},
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	err = tbl.AddRow(
		res.ID,
		res.ScenarioName,
		int64(res.RunsCompleted),
		res.TotalAffectedNodes,
		res.CascadeDepth,
		res.MeanCascadeTimeMinutes,
		res.TotalImpactScore,
		res.CascadeProbability,
		int64(res.GraphFetchErrors),
		res.ComputationSeconds,
		res.Cancelled,
		res.EndTime,
	)
	if err != nil {
		return nil, err
	}
	return tbl, nil
}

func (w *GreptimeDBWriter) forecastRows(res *analysis.AggregateResult) (*table.Table, int, error) {
	tbl, err := table.New(w.forecastTable)
	if err != nil {
		return nil, 0, err
	}
	if err := tbl.AddTagColumn("simulation_id", types.STRING); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddTagColumn("node_id", types.STRING); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddFieldColumn("scenario_name", types.STRING); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddFieldColumn("failure_probability", types.FLOAT64); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddFieldColumn("mean_time_to_failure", types.FLOAT64); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddFieldColumn("bottleneck_rank", types.INT64); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, 0, err
	}
	rows := ForecastRows(res)
	for _, r := range rows {
		if err := tbl.AddRow(r.SimulationID, r.NodeID, r.ScenarioName, r.FailureProbability,
			r.MeanTimeToFailure, int64(r.BottleneckRank), r.Timestamp); err != nil {
			return nil, 0, err
		}
	}
	return tbl, len(rows), nil
}
