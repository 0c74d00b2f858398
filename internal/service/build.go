package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cfotel "github.com/Strob0t/AgentShift/internal/adapter/otel"
	"github.com/Strob0t/AgentShift/internal/domain/report"
	"github.com/Strob0t/AgentShift/internal/domain/shift"
	"github.com/Strob0t/AgentShift/internal/port/chart"
	"github.com/Strob0t/AgentShift/internal/port/eventstore"
)

// builtReport is the product of one query-aggregate-render pass.
type builtReport struct {
	Result  shift.Result
	Periods []report.Period
	CSVPath string
	// Charts holds one image path per period, in period order.
	Charts []string
}

// reportBuilder runs the pipeline shared by on-demand reports and digests.
type reportBuilder struct {
	events  eventstore.Store
	charts  chart.Renderer
	opts    shift.Options
	metrics *cfotel.Metrics
	now     func() time.Time
}

// build queries, aggregates and renders q into dir. A non-empty g overrides
// the granularity the aggregator derives from the data.
func (b *reportBuilder) build(ctx context.Context, q eventstore.Query, dir string, g shift.Granularity) (*builtReport, error) {
	events, err := b.events.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	started := time.Now()
	res, err := shift.Aggregate(events, b.opts)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	if g != "" {
		res.Granularity = g
	}
	b.metrics.RecordReport(ctx, string(res.Granularity), time.Since(started))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	out := &builtReport{
		Result:  res,
		Periods: report.Rollup(res.Rows, q.Agents, res.Granularity),
		CSVPath: filepath.Join(dir, report.ArtifactName(b.now())),
	}
	if err := writeCSVFile(out.CSVPath, res.Rows); err != nil {
		return nil, err
	}

	if b.charts == nil {
		return out, nil
	}
	for _, p := range out.Periods {
		path, err := b.charts.Render(p, dir)
		if err != nil {
			return nil, fmt.Errorf("render chart %s: %w", p.Slug(), err)
		}
		out.Charts = append(out.Charts, path)
	}
	return out, nil
}

func writeCSVFile(path string, rows []shift.Row) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is built from the artifact dir and a generated name
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close csv: %w", cerr)
		}
	}()
	return report.WriteCSV(f, rows)
}
