// Package plot renders period bar charts with gonum/plot.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/Strob0t/AgentShift/internal/domain/report"
	"github.com/Strob0t/AgentShift/internal/port/chart"
)

var (
	barColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	targetColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Renderer draws one PNG bar chart per period.
type Renderer struct {
	width  vg.Length
	height vg.Length
}

var _ chart.Renderer = (*Renderer)(nil)

// NewRenderer creates a Renderer producing 10x5 inch images.
func NewRenderer() *Renderer {
	return &Renderer{width: 10 * vg.Inch, height: 5 * vg.Inch}
}

// Render writes the chart for p into dir and returns the file path.
func (r *Renderer) Render(p report.Period, dir string) (string, error) {
	if len(p.Entries) == 0 {
		return "", errors.New("render chart: period has no entries")
	}

	names := make([]string, len(p.Entries))
	values := make(plotter.Values, len(p.Entries))
	top := p.Target.Hours()
	for i, e := range p.Entries {
		names[i] = e.Agent
		values[i] = e.LoggedIn.Hours()
		top = math.Max(top, values[i])
	}

	pl := gonumplot.New()
	pl.Title.Text = p.Title()
	pl.Y.Label.Text = "Total Hours Available"

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return "", fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0

	target := p.Target.Hours()
	line := plotter.NewFunction(func(float64) float64 { return target })
	line.Color = targetColor
	line.Width = vg.Points(1.5)
	line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}

	pl.Add(bars, line)
	pl.Legend.Add(fmt.Sprintf("Target (%gh)", target), line)
	pl.Legend.Top = true
	pl.NominalX(names...)
	pl.X.Tick.Label.Rotation = math.Pi / 6
	pl.X.Tick.Label.XAlign = draw.XRight
	pl.X.Tick.Label.YAlign = draw.YCenter
	pl.Y.Min = 0
	pl.Y.Max = top * 1.15

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	path := filepath.Join(dir, chart.FileName(p))
	if err := pl.Save(r.width, r.height, path); err != nil {
		return "", fmt.Errorf("save chart %s: %w", path, err)
	}
	return path, nil
}
