// Package chart defines the port interface for period bar charts.
package chart

import "github.com/Strob0t/AgentShift/internal/domain/report"

// Renderer draws one chart per period.
type Renderer interface {
	// Render writes a PNG for p into dir and returns its path.
	Render(p report.Period, dir string) (string, error)
}

// FileName is the file name a renderer uses for p.
func FileName(p report.Period) string {
	return "graph_" + p.Slug() + ".png"
}
