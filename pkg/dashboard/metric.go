package dashboard

import (
	"slices"
	"strings"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/metric"
	"github.com/raykavin/perfscope/pkg/plot"
)

// Metric is one performance panel: its samples and everything derived from
// them for rendering
type Metric struct {
	ID           core.MetricID               `json:"id"`
	Name         string                      `json:"name"`
	SampleGroups []core.SampleGroup          `json:"sampleGroups"`
	ValueGrid    [plot.ValueGridSize]float64 `json:"valueGrid"`
	Curves       []plot.Path                 `json:"curves"` // aligned with SampleGroups, empty until the duration is known
	IsOpen       bool                        `json:"isOpen"`
	Loaded       bool                        `json:"loaded"`
}

func newMetric(id core.MetricID) *Metric {
	return &Metric{ID: id, Name: id.Name()}
}

// derive recomputes the value grid and, when the duration is known, the curves
func (m *Metric) derive(duration float64, durationKnown bool) {
	m.ValueGrid = plot.ValueGrid(m.SampleGroups)
	if durationKnown {
		m.Curves = plot.BuildCurves(m.SampleGroups, duration)
	} else {
		m.Curves = nil
	}
}

func (m *Metric) clear() {
	m.SampleGroups = nil
	m.ValueGrid = [plot.ValueGridSize]float64{}
	m.Curves = nil
	m.IsOpen = false
	m.Loaded = false
}

func (m *Metric) clone() Metric {
	copied := *m
	copied.SampleGroups = slices.Clone(m.SampleGroups)
	copied.Curves = slices.Clone(m.Curves)
	return copied
}

// DisplayValue formats the value of every group at the given time, each
// prefixed by its group label and separated by a space
func (m Metric) DisplayValue(at float64) string {
	parts := make([]string, 0, len(m.SampleGroups))
	for _, group := range m.SampleGroups {
		value := metric.ValueAtTime(group.Samples, at)
		parts = append(parts, core.GroupLabel(group.ID)+m.ID.Format(value))
	}
	return strings.Join(parts, " ")
}
