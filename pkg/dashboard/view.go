package dashboard

import (
	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/playback"
)

// View is everything a renderer needs for one frame of the panel
type View struct {
	Metrics  []Metric                 `json:"metrics"`
	TimeGrid []float64                `json:"timeGrid"`
	Values   map[core.MetricID]string `json:"values"`
	Playback playback.Snapshot        `json:"playback"`
	Progress Progress                 `json:"progress"`
}

// View returns a consistent copy of the panel at the current play-head
func (c *Controller) View() View {
	state := c.playback.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	view := View{
		Metrics:  make([]Metric, len(c.metrics)),
		TimeGrid: c.scale.Grid(),
		Values:   make(map[core.MetricID]string, len(c.metrics)),
		Playback: state,
		Progress: c.progress,
	}
	for i, m := range c.metrics {
		view.Metrics[i] = m.clone()
		view.Values[m.ID] = m.DisplayValue(state.PlayedDuration)
	}
	return view
}
