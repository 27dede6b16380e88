package plot

import (
	"slices"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/metric"
)

// ValueGridSize is the number of gridlines on the value axis
const ValueGridSize = 5

// defaultValueCeiling tops the value axis of a metric without data
const defaultValueCeiling = 100.0

// ValueGrid returns the value axis of a metric, from its highest value down
// to zero. The top falls back to 100 when the metric has nothing above 0.
func ValueGrid(groups []core.SampleGroup) [ValueGridSize]float64 {
	highest := metric.HighestValueOf(groups)
	if highest == 0 {
		highest = defaultValueCeiling
	}

	var grid [ValueGridSize]float64
	for i := range grid {
		step := ValueGridSize - 1 - i
		grid[i] = highest * float64(step) / (ValueGridSize - 1)
	}
	return grid
}

// labelSteps maps minimum container widths (exclusive) to label counts
var labelSteps = []struct {
	width float64
	count int
}{
	{600, 6},
	{500, 5},
	{400, 4},
	{300, 3},
}

const minTimeLabels = 2

// TimeLabelCount returns how many time labels fit in a container
func TimeLabelCount(widthPx float64) int {
	for _, step := range labelSteps {
		if widthPx > step.width {
			return step.count
		}
	}
	return minTimeLabels
}

// TimeGrid returns evenly spaced time labels across duration for a
// container widthPx pixels wide. A non-positive duration yields the single
// label 0.
func TimeGrid(duration, widthPx float64) []float64 {
	if duration <= 0 {
		return []float64{0}
	}

	count := TimeLabelCount(widthPx)
	divisor := float64(count - 1)
	if count <= 1 {
		divisor = 1
	}

	grid := make([]float64, count)
	for i := range grid {
		grid[i] = duration * float64(i) / divisor
	}
	return grid
}

// TimeScale keeps the time axis shared by all metrics and tells whether a
// recomputation produced an observable change.
type TimeScale struct {
	grid []float64
}

// Grid returns the current time labels, nil while the duration is unknown
func (s *TimeScale) Grid() []float64 {
	return slices.Clone(s.grid)
}

// Update recomputes the axis. With an unknown duration the grid becomes nil
// and only the transition away from a defined grid counts as a change. With
// a known duration a change is a different label count (including the
// transition from nil) or any moved label.
func (s *TimeScale) Update(duration float64, known bool, widthPx float64) ([]float64, bool) {
	if !known {
		wasDefined := s.grid != nil
		s.grid = nil
		return nil, wasDefined
	}

	previous := s.grid
	s.grid = TimeGrid(duration, widthPx)

	changed := previous == nil || !slices.Equal(previous, s.grid)
	return s.Grid(), changed
}

// Reset forgets the current grid
func (s *TimeScale) Reset() {
	s.grid = nil
}
