package metric

import (
	"sort"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of one sample group
type Summary struct {
	ID     string  // Group identifier
	Count  int     // Number of samples
	Min    float64 // Lowest value
	Max    float64 // Highest value
	Mean   float64 // Arithmetic mean of the values
	StdDev float64 // Standard deviation of the values
	P95    float64 // 95th percentile of the values
	Start  float64 // Time of the first sample
	End    float64 // Time of the last sample
}

// Summarize computes the distribution of a group. An empty group yields a
// zero summary carrying only its ID.
func Summarize(group core.SampleGroup) Summary {
	summary := Summary{ID: group.ID, Count: group.Len()}
	if group.Empty() {
		return summary
	}

	values := group.Values()
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	summary.Min = sorted[0]
	summary.Max = sorted[len(sorted)-1]
	if len(sorted) < 2 {
		summary.Mean, summary.P95 = sorted[0], sorted[0]
	} else {
		summary.Mean, summary.StdDev = stat.MeanStdDev(sorted, nil)
		summary.P95 = stat.Quantile(0.95, stat.LinInterp, sorted, nil)
	}

	times := group.Times()
	summary.Start = times[0]
	summary.End = times.Last(0)

	return summary
}

// SummarizeAll computes one summary per group, keeping the group order
func SummarizeAll(groups []core.SampleGroup) []Summary {
	return lo.Map(groups, func(group core.SampleGroup, _ int) Summary {
		return Summarize(group)
	})
}
