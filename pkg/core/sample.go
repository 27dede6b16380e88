package core

import (
	"fmt"
	"sort"
)

// Sample is one measurement taken at Time seconds into the recording
type Sample struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// SampleGroup is a named series of samples ordered by time, for example
// one direction of network traffic
type SampleGroup struct {
	ID      string   `json:"id"`
	Samples []Sample `json:"samples"`
}

// Len returns the number of samples in the group
func (g SampleGroup) Len() int { return len(g.Samples) }

// Empty reports whether the group carries no samples
func (g SampleGroup) Empty() bool { return len(g.Samples) == 0 }

// Values returns the sample values in time order
func (g SampleGroup) Values() Series[float64] {
	values := make(Series[float64], len(g.Samples))
	for i, sample := range g.Samples {
		values[i] = sample.Value
	}
	return values
}

// Times returns the sample times in order
func (g SampleGroup) Times() Series[float64] {
	times := make(Series[float64], len(g.Samples))
	for i, sample := range g.Samples {
		times[i] = sample.Time
	}
	return times
}

// Validate checks the group ordering and value ranges
func (g SampleGroup) Validate() error {
	for i, sample := range g.Samples {
		if sample.Time < 0 || sample.Value < 0 {
			return fmt.Errorf("group %q sample %d: %w", g.ID, i, ErrNegativeValue)
		}
		if i > 0 && sample.Time < g.Samples[i-1].Time {
			return fmt.Errorf("group %q sample %d: time %v before %v",
				g.ID, i, sample.Time, g.Samples[i-1].Time)
		}
	}
	return nil
}

// SortSamples orders samples by time, keeping the original order of equal times
func SortSamples(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time < samples[j].Time
	})
}

// Snapshot holds every sample group fetched for one test, keyed by metric
type Snapshot map[MetricID][]SampleGroup

// Groups returns the groups of a metric, nil when the metric is absent
func (s Snapshot) Groups(id MetricID) []SampleGroup {
	return s[id]
}

// Validate checks every group in the snapshot
func (s Snapshot) Validate() error {
	for id, groups := range s {
		if !id.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownMetric, id)
		}
		for _, group := range groups {
			if err := group.Validate(); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
		}
	}
	return nil
}
