// Package metric holds the numeric side of the engine: reading a value out
// of a sample group at any point in time and summarising a group.
package metric

import (
	"github.com/raykavin/perfscope/pkg/core"
	"gonum.org/v1/gonum/floats"
)

// TaperEpsilon is the distance in seconds between the last real sample of a
// group and the virtual zero sample that brings its curve back to baseline.
const TaperEpsilon = 0.001

// ValueAtTime returns the value of samples at time t using piecewise-linear
// interpolation between neighbouring samples.
//
// A virtual sample {last.Time + TaperEpsilon, 0} closes every group, so
// past the last sample the value ramps down to 0 within TaperEpsilon and
// stays there. Before the first sample the first value is held. An empty group has value 0 everywhere.
//
// Interpolation is always weighted by t itself and never by the playback
// position, so the same call serves both curve building and the live
// readout at the play-head.
func ValueAtTime(samples []core.Sample, t float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	last := samples[len(samples)-1]
	taper := core.Sample{Time: last.Time + TaperEpsilon, Value: 0}

	at := func(i int) core.Sample {
		if i == len(samples) {
			return taper
		}
		return samples[i]
	}

	// Exact hits, first one wins
	for i := 0; i <= len(samples); i++ {
		if sample := at(i); sample.Time == t {
			return sample.Value
		}
	}

	left := -1
	for i := len(samples); i >= 0; i-- {
		if at(i).Time < t {
			left = i
			break
		}
	}

	switch {
	case left < 0:
		return samples[0].Value
	case left == len(samples):
		return taper.Value
	}

	leftSample, rightSample := at(left), at(left+1)
	span := rightSample.Time - leftSample.Time
	if span <= 0 {
		return rightSample.Value
	}

	weight := (t - leftSample.Time) / span
	return leftSample.Value + (rightSample.Value-leftSample.Value)*weight
}

// HighestValue returns the largest value in samples, 0 for an empty group
func HighestValue(samples []core.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	return floats.Max(core.SampleGroup{Samples: samples}.Values())
}

// HighestValueOf returns the largest value across all groups, 0 when no
// group carries samples
func HighestValueOf(groups []core.SampleGroup) float64 {
	highest := 0.0
	for _, group := range groups {
		if value := HighestValue(group.Samples); value > highest {
			highest = value
		}
	}
	return highest
}
