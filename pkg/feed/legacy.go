package feed

import (
	"fmt"
	"strconv"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/samber/lo"
)

// Group ids produced by the built-in metrics
const (
	GroupCPU      = "cpu"
	GroupMemory   = "memory"
	GroupUpload   = "upload"
	GroupDownload = "download"
)

// LegacySamples is the payload of the older build service: one map per
// sample type, keyed by the seconds since the first sample printed with %f
type LegacySamples struct {
	CPU         map[string]float64 `json:"cpu"`
	RAM         map[string]float64 `json:"ram"`
	NetworkUp   map[string]float64 `json:"network_up"`
	NetworkDown map[string]float64 `json:"network_down"`
}

// FromLegacy converts a legacy payload into a snapshot. Samples of every
// group are sorted by time; network yields upload before download.
func FromLegacy(legacy LegacySamples) (core.Snapshot, error) {
	cpu, err := legacyGroup(GroupCPU, legacy.CPU)
	if err != nil {
		return nil, err
	}
	memory, err := legacyGroup(GroupMemory, legacy.RAM)
	if err != nil {
		return nil, err
	}
	upload, err := legacyGroup(GroupUpload, legacy.NetworkUp)
	if err != nil {
		return nil, err
	}
	download, err := legacyGroup(GroupDownload, legacy.NetworkDown)
	if err != nil {
		return nil, err
	}

	return core.Snapshot{
		core.CPU:     {cpu},
		core.Memory:  {memory},
		core.Network: {upload, download},
	}, nil
}

func legacyGroup(id string, data map[string]float64) (core.SampleGroup, error) {
	samples := make([]core.Sample, 0, len(data))
	for key, value := range data {
		seconds, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return core.SampleGroup{}, fmt.Errorf("group %s: invalid sample time %q: %w", id, key, err)
		}
		samples = append(samples, core.Sample{Time: seconds, Value: value})
	}
	core.SortSamples(samples)

	return core.SampleGroup{ID: id, Samples: samples}, nil
}

// ToLegacy converts a snapshot back into the legacy payload. Groups other
// than the built-in ones are dropped.
func ToLegacy(snapshot core.Snapshot) LegacySamples {
	toMap := func(groups []core.SampleGroup, id string) map[string]float64 {
		group, _ := lo.Find(groups, func(group core.SampleGroup) bool {
			return group.ID == id
		})
		return lo.SliceToMap(group.Samples, func(sample core.Sample) (string, float64) {
			return fmt.Sprintf("%f", sample.Time), sample.Value
		})
	}

	return LegacySamples{
		CPU:         toMap(snapshot.Groups(core.CPU), GroupCPU),
		RAM:         toMap(snapshot.Groups(core.Memory), GroupMemory),
		NetworkUp:   toMap(snapshot.Groups(core.Network), GroupUpload),
		NetworkDown: toMap(snapshot.Groups(core.Network), GroupDownload),
	}
}
