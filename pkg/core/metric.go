package core

import (
	"fmt"
	"math"
	"strconv"
)

// MetricID identifies one of the built-in performance metrics
type MetricID int8

const (
	CPU MetricID = iota
	Memory
	Network
)

// MetricIDs lists the built-in metrics in display order
var MetricIDs = []MetricID{CPU, Memory, Network}

// Formatter turns a raw sample value into its display text
type Formatter func(value float64) string

type metricInfo struct {
	key    string
	name   string
	format Formatter
}

var metricTable = map[MetricID]metricInfo{
	CPU:     {key: "cpu", name: "CPU performance", format: FormatPercent},
	Memory:  {key: "memory", name: "Memory usage (KB)", format: FormatKilobytes},
	Network: {key: "network", name: "Network (KB/S)", format: FormatKilobytes},
}

// ParseMetricID converts the wire name of a metric ("cpu", "memory",
// "network") into its MetricID
func ParseMetricID(key string) (MetricID, error) {
	for id, info := range metricTable {
		if info.key == key {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
}

// Valid reports whether id is one of the built-in metrics
func (id MetricID) Valid() bool {
	_, ok := metricTable[id]
	return ok
}

// String returns the wire name of the metric
func (id MetricID) String() string {
	if info, ok := metricTable[id]; ok {
		return info.key
	}
	return "MetricID(" + strconv.Itoa(int(id)) + ")"
}

// Name returns the display label of the metric
func (id MetricID) Name() string {
	return metricTable[id].name
}

// Format renders value with the formatter registered for the metric
func (id MetricID) Format(value float64) string {
	info, ok := metricTable[id]
	if !ok {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return info.format(value)
}

// MarshalText implements encoding.TextMarshaler
func (id MetricID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, id)
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *MetricID) UnmarshalText(text []byte) error {
	parsed, err := ParseMetricID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// FormatPercent renders a CPU load as a rounded integer percentage
func FormatPercent(value float64) string {
	return formatNumber(math.Round(value)) + "%"
}

// FormatKilobytes renders a kilobyte amount, switching to a one decimal
// "k" suffix from 1000 upwards
func FormatKilobytes(value float64) string {
	if value >= 1000 {
		return formatNumber(math.Round(value/100)/10) + "k"
	}
	return formatNumber(math.Round(value))
}

func formatNumber(value float64) string {
	if value == 0 {
		// avoid "-0"
		value = 0
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// GroupLabel returns the prefix shown in front of a group value
func GroupLabel(groupID string) string {
	switch groupID {
	case "upload":
		return "u: "
	case "download":
		return "d: "
	default:
		return ""
	}
}
