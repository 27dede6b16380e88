package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/StudioSol/set"
	"github.com/raykavin/perfscope/pkg/core"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"
)

var (
	ErrMissingColumn = errors.New("missing csv column")
	defaultHeaderMap = map[string]int{
		"metric": 0, "group": 1, "time": 2, "value": 3,
	}
)

// CSVFeed serves one snapshot read from CSV rows of metric,group,time,value.
// The same snapshot answers every run and test.
type CSVFeed struct {
	snapshot core.Snapshot
}

// parseHeaders maps column names to their index. A first row starting with
// a known metric name is data and the default layout applies.
func parseHeaders(headers []string) (headerMap map[string]int, hasCustomHeaders bool, err error) {
	if _, err := core.ParseMetricID(strings.TrimSpace(headers[0])); err == nil {
		return defaultHeaderMap, false, nil
	}

	headerMap = make(map[string]int, len(headers))
	for index, header := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = index
	}

	for column := range defaultHeaderMap {
		if _, ok := headerMap[column]; !ok {
			return nil, false, fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
	}
	return headerMap, true, nil
}

// NewCSVFeed reads the CSV file at path
func NewCSVFeed(path string) (*CSVFeed, error) {
	csvFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	return ReadCSVFeed(csvFile)
}

// ReadCSVFeed reads CSV rows from r
func ReadCSVFeed(r io.Reader) (*CSVFeed, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	csvLines, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	snapshot := make(core.Snapshot)
	if len(csvLines) == 0 {
		return &CSVFeed{snapshot: snapshot}, nil
	}

	headerMap, hasCustomHeaders, err := parseHeaders(csvLines[0])
	if err != nil {
		return nil, err
	}
	if hasCustomHeaders {
		csvLines = csvLines[1:]
	}

	// first appearance decides the order of groups inside a metric
	groupOrder := make(map[core.MetricID]*set.LinkedHashSetString)
	samples := make(map[core.MetricID]map[string][]core.Sample)

	for i, line := range csvLines {
		id, group, sample, err := parseSampleFromLine(line, headerMap)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", i+1, err)
		}

		if _, ok := groupOrder[id]; !ok {
			groupOrder[id] = set.NewLinkedHashSetString()
			samples[id] = make(map[string][]core.Sample)
		}
		groupOrder[id].Add(group)
		samples[id][group] = append(samples[id][group], sample)
	}

	for id, order := range groupOrder {
		for group := range order.Iter() {
			groupSamples := samples[id][group]
			core.SortSamples(groupSamples)
			snapshot[id] = append(snapshot[id], core.SampleGroup{ID: group, Samples: groupSamples})
		}
	}

	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return &CSVFeed{snapshot: snapshot}, nil
}

// parseSampleFromLine reads one row into its metric, group and sample
func parseSampleFromLine(line []string, headerMap map[string]int) (core.MetricID, string, core.Sample, error) {
	column := func(name string) (string, error) {
		index := headerMap[name]
		if index >= len(line) {
			return "", fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		return strings.TrimSpace(line[index]), nil
	}

	values := make(map[string]string, len(headerMap))
	for name := range defaultHeaderMap {
		value, err := column(name)
		if err != nil {
			return 0, "", core.Sample{}, err
		}
		values[name] = value
	}

	id, err := core.ParseMetricID(values["metric"])
	if err != nil {
		return 0, "", core.Sample{}, err
	}

	seconds, err := ParseSeconds(values["time"])
	if err != nil {
		return 0, "", core.Sample{}, err
	}

	value, err := strconv.ParseFloat(values["value"], 64)
	if err != nil {
		return 0, "", core.Sample{}, fmt.Errorf("invalid value %q: %w", values["value"], err)
	}

	group := values["group"]
	if group == "" {
		group = id.String()
	}

	return id, group, core.Sample{Time: seconds, Value: value}, nil
}

// ParseSeconds reads a time offset given either as plain seconds ("90.5")
// or as a duration string ("1m30s", "1h")
func ParseSeconds(text string) (float64, error) {
	if seconds, err := strconv.ParseFloat(text, 64); err == nil {
		return seconds, nil
	}

	duration, err := str2duration.ParseDuration(text)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", text, err)
	}
	return duration.Seconds(), nil
}

// Snapshot returns the snapshot read from the file
func (c *CSVFeed) Snapshot() core.Snapshot {
	return c.snapshot
}

// Metrics lists the metrics present in the file in display order
func (c *CSVFeed) Metrics() []core.MetricID {
	return lo.Filter(core.MetricIDs, func(id core.MetricID, _ int) bool {
		return len(c.snapshot[id]) > 0
	})
}

// Fetch implements core.Fetcher
func (c *CSVFeed) Fetch(ctx context.Context, _, _ string) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.snapshot, nil
}
