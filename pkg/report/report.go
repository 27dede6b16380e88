// Package report renders loaded metrics for a terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/dashboard"
	"github.com/raykavin/perfscope/pkg/metric"
	"github.com/raykavin/perfscope/pkg/storage"
)

// DefaultBins is the number of histogram buckets used by the CLI
const DefaultBins = 10

const histogramWidth = 40

// Summary renders one row per sample group with its distribution and the
// value it reads at the given time
func Summary(metrics []dashboard.Metric, at float64) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Metric", "Group", "Samples", "Max", "Mean", "P95", "At " + formatSeconds(at)})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for _, m := range metrics {
		if len(m.SampleGroups) == 0 {
			table.Append([]string{m.Name, "-", "0", "-", "-", "-", "-"})
			continue
		}

		for i, summary := range metric.SummarizeAll(m.SampleGroups) {
			table.Append([]string{
				m.Name,
				summary.ID,
				strconv.Itoa(summary.Count),
				m.ID.Format(summary.Max),
				m.ID.Format(summary.Mean),
				m.ID.Format(summary.P95),
				m.ID.Format(metric.ValueAtTime(m.SampleGroups[i].Samples, at)),
			})
		}
	}

	table.Render()
	return tableString.String()
}

// Entries lists stored snapshots, one row per test
func Entries(entries []storage.Entry) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Run", "Test", "Samples"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.SetFooter([]string{"", strconv.Itoa(len(entries)) + " tests", strconv.Itoa(totalSamples(entries))})

	for _, entry := range entries {
		table.Append([]string{entry.RunID, entry.TestID, strconv.Itoa(entry.Samples)})
	}

	table.Render()
	return tableString.String()
}

func totalSamples(entries []storage.Entry) int {
	total := 0
	for _, entry := range entries {
		total += entry.Samples
	}
	return total
}

// Histogram prints the value distribution of a group in the given number
// of buckets
func Histogram(w io.Writer, id core.MetricID, group core.SampleGroup, bins int) error {
	if _, err := fmt.Fprintf(w, "------ %s / %s -------\n", id.Name(), group.ID); err != nil {
		return err
	}

	summary := metric.Summarize(group)
	switch {
	case summary.Count == 0:
		_, err := fmt.Fprintln(w, "no samples")
		return err
	case summary.Min == summary.Max:
		_, err := fmt.Fprintf(w, "%d samples at %s\n", summary.Count, id.Format(summary.Min))
		return err
	}

	if bins <= 0 {
		bins = DefaultBins
	}
	hist := histogram.Hist(bins, group.Values())
	return histogram.Fprint(w, hist, histogram.Linear(histogramWidth))
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
}
