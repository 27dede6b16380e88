package perfscope

import (
	"github.com/raykavin/perfscope/pkg/chart"
	"github.com/raykavin/perfscope/pkg/dashboard"
	"github.com/raykavin/perfscope/pkg/logger"
)

// Option is a functional option for configuring a Viewer instance
type Option func(*Viewer)

// WithLogger replaces DefaultLog for the viewer and everything it builds
func WithLogger(log logger.Logger) Option {
	return func(viewer *Viewer) {
		viewer.log = log
	}
}

// WithSizeNotifier registers who else is told when the panel height may
// have changed. Pages served by the chart are always told.
func WithSizeNotifier(notifier dashboard.SizeNotifier) Option {
	return func(viewer *Viewer) {
		viewer.notifier = notifier
	}
}

// WithChartOptions passes options to the chart server
func WithChartOptions(options ...chart.Option) Option {
	return func(viewer *Viewer) {
		viewer.chartOptions = append(viewer.chartOptions, options...)
	}
}
