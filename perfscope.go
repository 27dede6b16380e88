// Package perfscope shows device performance metrics recorded during a test
// next to its video: it fetches the samples, derives grids and curves and
// keeps a read-out at the play-head.
package perfscope

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/raykavin/perfscope/pkg/chart"
	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/dashboard"
	"github.com/raykavin/perfscope/pkg/feed"
	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/raykavin/perfscope/pkg/playback"
	"github.com/raykavin/perfscope/pkg/report"
	"github.com/raykavin/perfscope/pkg/storage"
)

// ErrNoFeed is returned when the settings select no sample source
var ErrNoFeed = errors.New("no feed configured")

// Viewer wires a playback state, a metrics controller and a chart server
// for one view
type Viewer struct {
	settings   core.Settings
	fetcher    core.Fetcher
	state      *playback.State
	controller *dashboard.Controller
	chart      *chart.Chart
	log        logger.Logger
	notifier   dashboard.SizeNotifier

	chartOptions []chart.Option
}

// NewViewer creates a viewer reading samples from fetcher
func NewViewer(settings core.Settings, fetcher core.Fetcher, options ...Option) (*Viewer, error) {
	viewer := &Viewer{
		settings: settings,
		fetcher:  fetcher,
		state:    playback.New(),
		log:      DefaultLog,
	}

	for _, option := range options {
		option(viewer)
	}

	// the page relays size changes to its frame, a notifier given by the
	// host is told as well
	sizeNotifier := dashboard.SizeNotifierFunc(func() {
		viewer.chart.NotifySizeChanged()
		if viewer.notifier != nil {
			viewer.notifier.NotifySizeChanged()
		}
	})

	controllerOptions := []dashboard.Option{
		dashboard.WithLogger(viewer.log),
		dashboard.WithSizeNotifier(sizeNotifier),
		dashboard.WithInitialWidth(settings.Layout.InitialWidth),
		dashboard.WithDelays(
			orDefault(settings.Layout.LoadDelay, dashboard.DefaultLoadDelay),
			orDefault(settings.Layout.ToggleDelay, dashboard.DefaultToggleDelay),
		),
	}
	viewer.controller = dashboard.NewController(fetcher, viewer.state, controllerOptions...)

	chartOptions := []chart.Option{}
	if settings.Port > 0 {
		chartOptions = append(chartOptions, chart.WithPort(settings.Port))
	}
	if settings.Debug {
		chartOptions = append(chartOptions, chart.WithDebug())
	}
	chartOptions = append(chartOptions, viewer.chartOptions...)

	var err error
	viewer.chart, err = chart.NewChart(viewer.controller, viewer.log, chartOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	return viewer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}

// Controller returns the metrics controller of the view
func (v *Viewer) Controller() *dashboard.Controller {
	return v.controller
}

// Playback returns the playback state of the view
func (v *Viewer) Playback() *playback.State {
	return v.state
}

// Chart returns the chart server of the view
func (v *Viewer) Chart() *chart.Chart {
	return v.chart
}

// Open starts loading the metrics of a test. A positive duration is taken
// as the video duration right away, otherwise the page reports it once the
// video metadata loaded.
func (v *Viewer) Open(ctx context.Context, runID, testID string, duration float64) (<-chan struct{}, error) {
	done, err := v.controller.Load(ctx, runID, testID)
	if err != nil {
		return nil, err
	}

	if duration > 0 {
		v.controller.DurationKnown(duration)
	}
	return done, nil
}

// Serve runs the chart server until ctx is done
func (v *Viewer) Serve(ctx context.Context) error {
	return v.chart.Start(ctx)
}

// Summary renders the loaded metrics as a table read at the given time
func (v *Viewer) Summary(at float64) string {
	return report.Summary(v.controller.Metrics(), at)
}

// Histograms prints the value distribution of every loaded group
func (v *Viewer) Histograms(w io.Writer, bins int) error {
	for _, m := range v.controller.Metrics() {
		for _, group := range m.SampleGroups {
			if err := report.Histogram(w, m.ID, group, bins); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close tears the view down
func (v *Viewer) Close() {
	v.chart.Close()
	v.controller.Close()
}

// NewFetcher builds the sample source selected by the feed settings. The
// returned closer releases it and is never nil.
func NewFetcher(settings core.FeedSettings) (core.Fetcher, io.Closer, error) {
	switch {
	case settings.URL != "":
		options := []feed.HTTPOption{feed.WithTimeout(orDefault(settings.Timeout, feed.DefaultTimeout))}
		if settings.Legacy {
			options = append(options, feed.WithLegacyFormat())
		}
		httpFeed, err := feed.NewHTTPFeed(settings.URL, options...)
		if err != nil {
			return nil, nil, err
		}
		return httpFeed, nopCloser{}, nil

	case settings.CSV != "":
		csvFeed, err := feed.NewCSVFeed(settings.CSV)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv feed: %w", err)
		}
		return csvFeed, nopCloser{}, nil

	case settings.Database != "":
		repo, err := storage.FromFile(settings.Database)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	}

	return nil, nil, ErrNoFeed
}
