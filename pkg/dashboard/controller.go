package dashboard

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/raykavin/perfscope/pkg/playback"
	"github.com/raykavin/perfscope/pkg/plot"
)

// Default delays of the container size signal
const (
	DefaultLoadDelay   = 50 * time.Millisecond
	DefaultToggleDelay = 500 * time.Millisecond
)

// Controller owns the built-in metrics of one view. It loads their samples,
// derives grids and curves and answers what each metric reads at the
// play-head.
//
// Every state-changing call recomputes only what depends on it: new samples
// rebuild grids and curves of all metrics, a known duration rebuilds curves
// and the time axis, a resize rebuilds the time axis.
type Controller struct {
	mu       sync.Mutex
	fetcher  core.Fetcher
	playback *playback.State
	log      logger.Logger

	metrics  []*Metric
	scale    plot.TimeScale
	width    float64
	progress Progress

	// epoch changes on Close so completions of older loads are dropped
	epoch    uint64
	inFlight bool

	sizes       *debouncer
	notifier    SizeNotifier
	loadDelay   time.Duration
	toggleDelay time.Duration
	listeners   []func()
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithSizeNotifier sets who is told about layout changes
func WithSizeNotifier(notifier SizeNotifier) Option {
	return func(c *Controller) {
		c.notifier = notifier
	}
}

// WithInitialWidth sets the container width assumed before the first Resize
func WithInitialWidth(width float64) Option {
	return func(c *Controller) {
		c.width = width
	}
}

// WithDelays sets the debounce delays of the size signal after a load and
// after a panel toggle
func WithDelays(load, toggle time.Duration) Option {
	return func(c *Controller) {
		c.loadDelay = load
		c.toggleDelay = toggle
	}
}

// WithUpdateListener registers a function called after every recomputation
func WithUpdateListener(listener func()) Option {
	return func(c *Controller) {
		c.listeners = append(c.listeners, listener)
	}
}

// NewController creates a controller reading samples from fetcher and the
// play-head from state
func NewController(fetcher core.Fetcher, state *playback.State, options ...Option) *Controller {
	c := &Controller{
		fetcher:     fetcher,
		playback:    state,
		log:         logger.Nop(),
		notifier:    nopNotifier{},
		loadDelay:   DefaultLoadDelay,
		toggleDelay: DefaultToggleDelay,
	}

	for _, id := range core.MetricIDs {
		c.metrics = append(c.metrics, newMetric(id))
	}

	for _, option := range options {
		option(c)
	}

	c.sizes = newDebouncer(c.notifier)
	return c
}

// Playback returns the playback state the controller reads from
func (c *Controller) Playback() *playback.State {
	return c.playback
}

// Load fetches the samples of every metric for a test. Only one load can be
// outstanding. The returned channel is closed once the result was applied,
// or dropped because the view was closed in the meantime.
//
// A failed fetch leaves every metric empty and the progress failed; there
// is no retry.
func (c *Controller) Load(ctx context.Context, runID, testID string) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, core.ErrLoadInFlight
	}
	c.inFlight = true
	c.progress = loading()
	epoch := c.epoch
	c.mu.Unlock()

	log := c.log.WithFields(map[string]any{"run": runID, "test": testID})
	log.Debug("loading metrics")

	done := make(chan struct{})
	go func() {
		defer close(done)

		snapshot, err := c.fetcher.Fetch(ctx, runID, testID)
		if err != nil {
			err = fmt.Errorf("fetch metrics of %s/%s: %w", runID, testID, err)
		}
		if c.complete(epoch, snapshot, err, log) {
			c.notifyListeners()
		}
	}()

	return done, nil
}

// complete applies a fetch result and reports whether anything changed
func (c *Controller) complete(epoch uint64, snapshot core.Snapshot, err error, log logger.Logger) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		log.Debug("dropping metrics of a closed view")
		return false
	}
	c.inFlight = false

	if err != nil {
		log.WithError(err).Error("failed to load metrics")
		c.progress = failed(err)
		return true
	}

	duration, known := c.playback.Duration()
	for _, m := range c.metrics {
		m.SampleGroups = snapshot.Groups(m.ID)
		m.Loaded = true
		m.derive(duration, known)
	}

	c.progress = succeeded()
	c.sizes.schedule(c.loadDelay)
	log.Info("metrics loaded")
	return true
}

// DurationKnown records the video duration once its metadata loaded and
// rebuilds the curves and time axis. It reports whether the duration was
// taken; a second call before Close is ignored.
func (c *Controller) DurationKnown(seconds float64) bool {
	if !c.playback.SetDuration(seconds) {
		return false
	}

	c.mu.Lock()
	for _, m := range c.metrics {
		if m.Loaded {
			m.derive(seconds, true)
		}
	}
	if _, changed := c.scale.Update(seconds, true, c.width); changed {
		c.sizes.schedule(c.loadDelay)
	}
	c.mu.Unlock()

	c.notifyListeners()
	return true
}

// Resize rebuilds the time axis for a container width. It reports whether
// the axis changed in a way worth re-rendering.
func (c *Controller) Resize(widthPx float64) bool {
	c.mu.Lock()
	c.width = widthPx
	duration, known := c.playback.Duration()
	_, changed := c.scale.Update(duration, known, widthPx)
	if changed {
		c.sizes.schedule(c.loadDelay)
	}
	c.mu.Unlock()

	if changed {
		c.notifyListeners()
	}
	return changed
}

// Toggle opens or closes the detail panel of a metric and returns whether
// it is open now
func (c *Controller) Toggle(id core.MetricID) (bool, error) {
	c.mu.Lock()
	m, err := c.metricLocked(id)
	if err != nil {
		c.mu.Unlock()
		return false, err
	}
	m.IsOpen = !m.IsOpen
	open := m.IsOpen
	c.sizes.schedule(c.toggleDelay)
	c.mu.Unlock()

	c.notifyListeners()
	return open, nil
}

// DisplayValueAtCurrentTime formats what a metric reads at the play-head
func (c *Controller) DisplayValueAtCurrentTime(id core.MetricID) (string, error) {
	played := c.playback.PlayedDuration()

	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.metricLocked(id)
	if err != nil {
		return "", err
	}
	return m.DisplayValue(played), nil
}

// DisplayValues formats every metric at the play-head, keyed by metric
func (c *Controller) DisplayValues() map[core.MetricID]string {
	played := c.playback.PlayedDuration()

	c.mu.Lock()
	defer c.mu.Unlock()

	values := make(map[core.MetricID]string, len(c.metrics))
	for _, m := range c.metrics {
		values[m.ID] = m.DisplayValue(played)
	}
	return values
}

// Metrics returns a copy of every metric in display order
func (c *Controller) Metrics() []Metric {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics := make([]Metric, len(c.metrics))
	for i, m := range c.metrics {
		metrics[i] = m.clone()
	}
	return metrics
}

// Metric returns a copy of one metric
func (c *Controller) Metric(id core.MetricID) (Metric, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.metricLocked(id)
	if err != nil {
		return Metric{}, err
	}
	return m.clone(), nil
}

// TimeGrid returns the labels of the shared time axis, nil while the
// duration is unknown
func (c *Controller) TimeGrid() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale.Grid()
}

// Progress returns the loading state
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Close tears the view down. Metrics, time axis and playback state are
// cleared; a load still in flight completes into nothing. The controller
// can load again afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.epoch++
	c.inFlight = false
	c.progress = Progress{}
	for _, m := range c.metrics {
		m.clear()
	}
	c.scale.Reset()
	c.sizes.stop()
	c.mu.Unlock()

	c.playback.Reset()
}

func (c *Controller) metricLocked(id core.MetricID) (*Metric, error) {
	for _, m := range c.metrics {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnknownMetric, id)
}

// OnUpdate registers a function called after every recomputation, outside
// of the controller lock
func (c *Controller) OnUpdate(listener func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

func (c *Controller) notifyListeners() {
	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, listener := range listeners {
		listener()
	}
}
