// Package chart serves the metrics panel to a browser and lets the page
// steer playback over plain HTTP calls.
package chart

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/raykavin/perfscope/pkg/dashboard"
	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/raykavin/perfscope/pkg/playback"
)

// Static assets embedded in the binary
var (
	//go:embed assets
	staticFiles embed.FS
)

const (
	DefaultPort     = 8080
	shutdownTimeout = 5 * time.Second
)

// Chart serves the panel of one view
type Chart struct {
	port          int
	debug         bool
	title         string
	videoURL      string
	controller    *dashboard.Controller
	playback      *playback.State
	hub           *Hub
	scriptContent string
	indexHTML     *template.Template
	log           logger.Logger

	// playback drops its listeners on Reset, seekEpoch is the lifecycle the
	// seek listener was bound in
	bindMu    sync.Mutex
	seekBound bool
	seekEpoch uint64
}

// Option defines a function type for configuring a Chart instance
type Option func(*Chart)

// WithPort sets the HTTP server port
func WithPort(port int) Option {
	return func(chart *Chart) {
		chart.port = port
	}
}

// WithDebug enables debug mode (disables minification)
func WithDebug() Option {
	return func(chart *Chart) {
		chart.debug = true
	}
}

// WithTitle sets the page title
func WithTitle(title string) Option {
	return func(chart *Chart) {
		chart.title = title
	}
}

// WithVideo embeds a recording in the page. The video element then drives
// the duration and the play-head.
func WithVideo(url string) Option {
	return func(chart *Chart) {
		chart.videoURL = url
	}
}

// NewChart creates a chart for the view held by controller
func NewChart(controller *dashboard.Controller, log logger.Logger, options ...Option) (*Chart, error) {
	chart := &Chart{
		port:       DefaultPort,
		title:      "Performance",
		controller: controller,
		playback:   controller.Playback(),
		log:        log,
	}

	for _, option := range options {
		option(chart)
	}

	// Parse chart HTML template
	var err error
	chart.indexHTML, err = template.ParseFS(staticFiles, "assets/chart.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse chart template: %w", err)
	}

	// Read and transpile chart JavaScript
	chartJS, err := staticFiles.ReadFile("assets/chart.js")
	if err != nil {
		return nil, fmt.Errorf("failed to read chart.js: %w", err)
	}

	transpileChartJS := api.Transform(string(chartJS), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2015,
		MinifySyntax:      !chart.debug,
		MinifyIdentifiers: !chart.debug,
		MinifyWhitespace:  !chart.debug,
	})

	if len(transpileChartJS.Errors) > 0 {
		return nil, fmt.Errorf("chart script failed with: %v", transpileChartJS.Errors)
	}

	chart.scriptContent = string(transpileChartJS.Code)
	chart.hub = NewHub(log, chart.view)
	chart.bindPlayback()
	controller.OnUpdate(chart.Refresh)

	return chart, nil
}

// Port returns the port the chart listens on
func (c *Chart) Port() int {
	return c.port
}

// Refresh pushes the current view to every connected page
func (c *Chart) Refresh() {
	c.bindPlayback()
	c.hub.Broadcast(MessageView, c.view())
}

// NotifySizeChanged implements dashboard.SizeNotifier. Pages relay the
// message to an embedding frame.
func (c *Chart) NotifySizeChanged() {
	c.hub.Broadcast(MessageSize, nil)
}

// bindPlayback forwards seeks to the pages so their video element follows
func (c *Chart) bindPlayback() {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()

	epoch := c.playback.Epoch()
	if c.seekBound && c.seekEpoch == epoch {
		return
	}

	c.playback.OnSeek(func(seconds float64) {
		c.hub.Broadcast(MessageSeek, SeekPayload{Seconds: seconds})
	})
	c.seekBound = true
	c.seekEpoch = epoch
}

func (c *Chart) view() any {
	return c.controller.View()
}

// Handler returns the routes of the chart
func (c *Chart) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/assets/chart.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, c.scriptContent)
	})

	mux.HandleFunc("/health", c.handleHealth)
	mux.HandleFunc("/data", c.handleData)
	mux.HandleFunc("/seek", c.post(c.handleSeek))
	mux.HandleFunc("/hover", c.handleHover)
	mux.HandleFunc("/resize", c.post(c.handleResize))
	mux.HandleFunc("/toggle", c.post(c.handleToggle))
	mux.HandleFunc("/duration", c.post(c.handleDuration))
	mux.HandleFunc("/advance", c.post(c.handleAdvance))
	mux.HandleFunc("/play", c.post(c.handlePlay))
	mux.HandleFunc("/pause", c.post(c.handlePause))
	mux.HandleFunc("/ws", c.hub.HandleWebSocket)
	mux.HandleFunc("/", c.handleIndex)

	return mux
}

// Start serves the chart until ctx is done
func (c *Chart) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.port),
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Infof("Chart available at http://localhost:%d", c.port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		c.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	c.hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown chart server: %w", err)
	}
	return nil
}

// Close disconnects every page
func (c *Chart) Close() {
	c.hub.Close()
}
