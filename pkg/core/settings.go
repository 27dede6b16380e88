package core

import "time"

// Settings represents the main configuration for the viewer
type Settings struct {
	Port   int            // HTTP port of the chart viewer
	Debug  bool           // Serve unminified scripts
	Layout LayoutSettings // Viewport and resize signalling
	Feed   FeedSettings   // Where samples are fetched from
}

// LayoutSettings controls the initial viewport and the debounce delays of
// the container size signal
type LayoutSettings struct {
	InitialWidth float64       // Width in pixels assumed before the first resize
	LoadDelay    time.Duration // Delay of the size signal after metrics load
	ToggleDelay  time.Duration // Delay of the size signal after a panel toggle
}

// FeedSettings selects the sample source
type FeedSettings struct {
	URL      string        // Base URL of the metrics API
	CSV      string        // CSV file with metric,group,time,value rows
	Database string        // buntdb file holding imported snapshots
	Timeout  time.Duration // Request timeout of the HTTP feed
	Legacy   bool          // The HTTP feed serves the older payload format
}
