package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/dashboard"
)

// post rejects everything but POST before calling next
func (c *Chart) post(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// floatParam reads a finite float from the query or form
func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return 0, fmt.Errorf("missing parameter %q", name)
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid parameter %q: %q", name, raw)
	}
	return value, nil
}

func (c *Chart) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		c.log.WithError(err).Error("JSON encoding failed")
	}
}

func (c *Chart) writeError(w http.ResponseWriter, status int, err error) {
	c.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// changed answers a steering call and pushes the new view when it moved
func (c *Chart) changed(w http.ResponseWriter, moved bool) {
	if moved {
		c.Refresh()
	}
	c.writeJSON(w, http.StatusOK, map[string]any{
		"changed":  moved,
		"playback": c.playback.Snapshot(),
	})
}

// handleHealth reports the loading state, unhealthy after a failed load
func (c *Chart) handleHealth(w http.ResponseWriter, _ *http.Request) {
	progress := c.controller.Progress()

	status := http.StatusOK
	if progress.Status == dashboard.StatusFailed {
		status = http.StatusServiceUnavailable
	}
	c.writeJSON(w, status, map[string]any{
		"status":  progress.Status,
		"message": progress.Message,
		"clients": c.hub.Clients(),
	})
}

// handleIndex handles the main page request
func (c *Chart) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	names := make([]string, 0, len(core.MetricIDs))
	for _, id := range core.MetricIDs {
		names = append(names, id.Name())
	}

	w.Header().Set("Content-Type", "text/html")
	err := c.indexHTML.Execute(w, map[string]any{
		"title":   c.title,
		"video":   c.videoURL,
		"metrics": names,
	})
	if err != nil {
		c.log.WithError(err).Error("template execution failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleData handles panel data requests
func (c *Chart) handleData(w http.ResponseWriter, _ *http.Request) {
	c.writeJSON(w, http.StatusOK, c.controller.View())
}

// handleSeek moves the play-head to a percentage of the scrubber
func (c *Chart) handleSeek(w http.ResponseWriter, r *http.Request) {
	percent, err := floatParam(r, "percent")
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err)
		return
	}

	if !c.playback.Seek(percent) {
		c.writeError(w, http.StatusConflict, core.ErrNoDuration)
		return
	}
	c.changed(w, true)
}

// handleHover records the pointer over the scale. It takes either percent
// or the pointer offset x inside a scale of the given width. DELETE clears
// the hover once the pointer left.
func (c *Chart) handleHover(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodDelete:
		c.playback.ClearHover()
		c.changed(w, true)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	percent, err := hoverPercent(r)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err)
		return
	}

	if !c.playback.Hover(percent) {
		c.writeError(w, http.StatusConflict, core.ErrNoDuration)
		return
	}
	c.changed(w, true)
}

func hoverPercent(r *http.Request) (float64, error) {
	if r.FormValue("percent") != "" {
		return floatParam(r, "percent")
	}

	x, err := floatParam(r, "x")
	if err != nil {
		return 0, err
	}
	width, err := floatParam(r, "width")
	if err != nil {
		return 0, err
	}
	if width <= 0 {
		return 0, errors.New("width must be positive")
	}
	return 100 * x / width, nil
}

// handleResize rebuilds the time axis for the container width
func (c *Chart) handleResize(w http.ResponseWriter, r *http.Request) {
	width, err := floatParam(r, "width")
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err)
		return
	}

	// the controller broadcasts through its update listener
	moved := c.controller.Resize(width)
	c.writeJSON(w, http.StatusOK, map[string]any{
		"changed":  moved,
		"timeGrid": c.controller.TimeGrid(),
	})
}

// handleToggle opens or closes a metric panel
func (c *Chart) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseMetricID(r.FormValue("metric"))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err)
		return
	}

	open, err := c.controller.Toggle(id)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err)
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]any{"metric": id, "isOpen": open})
}

// handleDuration records the video duration reported by the page
func (c *Chart) handleDuration(w http.ResponseWriter, r *http.Request) {
	seconds, err := floatParam(r, "seconds")
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err)
		return
	}
	if seconds < 0 {
		c.writeError(w, http.StatusBadRequest, errors.New("duration must not be negative"))
		return
	}

	accepted := c.controller.DurationKnown(seconds)
	c.writeJSON(w, http.StatusOK, map[string]any{
		"accepted": accepted,
		"playback": c.playback.Snapshot(),
	})
}

// handleAdvance follows the video clock while playing
func (c *Chart) handleAdvance(w http.ResponseWriter, r *http.Request) {
	seconds, err := floatParam(r, "seconds")
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err)
		return
	}
	c.changed(w, c.playback.Advance(seconds))
}

func (c *Chart) handlePlay(w http.ResponseWriter, _ *http.Request) {
	c.playback.Play()
	c.changed(w, true)
}

func (c *Chart) handlePause(w http.ResponseWriter, _ *http.Request) {
	c.playback.Pause()
	c.changed(w, true)
}
