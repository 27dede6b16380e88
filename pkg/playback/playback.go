// Package playback holds the video position shared between the scrubber,
// the video element and the metrics engine of one view.
//
// Every field has a fixed set of writers:
//
//	duration        SetDuration (video duration provider)
//	playedDuration  Seek (scrubber) and Advance (video clock while playing)
//	hoveredDuration Hover and ClearHover (pointer over the scale)
//	isPlaying       Play and Pause
//
// Readers take a Snapshot. The state is injected into its consumers rather
// than reached as a global, one instance per open view.
package playback

import (
	"math"
	"sync"
)

// SeekListener is told the absolute time a seek moved the play-head to
type SeekListener func(seconds float64)

// ChangeListener is told the new played duration after any change
type ChangeListener func(seconds float64)

// Snapshot is a read-only copy of the playback state
type Snapshot struct {
	Duration        float64 `json:"duration"`
	DurationKnown   bool    `json:"durationKnown"`
	PlayedDuration  float64 `json:"playedDuration"`
	HoveredDuration float64 `json:"hoveredDuration"`
	Hovering        bool    `json:"hovering"`
	IsPlaying       bool    `json:"isPlaying"`
}

// State is the playback state of one view
type State struct {
	mu sync.RWMutex

	duration        float64
	durationKnown   bool
	playedDuration  float64
	hoveredDuration float64
	hovering        bool
	isPlaying       bool

	epoch           uint64
	seekListeners   []SeekListener
	changeListeners []ChangeListener
}

// New creates an empty playback state
func New() *State {
	return &State{}
}

// Snapshot returns a copy of the current state
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Duration:        s.duration,
		DurationKnown:   s.durationKnown,
		PlayedDuration:  s.playedDuration,
		HoveredDuration: s.hoveredDuration,
		Hovering:        s.hovering,
		IsPlaying:       s.isPlaying,
	}
}

// Duration returns the video duration and whether it is known yet
func (s *State) Duration() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration, s.durationKnown
}

// PlayedDuration returns the play-head position in seconds
func (s *State) PlayedDuration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playedDuration
}

// HoveredDuration returns the time under the pointer, if any
func (s *State) HoveredDuration() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hoveredDuration, s.hovering
}

// IsPlaying reports whether the video is playing
func (s *State) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isPlaying
}

// Epoch identifies the current lifecycle of the state. It changes on every
// Reset, so callbacks started before a teardown can detect they are stale.
func (s *State) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// SetDuration records the video duration once its metadata loaded. Only the
// first call after creation or Reset is honoured; it reports whether the
// duration was taken. Negative and NaN durations are rejected.
func (s *State) SetDuration(seconds float64) bool {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.durationKnown {
		return false
	}
	s.duration = seconds
	s.durationKnown = true
	s.playedDuration = clamp(s.playedDuration, 0, seconds)
	return true
}

// Seek moves the play-head to percent of the scrubber width. The percent is
// clamped into [0, 100]. Without a known duration nothing happens and false
// is returned.
func (s *State) Seek(percent float64) bool {
	if math.IsNaN(percent) {
		return false
	}

	s.mu.Lock()
	if !s.durationKnown {
		s.mu.Unlock()
		return false
	}

	seconds := s.duration * clamp(percent, 0, 100) / 100
	s.playedDuration = seconds
	seekListeners := append([]SeekListener(nil), s.seekListeners...)
	changeListeners := append([]ChangeListener(nil), s.changeListeners...)
	s.mu.Unlock()

	for _, listener := range seekListeners {
		listener(seconds)
	}
	for _, listener := range changeListeners {
		listener(seconds)
	}
	return true
}

// Advance reports the video clock while playing. Calls while paused or
// without a known duration are ignored.
func (s *State) Advance(seconds float64) bool {
	if math.IsNaN(seconds) {
		return false
	}

	s.mu.Lock()
	if !s.durationKnown || !s.isPlaying {
		s.mu.Unlock()
		return false
	}

	s.playedDuration = clamp(seconds, 0, s.duration)
	played := s.playedDuration
	changeListeners := append([]ChangeListener(nil), s.changeListeners...)
	s.mu.Unlock()

	for _, listener := range changeListeners {
		listener(played)
	}
	return true
}

// Hover records the pointer at percent of the scale width
func (s *State) Hover(percent float64) bool {
	if math.IsNaN(percent) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.durationKnown {
		return false
	}
	s.hoveredDuration = s.duration * clamp(percent, 0, 100) / 100
	s.hovering = true
	return true
}

// ClearHover forgets the pointer once it left the scale
func (s *State) ClearHover() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hoveredDuration = 0
	s.hovering = false
}

// Play marks the video as playing
func (s *State) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPlaying = true
}

// Pause marks the video as paused
func (s *State) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPlaying = false
}

// OnSeek binds a listener to seeks, typically the video element moving its
// own play-head
func (s *State) OnSeek(listener SeekListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekListeners = append(s.seekListeners, listener)
}

// OnPlayedDurationChanged binds a listener to any play-head movement
func (s *State) OnPlayedDurationChanged(listener ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changeListeners = append(s.changeListeners, listener)
}

// Reset returns the state to empty and drops every listener. It is called
// once when the hosting view is torn down; the state can be used again
// afterwards.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.duration = 0
	s.durationKnown = false
	s.playedDuration = 0
	s.hoveredDuration = 0
	s.hovering = false
	s.isPlaying = false
	s.seekListeners = nil
	s.changeListeners = nil
	s.epoch++
}

func clamp(value, low, high float64) float64 {
	return math.Min(math.Max(value, low), high)
}
