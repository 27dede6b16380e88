package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/playback"
	"github.com/raykavin/perfscope/pkg/plot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		core.CPU: {
			{ID: "cpu", Samples: []core.Sample{{Time: 0, Value: 10}, {Time: 10, Value: 30}}},
		},
		core.Memory: {
			{ID: "memory", Samples: []core.Sample{{Time: 0, Value: 1200}, {Time: 10, Value: 2400}}},
		},
		core.Network: {
			{ID: "upload", Samples: []core.Sample{{Time: 0, Value: 4}, {Time: 10, Value: 8}}},
			{ID: "download", Samples: []core.Sample{{Time: 0, Value: 100}, {Time: 10, Value: 300}}},
		},
	}
}

func staticFetcher(snapshot core.Snapshot, err error) core.Fetcher {
	return core.FetcherFunc(func(context.Context, string, string) (core.Snapshot, error) {
		return snapshot, err
	})
}

func waitLoad(t *testing.T, c *Controller) {
	t.Helper()
	done, err := c.Load(context.Background(), "build-1", "test-1")
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("load did not complete")
	}
}

func TestController_Load(t *testing.T) {
	state := playback.New()
	state.SetDuration(10)
	c := NewController(staticFetcher(testSnapshot(), nil), state)

	assert.Equal(t, StatusIdle, c.Progress().Status)
	waitLoad(t, c)
	assert.Equal(t, StatusSucceeded, c.Progress().Status)

	metrics := c.Metrics()
	require.Len(t, metrics, 3)
	assert.Equal(t, core.CPU, metrics[0].ID)
	assert.Equal(t, "CPU performance", metrics[0].Name)
	assert.Equal(t, [5]float64{30, 22.5, 15, 7.5, 0}, metrics[0].ValueGrid)
	assert.Equal(t, [5]float64{300, 225, 150, 75, 0}, metrics[2].ValueGrid)

	require.Len(t, metrics[2].Curves, 2)
	assert.Equal(t, plot.BuildCurve(metrics[2].SampleGroups[1].Samples, 10), metrics[2].Curves[1])
}

func TestController_LoadEmptyMetric(t *testing.T) {
	snapshot := testSnapshot()
	delete(snapshot, core.Memory)

	state := playback.New()
	state.SetDuration(10)
	c := NewController(staticFetcher(snapshot, nil), state)
	waitLoad(t, c)

	memory, err := c.Metric(core.Memory)
	require.NoError(t, err)
	assert.True(t, memory.Loaded)
	assert.Empty(t, memory.SampleGroups)
	assert.Equal(t, [5]float64{100, 75, 50, 25, 0}, memory.ValueGrid)

	value, err := c.DisplayValueAtCurrentTime(core.Memory)
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestController_LoadFailure(t *testing.T) {
	state := playback.New()
	c := NewController(staticFetcher(nil, errors.New("connection refused")), state)
	waitLoad(t, c)

	progress := c.Progress()
	assert.Equal(t, StatusFailed, progress.Status)
	assert.Equal(t, "Error loading metrics.", progress.Message)
	assert.ErrorContains(t, progress.Err, "connection refused")

	for _, m := range c.Metrics() {
		assert.False(t, m.Loaded)
		assert.Nil(t, m.SampleGroups)
	}
}

func TestController_LoadInFlight(t *testing.T) {
	release := make(chan struct{})
	fetcher := core.FetcherFunc(func(context.Context, string, string) (core.Snapshot, error) {
		<-release
		return testSnapshot(), nil
	})

	c := NewController(fetcher, playback.New())
	done, err := c.Load(context.Background(), "b", "t")
	require.NoError(t, err)
	assert.Equal(t, StatusLoading, c.Progress().Status)

	_, err = c.Load(context.Background(), "b", "t")
	assert.ErrorIs(t, err, core.ErrLoadInFlight)

	close(release)
	<-done
	assert.Equal(t, StatusSucceeded, c.Progress().Status)
}

func TestController_StaleCompletionIgnored(t *testing.T) {
	release := make(chan struct{})
	fetcher := core.FetcherFunc(func(context.Context, string, string) (core.Snapshot, error) {
		<-release
		return testSnapshot(), nil
	})

	state := playback.New()
	state.SetDuration(10)
	c := NewController(fetcher, state)

	done, err := c.Load(context.Background(), "b", "t")
	require.NoError(t, err)

	c.Close()
	close(release)
	<-done

	assert.Equal(t, StatusIdle, c.Progress().Status)
	for _, m := range c.Metrics() {
		assert.Nil(t, m.SampleGroups)
	}
	_, known := state.Duration()
	assert.False(t, known)
}

func TestController_DisplayValueAtCurrentTime(t *testing.T) {
	state := playback.New()
	state.SetDuration(10)
	c := NewController(staticFetcher(testSnapshot(), nil), state)
	waitLoad(t, c)

	state.Seek(50)

	value, err := c.DisplayValueAtCurrentTime(core.CPU)
	require.NoError(t, err)
	assert.Equal(t, "20%", value)

	value, err = c.DisplayValueAtCurrentTime(core.Memory)
	require.NoError(t, err)
	assert.Equal(t, "1.8k", value)

	value, err = c.DisplayValueAtCurrentTime(core.Network)
	require.NoError(t, err)
	assert.Equal(t, "u: 6 d: 200", value)

	_, err = c.DisplayValueAtCurrentTime(core.MetricID(9))
	assert.ErrorIs(t, err, core.ErrUnknownMetric)

	assert.Equal(t, "20%", c.DisplayValues()[core.CPU])
}

func TestController_DurationKnownAfterLoad(t *testing.T) {
	state := playback.New()
	c := NewController(staticFetcher(testSnapshot(), nil), state, WithInitialWidth(650))
	waitLoad(t, c)

	cpu, err := c.Metric(core.CPU)
	require.NoError(t, err)
	assert.Empty(t, cpu.Curves)
	assert.Nil(t, c.TimeGrid())

	require.True(t, c.DurationKnown(120))
	assert.False(t, c.DurationKnown(60))

	cpu, err = c.Metric(core.CPU)
	require.NoError(t, err)
	assert.Len(t, cpu.Curves, 1)
	assert.Equal(t, []float64{0, 24, 48, 72, 96, 120}, c.TimeGrid())
}

func TestController_Resize(t *testing.T) {
	state := playback.New()
	var updates atomic.Int32
	c := NewController(staticFetcher(nil, nil), state, WithUpdateListener(func() { updates.Add(1) }))

	assert.False(t, c.Resize(650), "duration still unknown")
	assert.Nil(t, c.TimeGrid())

	c.DurationKnown(120)
	assert.Equal(t, []float64{0, 24, 48, 72, 96, 120}, c.TimeGrid())

	assert.False(t, c.Resize(700))
	assert.True(t, c.Resize(350))
	assert.Equal(t, []float64{0, 60, 120}, c.TimeGrid())

	assert.True(t, c.Resize(-20))
	assert.Equal(t, []float64{0, 120}, c.TimeGrid())

	assert.Equal(t, int32(3), updates.Load())
}

func TestController_Toggle(t *testing.T) {
	notified := make(chan struct{}, 4)
	c := NewController(staticFetcher(nil, nil), playback.New(),
		WithDelays(time.Millisecond, time.Millisecond),
		WithSizeNotifier(SizeNotifierFunc(func() { notified <- struct{}{} })),
	)

	open, err := c.Toggle(core.Network)
	require.NoError(t, err)
	assert.True(t, open)

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("size change was not signalled")
	}

	open, err = c.Toggle(core.Network)
	require.NoError(t, err)
	assert.False(t, open)

	_, err = c.Toggle(core.MetricID(-3))
	assert.ErrorIs(t, err, core.ErrUnknownMetric)
}

func TestController_CloseAndReload(t *testing.T) {
	state := playback.New()
	state.SetDuration(10)
	c := NewController(staticFetcher(testSnapshot(), nil), state)
	waitLoad(t, c)
	c.Toggle(core.CPU)

	c.Close()
	for _, m := range c.Metrics() {
		assert.False(t, m.IsOpen)
		assert.False(t, m.Loaded)
	}

	state.SetDuration(10)
	waitLoad(t, c)
	cpu, err := c.Metric(core.CPU)
	require.NoError(t, err)
	assert.Len(t, cpu.Curves, 1)
}

func TestController_View(t *testing.T) {
	state := playback.New()
	state.SetDuration(10)
	c := NewController(staticFetcher(testSnapshot(), nil), state, WithInitialWidth(320))

	var updates atomic.Int32
	c.OnUpdate(func() { updates.Add(1) })

	waitLoad(t, c)
	state.Seek(50)

	view := c.View()
	assert.Len(t, view.Metrics, 3)
	assert.Equal(t, "20%", view.Values[core.CPU])
	assert.Equal(t, 5.0, view.Playback.PlayedDuration)
	assert.Equal(t, StatusSucceeded, view.Progress.Status)
	assert.Nil(t, view.TimeGrid, "no resize or duration signal yet")
	assert.Equal(t, int32(1), updates.Load())
}
