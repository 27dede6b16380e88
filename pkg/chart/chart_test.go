package chart

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/dashboard"
	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/raykavin/perfscope/pkg/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readMessage skips messages until one of the given type arrives
func readMessage(t *testing.T, conn *websocket.Conn, messageType string) json.RawMessage {
	t.Helper()
	for {
		var message struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&message))
		if message.Type == messageType {
			return message.Payload
		}
	}
}

// readView reads view messages until one matches, older broadcasts may
// still be queued when a page connects
func readView(t *testing.T, conn *websocket.Conn, match func(dashboard.View) bool) dashboard.View {
	t.Helper()
	for {
		var view dashboard.View
		require.NoError(t, json.Unmarshal(readMessage(t, conn, MessageView), &view))
		if match(view) {
			return view
		}
	}
}

func dialPage(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func newTestChart(t *testing.T) (*Chart, *httptest.Server) {
	t.Helper()

	fetcher := core.FetcherFunc(func(context.Context, string, string) (core.Snapshot, error) {
		return core.Snapshot{
			core.CPU: {{ID: "cpu", Samples: []core.Sample{{Time: 0, Value: 10}, {Time: 10, Value: 30}}}},
		}, nil
	})

	controller := dashboard.NewController(fetcher, playback.New())
	chart, err := NewChart(controller, logger.Nop(), WithDebug(), WithTitle("Run 42"))
	require.NoError(t, err)

	done, err := controller.Load(context.Background(), "run", "test")
	require.NoError(t, err)
	<-done

	server := httptest.NewServer(chart.Handler())
	t.Cleanup(func() {
		chart.Close()
		server.Close()
	})
	return chart, server
}

func postForm(t *testing.T, server *httptest.Server, path string, values url.Values) (int, map[string]any) {
	t.Helper()

	resp, err := http.PostForm(server.URL+path, values)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func TestChart_Index(t *testing.T) {
	_, server := newTestChart(t)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(page), "Run 42")
	assert.Contains(t, string(page), "Network (KB/S)")
	assert.NotContains(t, string(page), "<video")

	resp, err = http.Get(server.URL + "/nothing-here")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChart_Script(t *testing.T) {
	_, server := newTestChart(t)

	resp, err := http.Get(server.URL + "/assets/chart.js")
	require.NoError(t, err)
	defer resp.Body.Close()

	script, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(script), "/resize")
}

func TestChart_Data(t *testing.T) {
	_, server := newTestChart(t)

	resp, err := http.Get(server.URL + "/data")
	require.NoError(t, err)
	defer resp.Body.Close()

	var view dashboard.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Len(t, view.Metrics, 3)
	assert.Equal(t, core.CPU, view.Metrics[0].ID)
	assert.Equal(t, [5]float64{30, 22.5, 15, 7.5, 0}, view.Metrics[0].ValueGrid)
	assert.Equal(t, "10%", view.Values[core.CPU])
	assert.False(t, view.Playback.DurationKnown)
}

func TestChart_SeekFlow(t *testing.T) {
	chart, server := newTestChart(t)

	status, _ := postForm(t, server, "/seek", url.Values{"percent": {"50"}})
	assert.Equal(t, http.StatusConflict, status)

	status, body := postForm(t, server, "/duration", url.Values{"seconds": {"10"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["accepted"])

	status, body = postForm(t, server, "/duration", url.Values{"seconds": {"20"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["accepted"])

	status, _ = postForm(t, server, "/seek", url.Values{"percent": {"50"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5.0, chart.playback.PlayedDuration())

	value, err := chart.controller.DisplayValueAtCurrentTime(core.CPU)
	require.NoError(t, err)
	assert.Equal(t, "20%", value)

	status, _ = postForm(t, server, "/hover", url.Values{"x": {"25"}, "width": {"100"}})
	assert.Equal(t, http.StatusOK, status)
	hovered, ok := chart.playback.HoveredDuration()
	assert.True(t, ok)
	assert.Equal(t, 2.5, hovered)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/hover", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	_, ok = chart.playback.HoveredDuration()
	assert.False(t, ok)

	status, body = postForm(t, server, "/advance", url.Values{"seconds": {"7"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["changed"], "paused")

	postForm(t, server, "/play", nil)
	status, body = postForm(t, server, "/advance", url.Values{"seconds": {"7"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, 7.0, chart.playback.PlayedDuration())

	postForm(t, server, "/pause", nil)
	assert.False(t, chart.playback.IsPlaying())
}

func TestChart_BadInput(t *testing.T) {
	_, server := newTestChart(t)

	tt := []struct {
		path   string
		values url.Values
		status int
	}{
		{"/seek", url.Values{"percent": {"half"}}, http.StatusBadRequest},
		{"/seek", nil, http.StatusBadRequest},
		{"/seek", url.Values{"percent": {"NaN"}}, http.StatusBadRequest},
		{"/resize", url.Values{"width": {"wide"}}, http.StatusBadRequest},
		{"/toggle", url.Values{"metric": {"gpu"}}, http.StatusBadRequest},
		{"/duration", url.Values{"seconds": {"-4"}}, http.StatusBadRequest},
		{"/hover", url.Values{"x": {"4"}, "width": {"0"}}, http.StatusBadRequest},
		{"/hover", url.Values{"percent": {"40"}}, http.StatusConflict},
	}

	for _, tc := range tt {
		t.Run(tc.path, func(t *testing.T) {
			status, body := postForm(t, server, tc.path, tc.values)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}

	resp, err := http.Get(server.URL + "/seek?percent=10")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestChart_ResizeAndToggle(t *testing.T) {
	chart, server := newTestChart(t)
	chart.controller.DurationKnown(120)

	status, body := postForm(t, server, "/resize", url.Values{"width": {"650"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["changed"])
	assert.Len(t, body["timeGrid"], 6)

	status, body = postForm(t, server, "/toggle", url.Values{"metric": {"network"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isOpen"])
	assert.Equal(t, "network", body["metric"])
}

func TestChart_Health(t *testing.T) {
	_, server := newTestChart(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "succeeded", body["status"])
}

func TestChart_WebSocket(t *testing.T) {
	chart, server := newTestChart(t)
	chart.controller.DurationKnown(10)

	conn := dialPage(t, server)

	initial := readView(t, conn, func(view dashboard.View) bool { return view.Playback.DurationKnown })
	assert.Equal(t, 10.0, initial.Playback.Duration)

	assert.Eventually(t, func() bool { return chart.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	status, _ := postForm(t, server, "/seek", url.Values{"percent": {"50"}})
	require.Equal(t, http.StatusOK, status)

	update := readView(t, conn, func(view dashboard.View) bool { return view.Playback.PlayedDuration > 0 })
	assert.Equal(t, 5.0, update.Playback.PlayedDuration)
	assert.Equal(t, "20%", update.Values[core.CPU])
}

func TestChart_SizeSignal(t *testing.T) {
	fetcher := core.FetcherFunc(func(context.Context, string, string) (core.Snapshot, error) {
		return core.Snapshot{core.Memory: {{ID: "memory", Samples: []core.Sample{{Time: 0, Value: 512}}}}}, nil
	})

	var chart *Chart
	controller := dashboard.NewController(fetcher, playback.New(),
		dashboard.WithDelays(time.Millisecond, time.Millisecond),
		dashboard.WithSizeNotifier(dashboard.SizeNotifierFunc(func() { chart.NotifySizeChanged() })),
	)
	chart, err := NewChart(controller, logger.Nop(), WithDebug())
	require.NoError(t, err)

	server := httptest.NewServer(chart.Handler())
	t.Cleanup(func() {
		chart.Close()
		server.Close()
	})

	conn := dialPage(t, server)
	readMessage(t, conn, MessageView)

	status, _ := postForm(t, server, "/toggle", url.Values{"metric": {"memory"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", string(readMessage(t, conn, MessageSize)))

	done, err := controller.Load(context.Background(), "run", "test")
	require.NoError(t, err)
	<-done
	readMessage(t, conn, MessageSize)
}

func TestChart_SeekMessage(t *testing.T) {
	chart, server := newTestChart(t)
	chart.controller.DurationKnown(40)

	conn := dialPage(t, server)
	readMessage(t, conn, MessageView)

	status, _ := postForm(t, server, "/seek", url.Values{"percent": {"25"}})
	require.Equal(t, http.StatusOK, status)

	var seek SeekPayload
	require.NoError(t, json.Unmarshal(readMessage(t, conn, MessageSeek), &seek))
	assert.Equal(t, 10.0, seek.Seconds)

	// closing the view drops playback listeners, a reload binds them again
	chart.controller.Close()
	done, err := chart.controller.Load(context.Background(), "run", "test")
	require.NoError(t, err)
	<-done
	require.True(t, chart.controller.DurationKnown(20))

	status, _ = postForm(t, server, "/seek", url.Values{"percent": {"50"}})
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, json.Unmarshal(readMessage(t, conn, MessageSeek), &seek))
	assert.Equal(t, 10.0, seek.Seconds)
}
