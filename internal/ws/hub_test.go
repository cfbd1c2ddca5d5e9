package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/marathon-portfolio/internal/progress"
	"github.com/Zachkp/marathon-portfolio/internal/tracker"
)

type eventLog struct {
	mu     sync.Mutex
	events []progress.Event
}

func (l *eventLog) Emit(evt progress.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
}

func (l *eventLog) has(stage progress.Stage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Stage == stage {
			return true
		}
	}
	return false
}

func ms(v int64) *int64 { return &v }

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readOutbound(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var out Outbound
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestHubStreamsProgress(t *testing.T) {
	t.Parallel()

	events := &eventLog{}
	hub := New(tracker.DefaultCourse(), Options{Emitter: events})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)

	first := readOutbound(t, conn)
	require.Equal(t, "progress", first.Event)
	require.NotNil(t, first.Data)
	require.Equal(t, 0.0, first.Data.ProgressPct)
	require.Equal(t, "home", first.Data.ActiveSection)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Inbound{
		Type: TypeScroll, Position: 1000, TimestampMs: ms(1000),
		ScrollHeight: 1800, ViewportHeight: 800,
	}))
	got := readOutbound(t, conn)
	require.Equal(t, "progress", got.Event)
	require.Equal(t, 100.0, got.Data.ProgressPct)
	require.Equal(t, tracker.MarathonKm, got.Data.DistanceKm)
	require.Equal(t, 3, got.Data.CheckpointsReached)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return events.has(progress.StageSessionEnd) }, 2*time.Second, 5*time.Millisecond)
	require.True(t, events.has(progress.StageSessionStart))
	require.True(t, events.has(progress.StageFinish))
}

func TestHubJumpAndErrors(t *testing.T) {
	t.Parallel()

	hub := New(tracker.DefaultCourse(), Options{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	readOutbound(t, conn)

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeJump, Section: "running"}))
	got := readOutbound(t, conn)
	require.Equal(t, "progress", got.Event)
	require.Equal(t, "running", got.Data.ActiveSection)
	require.Equal(t, 0.0, got.Data.ProgressPct)

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeJump, Section: "contact"}))
	got = readOutbound(t, conn)
	require.Equal(t, "error", got.Event)
	require.Contains(t, got.Error, "unknown section")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	got = readOutbound(t, conn)
	require.Equal(t, "error", got.Event)
	require.Equal(t, "malformed message", got.Error)

	require.NoError(t, conn.WriteJSON(Inbound{Type: "teleport"}))
	got = readOutbound(t, conn)
	require.Equal(t, "error", got.Event)
}

func TestHubStampsMissingTimestamps(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	now := time.UnixMilli(10_000)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(2 * time.Second)
		return now
	}
	hub := New(tracker.DefaultCourse(), Options{Now: clock})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	readOutbound(t, conn)

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeScroll, Position: 0, ScrollHeight: 1800, ViewportHeight: 800}))
	readOutbound(t, conn)
	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeScroll, Position: 100, ScrollHeight: 1800, ViewportHeight: 800}))
	got := readOutbound(t, conn)
	// 2s over 1 unit of 100px.
	require.InDelta(t, 2.0, got.Data.PaceMinPerKm, 1e-9)
}

func TestHubKeepsExplicitZeroTimestamp(t *testing.T) {
	t.Parallel()

	clock := func() time.Time { return time.UnixMilli(60_000) }
	hub := New(tracker.DefaultCourse(), Options{Now: clock})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	readOutbound(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"scroll","position":0,"timestampMs":0,"scrollHeight":1800,"viewportHeight":800}`)))
	readOutbound(t, conn)
	require.NoError(t, conn.WriteJSON(Inbound{
		Type: TypeScroll, Position: 100, TimestampMs: ms(2000),
		ScrollHeight: 1800, ViewportHeight: 800,
	}))
	got := readOutbound(t, conn)
	// Re-stamping the zero with the clock would make elapsed negative and
	// carry the start pace.
	require.InDelta(t, 2.0, got.Data.PaceMinPerKm, 1e-9)
}

func TestInboundSample(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return time.UnixMilli(5_000) }
	in := Inbound{Position: 40, ScrollHeight: 900, ViewportHeight: 300}

	sample, geom := in.Sample(now)
	require.Equal(t, int64(5_000), sample.TimestampMs)
	require.Equal(t, 40.0, sample.Position)
	require.Equal(t, tracker.Geometry{ScrollHeight: 900, ViewportHeight: 300}, geom)

	in.TimestampMs = ms(0)
	sample, _ = in.Sample(now)
	require.Equal(t, int64(0), sample.TimestampMs)
}

func TestHubShutdown(t *testing.T) {
	t.Parallel()

	hub := New(tracker.DefaultCourse(), Options{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	for i := 0; i < 3; i++ {
		conn := dial(t, srv)
		readOutbound(t, conn)
	}
	require.Eventually(t, func() bool { return hub.Count() == 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	require.Zero(t, hub.Count())
}
