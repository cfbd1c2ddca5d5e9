// Package ws streams live marathon progress to the page over WebSocket. Each
// connection is one mounted view: it owns a scroll subscription from upgrade
// until the socket closes.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Zachkp/marathon-portfolio/internal/metrics"
	"github.com/Zachkp/marathon-portfolio/internal/progress"
	"github.com/Zachkp/marathon-portfolio/internal/scroll"
	"github.com/Zachkp/marathon-portfolio/internal/tracker"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	sendBufSize  = 16
	readLimit    = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page is served from the same origin; reverse proxies enforce the rest.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Inbound message types.
const (
	TypeScroll = "scroll"
	TypeJump   = "jump"
)

// Inbound is a message from the page. TimestampMs is nil when the page left
// it out; an explicit zero is a real timestamp.
type Inbound struct {
	Type           string  `json:"type"`
	Position       float64 `json:"position"`
	TimestampMs    *int64  `json:"timestampMs,omitempty"`
	ScrollHeight   float64 `json:"scrollHeight"`
	ViewportHeight float64 `json:"viewportHeight"`
	Section        string  `json:"section,omitempty"`
}

// Sample returns the scroll sample and geometry carried by a scroll message,
// stamping it with now when it has no timestamp.
func (in Inbound) Sample(now func() time.Time) (tracker.ScrollSample, tracker.Geometry) {
	sample := tracker.ScrollSample{Position: in.Position}
	if in.TimestampMs != nil {
		sample.TimestampMs = *in.TimestampMs
	} else {
		sample.TimestampMs = now().UnixMilli()
	}
	return sample, tracker.Geometry{ScrollHeight: in.ScrollHeight, ViewportHeight: in.ViewportHeight}
}

// Outbound is the envelope sent to the page.
type Outbound struct {
	Event string                 `json:"event"`
	Data  *tracker.ProgressState `json:"data,omitempty"`
	Error string                 `json:"error,omitempty"`
}

// Options configures a Hub.
type Options struct {
	Frame   time.Duration
	Emitter progress.Emitter
	Logger  *zap.Logger
	// Now stamps samples that arrive without a timestamp.
	Now func() time.Time
}

// Hub tracks connected views.
type Hub struct {
	course tracker.Course
	opts   Options

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	sub  *scroll.Subscription
}

// New creates a Hub running every view on course.
func New(course tracker.Course, opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Hub{course: course, opts: opts, clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the request and serves the view until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufSize)}
	sessionID := uuid.New()
	c.sub = scroll.Subscribe(h.course, c.render,
		scroll.WithFrame(h.opts.Frame),
		scroll.WithEmitter(sessionID, h.opts.Emitter),
	)
	metrics.SubscriptionOpened()
	h.register(c)
	h.opts.Logger.Debug("progress stream opened", zap.String("session_id", sessionID.String()))

	defer func() {
		// Close first: after it returns no render can touch c.send.
		c.sub.Close()
		stats := c.sub.Stats()
		metrics.SubscriptionClosed(stats.Processed, stats.Coalesced)
		h.unregister(c)
		h.opts.Logger.Debug("progress stream closed",
			zap.String("session_id", sessionID.String()),
			zap.Int64("processed", stats.Processed),
			zap.Int64("coalesced", stats.Coalesced))
	}()

	c.render(c.sub.State())
	go c.writePump()
	h.readPump(c)
}

// Count returns the number of connected views.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every view. Each view's handler then releases its
// subscription.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// Shutdown disconnects every view and waits until each has released its
// subscription, or for ctx.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.CloseAll()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for h.Count() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("live views still open: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump decodes page messages until the connection closes.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.enqueue(Outbound{Event: "error", Error: "malformed message"})
				continue
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		h.handle(c, in)
	}
}

func (h *Hub) handle(c *client, in Inbound) {
	switch in.Type {
	case TypeScroll:
		c.sub.Publish(in.Sample(h.opts.Now))
	case TypeJump:
		if _, err := c.sub.Jump(in.Section); err != nil {
			c.enqueue(Outbound{Event: "error", Error: err.Error()})
		}
	default:
		c.enqueue(Outbound{Event: "error", Error: "unknown message type " + in.Type})
	}
}

func (c *client) render(st tracker.ProgressState) {
	c.enqueue(Outbound{Event: "progress", Data: &st})
}

// enqueue drops the message when the view is not keeping up; every progress
// message supersedes the previous one.
func (c *client) enqueue(msg Outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
