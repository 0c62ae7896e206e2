package handlers

import (
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/office-portal/internal/dashboard"
	"github.com/wolfman30/office-portal/internal/session"
	"github.com/wolfman30/office-portal/pkg/logging"
)

const liveBuffer = 16

// LiveMessage is pushed to every connected front-end.
type LiveMessage struct {
	Type      string           `json:"type"` // "hello", "session", "dashboard", "pong"
	State     session.State    `json:"state,omitempty"`
	Dashboard *dashboard.Event `json:"dashboard,omitempty"`
}

type liveInbound struct {
	Type string `json:"type"` // "ping"
}

// LiveHub fans session and dashboard changes out to websocket clients so
// open tabs re-render without polling. Slow clients drop messages rather
// than block the publisher.
type LiveHub struct {
	state  func() session.State
	logger *logging.Logger

	mu      sync.Mutex
	clients map[chan LiveMessage]struct{}
}

// NewLiveHub builds a hub. state supplies the session state sent on connect.
func NewLiveHub(state func() session.State, logger *logging.Logger) *LiveHub {
	if logger == nil {
		logger = logging.Default()
	}
	return &LiveHub{state: state, logger: logger, clients: make(map[chan LiveMessage]struct{})}
}

// SessionChanged is registered with session.Manager.OnChange.
func (h *LiveHub) SessionChanged(state session.State) {
	h.Broadcast(LiveMessage{Type: "session", State: state})
}

// DashboardChanged is registered with dashboard.Dashboard.OnChange.
func (h *LiveHub) DashboardChanged(event dashboard.Event) {
	h.Broadcast(LiveMessage{Type: "dashboard", Dashboard: &event})
}

// Broadcast queues msg for every client.
func (h *LiveHub) Broadcast(msg LiveMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.logger.Debug("live client lagging, dropping message", "type", msg.Type)
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *LiveHub) subscribe() chan LiveMessage {
	ch := make(chan LiveMessage, liveBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *LiveHub) unsubscribe(ch chan LiveMessage) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// HandleWebSocket upgrades the request and streams LiveMessages.
// GET /api/live
func (h *LiveHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serve(conn)
	}).ServeHTTP(w, r)
}

func (h *LiveHub) serve(conn *websocket.Conn) {
	ch := h.subscribe()
	defer h.unsubscribe(ch)

	hello := LiveMessage{Type: "hello"}
	if h.state != nil {
		hello.State = h.state()
	}
	if err := websocket.JSON.Send(conn, hello); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg liveInbound
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				h.logger.Debug("live connection closed", "error", err)
				return
			}
			if msg.Type == "ping" {
				select {
				case ch <- LiveMessage{Type: "pong"}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-ch:
			if err := websocket.JSON.Send(conn, msg); err != nil {
				return
			}
		}
	}
}
