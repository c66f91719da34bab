package coordinator

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/claudia-coord/claudia/internal/event"
)

// subscriberHub fans out Store events to websocket subscribers of
// /subscribe, per §4.4's "Subscribers receive an opaque monotonically
// increasing version number; they are delivered best-effort and must
// tolerate drops."
type subscriberHub struct {
	upgrader websocket.Upgrader
	version  atomic.Uint64

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newSubscriberHub() *subscriberHub {
	return &subscriberHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The coordinator only ever serves localhost clients (CLI
			// agents on the same machine), so origin checking would
			// only get in the way of the loopback handshake.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// notification is the wire shape pushed to each subscriber.
type notification struct {
	Version uint64 `json:"version"`
	Type    string `json:"type"`
}

func (h *subscriberHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *subscriberHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	_ = conn.Close()
}

// broadcast delivers e to every connected subscriber, best-effort: a
// write failure drops that subscriber rather than blocking the others.
func (h *subscriberHub) broadcast(e event.Event) {
	n := notification{Version: h.version.Add(1), Type: e.EventType()}

	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.WriteJSON(n); err != nil {
			h.remove(c)
		}
	}
}

func (h *subscriberHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		_ = c.Close()
	}
	h.conns = make(map[*websocket.Conn]struct{})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.hub.add(conn)

	// Backfill the new subscriber with whatever the bus still has in its
	// recent-events ring buffer, so it isn't left with no context until
	// the next mutation happens to occur.
	if s.bus != nil {
		for _, e := range s.bus.Recent() {
			n := notification{Version: s.hub.version.Add(1), Type: e.EventType()}
			if err := conn.WriteJSON(n); err != nil {
				s.hub.remove(conn)
				return
			}
		}
	}

	// Drain and discard client frames; /subscribe is push-only. The read
	// loop's only job is to notice the client closing the connection.
	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
