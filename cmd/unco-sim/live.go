package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/b97tsk/unco"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Viewers do not talk back; anything larger than a control frame is noise.
	maxMessageSize = 512
)

// snapshot is what viewers of the live feed receive once per published tick.
type snapshot struct {
	World    string      `json:"world"`
	Tick     uint64      `json:"tick"`
	Stats    unco.Stats  `json:"stats"`
	Counters simCounters `json:"counters"`
}

type viewer struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

// hub fans snapshots out to every connected viewer.
type hub struct {
	log        zerolog.Logger
	upgrader   websocket.Upgrader
	viewers    map[*viewer]bool
	broadcast  chan []byte
	register   chan *viewer
	unregister chan *viewer
	done       chan struct{}
	mu         sync.Mutex
}

func newHub(log zerolog.Logger) *hub {
	return &hub{
		log:        log,
		viewers:    make(map[*viewer]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *viewer),
		unregister: make(chan *viewer),
		done:       make(chan struct{}),
	}
}

// run handles viewers coming and going and broadcasts until ctx is done.
func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for v := range h.viewers {
				delete(h.viewers, v)
				close(v.send)
			}
			h.mu.Unlock()
			h.log.Debug().Msg("live hub stopped")
			return
		case v := <-h.register:
			h.mu.Lock()
			h.viewers[v] = true
			h.mu.Unlock()
			h.log.Debug().Str("remote", v.conn.RemoteAddr().String()).Msg("viewer connected")
		case v := <-h.unregister:
			h.mu.Lock()
			if h.viewers[v] {
				delete(h.viewers, v)
				close(v.send)
				h.log.Debug().Str("remote", v.conn.RemoteAddr().String()).Msg("viewer disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for v := range h.viewers {
				select {
				case v.send <- msg:
				default:
					// Too slow to keep up.
					delete(h.viewers, v)
					close(v.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// viewerCount returns the number of connected viewers.
func (h *hub) viewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// publish hands s to the hub without blocking the tick loop.
// Snapshots are dropped while the hub is busy.
func (h *hub) publish(s snapshot) {
	payload, err := json.Marshal(s)
	if err != nil {
		h.log.Error().Err(err).Msg("encode snapshot")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

// ServeHTTP upgrades the request to a websocket and streams snapshots to it.
func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	v := &viewer{hub: h, conn: conn, send: make(chan []byte, 64)}

	select {
	case h.register <- v:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go v.writePump()
	go v.readPump()
}

// readPump discards whatever the viewer sends and notices when it leaves.
func (v *viewer) readPump() {
	defer func() {
		select {
		case v.hub.unregister <- v:
		case <-v.hub.done:
		}
		v.conn.Close()
	}()
	v.conn.SetReadLimit(maxMessageSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				v.hub.log.Warn().Err(err).Msg("viewer read failed")
			}
			return
		}
	}
}

// writePump pushes snapshots and keepalive pings to the viewer.
func (v *viewer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
