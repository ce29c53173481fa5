package simulator

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stockpod/stockpodgo/internal/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local-only tool, dashboards connect from anywhere on the LAN
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RunEvent is one status-transition notification pushed to dashboards
type RunEvent struct {
	Type        string                `json:"type"`
	RunID       string                `json:"run_id"`
	ContainerID string                `json:"container_id,omitempty"`
	Status      models.AnalysisStatus `json:"status"`
	Reviewed    bool                  `json:"reviewed"`
	Timestamp   time.Time             `json:"timestamp"`
}

// Hub fans run events out to connected websocket clients
type Hub struct {
	log *logrus.Entry

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewHub creates an empty hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		log:     logger.WithField("component", "run-hub"),
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeWS upgrades the connection and streams run events until the peer goes away
func (h *Hub) ServeWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	send := make(chan []byte, 16)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()
	h.log.WithField("remote", conn.RemoteAddr().String()).Debug("dashboard connected")

	go h.writePump(conn, send)
	h.readPump(conn)
}

// readPump drains the connection so close frames are processed
func (h *Hub) readPump(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, send chan []byte) {
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(conn)
			return
		}
	}
}

// Broadcast delivers an event to every connected client. Slow clients are
// dropped rather than allowed to stall the broadcast.
func (h *Hub) Broadcast(ev RunEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("failed to encode run event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			delete(h.clients, conn)
			close(send)
			conn.Close()
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	conn.Close()
}
