package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/warehouse-twin/backend/internal/models"
)

// WebSocket message types for the change feed
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypePong      = "pong"
	MsgTypeChange    = "change"
	MsgTypeError     = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// WSMessage is the envelope of every change feed message
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ConnectionObserver is notified as clients come and go.
type ConnectionObserver interface {
	ClientConnected()
	ClientDisconnected()
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (cl *wsClient) close() {
	cl.once.Do(func() { close(cl.send) })
}

// ChangeHub broadcasts layout change events to connected editors. It
// implements layout.Notifier.
type ChangeHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	observer ConnectionObserver
	log      zerolog.Logger
}

// NewChangeHub creates an empty hub. observer may be nil.
func NewChangeHub(logger zerolog.Logger, observer ConnectionObserver) *ChangeHub {
	return &ChangeHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Editors may be served from a dev server on another port
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		clients:  make(map[*wsClient]struct{}),
		observer: observer,
		log:      logger.With().Str("component", "ws").Logger(),
	}
}

// Publish sends event to every client. Clients whose buffer is full are
// disconnected rather than blocking the publisher.
func (h *ChangeHub) Publish(event models.ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode change event")
		return
	}
	data := mustJSON(WSMessage{Type: MsgTypeChange, Payload: payload, Timestamp: event.Timestamp})

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			h.log.Warn().Str("remote", cl.conn.RemoteAddr().String()).Msg("dropping slow change feed client")
			h.removeLocked(cl)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *ChangeHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *ChangeHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		h.removeLocked(cl)
	}
}

// HandleWebSocket upgrades the connection and streams change events until
// the client disconnects.
func (h *ChangeHub) HandleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	cl := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	cl.send <- mustJSON(WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})
	h.add(cl)
	h.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("change feed client connected")

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

func (h *ChangeHub) add(cl *wsClient) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	if h.observer != nil {
		h.observer.ClientConnected()
	}
}

func (h *ChangeHub) remove(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(cl)
}

func (h *ChangeHub) removeLocked(cl *wsClient) {
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	cl.close()
	if h.observer != nil {
		h.observer.ClientDisconnected()
	}
}

// readPump handles client pings and detects disconnects.
func (h *ChangeHub) readPump(cl *wsClient) {
	defer h.remove(cl)

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("change feed connection error")
			}
			return
		}

		var reply []byte
		switch msg.Type {
		case MsgTypePing:
			reply = mustJSON(WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		default:
			reply = mustJSON(WSMessage{
				Type:      MsgTypeError,
				Payload:   mustJSON(map[string]string{"message": "Unknown message type: " + msg.Type, "code": "INVALID_TYPE"}),
				Timestamp: time.Now().UnixMilli(),
			})
		}

		h.mu.RLock()
		_, live := h.clients[cl]
		if live {
			select {
			case cl.send <- reply:
			default:
			}
		}
		h.mu.RUnlock()
	}
}

// writePump is the only writer on the connection.
func (h *ChangeHub) writePump(cl *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(cl)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(cl)
				return
			}
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
