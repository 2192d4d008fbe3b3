package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ojcli/internal/realtime"
	"ojcli/pkg/utils/logger"
)

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// hub tracks websocket clients and their registered identities. Events are
// broadcast to every registered client; the mock does not route per user.
type hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> registered userID
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]string),
	}
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(r.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.clients[conn] = ""
	h.mu.Unlock()
	go h.readLoop(conn)
}

func (h *hub) readLoop(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Event != realtime.EventRegister {
			continue
		}
		var reg realtime.RegisterPayload
		if err := json.Unmarshal(frame.Data, &reg); err != nil {
			continue
		}
		h.mu.Lock()
		h.clients[conn] = reg.UserID
		h.mu.Unlock()
		logger.Info(context.Background(), "client registered", zap.String("user_id", reg.UserID))
	}
}

// broadcast sends an event to every registered client. Unregistered
// connections get nothing, matching the real service's addressing rule.
func (h *hub) broadcast(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(wsFrame{Event: event, Data: data})
	if err != nil {
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn, userID := range h.clients {
		if userID != "" {
			conns = append(conns, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Warn(context.Background(), "push write failed", zap.Error(err))
		}
	}
}
