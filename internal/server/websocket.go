package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// wsHub fans game update messages out to connected clients. A dropped
// message costs one refresh, never correctness; clients can always refetch
// over HTTP.
type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{groups: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *wsHub) Add(gameID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[gameID]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[gameID] = group
	}
	group[conn] = struct{}{}
}

func (h *wsHub) Remove(gameID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[gameID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, gameID)
	}
}

func (h *wsHub) Broadcast(gameID string, payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.groups[gameID]))
	for conn := range h.groups[gameID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(gameID, conn)
		}
	}
}

// Count reports the connections registered for a game.
func (h *wsHub) Count(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[gameID])
}

// GameUpdated implements engine.Notifier. The pushed payload mirrors the
// HTTP state response, censored as for an outside viewer; players who need
// their own pending velocities refetch with their player_id.
func (s *Server) GameUpdated(gameID string) {
	if s.ws.Count(gameID) == 0 {
		return
	}
	view, err := s.engine.View(context.Background(), gameID)
	if err != nil {
		log.Printf("websocket push skipped game_id=%s err=%v", gameID, err)
		return
	}
	payload := statePayload(view, "")
	payload["type"] = "game_updated"
	s.ws.Broadcast(gameID, payload)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebsocket(c *gin.Context) {
	gameID := c.Param("gameID")
	if _, err := s.engine.View(c.Request.Context(), gameID); err != nil {
		respondError(c, err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed game_id=%s err=%v", gameID, err)
		return
	}
	s.ws.Add(gameID, conn)
	go func() {
		defer s.ws.Remove(gameID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
