package server

import (
	"net/http"

	"crypto-desk/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *DeskServer) handleWebsockets() {
	for {
		select {
		case client, ok := <-s.register:
			if !ok {
				return
			}
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			latest := s.latestState
			s.stateMutex.Unlock()

			// Send initial state on connect
			if latest != nil {
				client.send <- latest
			}

		case client, ok := <-s.unregister:
			if !ok {
				return
			}
			s.stateMutex.Lock()
			if _, exists := s.clients[client]; exists {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case snapshot, ok := <-s.broadcast:
			if !ok {
				return
			}
			// Update state and broadcast
			s.stateMutex.Lock()
			s.latestState = snapshot

			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- snapshot:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateSnapshot replaces the stored state without broadcasting.
func (s *DeskServer) UpdateSnapshot(snapshot *models.MDeskSnapshot) {
	if snapshot == nil {
		return
	}
	s.stateMutex.Lock()
	s.latestState = snapshot
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// Broadcast queues a fresh snapshot for delivery to all clients. Dropping is
// preferred over blocking the desk when the queue is full.
func (s *DeskServer) Broadcast(snapshot *models.MDeskSnapshot) {
	if snapshot == nil {
		return
	}

	select {
	case s.broadcast <- snapshot:
	default:
		s.Logger.Warning("Broadcast queue full, dropping snapshot")
	}
}

// -----------------------------------------------------------------------------
// WebSocket Upgrade
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the HTTP middleware
	},
}

// -----------------------------------------------------------------------------

func (s *DeskServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warning("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		send: make(chan *models.MDeskSnapshot, 16),
	}

	s.register <- client

	go client.writePump()
	go client.readPump()

	s.Logger.Info("Client connected")
}
