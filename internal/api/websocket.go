package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"investment-platform/internal/auth"
	"investment-platform/internal/events"
	"investment-platform/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// UserWSClient is one websocket connection bound to a user.
type UserWSClient struct {
	conn      *websocket.Conn
	send      chan []byte
	hub       *UserWSHub
	userID    string
	closeChan chan struct{}
}

// UserWSHub routes domain events to the websocket connections of the
// user they concern. Events without a user (batch completions, errors)
// go to every connection.
type UserWSHub struct {
	clients     map[*UserWSClient]bool
	userClients map[string]map[*UserWSClient]bool
	broadcast   chan []byte
	userCast    chan userMessage
	register    chan *UserWSClient
	unregister  chan *UserWSClient
	stopChan    chan struct{}
	eventBus    *events.EventBus
	logger      *logging.Logger
	mu          sync.RWMutex
}

type userMessage struct {
	userID string
	data   []byte
}

// NewUserWSHub creates a hub wired to the event bus.
func NewUserWSHub(eventBus *events.EventBus) *UserWSHub {
	return &UserWSHub{
		clients:     make(map[*UserWSClient]bool),
		userClients: make(map[string]map[*UserWSClient]bool),
		broadcast:   make(chan []byte, 256),
		userCast:    make(chan userMessage, 256),
		register:    make(chan *UserWSClient),
		unregister:  make(chan *UserWSClient),
		stopChan:    make(chan struct{}),
		eventBus:    eventBus,
		logger:      logging.Default().WithComponent("ws_hub"),
	}
}

// Start runs the hub loop and subscribes it to the event bus.
func (h *UserWSHub) Start() {
	h.eventBus.SubscribeAll(h.handleEvent)
	go h.run()
}

// Stop shuts the hub loop down.
func (h *UserWSHub) Stop() {
	close(h.stopChan)
}

// handleEvent fans a bus event out to the right connections.
func (h *UserWSHub) handleEvent(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", "type", string(event.Type), "error", err.Error())
		return
	}

	if event.UserID == "" {
		select {
		case h.broadcast <- data:
		default:
			h.logger.Warn("broadcast channel full, dropping event", "type", string(event.Type))
		}
		return
	}

	select {
	case h.userCast <- userMessage{userID: event.UserID, data: data}:
	default:
		h.logger.Warn("user cast channel full, dropping event", "type", string(event.Type), "user_id", event.UserID)
	}
}

func (h *UserWSHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if client.userID != "" {
				if h.userClients[client.userID] == nil {
					h.userClients[client.userID] = make(map[*UserWSClient]bool)
				}
				h.userClients[client.userID][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if client.userID != "" {
					if userClients, ok := h.userClients[client.userID]; ok {
						delete(userClients, client)
						if len(userClients) == 0 {
							delete(h.userClients, client.userID)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
				}
			}
			h.mu.RUnlock()

		case userMsg := <-h.userCast:
			h.mu.RLock()
			if userClients, ok := h.userClients[userMsg.userID]; ok {
				for client := range userClients {
					select {
					case client.send <- userMsg.data:
					default:
					}
				}
			}
			h.mu.RUnlock()

		case <-h.stopChan:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				client.conn.Close()
			}
			h.clients = make(map[*UserWSClient]bool)
			h.userClients = make(map[string]map[*UserWSClient]bool)
			h.mu.Unlock()
			return
		}
	}
}

// ClientCount returns the number of connected clients for a user.
func (h *UserWSHub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID])
}

// TotalClientCount returns the total number of connections.
func (h *UserWSHub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump pumps messages from the hub to the websocket connection
func (c *UserWSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// readPump drains the connection so pings and close frames are handled.
func (c *UserWSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		close(c.closeChan)
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// handleUserWebSocket upgrades the connection and registers the client.
func (s *Server) handleUserWebSocket(c *gin.Context, userID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err.Error())
		return
	}

	client := &UserWSClient{
		conn:      conn,
		send:      make(chan []byte, 256),
		hub:       s.wsHub,
		userID:    userID,
		closeChan: make(chan struct{}),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	welcome := map[string]interface{}{
		"type":      "connected",
		"timestamp": time.Now(),
		"user_id":   userID,
	}
	if data, err := json.Marshal(welcome); err == nil {
		select {
		case client.send <- data:
		default:
		}
	}
}

// AuthenticatedWSHandler authenticates the websocket upgrade. Browsers
// cannot set headers on websocket requests, so a query param token is
// accepted alongside the Authorization header.
func AuthenticatedWSHandler(s *Server) gin.HandlerFunc {
	jwtManager := s.services.Auth.GetJWTManager()

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			header := c.GetHeader("Authorization")
			if len(header) > 7 && header[:7] == "Bearer " {
				token = header[7:]
			}
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "UNAUTHORIZED",
				"message": "authentication required for websocket connection",
			})
			return
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "UNAUTHORIZED",
				"message": "invalid token",
			})
			return
		}

		c.Set(auth.ContextKeyUserID, claims.UserID)
		c.Set(auth.ContextKeyRole, claims.Role)
		s.handleUserWebSocket(c, claims.UserID)
	}
}
