// internal/websocket/hub.go
package websocket

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"storelinker-service/internal/domain/auth"
	wstypes "storelinker-service/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub tracks connected clients by user id and pushes session events to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients by user ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	events     chan *sessionEvent
	done       chan struct{}

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

type sessionEvent struct {
	userID     string
	message    *wstypes.WSMessage
	endSession string
	endAll     bool
}

// NewHub creates a hub. allowedOrigins empty or containing "*" accepts any origin.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *sessionEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

// Serve upgrades an authenticated request and attaches the connection to the hub.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, ident *auth.Identity) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := newClient(h, conn, ident)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return ErrHubStopped
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// ========== SessionNotifier ==========

// SessionEnded tells the user's clients a session ended and disconnects the
// clients bound to that session.
func (h *Hub) SessionEnded(userID, sessionID, reason string) {
	h.publish(&sessionEvent{
		userID: userID,
		message: wstypes.NewMessage(wstypes.EventTypeSessionEnded, wstypes.SessionEventData{
			SessionID: sessionID,
			Reason:    reason,
			Message:   "Your session has ended",
		}),
		endSession: sessionID,
	})
}

// AllSessionsEnded tells every client of the user that all sessions ended and
// disconnects them.
func (h *Hub) AllSessionsEnded(userID string, count int) {
	h.publish(&sessionEvent{
		userID: userID,
		message: wstypes.NewMessage(wstypes.EventTypeAllSessionEnded, wstypes.SessionEventData{
			Reason:  "logout_all",
			Message: "You have been logged out from all devices",
			Count:   count,
		}),
		endAll: true,
	})
}

func (h *Hub) publish(ev *sessionEvent) {
	select {
	case h.events <- ev:
	case <-h.done:
	default:
		h.logger.Warn("websocket event queue full, dropping event",
			zap.String("user_id", ev.userID),
			zap.String("type", string(ev.message.Type)),
		)
	}
}

// ========== Stats ==========

// ConnectedClients returns how many connections the user has open.
func (h *Hub) ConnectedClients(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// ========== Loop internals ==========

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Info("websocket client connected",
		zap.String("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, wstypes.ConnectedData{
		UserID:    client.userID,
		SessionID: client.sessionID,
		UserType:  client.userType,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(client)
}

func (h *Hub) dispatch(ev *sessionEvent) {
	data, err := ev.message.ToJSON()
	if err != nil {
		h.logger.Error("failed to encode websocket event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[ev.userID] {
		if !client.enqueue(data) {
			h.remove(client)
			continue
		}
		if ev.endAll || client.sessionID == ev.endSession {
			client.SendMessage(wstypes.NewMessage(wstypes.EventTypeDisconnected, wstypes.SessionEventData{
				SessionID: client.sessionID,
				Reason:    "session_ended",
				Message:   "Connection closed because the session ended",
			}))
			h.remove(client)
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
	client.closeSend()

	h.logger.Info("websocket client disconnected",
		zap.String("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", h.totalClients()),
	)
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.closeSend()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
