package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/project-tracker/logging"
	"github.com/CrowderSoup/project-tracker/services"
)

type WebSocketHandler struct {
	hub      *services.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts handshakes from the given origins; an empty
// list or "*" allows any origin.
func NewWebSocketHandler(hub *services.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(set) == 0 || origin == "" || set[origin]
	}
}

// HandleWebSocket upgrades the HTTP connection to a WebSocket connection
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "No token provided")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.WithError(err).Warn("Error upgrading to WebSocket")
		return
	}

	// A user may hold several connections, one per tab or device.
	client := services.NewClient(h.hub, conn, actor.ID, actor.Email)
	h.hub.Register(client)
	logging.Logger.WithFields(logrus.Fields{
		"client":  client.ID,
		"user_id": actor.ID,
	}).Info("WebSocket client registered")

	go client.WritePump()
	go client.ReadPump()
}
