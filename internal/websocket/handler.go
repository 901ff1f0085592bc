package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/fieldops/jobcard/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if hub == nil {
		http.Error(w, "Live updates disabled", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}

// BroadcastJobUpdate pushes a job snapshot to all connected clients. hub
// may be nil when live updates are disabled.
func BroadcastJobUpdate(hub *Hub, job interface{}) {
	if hub == nil {
		return
	}

	message, err := json.Marshal(map[string]interface{}{
		"type": "job_update",
		"data": job,
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to marshal job update")
		return
	}

	hub.Broadcast(message)
}
