package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"poi-server/models"
	"poi-server/services"
)

type WatchHandler struct {
	registry *services.RegistryService
	upgrader websocket.Upgrader
}

type watchMessage struct {
	POIs  []models.PointOfInterest `json:"pois"`
	Count int                      `json:"count"`
	Error string                   `json:"error,omitempty"`
}

func NewWatchHandler(registry *services.RegistryService) *WatchHandler {
	return &WatchHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			// Cross-origin policy is enforced by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WatchPOIs streams every registry snapshot to the client until either side
// closes the connection.
func (h *WatchHandler) WatchPOIs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("watch: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub, err := h.registry.Subscribe(r.Context())
	if err != nil {
		conn.WriteJSON(watchMessage{Error: err.Error()})
		return
	}
	defer sub.Cancel()

	// Reader goroutine: the client never sends data, but reading is the only
	// way to notice the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Cancel()
				return
			}
		}
	}()

	for snap := range sub.Snapshots() {
		msg := watchMessage{POIs: snap.POIs, Count: len(snap.POIs)}
		if snap.Err != nil {
			msg.Error = snap.Err.Error()
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
