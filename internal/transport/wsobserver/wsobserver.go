// Package wsobserver pumps one job's observer sink (C3) onto a websocket
// connection, the external-route-layer half of §4.3 the orchestrator
// itself never touches.
package wsobserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/bus"
	"github.com/sentrywatch/threatwatch/internal/models"
)

// upgrader mirrors the teacher's permissive local-development CORS
// posture; a production deployment would tighten CheckOrigin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// writeTimeout bounds a single WriteMessage call so one stalled client
// cannot hold the per-connection mutex indefinitely.
const writeTimeout = 5 * time.Second

// Handler upgrades an HTTP request to a websocket and pumps one job's
// observer events to it until the sink closes or the client disconnects.
type Handler struct {
	observers *bus.ObserverRegistry
	logger    arbor.ILogger
}

// NewHandler builds a Handler bound to observers.
func NewHandler(observers *bus.ObserverRegistry, logger arbor.ILogger) *Handler {
	return &Handler{observers: observers, logger: logger}
}

// Serve upgrades r and streams jobID's observer events to the connection
// until the sink is closed (job reached a terminal state, or a second
// subscriber superseded this one) or the client goes away.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, jobID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sink := h.observers.Subscribe(jobID)
	defer h.observers.Unsubscribe(jobID, sink)

	// Drain client-initiated reads on a separate goroutine purely to
	// detect disconnects; this endpoint is server-push only.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	for {
		select {
		case event, ok := <-sink:
			if !ok {
				return
			}
			if err := h.writeEvent(conn, &writeMu, event); err != nil {
				h.logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to write observer event")
				return
			}
			if event.Type == models.EventTypeComplete || event.Type == models.EventTypeError || event.Type == models.EventTypeSuperseded {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *Handler) writeEvent(conn *websocket.Conn, mu *sync.Mutex, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
