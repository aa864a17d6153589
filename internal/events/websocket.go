package events

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

type readyMessage struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id,omitempty"`
}

// ServeWS upgrades the request and streams events as JSON until the client
// disconnects. The optional user_id query parameter filters events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid user_id", http.StatusBadRequest)
			return
		}
		userID = id
	}

	h.mu.RLock()
	origins := h.origins
	h.mu.RUnlock()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server error")

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	events, cancel := h.Subscribe(userID)
	defer cancel()

	if err := write(ctx, conn, readyMessage{Type: "ready", UserID: userID}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := write(ctx, conn, &event); err != nil {
				h.log.Debug().Err(err).Msg("Websocket client gone")
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
