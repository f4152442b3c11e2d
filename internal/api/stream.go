package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	streamPingInterval = 10 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// StreamComments upgrades to a websocket and pushes every comment added to
// the post until the client disconnects. Delivery is best effort; a client
// that stops reading is dropped, never the mutation path.
func (h *NewsHandler) StreamComments(w http.ResponseWriter, r *http.Request) {
	newsID := chi.URLParam(r, "id")
	if _, err := h.service.Get(r.Context(), newsID); err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	comments, cancel := h.observer.Subscribe(newsID)
	defer cancel()

	// The read pump exists only to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case comment := <-comments:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(comment); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
