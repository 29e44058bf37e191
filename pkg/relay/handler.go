package relay

import (
	"net/http"

	"github.com/gorilla/websocket"

	"relaychat/pkg/logger"
)

// ServeWS returns the /ws upgrade handler. originAllowed mirrors the CORS
// policy applied to the HTTP surface; a nil func allows same-host requests
// only (the upgrader default).
func ServeWS(hub *Hub, originAllowed func(origin string) bool) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if originAllowed != nil {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return originAllowed(origin)
		}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		sess := NewSession(conn, hub, r.RemoteAddr)
		select {
		case hub.register <- sess:
		case <-hub.ctx.Done():
			_ = conn.Close()
		}
	}
}
