package relay

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"relaychat/pkg/logger"
	"relaychat/pkg/telemetry"
	"relaychat/pkg/utils"
	"relaychat/pkg/validation"
)

// Session is the lifetime-scoped handle for one connected client. It owns
// no conversation state; it decodes inbound envelopes into ops for the hub
// and drains its send buffer to the socket.
type Session struct {
	conn    *websocket.Conn
	hub     *Hub
	send    chan []byte
	addr    string
	closed  bool
	limiter *rate.Limiter
}

// NewSession wraps an upgraded websocket connection. Register it with the
// hub to start its pumps.
func NewSession(conn *websocket.Conn, hub *Hub, addr string) *Session {
	opts := hub.opts
	if conn != nil {
		conn.SetReadLimit(opts.MaxMessageSize)
	}
	return &Session{
		conn:    conn,
		hub:     hub,
		send:    make(chan []byte, opts.SendBuffer),
		addr:    addr,
		limiter: rate.NewLimiter(rate.Limit(opts.MessageRPS), opts.MessageBurst),
	}
}

func (s *Session) readPump() {
	defer func() {
		// the hub stops receiving on unregister once its loop exits;
		// during shutdown the session is torn down by closeSessions
		select {
		case s.hub.unregister <- s:
		case <-s.hub.ctx.Done():
		}
		_ = s.conn.Close()
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(s.hub.opts.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.hub.opts.ReadTimeout))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logger.Warn("session_read_error", "remote", s.addr, "error", err)
			} else {
				logger.Debug("session_closed", "remote", s.addr, "error", err)
			}
			return
		}
		s.handleFrame(raw)
	}
}

// handleFrame decodes one inbound envelope and enqueues the matching op.
// Malformed events are dropped, never fatal for the connection.
func (s *Session) handleFrame(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Warn("malformed_event", "remote", s.addr, "error", err)
		return
	}
	telemetry.EventsTotal.WithLabelValues(env.Event).Inc()

	if !s.limiter.Allow() {
		logger.Warn("session_rate_limited", "remote", s.addr, "event", env.Event)
		return
	}

	op := Op{TS: utils.NowTS(), Session: s}
	switch env.Event {
	case EvtMessage, EvtDeleteMessage:
		if err := validation.ValidatePayload(env.Data); err != nil {
			logger.Warn("malformed_event", "remote", s.addr, "event", env.Event, "error", err)
			return
		}
		op.Type = OpPost
		if env.Event == EvtDeleteMessage {
			op.Type = OpDelete
		}
		op.Payload = env.Data

	case EvtClearChat, EvtGetMessages, EvtTyping:
		var account string
		if err := json.Unmarshal(env.Data, &account); err != nil {
			logger.Warn("malformed_event", "remote", s.addr, "event", env.Event, "error", err)
			return
		}
		switch env.Event {
		case EvtClearChat:
			op.Type = OpClear
		case EvtGetMessages:
			op.Type = OpHistory
		default:
			op.Type = OpTyping
		}
		op.Account = account

	default:
		logger.Warn("unknown_event", "remote", s.addr, "event", env.Event)
		return
	}

	if err := s.hub.queue.TryEnqueue(&op); err != nil {
		telemetry.DroppedOps.Inc()
		logger.Warn("op_dropped", "remote", s.addr, "event", env.Event, "error", err)
		s.hub.sendError(s, "server busy")
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.opts.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("session_write_error", "remote", s.addr, "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
