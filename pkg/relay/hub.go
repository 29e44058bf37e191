package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"relaychat/pkg/logger"
	"relaychat/pkg/models"
	"relaychat/pkg/replicate"
	"relaychat/pkg/store"
	"relaychat/pkg/telemetry"
)

// Hub owns the session registry and is the sole consumer of the op queue.
// Its run loop is the single-threaded event dispatch of the system: every
// mutation is applied and fanned out from one goroutine, so operations from
// one connection are processed in submission order and no two mutations
// interleave at the persistence boundary.
type Hub struct {
	opts Options

	mu       sync.RWMutex
	sessions map[*Session]bool

	register   chan *Session
	unregister chan *Session
	queue      *Queue

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub ready to Run.
func NewHub(opts Options) *Hub {
	opts = opts.sanitize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts:       opts,
		sessions:   make(map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		queue:      NewQueue(opts.QueueCapacity),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. Call in its own goroutine; it returns
// only on Shutdown.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.closeSessions()
			return

		case sess := <-h.register:
			if sess == nil {
				continue
			}
			h.mu.Lock()
			sess.closed = false
			h.sessions[sess] = true
			count := len(h.sessions)
			h.mu.Unlock()
			telemetry.ConnectedSessions.Set(float64(count))
			logger.Info("session_registered", "remote", sess.addr, "sessions", count)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				sess.writePump()
			}()
			go func() {
				defer h.wg.Done()
				sess.readPump()
			}()

		case sess := <-h.unregister:
			h.dropSession(sess, "disconnect")

		case it, ok := <-h.queue.Out():
			if !ok {
				continue
			}
			h.apply(it.Op)
			it.Done()
		}
	}
}

// apply executes one dequeued operation: mutate via the replication engine
// where needed, then deliver per the per-operation policy. clear answers
// only the requester while post/delete broadcast to everyone; that
// asymmetry is contract, not accident.
func (h *Hub) apply(op *Op) {
	switch op.Type {
	case OpPost:
		var msg models.Message
		if err := json.Unmarshal(op.Payload, &msg); err != nil {
			logger.Warn("post_payload_invalid", "error", err)
			return
		}
		posted, err := replicate.Post(msg)
		if err != nil {
			telemetry.PersistFailures.Inc()
			h.sendError(op.Session, "message not saved")
			return
		}
		// broadcast is the sole delivery path; the sender sees its own
		// message exactly once, via the echo below
		h.broadcast(encodeEnvelope(EvtMessage, posted), nil)

	case OpDelete:
		var target models.Message
		if err := json.Unmarshal(op.Payload, &target); err != nil {
			logger.Warn("delete_payload_invalid", "error", err)
			return
		}
		if err := replicate.Delete(target); err != nil {
			telemetry.PersistFailures.Inc()
			h.sendError(op.Session, "message not deleted")
			return
		}
		h.broadcast(encodeEnvelope(EvtMessageDeleted, target), nil)

	case OpClear:
		if err := replicate.Clear(op.Account); err != nil {
			telemetry.PersistFailures.Inc()
			h.sendError(op.Session, "conversation not cleared")
			return
		}
		h.sendTo(op.Session, encodeEnvelope(EvtLoadMessages, []models.Message{}))

	case OpHistory:
		msgs := replicate.Reconcile(store.Load())
		h.sendTo(op.Session, encodeEnvelope(EvtLoadMessages, msgs))
		logger.Debug("history_served", "account", op.Account, "messages", len(msgs))

	case OpTyping:
		// transient presence signal: everyone but the sender, nothing
		// persisted, expiry is the receiver's concern
		h.broadcast(encodeEnvelope(EvtTyping, op.Account), op.Session)
	}
}

// broadcast delivers payload to every registered session except skip.
// Sessions whose send buffer is full are dropped.
func (h *Hub) broadcast(payload []byte, skip *Session) {
	if payload == nil {
		return
	}
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for sess := range h.sessions {
		if sess == skip {
			continue
		}
		targets = append(targets, sess)
	}
	h.mu.RUnlock()

	var failed []*Session
	for _, sess := range targets {
		if h.safeSend(sess, payload) {
			telemetry.BroadcastDeliveries.Inc()
		} else {
			failed = append(failed, sess)
		}
	}
	for _, sess := range failed {
		telemetry.DroppedSessions.Inc()
		h.dropSession(sess, "send buffer full")
	}
}

// sendTo delivers payload to a single session only.
func (h *Hub) sendTo(sess *Session, payload []byte) {
	if sess == nil || payload == nil {
		return
	}
	if h.safeSend(sess, payload) {
		return
	}
	telemetry.DroppedSessions.Inc()
	h.dropSession(sess, "send buffer full")
}

func (h *Hub) sendError(sess *Session, msg string) {
	h.sendTo(sess, encodeEnvelope(EvtError, msg))
}

func (h *Hub) safeSend(sess *Session, payload []byte) bool {
	defer func() {
		// send channel may close concurrently with unregister
		_ = recover()
	}()

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.sessions[sess]; !ok || sess.closed {
		return false
	}
	select {
	case sess.send <- payload:
		return true
	default:
		return false
	}
}

// dropSession unregisters sess and closes its send channel.
func (h *Hub) dropSession(sess *Session, reason string) {
	h.mu.Lock()
	if _, ok := h.sessions[sess]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, sess)
	sess.closed = true
	count := len(h.sessions)
	h.mu.Unlock()

	close(sess.send)
	telemetry.ConnectedSessions.Set(float64(count))
	logger.Info("session_unregistered", "remote", sess.addr, "reason", reason, "sessions", count)
}

// closeSessions tears down every registered session on shutdown. Closing
// the send channel stops the write pump without waiting out its ping
// ticker; closing the conn unblocks the read pump.
func (h *Hub) closeSessions() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for sess := range h.sessions {
		delete(h.sessions, sess)
		sess.closed = true
		sessions = append(sessions, sess)
	}
	h.mu.Unlock()

	for _, sess := range sessions {
		close(sess.send)
		if sess.conn != nil {
			_ = sess.conn.Close()
		}
	}
	telemetry.ConnectedSessions.Set(0)
	logger.Info("sessions_closed", "count", len(sessions))
}

// Shutdown stops the hub, closes all sessions, drains the op queue and
// waits for session goroutines up to timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done
	h.queue.CloseAndDrain()

	waited := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		logger.Info("hub_shutdown_complete")
		return nil
	case <-time.After(timeout):
		logger.Warn("hub_shutdown_timeout")
		return context.DeadlineExceeded
	}
}

// Queue exposes the hub's op queue to sessions and tests.
func (h *Hub) Queue() *Queue { return h.queue }
