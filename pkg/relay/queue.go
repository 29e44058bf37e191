package relay

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// OpType represents an operation kind for the relay pipeline.
type OpType string

const (
	OpPost    OpType = "post"
	OpDelete  OpType = "delete"
	OpClear   OpType = "clear"
	OpHistory OpType = "history"
	OpTyping  OpType = "typing"
)

// Op is a lightweight in-memory representation of one client operation
// destined for the hub worker. Payload may be backed by a pooled
// ByteBuffer; consumers must call Item.Done() when finished.
type Op struct {
	Type OpType
	// Account is the subject account for clear/history/typing operations.
	Account string
	// Payload holds the raw message JSON for post/delete operations.
	Payload []byte
	// TS is the server-side accept timestamp (nanoseconds).
	TS int64
	// EnqSeq is a monotonic enqueue sequence assigned when the op is
	// accepted into the queue; it fixes ordering inside the worker.
	EnqSeq uint64
	// Session is the submitting session, used for targeted replies. It is
	// not pooled state and is cleared on Done.
	Session *Session
}

// ErrQueueFull is returned by TryEnqueue when the queue is at capacity
// or already closed.
var ErrQueueFull = errors.New("relay queue full")

// maxPooledBuffer controls the largest buffer size that will be returned
// to the pooled ByteBuffer. Larger buffers are dropped to avoid unbounded
// resident memory.
var maxPooledBuffer = 256 * 1024 // 256 KiB

var opPool = sync.Pool{New: func() any { return &Op{} }}

// Item wraps an Op and owns a pooled ByteBuffer if one was used. Consumers
// MUST call Done() exactly once after processing the item to return pooled
// resources.
type Item struct {
	Op *Op

	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

// Done releases internal pooled resources back to their pools.
func (it *Item) Done() {
	it.once.Do(func() {
		if it.buf != nil {
			if cap(it.buf.B) > maxPooledBuffer {
				it.buf = nil
			} else {
				bytebufferpool.Put(it.buf)
				it.buf = nil
			}
		}
		if it.Op != nil {
			it.Op.Payload = nil
			it.Op.Session = nil
			opPool.Put(it.Op)
			it.Op = nil
		}
	})
}

// Queue is the bounded single-writer queue between sessions and the hub
// worker. It is safe for concurrent producers; the hub is the sole
// consumer, which is the serialization point for all mutations.
type Queue struct {
	ch        chan *Item
	capacity  int
	dropped   uint64
	enqSeq    uint64
	closed    uint32
	closeOnce sync.Once
}

// NewQueue creates a bounded Queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{ch: make(chan *Item, capacity), capacity: capacity}
}

// Out returns the read-only consumer channel. Do not close it from callers.
func (q *Queue) Out() <-chan *Item { return q.ch }

// TryEnqueue attempts to enqueue an Op, copying any payload into a pooled
// buffer. If the queue is full ErrQueueFull is returned and the event is
// the caller's to drop or report.
func (q *Queue) TryEnqueue(op *Op) error {
	newOp := opPool.Get().(*Op)
	*newOp = *op
	newOp.EnqSeq = atomic.AddUint64(&q.enqSeq, 1)

	var bb *bytebufferpool.ByteBuffer
	if len(op.Payload) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], op.Payload...)
		newOp.Payload = bb.B[:len(op.Payload)]
	}
	// Item is allocated fresh; it owns a sync.Once, which must never be
	// copied into a recycled value.
	it := &Item{Op: newOp, buf: bb}

	if q.trySend(it) {
		return nil
	}
	if bb != nil {
		bytebufferpool.Put(bb)
	}
	newOp.Session = nil
	opPool.Put(newOp)
	atomic.AddUint64(&q.dropped, 1)
	return ErrQueueFull
}

// trySend performs the non-blocking enqueue. A late producer can race
// CloseAndDrain; sending on the closed channel panics and is reported
// as a failed enqueue.
func (q *Queue) trySend(it *Item) (ok bool) {
	if atomic.LoadUint32(&q.closed) == 1 {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case q.ch <- it:
		return true
	default:
		return false
	}
}

// CloseAndDrain closes the queue channel and drains remaining items,
// ensuring their resources are released. Safe to call more than once.
func (q *Queue) CloseAndDrain() {
	q.closeOnce.Do(func() {
		atomic.StoreUint32(&q.closed, 1)
		close(q.ch)
	})
	for it := range q.ch {
		it.Done()
	}
}

// Len returns the current number of items in the queue.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the configured capacity of the queue.
func (q *Queue) Cap() int { return q.capacity }

// Dropped returns the number of operations rejected by a full queue.
func (q *Queue) Dropped() uint64 { return atomic.LoadUint64(&q.dropped) }
