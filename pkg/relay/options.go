package relay

import "time"

// Options tunes the hub and its sessions.
type Options struct {
	// QueueCapacity bounds the single-writer op queue.
	QueueCapacity int
	// SendBuffer is the per-session outbound buffer; a session that falls
	// this far behind is dropped.
	SendBuffer int
	// MaxMessageSize caps inbound websocket frames.
	MaxMessageSize int64
	// PingInterval and WriteTimeout/ReadTimeout follow the usual
	// pump discipline: pings keep idle connections alive, deadlines bound
	// stalled peers.
	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	// MessageRPS/MessageBurst rate-limit events per session.
	MessageRPS   float64
	MessageBurst int
}

// DefaultOptions returns the options used when config leaves relay
// settings unset.
func DefaultOptions() Options {
	return Options{
		QueueCapacity:  4096,
		SendBuffer:     256,
		MaxMessageSize: 64 * 1024,
		PingInterval:   54 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MessageRPS:     10,
		MessageBurst:   20,
	}
}

// sanitize fills zero values with defaults.
func (o Options) sanitize() Options {
	def := DefaultOptions()
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = def.QueueCapacity
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = def.SendBuffer
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = def.MaxMessageSize
	}
	if o.PingInterval <= 0 {
		o.PingInterval = def.PingInterval
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = def.ReadTimeout
	}
	if o.MessageRPS <= 0 {
		o.MessageRPS = def.MessageRPS
	}
	if o.MessageBurst <= 0 {
		o.MessageBurst = def.MessageBurst
	}
	return o
}
