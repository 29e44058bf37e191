// Package relay fans chat events out to connected websocket sessions and
// feeds mutations through a single-writer queue into the replication engine.
package relay

import (
	"encoding/json"
)

// Wire event names: post/typing/history/delete/clear inbound,
// message/messageDeleted/loadMessages/typing/error outbound. Renaming any
// of these breaks deployed clients.
const (
	EvtMessage        = "message"
	EvtTyping         = "typing"
	EvtGetMessages    = "getMessages"
	EvtDeleteMessage  = "deleteMessage"
	EvtClearChat      = "clearChat"
	EvtMessageDeleted = "messageDeleted"
	EvtLoadMessages   = "loadMessages"
	EvtError          = "error"
)

// Envelope is the JSON frame exchanged over the websocket in both
// directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// encodeEnvelope marshals an outbound envelope. v must be a marshalable
// value; on failure a nil payload is returned and the caller drops the
// delivery.
func encodeEnvelope(event string, v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	b, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return b
}
