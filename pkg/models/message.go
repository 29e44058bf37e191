package models

// Message is one chat message as exchanged with clients. Timestamp is the
// client-rendered clock string and is echoed back verbatim; together with
// Author and Text it forms the message identity used by deletes.
type Message struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`

	// ID is a server-assigned unique identifier; TS is the server-side
	// creation time (ns). Both are internal bookkeeping and play no part
	// in message identity.
	ID string `json:"id,omitempty"`
	TS int64  `json:"ts,omitempty"`
}

// Key returns the dedup/identity key for the message. The unit separator
// keeps field boundaries unambiguous for any field content.
func (m Message) Key() string {
	const sep = "\x1f"
	return m.Author + sep + m.Text + sep + m.Timestamp
}

// SameTriple reports whether two messages carry the identical
// (author, text, timestamp) triple. Exact string equality, no normalization.
func (m Message) SameTriple(o Message) bool {
	return m.Author == o.Author && m.Text == o.Text && m.Timestamp == o.Timestamp
}
