package models

// Account is one persisted account record: the credential hash plus that
// account's mirrored copy of the shared conversation.
type Account struct {
	Password string    `json:"password"`
	Messages []Message `json:"messages"`
}

// Snapshot is the entire durable store, loaded and saved as one unit.
// Mirrors are independent physical copies; every Load builds fresh
// slices, so snapshots never alias each other.
type Snapshot map[string]Account
