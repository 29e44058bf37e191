// Package replicate applies chat mutations to every account mirror and
// rebuilds the deduplicated conversation view from them.
package replicate

import (
	"relaychat/pkg/logger"
	"relaychat/pkg/models"
	"relaychat/pkg/store"
	"relaychat/pkg/utils"
)

// Post appends msg to every account mirror and persists the snapshot.
// The engine accepts any author and any text, including empty strings;
// input checks belong to the sending client. No dedup happens on write,
// identical messages appended twice are both stored. The returned message
// carries the assigned internal id and creation time.
func Post(msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = utils.GenID()
	}
	if msg.TS == 0 {
		msg.TS = utils.NowTS()
	}
	err := store.Update(func(snap models.Snapshot) (bool, error) {
		for id, acct := range snap {
			acct.Messages = append(acct.Messages, msg)
			snap[id] = acct
		}
		return true, nil
	})
	if err != nil {
		logger.Error("post_persist_failed", "author", msg.Author, "error", err)
		return msg, err
	}
	logger.Info("message_posted", "author", msg.Author, "id", msg.ID)
	return msg, nil
}

// Delete removes every message whose (author, text, timestamp) triple
// exactly equals target from every mirror. Exact string equality, no
// normalization. A delete that matches nothing is a successful no-op.
func Delete(target models.Message) error {
	removed := 0
	err := store.Update(func(snap models.Snapshot) (bool, error) {
		for id, acct := range snap {
			kept := acct.Messages[:0]
			for _, m := range acct.Messages {
				if m.SameTriple(target) {
					removed++
					continue
				}
				kept = append(kept, m)
			}
			acct.Messages = kept
			snap[id] = acct
		}
		return true, nil
	})
	if err != nil {
		logger.Error("delete_persist_failed", "author", target.Author, "error", err)
		return err
	}
	logger.Info("message_deleted", "author", target.Author, "removed", removed)
	return nil
}

// Clear empties only the named account's mirror. This deliberately breaks
// the all-mirrors-identical invariant: clearing is a per-account action
// and every other participant keeps their copy of the conversation. A
// missing account is a no-op success and nothing is persisted.
func Clear(accountID string) error {
	err := store.Update(func(snap models.Snapshot) (bool, error) {
		acct, ok := snap[accountID]
		if !ok {
			return false, nil
		}
		acct.Messages = []models.Message{}
		snap[accountID] = acct
		return true, nil
	})
	if err != nil {
		logger.Error("clear_persist_failed", "account", accountID, "error", err)
		return err
	}
	logger.Info("mirror_cleared", "account", accountID)
	return nil
}
