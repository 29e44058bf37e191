package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"relaychat/pkg/logger"
	"relaychat/pkg/models"
)

var (
	db     *pebble.DB
	dbPath string

	// writerMu serializes every load-mutate-save sequence. Two
	// interleaved cycles would let the later Save overwrite the earlier
	// mutation; Update closes that lost-update race.
	writerMu sync.Mutex
)

const accountPrefix = "account:"

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_store", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("store_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("store_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("store_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// Load reads every account record into a full snapshot. It fails soft:
// an unopened store, a missing resource, or an unparseable record never
// surfaces an error to the caller; affected records are simply absent.
func Load() models.Snapshot {
	snap := models.Snapshot{}
	if db == nil {
		logger.Warn("load_store_unavailable")
		return snap
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		logger.Warn("load_iter_failed", "error", err)
		return snap
	}
	defer iter.Close()
	prefix := []byte(accountPrefix)
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		id := string(iter.Key()[len(prefix):])
		var acct models.Account
		if err := json.Unmarshal(iter.Value(), &acct); err != nil {
			logger.Warn("load_record_unparseable", "account", id, "error", err)
			continue
		}
		snap[id] = acct
	}
	if err := iter.Error(); err != nil {
		logger.Warn("load_iter_error", "error", err)
	}
	return snap
}

// Save persists every account record of the snapshot in a single synced
// batch. The snapshot is the unit of persistence; records never leave the
// store through Save, they are only overwritten. Fails hard.
func Save(snap models.Snapshot) error {
	if db == nil {
		return fmt.Errorf("store not opened; call store.Open first")
	}
	batch := db.NewBatch()
	defer batch.Close()
	for id, acct := range snap {
		data, err := json.Marshal(acct)
		if err != nil {
			return fmt.Errorf("failed to marshal account %s: %w", id, err)
		}
		if err := batch.Set([]byte(accountPrefix+id), data, nil); err != nil {
			return err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("save_snapshot_failed", "accounts", len(snap), "error", err)
		return err
	}
	logger.Debug("snapshot_saved", "accounts", len(snap))
	return nil
}

// Update runs one load-mutate-save cycle under the writer lock. fn mutates
// the loaded snapshot in place and reports whether the result should be
// persisted; returning an error aborts without saving.
func Update(fn func(models.Snapshot) (bool, error)) error {
	writerMu.Lock()
	defer writerMu.Unlock()
	snap := Load()
	persist, err := fn(snap)
	if err != nil {
		return err
	}
	if !persist {
		return nil
	}
	return Save(snap)
}

// GetAccount returns a single account record and whether it exists.
func GetAccount(id string) (models.Account, bool) {
	var acct models.Account
	if db == nil {
		return acct, false
	}
	v, closer, err := db.Get([]byte(accountPrefix + id))
	if err != nil {
		return acct, false
	}
	if closer != nil {
		defer closer.Close()
	}
	if err := json.Unmarshal(v, &acct); err != nil {
		logger.Warn("get_account_unparseable", "account", id, "error", err)
		return models.Account{}, false
	}
	return acct, true
}

// PutAccount writes a single account record.
func PutAccount(id string, acct models.Account) error {
	if db == nil {
		return fmt.Errorf("store not opened; call store.Open first")
	}
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("failed to marshal account %s: %w", id, err)
	}
	if err := db.Set([]byte(accountPrefix+id), data, pebble.Sync); err != nil {
		logger.Error("put_account_failed", "account", id, "error", err)
		return err
	}
	return nil
}
