package replicate

import (
	"sort"
	"time"

	"relaychat/pkg/models"
)

// timestampLayouts are tried in order when parsing the client-rendered
// timestamp string. Clients render with locale formatting, so both dated
// and bare time-of-day forms show up.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006, 3:04:05 PM",
	"3:04:05 PM",
	"3:04 PM",
	"15:04:05",
	"15:04",
}

// parseTimestamp parses a display timestamp. The second return value
// reports whether any layout matched; callers must treat unparseable
// values as equal rather than failing.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Reconcile merges all mirrors into one deduplicated, time-ordered
// conversation view. Each distinct (author, text, timestamp) triple appears
// exactly once; the first encountered occurrence wins. Mirrors are walked
// in sorted account order so encounter order is deterministic. The sort is
// stable and ascending by parsed timestamp; unparseable timestamps compare
// equal and keep their encounter order. Reconcile never fails.
func Reconcile(snap models.Snapshot) []models.Message {
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seen := make(map[string]struct{})
	out := []models.Message{}
	for _, id := range ids {
		for _, m := range snap[id].Messages {
			key := m.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, oki := parseTimestamp(out[i].Timestamp)
		tj, okj := parseTimestamp(out[j].Timestamp)
		if !oki || !okj {
			// no total order between unparseable values; stable sort
			// keeps encounter order
			return false
		}
		return ti.Before(tj)
	})
	return out
}
