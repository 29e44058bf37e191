package replicate

import (
	"testing"

	"relaychat/pkg/models"
)

// TestReconcileDedup verifies that a triple mirrored into several
// accounts appears exactly once in the merged view.
func TestReconcileDedup(t *testing.T) {
	m1 := models.Message{Author: "alice", Text: "one", Timestamp: "10:00:00"}
	m2 := models.Message{Author: "bob", Text: "two", Timestamp: "10:00:01"}
	m3 := models.Message{Author: "alice", Text: "three", Timestamp: "10:00:02"}
	snap := models.Snapshot{
		"alice": {Messages: []models.Message{m1, m2, m3}},
		"bob":   {Messages: []models.Message{m1, m2, m3}},
		"carol": {Messages: []models.Message{m2}},
	}

	got := Reconcile(snap)
	if len(got) != 3 {
		t.Fatalf("expected 3 messages; got %d", len(got))
	}
	for i, want := range []models.Message{m1, m2, m3} {
		if !got[i].SameTriple(want) {
			t.Fatalf("position %d: got %+v want %+v", i, got[i], want)
		}
	}
}

// TestReconcileFirstOccurrenceWins verifies that when mirrors disagree
// on internal fields for the same triple, the copy from the first
// account in sorted order is the one served.
func TestReconcileFirstOccurrenceWins(t *testing.T) {
	a := models.Message{Author: "x", Text: "t", Timestamp: "10:00:00", ID: "from-alice"}
	b := models.Message{Author: "x", Text: "t", Timestamp: "10:00:00", ID: "from-bob"}
	snap := models.Snapshot{
		"bob":   {Messages: []models.Message{b}},
		"alice": {Messages: []models.Message{a}},
	}

	got := Reconcile(snap)
	if len(got) != 1 {
		t.Fatalf("expected 1 message; got %d", len(got))
	}
	if got[0].ID != "from-alice" {
		t.Fatalf("expected first occurrence in sorted account order; got id %q", got[0].ID)
	}
}

// TestReconcileIdempotent verifies that feeding a reconciled view back
// through as a single mirror yields the same sequence.
func TestReconcileIdempotent(t *testing.T) {
	snap := models.Snapshot{
		"alice": {Messages: []models.Message{
			{Author: "a", Text: "1", Timestamp: "10:00:02"},
			{Author: "b", Text: "2", Timestamp: "10:00:00"},
			{Author: "a", Text: "1", Timestamp: "10:00:02"},
		}},
	}
	first := Reconcile(snap)
	second := Reconcile(models.Snapshot{"only": {Messages: first}})
	if len(first) != len(second) {
		t.Fatalf("length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].SameTriple(second[i]) {
			t.Fatalf("position %d changed: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// TestReconcileOrdersByParsedTime verifies ascending order across the
// accepted timestamp layouts.
func TestReconcileOrdersByParsedTime(t *testing.T) {
	early := models.Message{Author: "a", Text: "early", Timestamp: "9:05:00 AM"}
	late := models.Message{Author: "a", Text: "late", Timestamp: "2:30:00 PM"}
	snap := models.Snapshot{
		"alice": {Messages: []models.Message{late, early}},
	}

	got := Reconcile(snap)
	if len(got) != 2 {
		t.Fatalf("expected 2 messages; got %d", len(got))
	}
	if got[0].Text != "early" || got[1].Text != "late" {
		t.Fatalf("wrong order: %q then %q", got[0].Text, got[1].Text)
	}
}

// TestReconcileUnparseableKeepsEncounterOrder verifies that messages
// with unparseable timestamps compare equal and hold their relative
// positions under the stable sort.
func TestReconcileUnparseableKeepsEncounterOrder(t *testing.T) {
	m1 := models.Message{Author: "a", Text: "first", Timestamp: "not a time"}
	m2 := models.Message{Author: "a", Text: "second", Timestamp: "also not"}
	m3 := models.Message{Author: "a", Text: "third", Timestamp: "???"}
	snap := models.Snapshot{
		"alice": {Messages: []models.Message{m1, m2, m3}},
	}

	got := Reconcile(snap)
	if len(got) != 3 {
		t.Fatalf("expected 3 messages; got %d", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Text != want {
			t.Fatalf("position %d: got %q want %q", i, got[i].Text, want)
		}
	}
}

// TestParseTimestampLayouts spot-checks the layouts clients actually
// produce.
func TestParseTimestampLayouts(t *testing.T) {
	ok := []string{
		"2025-03-01T10:00:00Z",
		"2025-03-01 10:00:00",
		"3/1/2025, 10:00:00 AM",
		"10:00:00 AM",
		"10:00 AM",
		"22:15:09",
		"22:15",
	}
	for _, s := range ok {
		if _, parsed := parseTimestamp(s); !parsed {
			t.Fatalf("expected %q to parse", s)
		}
	}
	if _, parsed := parseTimestamp("yesterday-ish"); parsed {
		t.Fatalf("nonsense string should not parse")
	}
}
