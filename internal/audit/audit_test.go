package audit

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"relaychat/pkg/models"
	"relaychat/pkg/store"
	"relaychat/pkg/telemetry"
)

func openTestStore(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

// TestRunOnceDetectsDivergence verifies that a mirror missing part of
// the canonical conversation is counted as divergent.
func TestRunOnceDetectsDivergence(t *testing.T) {
	openTestStore(t)

	msg := models.Message{Author: "alice", Text: "hi", Timestamp: "10:00:00"}
	if err := store.PutAccount("alice", models.Account{Messages: []models.Message{msg}}); err != nil {
		t.Fatalf("PutAccount alice: %v", err)
	}
	if err := store.PutAccount("bob", models.Account{Messages: []models.Message{}}); err != nil {
		t.Fatalf("PutAccount bob: %v", err)
	}

	RunOnce()
	if got := testutil.ToFloat64(telemetry.MirrorDivergence); got != 1 {
		t.Fatalf("expected 1 divergent mirror; gauge reads %v", got)
	}
}

// TestRunOnceCleanMirrors verifies that identical mirrors report zero
// divergence.
func TestRunOnceCleanMirrors(t *testing.T) {
	openTestStore(t)

	msg := models.Message{Author: "alice", Text: "hi", Timestamp: "10:00:00"}
	for _, id := range []string{"alice", "bob"} {
		if err := store.PutAccount(id, models.Account{Messages: []models.Message{msg}}); err != nil {
			t.Fatalf("PutAccount %s: %v", id, err)
		}
	}

	RunOnce()
	if got := testutil.ToFloat64(telemetry.MirrorDivergence); got != 0 {
		t.Fatalf("expected no divergence; gauge reads %v", got)
	}
}
