package journal

import (
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/gate"
	"github.com/danielpatrickdp/collapse-engine/internal/profile"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id string, gen int, at time.Time) engine.CollapseRecord {
	return engine.CollapseRecord{
		ID:         id,
		Text:       "print('hi')",
		Timestamp:  at,
		Generation: gen,
		Stress:     100,
		Source:     gate.SourceAuto,
		Profile:    "SYNTHWAVE",
		EditorMode: profile.ModeRetro,
	}
}

func TestAppendAndListCollapses(t *testing.T) {
	s := tempDB(t)

	if err := s.AppendCollapse("s1", record("c1", 0, epoch)); err != nil {
		t.Fatalf("AppendCollapse: %v", err)
	}
	if err := s.AppendCollapse("s1", record("c2", 1, epoch.Add(time.Minute))); err != nil {
		t.Fatalf("AppendCollapse: %v", err)
	}
	if err := s.AppendCollapse("s2", record("c3", 0, epoch.Add(2*time.Minute))); err != nil {
		t.Fatalf("AppendCollapse: %v", err)
	}

	recs, err := s.ListCollapses("s1", 0)
	if err != nil {
		t.Fatalf("ListCollapses: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "c1" || recs[1].ID != "c2" {
		t.Fatalf("expected oldest first, got %s, %s", recs[0].ID, recs[1].ID)
	}
	got := recs[0]
	if got.Source != gate.SourceAuto || got.EditorMode != profile.ModeRetro || got.Profile != "SYNTHWAVE" {
		t.Fatalf("fields not round-tripped: %+v", got)
	}
	if !got.Timestamp.Equal(epoch) {
		t.Fatalf("timestamp: expected %v, got %v", epoch, got.Timestamp)
	}

	all, err := s.ListCollapses("", 2)
	if err != nil {
		t.Fatalf("ListCollapses all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("limit not applied, got %d", len(all))
	}
}

func TestAppendCollapseRejectsDuplicateID(t *testing.T) {
	s := tempDB(t)
	if err := s.AppendCollapse("s1", record("c1", 0, epoch)); err != nil {
		t.Fatalf("AppendCollapse: %v", err)
	}
	if err := s.AppendCollapse("s1", record("c1", 0, epoch)); err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestLogMutationRoundTrip(t *testing.T) {
	s := tempDB(t)
	if err := s.AppendCollapse("s1", record("c1", 0, epoch)); err != nil {
		t.Fatalf("AppendCollapse: %v", err)
	}

	entry := MutationEntry{
		CollapseID: "c1",
		SessionID:  "s1",
		Phase:      PhaseComputed,
		Applied:    []string{"flip-quotes", "jitter-operators"},
		Inserted:   4,
		Deleted:    2,
		Patch:      "@@ -1 +1 @@",
		CreatedAt:  epoch,
	}
	if err := s.LogMutation(entry); err != nil {
		t.Fatalf("LogMutation: %v", err)
	}

	got, err := s.ListMutations("c1")
	if err != nil {
		t.Fatalf("ListMutations: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if len(got[0].Applied) != 2 || got[0].Applied[1] != "jitter-operators" {
		t.Fatalf("applied not round-tripped: %v", got[0].Applied)
	}
	if got[0].Inserted != 4 || got[0].Deleted != 2 || got[0].Patch != "@@ -1 +1 @@" {
		t.Fatalf("unexpected entry: %+v", got[0])
	}
}

func TestLogMutationRequiresCollapse(t *testing.T) {
	s := tempDB(t)
	err := s.LogMutation(MutationEntry{CollapseID: "missing", SessionID: "s1", Phase: PhaseApplied})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestLogDecisionNullables(t *testing.T) {
	s := tempDB(t)

	if err := s.LogDecision(DecisionEntry{SessionID: "s1", Source: "manual", Action: "refuse"}); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}

	var collapseID, reason interface{}
	err := s.DB().QueryRow(`SELECT collapse_id, reason FROM decision_log`).Scan(&collapseID, &reason)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if collapseID != nil || reason != nil {
		t.Errorf("expected NULLs for empty fields, got %v, %v", collapseID, reason)
	}

	got, err := s.ListDecisions("s1", 0)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 1 || got[0].CreatedAt.IsZero() {
		t.Fatalf("expected one decision with a default timestamp, got %+v", got)
	}
}

func TestClearSession(t *testing.T) {
	s := tempDB(t)
	s.AppendCollapse("s1", record("c1", 0, epoch))
	s.AppendCollapse("s2", record("c2", 0, epoch))
	s.LogMutation(MutationEntry{CollapseID: "c1", SessionID: "s1", Phase: PhaseComputed})
	s.LogDecision(DecisionEntry{SessionID: "s1", CollapseID: "c1", Source: "auto", Action: "collapse"})

	if err := s.ClearSession("s1"); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}

	if recs, _ := s.ListCollapses("s1", 0); len(recs) != 0 {
		t.Fatalf("expected s1 records cleared, got %d", len(recs))
	}
	if muts, _ := s.ListMutations("c1"); len(muts) != 0 {
		t.Fatalf("expected s1 mutations cleared, got %d", len(muts))
	}
	if decs, _ := s.ListDecisions("s1", 0); len(decs) != 0 {
		t.Fatalf("expected s1 decisions cleared, got %d", len(decs))
	}
	if recs, _ := s.ListCollapses("s2", 0); len(recs) != 1 {
		t.Fatalf("other sessions must survive, got %d", len(recs))
	}
}

func TestSessions(t *testing.T) {
	s := tempDB(t)
	s.AppendCollapse("old", record("c1", 0, epoch))
	s.AppendCollapse("new", record("c2", 0, epoch.Add(time.Hour)))
	s.AppendCollapse("new", record("c3", 1, epoch.Add(2*time.Hour)))

	sums, err := s.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sums))
	}
	if sums[0].SessionID != "new" || sums[0].Collapses != 2 || sums[0].MaxGeneration != 1 {
		t.Fatalf("unexpected first summary: %+v", sums[0])
	}
	if !sums[0].FirstAt.Equal(epoch.Add(time.Hour)) || !sums[0].LastAt.Equal(epoch.Add(2*time.Hour)) {
		t.Fatalf("unexpected bounds: %+v", sums[0])
	}
}

func TestMemoryStoreSharesOneDatabase(t *testing.T) {
	s, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if err := s.AppendCollapse("s1", record("c1", 0, epoch)); err != nil {
		t.Fatalf("AppendCollapse: %v", err)
	}
	recs, err := s.ListCollapses("s1", 0)
	if err != nil {
		t.Fatalf("ListCollapses: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record in memory store, got %d", len(recs))
	}
}
