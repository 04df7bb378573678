package storage

import (
	"testing"
	"time"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/db"
)

func setupSQLiteKV(t *testing.T) *SQLiteKV {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewSQLiteKV(database)
}

func TestSQLiteKVRoundTrip(t *testing.T) {
	kv := setupSQLiteKV(t)

	if _, ok := kv.Get("missing"); ok {
		t.Error("missing key should not be found")
	}

	kv.Set("k", "v1")
	kv.Set("k", "v2")
	if got, ok := kv.Get("k"); !ok || got != "v2" {
		t.Errorf("expected v2, got %q (ok=%v)", got, ok)
	}

	kv.Remove("k")
	if _, ok := kv.Get("k"); ok {
		t.Error("removed key should be gone")
	}
}

func TestCorruptJSONReadsAsEmpty(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set(keyHistory, "{not valid json")

	r := NewRecords(kv)
	if got := r.History(); len(got) != 0 {
		t.Errorf("corrupt record must read as empty, got %v", got)
	}

	// The store remains usable after the corrupt read.
	r.AddHistory(HistoryEntry{Condition: "asthma", At: time.Now()})
	if got := r.History(); len(got) != 1 {
		t.Errorf("expected 1 entry after re-adding, got %d", len(got))
	}
}

func TestHistoryOrderAndCap(t *testing.T) {
	r := NewRecords(NewMemoryKV())
	for i := 0; i < historyLimit+5; i++ {
		r.AddHistory(HistoryEntry{Condition: string(rune('a' + i%26))})
	}
	got := r.History()
	if len(got) != historyLimit {
		t.Fatalf("expected cap of %d, got %d", historyLimit, len(got))
	}
	// Most recent first.
	r.AddHistory(HistoryEntry{Condition: "newest"})
	if r.History()[0].Condition != "newest" {
		t.Error("newest entry should be first")
	}
}

func TestSaveCaseReplacesById(t *testing.T) {
	r := NewRecords(NewMemoryKV())
	r.SaveCase(&casedoc.Document{ID: "1", Title: "v1"})
	r.SaveCase(&casedoc.Document{ID: "2", Title: "other"})
	r.SaveCase(&casedoc.Document{ID: "1", Title: "v2"})

	if got := r.SavedCases(); len(got) != 2 {
		t.Fatalf("expected 2 saved cases, got %d", len(got))
	}
	d, ok := r.SavedCase("1")
	if !ok || d.Title != "v2" {
		t.Errorf("expected replaced case, got %+v", d)
	}

	r.DeleteCase("1")
	if _, ok := r.SavedCase("1"); ok {
		t.Error("deleted case should be gone")
	}
}

func TestSnippetsAndTrialCounter(t *testing.T) {
	r := NewRecords(NewMemoryKV())
	r.AddSnippet(Snippet{ID: "s1", Text: "magnesium first"})
	r.AddSnippet(Snippet{ID: "s2", Text: "lactate clearance"})
	if got := r.Snippets(); len(got) != 2 || got[0].ID != "s2" {
		t.Errorf("expected newest-first snippets, got %+v", got)
	}
	r.DeleteSnippet("s2")
	if got := r.Snippets(); len(got) != 1 || got[0].ID != "s1" {
		t.Errorf("unexpected snippets after delete: %+v", got)
	}

	if r.TrialUses() != 0 {
		t.Error("trial counter should start at zero")
	}
	r.RecordTrialUse()
	r.RecordTrialUse()
	if r.TrialUses() != 2 {
		t.Errorf("expected 2 uses, got %d", r.TrialUses())
	}
}

func TestDiscussionPersistenceRoundTrip(t *testing.T) {
	r := NewRecords(NewMemoryKV())
	doc := &casedoc.Document{ID: "c1", Title: "T"}
	_ = doc.SaveDiscussion("topic-1", []casedoc.Message{
		{Role: casedoc.RoleUser, Text: "why?"},
		{Role: casedoc.RoleAssistant, Text: "because"},
	})
	r.SaveCase(doc)

	loaded, ok := r.SavedCase("c1")
	if !ok {
		t.Fatal("case not found")
	}
	msgs := loaded.Discussion("topic-1")
	if len(msgs) != 2 || msgs[1].Text != "because" {
		t.Errorf("discussion did not survive the round trip: %+v", msgs)
	}
}
