package storage

import (
	"time"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
)

// Store keys. Everything the app persists lives under one of these.
const (
	keyHistory  = "ungana.history"
	keySaved    = "ungana.saved_cases"
	keySnippets = "ungana.snippets"
	keyTrial    = "ungana.trial_uses"
)

// historyLimit caps the generation-history list.
const historyLimit = 30

// HistoryEntry records one generation run's inputs.
type HistoryEntry struct {
	Condition  string             `json:"condition"`
	Discipline string             `json:"discipline"`
	Difficulty casedoc.Difficulty `json:"difficulty"`
	At         time.Time          `json:"at"`
}

// Snippet is a user-saved excerpt of case content, persisted
// independently of the full case.
type Snippet struct {
	ID        string    `json:"id"`
	CaseTitle string    `json:"case_title"`
	Text      string    `json:"text"`
	SavedAt   time.Time `json:"saved_at"`
}

// Records layers the app's persisted collections over a KV store.
type Records struct {
	kv KV
}

// NewRecords creates a record layer over the given store.
func NewRecords(kv KV) *Records {
	return &Records{kv: kv}
}

// History returns the generation history, most recent first. A
// missing or corrupt record reads as empty.
func (r *Records) History() []HistoryEntry {
	var entries []HistoryEntry
	GetJSON(r.kv, keyHistory, &entries)
	return entries
}

// AddHistory prepends an entry, trimming to the history cap.
func (r *Records) AddHistory(e HistoryEntry) {
	entries := append([]HistoryEntry{e}, r.History()...)
	if len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}
	SetJSON(r.kv, keyHistory, entries)
}

// SavedCases returns all saved case documents.
func (r *Records) SavedCases() []*casedoc.Document {
	var docs []*casedoc.Document
	GetJSON(r.kv, keySaved, &docs)
	return docs
}

// SaveCase inserts or replaces a case by id.
func (r *Records) SaveCase(doc *casedoc.Document) {
	docs := r.SavedCases()
	replaced := false
	for i, d := range docs {
		if d.ID == doc.ID {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append([]*casedoc.Document{doc}, docs...)
	}
	SetJSON(r.kv, keySaved, docs)
}

// SavedCase looks up a saved case by id.
func (r *Records) SavedCase(id string) (*casedoc.Document, bool) {
	for _, d := range r.SavedCases() {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// DeleteCase removes a saved case by id.
func (r *Records) DeleteCase(id string) {
	docs := r.SavedCases()
	out := docs[:0]
	for _, d := range docs {
		if d.ID != id {
			out = append(out, d)
		}
	}
	SetJSON(r.kv, keySaved, out)
}

// Snippets returns all saved snippets.
func (r *Records) Snippets() []Snippet {
	var snippets []Snippet
	GetJSON(r.kv, keySnippets, &snippets)
	return snippets
}

// AddSnippet prepends a snippet.
func (r *Records) AddSnippet(s Snippet) {
	SetJSON(r.kv, keySnippets, append([]Snippet{s}, r.Snippets()...))
}

// DeleteSnippet removes a snippet by id.
func (r *Records) DeleteSnippet(id string) {
	snippets := r.Snippets()
	out := snippets[:0]
	for _, s := range snippets {
		if s.ID != id {
			out = append(out, s)
		}
	}
	SetJSON(r.kv, keySnippets, out)
}

// TrialUses returns how many generations have been recorded for
// trial-period tracking.
func (r *Records) TrialUses() int {
	var n int
	GetJSON(r.kv, keyTrial, &n)
	return n
}

// RecordTrialUse increments the trial counter.
func (r *Records) RecordTrialUse() {
	SetJSON(r.kv, keyTrial, r.TrialUses()+1)
}
