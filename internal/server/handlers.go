package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/export"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/generate"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/knowledge"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/sharecode"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/storage"
)

// generateRequest is the JSON body for POST /api/cases.
type generateRequest struct {
	Condition  string `json:"condition"`
	Discipline string `json:"discipline"`
	Difficulty string `json:"difficulty"`
	Language   string `json:"language,omitempty"`
}

// mapPayload is the wire form of a knowledge map.
type mapPayload struct {
	Nodes []knowledge.Node `json:"nodes"`
	Links []knowledge.Link `json:"links"`
}

// generateResponse is the JSON response for POST /api/cases. A case
// with failed sections is still a success; the failures are listed so
// the client can mark the missing panels.
type generateResponse struct {
	Document       *casedoc.Document `json:"document"`
	KnowledgeMap   *mapPayload       `json:"knowledge_map,omitempty"`
	FailedSections []string          `json:"failed_sections,omitempty"`
}

// bootstrapResponse is the JSON response for GET /api/bootstrap.
type bootstrapResponse struct {
	Document   *casedoc.Document      `json:"document,omitempty"`
	History    []storage.HistoryEntry `json:"history"`
	TrialUses  int                    `json:"trial_uses"`
	TrialLimit int                    `json:"trial_limit,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Condition == "" || req.Discipline == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "condition and discipline are required"})
		return
	}

	if s.cfg.TrialLimit > 0 && s.records.TrialUses() >= s.cfg.TrialLimit {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "trial limit reached"})
		return
	}

	// A new run supersedes any open editing window.
	s.discardEditSession()

	var (
		mu     sync.Mutex
		failed []string
	)
	doc, err := s.orch.Generate(r.Context(), generate.Request{
		Condition:  req.Condition,
		Discipline: req.Discipline,
		Difficulty: casedoc.Difficulty(req.Difficulty),
		Language:   req.Language,
	}, generate.Events{
		SectionFailed: func(section generate.Section, err error) {
			mu.Lock()
			failed = append(failed, string(section))
			mu.Unlock()
		},
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, generate.ErrSuperseded) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	s.records.AddHistory(storage.HistoryEntry{
		Condition:  doc.Condition,
		Discipline: doc.Discipline,
		Difficulty: doc.Difficulty,
		At:         time.Now().UTC(),
	})
	if s.cfg.TrialLimit > 0 {
		s.records.RecordTrialUse()
	}

	resp := generateResponse{Document: doc, FailedSections: failed}
	if g := s.orch.Graph(); g != nil {
		resp.KnowledgeMap = &mapPayload{Nodes: g.Nodes(), Links: g.Links()}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBootstrap drives app startup. A share code bypasses history
// and trial state; a code that fails to decode yields an empty state
// with an error flag, never a failure status.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if code := r.URL.Query().Get("code"); code != "" {
		doc, err := sharecode.Decode(code)
		if err != nil {
			writeJSON(w, http.StatusOK, bootstrapResponse{
				History: []storage.HistoryEntry{},
				Error:   "invalid share code",
			})
			return
		}
		writeJSON(w, http.StatusOK, bootstrapResponse{
			Document: doc,
			History:  []storage.HistoryEntry{},
		})
		return
	}

	history := s.records.History()
	if history == nil {
		history = []storage.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, bootstrapResponse{
		History:    history,
		TrialUses:  s.records.TrialUses(),
		TrialLimit: s.cfg.TrialLimit,
	})
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	docs := s.records.SavedCases()
	if docs == nil {
		docs = []*casedoc.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleSaveCase(w http.ResponseWriter, r *http.Request) {
	var doc casedoc.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid case document"})
		return
	}
	if doc.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "case id is required"})
		return
	}
	s.records.SaveCase(&doc)
	writeJSON(w, http.StatusOK, map[string]string{"id": doc.ID})
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.records.SavedCase(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "case not found"})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteCase(w http.ResponseWriter, r *http.Request) {
	s.records.DeleteCase(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportCase(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.records.SavedCase(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "case not found"})
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(export.Markdown(doc, nil)))
	case "html":
		page, err := export.HTML(doc, nil)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown format"})
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.records.History()
	if history == nil {
		history = []storage.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleEncodeShare(w http.ResponseWriter, r *http.Request) {
	var doc casedoc.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid case document"})
		return
	}
	code, err := sharecode.Encode(&doc)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleDecodeShare(w http.ResponseWriter, r *http.Request) {
	doc, err := sharecode.Decode(chi.URLParam(r, "code"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid share code"})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// snippetRequest is the JSON body for POST /api/snippets.
type snippetRequest struct {
	CaseTitle string `json:"case_title"`
	Text      string `json:"text"`
}

func (s *Server) handleSearchSnippets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" || s.index == nil {
		snips := s.records.Snippets()
		if snips == nil {
			snips = []storage.Snippet{}
		}
		writeJSON(w, http.StatusOK, snips)
		return
	}

	results, err := s.index.Search(r.Context(), query, 10)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	snips := make([]storage.Snippet, len(results))
	for i, res := range results {
		snips[i] = res.Snippet
	}
	writeJSON(w, http.StatusOK, snips)
}

func (s *Server) handleAddSnippet(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	snip := storage.Snippet{
		ID:        uuid.New().String(),
		CaseTitle: req.CaseTitle,
		Text:      req.Text,
		SavedAt:   time.Now().UTC(),
	}
	s.records.AddSnippet(snip)
	if s.index != nil {
		if err := s.index.Add(r.Context(), snip); err != nil {
			// The snippet is persisted; search just won't find it until
			// the next index rebuild.
			writeJSON(w, http.StatusOK, snip)
			return
		}
	}
	writeJSON(w, http.StatusOK, snip)
}

func (s *Server) handleDeleteSnippet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.records.DeleteSnippet(id)
	if s.index != nil {
		_ = s.index.Remove(r.Context(), id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
