package server

import (
	"encoding/json"
	"net/http"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/editor"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/generate"
)

// editOpRequest is the JSON body for POST /api/editor/ops. Op is one of
// set_field, set_procedure_field, set_outcome_field, add_item,
// delete_item, set_item_field, undo, redo.
type editOpRequest struct {
	Op    string `json:"op"`
	Field string `json:"field,omitempty"`
	List  string `json:"list,omitempty"`
	Index int    `json:"index,omitempty"`
	Value string `json:"value,omitempty"`
}

// editResponse is the editing head after an open, op or commit.
type editResponse struct {
	Document *casedoc.Document `json:"document"`
	CanUndo  bool              `json:"can_undo"`
	CanRedo  bool              `json:"can_redo"`
}

// handleOpenEditor starts an editing session over the current document.
// The editing window is mutually exclusive with generation: a session
// opens only while the pipeline is idle.
func (s *Server) handleOpenEditor(w http.ResponseWriter, r *http.Request) {
	if s.orch.Status() != generate.StatusIdle {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a generation is in flight; editing is disabled until it settles"})
		return
	}
	doc := s.orch.Document()
	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no case to edit"})
		return
	}

	s.editMu.Lock()
	s.editSession = editor.New(doc)
	resp := s.editResponseLocked()
	s.editMu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEditOp(w http.ResponseWriter, r *http.Request) {
	var req editOpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()
	ed := s.editSession
	if ed == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no editing session open"})
		return
	}

	var err error
	switch req.Op {
	case "set_field":
		err = ed.SetField(editor.Field(req.Field), req.Value)
	case "set_procedure_field":
		err = ed.SetProcedureField(req.Field, req.Value)
	case "set_outcome_field":
		err = ed.SetOutcomeField(req.Field, req.Value)
	case "add_item":
		err = ed.AddListItem(casedoc.ListName(req.List))
	case "delete_item":
		err = ed.DeleteListItem(casedoc.ListName(req.List), req.Index)
	case "set_item_field":
		err = ed.SetListItemField(casedoc.ListName(req.List), req.Index, req.Field, req.Value)
	case "undo":
		ed.Undo()
	case "redo":
		ed.Redo()
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown op"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.editResponseLocked())
}

// handleCommitEditor adopts the editing head as the canonical document
// and closes the session.
func (s *Server) handleCommitEditor(w http.ResponseWriter, r *http.Request) {
	s.editMu.Lock()
	ed := s.editSession
	s.editSession = nil
	s.editMu.Unlock()

	if ed == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no editing session open"})
		return
	}
	doc := ed.Commit()
	s.orch.SetDocument(doc)
	writeJSON(w, http.StatusOK, editResponse{Document: doc})
}

// handleDiscardEditor drops the session without adopting its edits.
func (s *Server) handleDiscardEditor(w http.ResponseWriter, r *http.Request) {
	s.discardEditSession()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) discardEditSession() {
	s.editMu.Lock()
	s.editSession = nil
	s.editMu.Unlock()
}

// editResponseLocked snapshots the session; the caller holds editMu.
func (s *Server) editResponseLocked() editResponse {
	return editResponse{
		Document: s.editSession.Document(),
		CanUndo:  s.editSession.CanUndo(),
		CanRedo:  s.editSession.CanRedo(),
	}
}
