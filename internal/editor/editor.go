// Package editor provides structural edit operations over a case
// document, with undo/redo for free by routing every mutation through
// a history store.
package editor

import (
	"fmt"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/history"
)

// Editor wraps a document in an undoable editing session.
type Editor struct {
	hist *history.Store[*casedoc.Document]
}

// New starts an editing session over a copy of doc. The original is
// untouched until Commit.
func New(doc *casedoc.Document) *Editor {
	return &Editor{hist: history.New(doc.Clone())}
}

// Document returns the current editing head.
func (e *Editor) Document() *casedoc.Document {
	return e.hist.Current()
}

// Undo steps back one edit; a no-op at the oldest state.
func (e *Editor) Undo() { e.hist.Undo() }

// Redo steps forward one edit; a no-op at the newest state.
func (e *Editor) Redo() { e.hist.Redo() }

// CanUndo reports whether an undo step exists.
func (e *Editor) CanUndo() bool { return e.hist.CanUndo() }

// CanRedo reports whether a redo step exists.
func (e *Editor) CanRedo() bool { return e.hist.CanRedo() }

// Reset abandons the editing history and restarts from doc. Used when
// a new generation or a loaded save supersedes the session.
func (e *Editor) Reset(doc *casedoc.Document) {
	e.hist.Reset(doc.Clone())
}

// Commit returns the editing head for the owner to adopt as the
// canonical document.
func (e *Editor) Commit() *casedoc.Document {
	return e.hist.Current()
}

// apply clones the head, mutates the clone and records it. Mutations
// that fail leave history untouched.
func (e *Editor) apply(mutate func(d *casedoc.Document) error) error {
	next := e.hist.Current().Clone()
	if err := mutate(next); err != nil {
		return err
	}
	e.hist.Set(next)
	return nil
}

// Field names the editable scalar fields.
type Field string

const (
	FieldTitle               Field = "title"
	FieldPatientProfile      Field = "patient_profile"
	FieldPresentingComplaint Field = "presenting_complaint"
	FieldClinicalHistory     Field = "clinical_history"
)

// SetField sets a scalar narrative field.
func (e *Editor) SetField(field Field, value string) error {
	return e.apply(func(d *casedoc.Document) error {
		switch field {
		case FieldTitle:
			d.Title = value
		case FieldPatientProfile:
			d.PatientProfile = value
		case FieldPresentingComplaint:
			d.PresentingComplaint = value
		case FieldClinicalHistory:
			d.ClinicalHistory = value
		default:
			return fmt.Errorf("unknown field %q", field)
		}
		return nil
	})
}

// SetProcedureField patches one field of the procedure sub-object,
// creating it if absent.
func (e *Editor) SetProcedureField(field, value string) error {
	return e.apply(func(d *casedoc.Document) error {
		if d.Procedure == nil {
			d.Procedure = &casedoc.ProcedureDetails{}
		}
		switch field {
		case "name":
			d.Procedure.Name = value
		case "indication":
			d.Procedure.Indication = value
		case "description":
			d.Procedure.Description = value
		case "risks":
			d.Procedure.Risks = value
		default:
			return fmt.Errorf("unknown procedure field %q", field)
		}
		return nil
	})
}

// SetOutcomeField patches one field of the outcome sub-object,
// creating it if absent.
func (e *Editor) SetOutcomeField(field, value string) error {
	return e.apply(func(d *casedoc.Document) error {
		if d.Outcome == nil {
			d.Outcome = &casedoc.Outcome{}
		}
		switch field {
		case "summary":
			d.Outcome.Summary = value
		case "prognosis":
			d.Outcome.Prognosis = value
		case "follow_up":
			d.Outcome.FollowUp = value
		default:
			return fmt.Errorf("unknown outcome field %q", field)
		}
		return nil
	})
}

// AddListItem appends a blank default item to the named list.
func (e *Editor) AddListItem(list casedoc.ListName) error {
	item, ok := casedoc.DefaultListItem(list)
	if !ok {
		return fmt.Errorf("unknown list %q", list)
	}
	return e.apply(func(d *casedoc.Document) error {
		switch list {
		case casedoc.ListConnections:
			d.Connections = append(d.Connections, item.(casedoc.Connection))
		case casedoc.ListConsiderations:
			d.Considerations = append(d.Considerations, item.(casedoc.Consideration))
		case casedoc.ListEducationalContent:
			d.EducationalContent = append(d.EducationalContent, item.(casedoc.ContentItem))
		case casedoc.ListEvidence:
			d.Evidence = append(d.Evidence, item.(casedoc.EvidenceClaim))
		case casedoc.ListFurtherReadings:
			d.FurtherReadings = append(d.FurtherReadings, item.(casedoc.Reading))
		case casedoc.ListQuiz:
			d.Quiz = append(d.Quiz, item.(casedoc.QuizQuestion))
		}
		return nil
	})
}

// DeleteListItem removes the item at index from the named list.
func (e *Editor) DeleteListItem(list casedoc.ListName, index int) error {
	return e.apply(func(d *casedoc.Document) error {
		switch list {
		case casedoc.ListConnections:
			next, err := deleteAt(d.Connections, index)
			d.Connections = next
			return err
		case casedoc.ListConsiderations:
			next, err := deleteAt(d.Considerations, index)
			d.Considerations = next
			return err
		case casedoc.ListEducationalContent:
			next, err := deleteAt(d.EducationalContent, index)
			d.EducationalContent = next
			return err
		case casedoc.ListEvidence:
			next, err := deleteAt(d.Evidence, index)
			d.Evidence = next
			return err
		case casedoc.ListFurtherReadings:
			next, err := deleteAt(d.FurtherReadings, index)
			d.FurtherReadings = next
			return err
		case casedoc.ListQuiz:
			next, err := deleteAt(d.Quiz, index)
			d.Quiz = next
			return err
		default:
			return fmt.Errorf("unknown list %q", list)
		}
	})
}

func deleteAt[T any](items []T, index int) ([]T, error) {
	if index < 0 || index >= len(items) {
		return items, fmt.Errorf("index %d out of range (len %d)", index, len(items))
	}
	return append(items[:index], items[index+1:]...), nil
}

// SetListItemField sets one field of one list item.
func (e *Editor) SetListItemField(list casedoc.ListName, index int, field, value string) error {
	return e.apply(func(d *casedoc.Document) error {
		switch list {
		case casedoc.ListConnections:
			if index < 0 || index >= len(d.Connections) {
				return fmt.Errorf("index %d out of range", index)
			}
			switch field {
			case "discipline":
				d.Connections[index].Discipline = value
			case "relevance":
				d.Connections[index].Relevance = value
			default:
				return fmt.Errorf("unknown field %q", field)
			}
		case casedoc.ListConsiderations:
			if index < 0 || index >= len(d.Considerations) {
				return fmt.Errorf("index %d out of range", index)
			}
			switch field {
			case "aspect":
				d.Considerations[index].Aspect = value
			case "detail":
				d.Considerations[index].Detail = value
			default:
				return fmt.Errorf("unknown field %q", field)
			}
		case casedoc.ListEducationalContent:
			if index < 0 || index >= len(d.EducationalContent) {
				return fmt.Errorf("index %d out of range", index)
			}
			switch field {
			case "heading":
				d.EducationalContent[index].Heading = value
			case "body":
				d.EducationalContent[index].Body = value
			default:
				return fmt.Errorf("unknown field %q", field)
			}
		case casedoc.ListEvidence:
			if index < 0 || index >= len(d.Evidence) {
				return fmt.Errorf("index %d out of range", index)
			}
			switch field {
			case "claim":
				d.Evidence[index].Claim = value
			case "source":
				d.Evidence[index].Source = value
			case "strength":
				d.Evidence[index].Strength = value
			default:
				return fmt.Errorf("unknown field %q", field)
			}
		case casedoc.ListFurtherReadings:
			if index < 0 || index >= len(d.FurtherReadings) {
				return fmt.Errorf("index %d out of range", index)
			}
			switch field {
			case "title":
				d.FurtherReadings[index].Title = value
			case "source":
				d.FurtherReadings[index].Source = value
			default:
				return fmt.Errorf("unknown field %q", field)
			}
		case casedoc.ListQuiz:
			if index < 0 || index >= len(d.Quiz) {
				return fmt.Errorf("index %d out of range", index)
			}
			switch field {
			case "question":
				d.Quiz[index].Question = value
			case "explanation":
				d.Quiz[index].Explanation = value
			default:
				return fmt.Errorf("unknown field %q", field)
			}
		default:
			return fmt.Errorf("unknown list %q", list)
		}
		return nil
	})
}
