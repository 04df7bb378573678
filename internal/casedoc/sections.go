package casedoc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CorePayload is the first-stage response: the narrative subset that
// makes a case renderable on its own.
type CorePayload struct {
	Title               string            `json:"title"`
	PatientProfile      string            `json:"patient_profile"`
	PresentingComplaint string            `json:"presenting_complaint"`
	ClinicalHistory     string            `json:"clinical_history"`
	Procedure           *ProcedureDetails `json:"procedure,omitempty"`
	Outcome             *Outcome          `json:"outcome,omitempty"`
}

// MainDetailsPayload carries cross-discipline connections and the
// clinical pathway diagram.
type MainDetailsPayload struct {
	Connections    []Connection  `json:"connections"`
	PathwayDiagram *DiagramGraph `json:"pathway_diagram,omitempty"`
}

// ManagementPayload carries management considerations and deep-dive
// educational content.
type ManagementPayload struct {
	Considerations     []Consideration `json:"considerations"`
	EducationalContent []ContentItem   `json:"educational_content"`
}

// EvidencePayload carries evidence claims, further readings and the quiz.
type EvidencePayload struct {
	Evidence        []EvidenceClaim `json:"evidence"`
	FurtherReadings []Reading       `json:"further_readings"`
	Quiz            []QuizQuestion  `json:"quiz"`
}

// stripFences removes a surrounding markdown code fence, which models
// add despite JSON-mode instructions.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return raw
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}

// ParseCore parses and validates a core-case response. The narrative
// scalars are the one part of a document that must be present.
func ParseCore(raw string) (*CorePayload, error) {
	var p CorePayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}
	if p.Title == "" || p.PatientProfile == "" || p.PresentingComplaint == "" || p.ClinicalHistory == "" {
		return nil, fmt.Errorf("core payload missing narrative fields")
	}
	return &p, nil
}

// ParseMainDetails parses and validates a main-details response.
func ParseMainDetails(raw string) (*MainDetailsPayload, error) {
	var p MainDetailsPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}
	for _, c := range p.Connections {
		if c.Discipline == "" {
			return nil, fmt.Errorf("connection missing discipline")
		}
	}
	return &p, nil
}

// ParseManagement parses and validates a management-and-content response.
func ParseManagement(raw string) (*ManagementPayload, error) {
	var p ManagementPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}
	for _, c := range p.Considerations {
		if c.Aspect == "" {
			return nil, fmt.Errorf("consideration missing aspect")
		}
	}
	return &p, nil
}

// ParseEvidence parses and validates an evidence-and-quiz response.
// Quiz questions that fail validation invalidate the whole section
// rather than producing a half-usable quiz.
func ParseEvidence(raw string) (*EvidencePayload, error) {
	var p EvidencePayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}
	for i, q := range p.Quiz {
		if q.Question == "" {
			return nil, fmt.Errorf("quiz question %d: empty question", i)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("quiz question %d: needs at least 2 options", i)
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return nil, fmt.Errorf("quiz question %d: answer index %d out of range", i, q.Answer)
		}
	}
	if len(p.Quiz) > QuizSize {
		p.Quiz = p.Quiz[:QuizSize]
	}
	return &p, nil
}

// ParseDiagram parses a standalone diagram response, as produced by a
// discussion diagram sub-request.
func ParseDiagram(raw string) (*DiagramGraph, error) {
	var g DiagramGraph
	if err := json.Unmarshal([]byte(stripFences(raw)), &g); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("diagram has no nodes")
	}
	return &g, nil
}

// ApplyCore writes the core payload onto the document.
func (d *Document) ApplyCore(p *CorePayload) {
	d.Title = p.Title
	d.PatientProfile = p.PatientProfile
	d.PresentingComplaint = p.PresentingComplaint
	d.ClinicalHistory = p.ClinicalHistory
	d.Procedure = p.Procedure
	d.Outcome = p.Outcome
}

// ApplyMainDetails merges a main-details payload. Fields already set
// by an earlier merge are overwritten; unrelated fields are untouched.
func (d *Document) ApplyMainDetails(p *MainDetailsPayload) {
	d.Connections = p.Connections
	if p.PathwayDiagram != nil {
		d.PathwayDiagram = p.PathwayDiagram
	}
}

// ApplyManagement merges a management-and-content payload.
func (d *Document) ApplyManagement(p *ManagementPayload) {
	d.Considerations = p.Considerations
	d.EducationalContent = p.EducationalContent
}

// ApplyEvidence merges an evidence-and-quiz payload.
func (d *Document) ApplyEvidence(p *EvidencePayload) {
	d.Evidence = p.Evidence
	d.FurtherReadings = p.FurtherReadings
	d.Quiz = p.Quiz
}
