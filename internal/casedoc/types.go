package casedoc

import "time"

// Difficulty controls the clinical complexity of a generated case.
type Difficulty string

const (
	DifficultyStudent    Difficulty = "student"
	DifficultyResident   Difficulty = "resident"
	DifficultySpecialist Difficulty = "specialist"
)

// Role identifies the author of a discussion message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in a discussion transcript.
type Message struct {
	Role      Role          `json:"role"`
	Text      string        `json:"text"`
	Diagram   *DiagramGraph `json:"diagram,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// DiagramGraph is a small node/edge graph embedded in educational
// content or produced on demand during a discussion.
type DiagramGraph struct {
	Title string        `json:"title,omitempty"`
	Nodes []DiagramNode `json:"nodes"`
	Edges []DiagramEdge `json:"edges"`
}

// DiagramNode is one box in an embedded diagram.
type DiagramNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DiagramEdge connects two diagram nodes.
type DiagramEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// ProcedureDetails describes an intervention the case centres on.
type ProcedureDetails struct {
	Name        string `json:"name"`
	Indication  string `json:"indication,omitempty"`
	Description string `json:"description,omitempty"`
	Risks       string `json:"risks,omitempty"`
}

// Outcome summarizes how the case resolved.
type Outcome struct {
	Summary   string `json:"summary"`
	Prognosis string `json:"prognosis,omitempty"`
	FollowUp  string `json:"follow_up,omitempty"`
}

// Connection links the case to another discipline's perspective.
type Connection struct {
	Discipline string `json:"discipline"`
	Relevance  string `json:"relevance"`
}

// Consideration is one management consideration; each can anchor a
// discussion topic.
type Consideration struct {
	Aspect string `json:"aspect"`
	Detail string `json:"detail"`
}

// ContentItem is a deep-dive educational section, optionally carrying
// an embedded diagram.
type ContentItem struct {
	Heading string        `json:"heading"`
	Body    string        `json:"body"`
	Diagram *DiagramGraph `json:"diagram,omitempty"`
}

// EvidenceClaim is a referenced statement supporting the case content.
type EvidenceClaim struct {
	Claim    string `json:"claim"`
	Source   string `json:"source,omitempty"`
	Strength string `json:"strength,omitempty"`
}

// Reading is a suggested further-reading reference.
type Reading struct {
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
}

// QuizQuestion is one multiple-choice competency question.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// QuizSize is the number of questions a complete quiz carries.
const QuizSize = 5

// Document is a generated clinical case. Only the narrative scalars
// are guaranteed to be populated; every list and optional pointer may
// be legitimately empty because a detail section failed or has not
// arrived yet.
type Document struct {
	ID         string     `json:"id"`
	Condition  string     `json:"condition"`
	Discipline string     `json:"discipline"`
	Difficulty Difficulty `json:"difficulty"`
	Language   string     `json:"language,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	Title               string            `json:"title"`
	PatientProfile      string            `json:"patient_profile"`
	PresentingComplaint string            `json:"presenting_complaint"`
	ClinicalHistory     string            `json:"clinical_history"`
	Procedure           *ProcedureDetails `json:"procedure,omitempty"`
	Outcome             *Outcome          `json:"outcome,omitempty"`

	Connections        []Connection    `json:"connections,omitempty"`
	PathwayDiagram     *DiagramGraph   `json:"pathway_diagram,omitempty"`
	Considerations     []Consideration `json:"considerations,omitempty"`
	EducationalContent []ContentItem   `json:"educational_content,omitempty"`
	Evidence           []EvidenceClaim `json:"evidence,omitempty"`
	FurtherReadings    []Reading       `json:"further_readings,omitempty"`
	Quiz               []QuizQuestion  `json:"quiz,omitempty"`

	// SavedDiscussions holds persisted discussion transcripts keyed by
	// topic id. Transient sessions never appear here.
	SavedDiscussions map[string][]Message `json:"saved_discussions,omitempty"`
}

// SaveDiscussion stores a transcript under the given topic id,
// replacing any prior transcript for that topic.
func (d *Document) SaveDiscussion(topicID string, messages []Message) error {
	if d.SavedDiscussions == nil {
		d.SavedDiscussions = make(map[string][]Message)
	}
	d.SavedDiscussions[topicID] = append([]Message(nil), messages...)
	return nil
}

// Discussion returns the persisted transcript for a topic, or nil.
func (d *Document) Discussion(topicID string) []Message {
	return d.SavedDiscussions[topicID]
}
