package casedoc

// ListName identifies one of the document's editable list fields.
type ListName string

const (
	ListConnections        ListName = "connections"
	ListConsiderations     ListName = "considerations"
	ListEducationalContent ListName = "educational_content"
	ListEvidence           ListName = "evidence"
	ListFurtherReadings    ListName = "further_readings"
	ListQuiz               ListName = "quiz"
)

// DefaultListItem returns a blank item suitable for appending to the
// named list in edit mode. The bool reports whether the list is known.
func DefaultListItem(list ListName) (any, bool) {
	switch list {
	case ListConnections:
		return Connection{Discipline: "New discipline", Relevance: ""}, true
	case ListConsiderations:
		return Consideration{Aspect: "New consideration", Detail: ""}, true
	case ListEducationalContent:
		return ContentItem{Heading: "New section", Body: ""}, true
	case ListEvidence:
		return EvidenceClaim{Claim: "New claim"}, true
	case ListFurtherReadings:
		return Reading{Title: "New reference"}, true
	case ListQuiz:
		return QuizQuestion{
			Question: "New question",
			Options:  []string{"Option A", "Option B", "Option C", "Option D"},
			Answer:   0,
		}, true
	default:
		return nil, false
	}
}

// Clone returns a copy of the document deep enough for the editor:
// every editable list and sub-object is duplicated so history
// snapshots never alias live state. Embedded diagrams are shared, the
// editor does not touch them.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Connections = append([]Connection(nil), d.Connections...)
	out.Considerations = append([]Consideration(nil), d.Considerations...)
	out.EducationalContent = append([]ContentItem(nil), d.EducationalContent...)
	out.Evidence = append([]EvidenceClaim(nil), d.Evidence...)
	out.FurtherReadings = append([]Reading(nil), d.FurtherReadings...)
	out.Quiz = append([]QuizQuestion(nil), d.Quiz...)
	for i, q := range out.Quiz {
		out.Quiz[i].Options = append([]string(nil), q.Options...)
	}
	if d.Procedure != nil {
		p := *d.Procedure
		out.Procedure = &p
	}
	if d.Outcome != nil {
		o := *d.Outcome
		out.Outcome = &o
	}
	if d.SavedDiscussions != nil {
		out.SavedDiscussions = make(map[string][]Message, len(d.SavedDiscussions))
		for k, v := range d.SavedDiscussions {
			out.SavedDiscussions[k] = append([]Message(nil), v...)
		}
	}
	return &out
}
