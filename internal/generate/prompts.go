package generate

import (
	"fmt"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/llm"
)

const systemPrompt = `You are an experienced clinical educator writing realistic teaching cases. Respond with a single JSON object matching the requested shape exactly. Be clinically accurate and do not invent citations.`

const corePromptTemplate = `Create the core of a clinical teaching case about %q for the discipline %q at %s level. Return a JSON object with exactly these fields:

{
  "title": "Short case title",
  "patient_profile": "Age, sex, relevant background",
  "presenting_complaint": "Why the patient presents",
  "clinical_history": "Narrative history of the presentation",
  "procedure": {"name": "", "indication": "", "description": "", "risks": ""},
  "outcome": {"summary": "", "prognosis": "", "follow_up": ""}
}

Omit "procedure" if no procedure is central to the case.%s`

const mainDetailsPromptTemplate = `For the clinical case titled %q about %q (%s discipline), return a JSON object:

{
  "connections": [{"discipline": "Other discipline", "relevance": "Why this case matters to it"}],
  "pathway_diagram": {"title": "", "nodes": [{"id": "a", "label": ""}], "edges": [{"from": "a", "to": "b", "label": ""}]}
}

Provide 3-5 connections and a care-pathway diagram with 4-8 nodes.%s`

const managementPromptTemplate = `For the clinical case titled %q about %q (%s level), return a JSON object:

{
  "considerations": [{"aspect": "Management aspect", "detail": "What to consider and why"}],
  "educational_content": [{"heading": "", "body": "", "diagram": {"nodes": [], "edges": []}}]
}

Provide 4-6 considerations and 2-4 educational sections. Include a diagram only where it genuinely aids understanding.%s`

const evidencePromptTemplate = `For the clinical case titled %q about %q, return a JSON object:

{
  "evidence": [{"claim": "", "source": "guideline or trial name", "strength": "high|moderate|low"}],
  "further_readings": [{"title": "", "source": ""}],
  "quiz": [{"question": "", "options": ["A", "B", "C", "D"], "answer": 0, "explanation": ""}]
}

Provide exactly %d quiz questions. "answer" is the zero-based index of the correct option.%s`

const knowledgeMapPromptTemplate = `For the clinical case titled %q about %q, return a JSON object describing a concept map:

{
  "nodes": [{"id": "short-id", "label": "Concept", "discipline": "", "summary": "2-3 sentence explanation shown when the learner opens this concept"}],
  "links": [{"source": "short-id", "target": "short-id", "label": "relationship"}]
}

Provide 8-14 nodes. Every link must reference existing node ids.%s`

func languageClause(language string) string {
	if language == "" {
		return ""
	}
	return fmt.Sprintf("\n\nWrite all prose in %s.", language)
}

func coreMessages(req Request) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(corePromptTemplate,
			req.Condition, req.Discipline, req.Difficulty, languageClause(req.Language))},
	}
}

func sectionMessages(section Section, req Request, title string) []llm.Message {
	var prompt string
	switch section {
	case SectionMainDetails:
		prompt = fmt.Sprintf(mainDetailsPromptTemplate, title, req.Condition, req.Discipline, languageClause(req.Language))
	case SectionManagement:
		prompt = fmt.Sprintf(managementPromptTemplate, title, req.Condition, req.Difficulty, languageClause(req.Language))
	case SectionEvidence:
		prompt = fmt.Sprintf(evidencePromptTemplate, title, req.Condition, casedoc.QuizSize, languageClause(req.Language))
	case SectionKnowledgeMap:
		prompt = fmt.Sprintf(knowledgeMapPromptTemplate, title, req.Condition, languageClause(req.Language))
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}
}
