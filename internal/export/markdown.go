// Package export renders a case document to markdown and HTML for
// printing and sharing outside the app.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/diagrams"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/knowledge"
)

// Markdown renders the document as a single markdown page. Sections
// that failed or have not been generated are simply omitted; a
// narrative-only document still renders cleanly.
func Markdown(doc *casedoc.Document, graph *knowledge.Graph) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "**Patient:** %s\n\n", doc.PatientProfile)
	fmt.Fprintf(&b, "**Presenting complaint:** %s\n\n", doc.PresentingComplaint)
	fmt.Fprintf(&b, "## History\n\n%s\n\n", doc.ClinicalHistory)

	if doc.Procedure != nil {
		fmt.Fprintf(&b, "## Procedure: %s\n\n", doc.Procedure.Name)
		if doc.Procedure.Indication != "" {
			fmt.Fprintf(&b, "**Indication:** %s\n\n", doc.Procedure.Indication)
		}
		if doc.Procedure.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", doc.Procedure.Description)
		}
		if doc.Procedure.Risks != "" {
			fmt.Fprintf(&b, "**Risks:** %s\n\n", doc.Procedure.Risks)
		}
	}

	if len(doc.Connections) > 0 {
		b.WriteString("## Multidisciplinary connections\n\n")
		for _, c := range doc.Connections {
			fmt.Fprintf(&b, "- **%s** — %s\n", c.Discipline, c.Relevance)
		}
		b.WriteString("\n")
	}

	if doc.PathwayDiagram != nil {
		b.WriteString("## Care pathway\n\n```mermaid\n")
		b.WriteString(diagrams.Mermaid(doc.PathwayDiagram))
		b.WriteString("```\n\n")
	}

	if len(doc.Considerations) > 0 {
		b.WriteString("## Management considerations\n\n")
		for _, c := range doc.Considerations {
			fmt.Fprintf(&b, "- **%s** — %s\n", c.Aspect, c.Detail)
		}
		b.WriteString("\n")
	}

	for _, item := range doc.EducationalContent {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", item.Heading, item.Body)
		if item.Diagram != nil {
			b.WriteString("```mermaid\n")
			b.WriteString(diagrams.Mermaid(item.Diagram))
			b.WriteString("```\n\n")
		}
	}

	if len(doc.Evidence) > 0 {
		b.WriteString("## Evidence\n\n")
		for _, ev := range doc.Evidence {
			line := "- " + ev.Claim
			if ev.Source != "" {
				line += fmt.Sprintf(" (%s", ev.Source)
				if ev.Strength != "" {
					line += ", " + ev.Strength
				}
				line += ")"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if len(doc.FurtherReadings) > 0 {
		b.WriteString("## Further reading\n\n")
		for _, rd := range doc.FurtherReadings {
			if rd.Source != "" {
				fmt.Fprintf(&b, "- %s — %s\n", rd.Title, rd.Source)
			} else {
				fmt.Fprintf(&b, "- %s\n", rd.Title)
			}
		}
		b.WriteString("\n")
	}

	if len(doc.Quiz) > 0 {
		b.WriteString("## Quiz\n\n")
		for i, q := range doc.Quiz {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
			for j, opt := range q.Options {
				marker := " "
				if j == q.Answer {
					marker = "x"
				}
				fmt.Fprintf(&b, "    - [%s] %s\n", marker, opt)
			}
			if q.Explanation != "" {
				fmt.Fprintf(&b, "    *%s*\n", q.Explanation)
			}
		}
		b.WriteString("\n")
	}

	if graph != nil && len(graph.Nodes()) > 0 {
		b.WriteString("## Knowledge map\n\n```mermaid\n")
		b.WriteString(diagrams.KnowledgeMap(graph))
		b.WriteString("```\n\n")
	}

	if doc.Outcome != nil {
		fmt.Fprintf(&b, "## Outcome\n\n%s\n\n", doc.Outcome.Summary)
		if doc.Outcome.Prognosis != "" {
			fmt.Fprintf(&b, "**Prognosis:** %s\n\n", doc.Outcome.Prognosis)
		}
		if doc.Outcome.FollowUp != "" {
			fmt.Fprintf(&b, "**Follow-up:** %s\n\n", doc.Outcome.FollowUp)
		}
	}

	return b.String()
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// HTML renders the document's markdown form to an HTML fragment.
func HTML(doc *casedoc.Document, graph *knowledge.Graph) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(doc, graph)), &buf); err != nil {
		return "", fmt.Errorf("rendering case HTML: %w", err)
	}
	return buf.String(), nil
}
