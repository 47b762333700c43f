package extraction

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/vitae/core"
)

const headerSeparator = " • "

// Header returns the line every segment of doc starts with, for example
// "Acme • Engineer • 2020–2022". The date part is omitted when the document
// has no dates.
func Header(doc *core.SourceDocument) string {
	parts := []string{strings.TrimSpace(doc.Organization), strings.TrimSpace(doc.Title)}
	if r := doc.DateRange().Format(); r != "" {
		parts = append(parts, r)
	}
	return strings.Join(parts, headerSeparator)
}

func monthYear(t time.Time) string {
	return t.Format("January 2006")
}

// tenureSentence describes when the document's role was held.
func tenureSentence(doc *core.SourceDocument) string {
	subject := fmt.Sprintf("The %s as %s at %s", doc.Category.Noun(), doc.Title, doc.Organization)
	switch {
	case doc.Start.IsZero() && doc.End.IsZero():
		return fmt.Sprintf("The %s was held as %s at %s.", doc.Category.Noun(), doc.Title, doc.Organization)
	case doc.End.IsZero():
		return fmt.Sprintf("%s began in %s and is ongoing.", subject, monthYear(doc.Start))
	case doc.Start.IsZero():
		return fmt.Sprintf("%s ended in %s.", subject, monthYear(doc.End))
	default:
		return fmt.Sprintf("%s ran from %s to %s.", subject, monthYear(doc.Start), monthYear(doc.End))
	}
}

// contextSentences returns the boilerplate used to grow an undersized segment
// of the given kind, most specific first.
func contextSentences(doc *core.SourceDocument, kind core.SegmentKind) []string {
	noun := doc.Category.Noun()
	role := fmt.Sprintf("%s at %s", doc.Title, doc.Organization)

	out := []string{tenureSentence(doc)}
	switch kind {
	case core.KindOverview:
		if doc.Summary != "" {
			out = append(out, terminate(doc.Summary))
		}
	case core.KindTechnical:
		if len(doc.Skills) > 0 {
			out = append(out, fmt.Sprintf("Technologies used in this %s: %s.", noun, joinList(doc.Skills)))
		}
	case core.KindAchievement:
		out = append(out, fmt.Sprintf("These results were delivered as %s.", role))
		for _, outcome := range doc.Outcomes {
			out = append(out, terminate(outcome))
		}
	case core.KindLeadership:
		out = append(out, fmt.Sprintf("This leadership experience comes from serving as %s.", role))
	}
	if len(doc.Skills) > 0 && kind != core.KindTechnical {
		out = append(out, fmt.Sprintf("Skills involved: %s.", joinList(doc.Skills)))
	}
	if len(doc.Topics) > 0 {
		out = append(out, fmt.Sprintf("Focus areas included %s.", joinList(doc.Topics)))
	}
	out = append(out, fmt.Sprintf("This %s evidence comes from the %s %s at %s.", kind, doc.Title, noun, doc.Organization))
	return out
}
