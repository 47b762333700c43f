package tokens

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	bulletPattern  = regexp.MustCompile(`^\s*(?:[-*•+▪‣◦]|\d{1,3}[.)])\s+`)
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
)

// abbreviations that end in a period without ending a sentence
var abbreviations = map[string]bool{
	"e.g": true, "i.e": true, "etc": true, "vs": true, "inc": true, "ltd": true,
	"co": true, "corp": true, "dr": true, "mr": true, "mrs": true, "ms": true,
	"jr": true, "sr": true, "st": true, "approx": true, "no": true, "dept": true,
}

const closers = "\"')]”’"

// minSpanChars is the number of letters or digits a span needs to be kept.
const minSpanChars = 3

// Chunk is a piece of text produced by SplitIntoChunks.
type Chunk struct {
	Text      string
	Tokens    int
	Truncated bool
}

// Splitter breaks text into spans at sentence or bullet boundaries and packs
// spans into chunks that respect a Budget.
type Splitter struct {
	budget *Budget
}

// NewSplitter returns a Splitter packing chunks against budget.
func NewSplitter(budget *Budget) (*Splitter, error) {
	if budget == nil {
		return nil, ErrBudgetRequired
	}
	return &Splitter{budget: budget}, nil
}

// Split returns the atomic spans of text. Bullet-structured text splits per
// bullet (continuation lines stay with their bullet); other text splits after
// sentence terminators. Trivial spans are dropped.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !IsBulleted(text) {
		return SplitSentences(text)
	}

	var spans []string
	var current string
	flush := func() {
		if current != "" {
			spans = appendSpan(spans, current)
			current = ""
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case bulletPattern.MatchString(line):
			flush()
			current = collapseSpaces(bulletPattern.ReplaceAllString(line, ""))
		case current != "" && startsIndented(line):
			current += " " + collapseSpaces(trimmed)
		default:
			flush()
			for _, sentence := range SplitSentences(trimmed) {
				spans = appendSpan(spans, sentence)
			}
		}
	}
	flush()
	return spans
}

// SplitIntoChunks packs spans greedily into chunks of at most TargetMax tokens.
// Text already within TargetMax comes back unchanged as a single chunk,
// surrounding whitespace included. Blank text yields no chunks. An atomic span
// larger than TargetMax is emitted alone, hard capped. Text with no sentence
// boundaries at all is cut into word windows instead.
func (s *Splitter) SplitIntoChunks(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	limits := s.budget.Limits()
	if n := s.budget.Count(text); n <= limits.TargetMax {
		return []Chunk{{Text: text, Tokens: n}}
	}
	text = strings.TrimSpace(text)

	spans := s.Split(text)
	if len(spans) == 1 && !HasTerminator(spans[0]) {
		return s.wordWindows(spans[0])
	}

	var chunks []Chunk
	var buf string
	flush := func() {
		if buf != "" {
			chunks = append(chunks, Chunk{Text: buf, Tokens: s.budget.Count(buf)})
			buf = ""
		}
	}

	for _, span := range spans {
		if s.budget.Count(span) > limits.TargetMax {
			flush()
			chunks = append(chunks, s.capped(span))
			continue
		}
		if buf == "" {
			buf = span
			continue
		}
		candidate := buf + " " + span
		if s.budget.Count(candidate) > limits.TargetMax {
			flush()
			buf = span
		} else {
			buf = candidate
		}
	}
	flush()
	return chunks
}

func (s *Splitter) capped(text string) Chunk {
	c := s.budget.EnforceHardCap(text)
	return Chunk{Text: c.Text, Tokens: c.Tokens, Truncated: c.Truncated}
}

// wordWindows cuts run-on text into consecutive windows of at most TargetMax tokens.
func (s *Splitter) wordWindows(text string) []Chunk {
	limit := s.budget.Limits().TargetMax
	var chunks []Chunk
	var buf strings.Builder

	for _, word := range strings.Fields(text) {
		if buf.Len() == 0 {
			buf.WriteString(word)
			continue
		}
		if s.budget.Count(buf.String()+" "+word) > limit {
			chunks = append(chunks, s.capped(buf.String()))
			buf.Reset()
			buf.WriteString(word)
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(word)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, s.capped(buf.String()))
	}
	return chunks
}

// IsBulleted reports whether at least two lines, and at least half of the
// non-empty lines, start with a bullet or list marker.
func IsBulleted(text string) bool {
	var lines, bullets int
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		if bulletPattern.MatchString(line) {
			bullets++
		}
	}
	return bullets >= 2 && bullets*2 >= lines
}

// HasTerminator reports whether text contains a sentence terminator followed
// by whitespace or the end of text.
func HasTerminator(text string) bool {
	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i == len(runes)-1 || unicode.IsSpace(runes[i+1]) || strings.ContainsRune(closers, runes[i+1]) {
			return true
		}
	}
	return false
}

// SplitSentences splits prose into sentences. Blank lines always end a
// sentence; periods after common abbreviations and initials do not.
func SplitSentences(text string) []string {
	var out []string
	for _, para := range paragraphBreak.Split(text, -1) {
		for _, sentence := range sentencesIn(collapseSpaces(para)) {
			out = appendSpan(out, sentence)
		}
	}
	return out
}

func sentencesIn(p string) []string {
	runes := []rune(p)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && strings.ContainsRune(closers, runes[j]) {
			j++
		}
		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			continue
		}
		out = append(out, strings.TrimSpace(string(runes[start:j])))
		start = j
		i = j - 1
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func isAbbreviation(before []rune) bool {
	s := strings.TrimSpace(string(before))
	if idx := strings.LastIndexAny(s, " \t"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimLeft(s, "(\"'")
	if abbreviations[strings.ToLower(s)] {
		return true
	}
	// single capital initial, as in "J. Smith"
	r := []rune(s)
	return len(r) == 1 && unicode.IsUpper(r[0])
}

func appendSpan(spans []string, span string) []string {
	span = strings.TrimSpace(span)
	if significantChars(span) < minSpanChars {
		return spans
	}
	return append(spans, span)
}

func significantChars(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func startsIndented(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '\t')
}
