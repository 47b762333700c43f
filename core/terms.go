package core

import "strings"

// Stop words ignored when indexing and matching keywords
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "or": true, "were": true, "been": true, "has": true,
	"had": true, "did": true, "does": true, "i": true, "me": true, "my": true,
	"we": true, "our": true, "your": true, "what": true, "which": true, "who": true,
	"how": true, "when": true, "where": true, "why": true, "any": true, "about": true,
	"tell": true, "into": true, "over": true, "there": true, "their": true, "they": true,
	"can": true, "some": true, "so": true, "if": true, "than": true, "then": true,
}

const termPunctuation = ".,!?;:'\"()[]{}<>`•–—*"

// Terms splits text into lowercase words with punctuation trimmed and stop words
// removed. Order is preserved and duplicates are dropped.
func Terms(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, termPunctuation))
		cleaned = strings.Trim(cleaned, "-/")
		if cleaned == "" || stopWords[cleaned] {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		filtered = append(filtered, cleaned)
	}

	return filtered
}

// IsStopWord reports whether word is ignored by Terms.
func IsStopWord(word string) bool {
	return stopWords[strings.ToLower(word)]
}

// ContainsAllTerms checks if every term of query appears in document.
func ContainsAllTerms(document, query string) bool {
	queryTerms := Terms(query)
	if len(queryTerms) == 0 {
		return false
	}

	docTerms := Terms(document)
	docSet := make(map[string]bool, len(docTerms))
	for _, term := range docTerms {
		docSet[term] = true
	}

	for _, term := range queryTerms {
		if !docSet[term] {
			return false
		}
	}

	return true
}

// ContainsTerm reports whether text mentions phrase as whole words, ignoring case.
func ContainsTerm(text, phrase string) bool {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return false
	}
	lower := strings.ToLower(text)
	for offset := 0; ; {
		idx := strings.Index(lower[offset:], phrase)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(phrase)
		if isBoundary(lower, start-1) && isBoundary(lower, end) {
			return true
		}
		offset = start + 1
	}
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '+' || c == '#')
}
