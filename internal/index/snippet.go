package index

import (
	"strings"
	"unicode"
)

// SnippetLength is the maximum excerpt length in runes.
const SnippetLength = 200

// Snippet returns a bounded excerpt of text centered on the strongest query
// term match. The strongest term is the query term occurring most often in
// the text; the window is placed around its first occurrence. When no term
// matches (or terms is empty) the head of the text is returned. Truncated
// edges are ellipsized.
func (a *Analyzer) Snippet(text string, terms []string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	querySet := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		querySet[t] = struct{}{}
	}

	// Walk words with their rune offsets, stem each, and record matches.
	runes := []rune(text)
	firstAt := map[string]int{}
	counts := map[string]int{}
	start := -1
	for i := 0; i <= len(runes); i++ {
		inWord := i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsNumber(runes[i]))
		if inWord {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			word := a.normalize(strings.ToLower(string(runes[start:i])))
			if _, ok := querySet[word]; ok && word != "" {
				counts[word]++
				if _, seen := firstAt[word]; !seen {
					firstAt[word] = start
				}
			}
			start = -1
		}
	}

	center := 0
	best := 0
	for term, n := range counts {
		if n > best || (n == best && firstAt[term] < center) {
			best = n
			center = firstAt[term]
		}
	}

	if len(runes) <= SnippetLength {
		return string(runes)
	}

	from := center - SnippetLength/4
	if from < 0 {
		from = 0
	}
	to := from + SnippetLength
	if to > len(runes) {
		to = len(runes)
		from = to - SnippetLength
	}

	out := string(runes[from:to])
	if from > 0 {
		out = "..." + out
	}
	if to < len(runes) {
		out += "..."
	}
	return out
}
