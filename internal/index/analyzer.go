// Package index derives the searchable token representation of document
// text and scores query matches against it.
package index

import (
	"math"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// englishStopwords are dropped before stemming. Matching the list used at
// query time to the one used at index time is what keeps lookups consistent.
var englishStopwords = []string{
	"a", "about", "after", "all", "also", "an", "and", "any", "are", "as",
	"at", "be", "because", "been", "but", "by", "can", "could", "did", "do",
	"does", "for", "from", "had", "has", "have", "he", "her", "him", "his",
	"how", "i", "if", "in", "into", "is", "it", "its", "just", "me", "more",
	"most", "my", "no", "not", "of", "on", "one", "only", "or", "other",
	"our", "out", "over", "she", "so", "some", "such", "than", "that", "the",
	"their", "them", "then", "there", "these", "they", "this", "to", "up",
	"was", "we", "were", "what", "when", "where", "which", "who", "will",
	"with", "would", "you", "your",
}

// Analyzer normalizes text into stemmed, stopword-filtered tokens.
type Analyzer struct {
	stopwords map[string]struct{}
}

// NewAnalyzer returns an analyzer with the English profile.
func NewAnalyzer() *Analyzer {
	stops := make(map[string]struct{}, len(englishStopwords))
	for _, w := range englishStopwords {
		stops[w] = struct{}{}
	}
	return &Analyzer{stopwords: stops}
}

// Tokens splits text into normalized tokens: lowercased words, stopwords
// removed, stemmed. Single-rune tokens are dropped.
func (a *Analyzer) Tokens(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if tok := a.normalize(current.String()); tok != "" {
			tokens = append(tokens, tok)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

func (a *Analyzer) normalize(word string) string {
	if len(word) <= 1 {
		return ""
	}
	if _, stop := a.stopwords[word]; stop {
		return ""
	}
	return english.Stem(word, false)
}

// Posting is one weighted term of a document's search index entry.
type Posting struct {
	Term   string
	Weight float64
}

// Entry computes the weighted postings for text. The weight grows with term
// frequency and is damped by document length, so a document mentioning a
// term densely outranks one mentioning it incidentally. Empty text produces
// an empty (never-matching) entry.
func (a *Analyzer) Entry(text string) []Posting {
	tokens := a.Tokens(text)
	if len(tokens) == 0 {
		return nil
	}

	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}

	norm := 1 + math.Log(float64(len(tokens)))
	postings := make([]Posting, 0, len(freq))
	for term, tf := range freq {
		postings = append(postings, Posting{
			Term:   term,
			Weight: (1 + math.Log(float64(tf))) / norm,
		})
	}
	return postings
}
