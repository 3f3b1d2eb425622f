// Package slu extracts slot values from an utterance by phrase matching
// against a lexicon index.
package slu

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/harunnryd/domov/pkg/lexicon"
)

// SlotSet maps slot names to canonical values for one utterance.
type SlotSet map[string]string

// Has reports whether slot is present.
func (s SlotSet) Has(slot string) bool {
	_, ok := s[slot]
	return ok
}

// MatchMode selects how phrases are located in the text.
type MatchMode string

const (
	// MatchSubstring accepts a phrase anywhere in the text, including
	// inside longer words ("ne" matches "nejvíce").
	MatchSubstring MatchMode = "substring"
	// MatchWord requires the phrase to start and end on a boundary that
	// is not a letter or digit.
	MatchWord MatchMode = "word"
)

// ParseMatchMode returns the mode for s, defaulting to substring.
func ParseMatchMode(s string) (MatchMode, bool) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchSubstring:
		return MatchSubstring, true
	case MatchWord:
		return MatchWord, true
	default:
		return MatchSubstring, false
	}
}

type Option func(*Extractor)

// WithMatchMode sets the matching mode.
func WithMatchMode(m MatchMode) Option {
	return func(e *Extractor) { e.mode = m }
}

// WithNormalizer rewrites the lower-cased text before matching.
func WithNormalizer(n *Normalizer) Option {
	return func(e *Extractor) { e.normalizer = n }
}

// Extractor is immutable and safe for concurrent use.
type Extractor struct {
	index      *lexicon.Index
	mode       MatchMode
	normalizer *Normalizer
}

func New(index *lexicon.Index, opts ...Option) *Extractor {
	e := &Extractor{index: index, mode: MatchSubstring}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Index returns the index the extractor matches against.
func (e *Extractor) Index() *lexicon.Index { return e.index }

// Extract lower-cases text and walks the index in order. For every
// phrase found in the text each of its readings is recorded unless its
// slot already has a value.
func (e *Extractor) Extract(text string) SlotSet {
	found := SlotSet{}
	if e == nil || e.index == nil {
		return found
	}
	text = cases.Lower(language.Czech).String(text)
	if e.normalizer != nil {
		text = e.normalizer.Apply(text)
	}
	for _, entry := range e.index.Entries() {
		if !e.contains(text, entry.Phrase) {
			continue
		}
		for _, p := range entry.Pairs {
			if _, ok := found[p.Slot]; !ok {
				found[p.Slot] = p.Value
			}
		}
	}
	return found
}

func (e *Extractor) contains(text, phrase string) bool {
	if e.mode != MatchWord {
		return strings.Contains(text, phrase)
	}
	offset := 0
	for {
		i := strings.Index(text[offset:], phrase)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(phrase)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
