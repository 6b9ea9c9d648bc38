// Package hazard scans scene descriptions for mentions of things a visually
// impaired person should be warned about.
//
// The scan is a keyword lookup over the description text: no extra model call is
// needed because the caption already names the objects in the scene.
package hazard

import (
	"strings"
	"unicode"

	"github.com/book-expert/visionvoice/internal/core"
)

// Priority levels. Lower numbers are more urgent.
const (
	PriorityCritical = 1
	PrioritySerious  = 2
	PriorityHigh     = 3
	PriorityMedium   = 4
	PriorityLow      = 5
	PriorityNone     = 99
)

// Keyword maps a word in a description to the warning it triggers.
type Keyword struct {
	Word     string
	Priority int
	Label    string
	Emoji    string
}

// Scanner finds the most urgent hazard keyword in a description.
type Scanner struct {
	keywords []Keyword
	index    map[string]int
}

// NewScanner builds a scanner over keywords. When two keywords share a priority,
// the one listed first wins.
func NewScanner(keywords []Keyword) *Scanner {
	index := make(map[string]int, len(keywords))

	for position, keyword := range keywords {
		word := strings.ToLower(keyword.Word)
		if _, exists := index[word]; !exists {
			index[word] = position
		}
	}

	return &Scanner{keywords: keywords, index: index}
}

// NewDefaultScanner builds a scanner over DefaultKeywords.
func NewDefaultScanner() *Scanner {
	return NewScanner(DefaultKeywords())
}

// Scan returns the highest-priority hazard mentioned in description. Matching is
// case-insensitive and on whole words; regular plurals of a keyword match too.
func (s *Scanner) Scan(description string) core.Hazard {
	result := core.Hazard{Priority: PriorityNone}

	if strings.TrimSpace(description) == "" {
		return result
	}

	best := -1

	for _, word := range tokenize(description) {
		position, found := s.lookup(word)
		if !found {
			continue
		}

		if best == -1 || isMoreUrgent(s.keywords[position], position, s.keywords[best], best) {
			best = position
		}
	}

	if best == -1 {
		return result
	}

	keyword := s.keywords[best]

	return core.Hazard{
		Detected:       true,
		Type:           keyword.Label,
		Emoji:          keyword.Emoji,
		Priority:       keyword.Priority,
		MatchedKeyword: keyword.Word,
	}
}

// lookup finds word in the index, falling back to its singular forms: "dogs" -> "dog",
// "buses" -> "bus", "puppies" -> "puppy".
func (s *Scanner) lookup(word string) (int, bool) {
	position, found := s.index[word]
	if found {
		return position, true
	}

	for _, candidate := range singulars(word) {
		position, found = s.index[candidate]
		if found {
			return position, true
		}
	}

	return 0, false
}

func singulars(word string) []string {
	var candidates []string

	if stem, ok := strings.CutSuffix(word, "ies"); ok && stem != "" {
		candidates = append(candidates, stem+"y")
	}

	if stem, ok := strings.CutSuffix(word, "es"); ok && stem != "" {
		candidates = append(candidates, stem)
	}

	if stem, ok := strings.CutSuffix(word, "s"); ok && stem != "" && !strings.HasSuffix(stem, "s") {
		candidates = append(candidates, stem)
	}

	return candidates
}

func isMoreUrgent(candidate Keyword, candidatePos int, current Keyword, currentPos int) bool {
	if candidate.Priority != current.Priority {
		return candidate.Priority < current.Priority
	}

	return candidatePos < currentPos
}

// tokenize lower-cases text and splits it into runs of letters and digits.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
