// Package text prepares generated descriptions for speech synthesis.
//
// Captioning models emit short, lower-case, loosely punctuated phrases with the
// occasional tokenizer artifact. The Normalizer turns them into a sentence a speech
// engine reads naturally.
package text

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// NumberBaseTen represents the base for decimal number system.
	NumberBaseTen = 10
	// NumberBaseTwenty represents the boundary for teen numbers.
	NumberBaseTwenty = 20
	// NumberBaseHundred represents the base for hundreds.
	NumberBaseHundred = 100
	// NumberBaseThousand represents the base for thousands.
	NumberBaseThousand = 1000
	// MaxNumberForWords represents the maximum number that can be converted to words.
	MaxNumberForWords = 999999
)

// Regex patterns for text normalization.
const (
	numberRegexPattern           = `\b\d+\b`
	whitespaceRegexPattern       = `\s+`
	spaceBeforePunctRegexPattern = `\s+([.,!?;:])`
	artifactRegexPattern         = `(?i)\b(?:an?\s+)?(?:arafed|araffe|arafe)\s+`
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsisChar = "…"
	ellipsis     = "..."
)

// Normalizer cleans caption text before it is handed to a speech engine.
type Normalizer struct {
	numberPattern           *regexp.Regexp
	whitespacePattern       *regexp.Regexp
	spaceBeforePunctPattern *regexp.Regexp
	artifactPattern         *regexp.Regexp
	abbreviationReplacer    *strings.Replacer
	quoteReplacer           *strings.Replacer
	numbers                 *numberConverter
}

// NewNormalizer creates a Normalizer with compiled patterns and replacers.
func NewNormalizer() *Normalizer {
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Misses",
		"Ms.", "Miss",
		"Dr.", "Doctor",
		"St.", "Street",
		"Ave.", "Avenue",
		"approx.", "approximately",
		"etc.", "et cetera",
	}

	return &Normalizer{
		numberPattern:           regexp.MustCompile(numberRegexPattern),
		whitespacePattern:       regexp.MustCompile(whitespaceRegexPattern),
		spaceBeforePunctPattern: regexp.MustCompile(spaceBeforePunctRegexPattern),
		artifactPattern:         regexp.MustCompile(artifactRegexPattern),
		abbreviationReplacer:    strings.NewReplacer(abbreviations...),
		quoteReplacer: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
		numbers: newNumberConverter(),
	}
}

// Normalize returns text ready to be spoken. Empty input yields empty output.
func (n *Normalizer) Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = n.quoteReplacer.Replace(text)
	text = n.artifactPattern.ReplaceAllString(text, "a ")
	text = n.abbreviationReplacer.Replace(text)
	text = n.normalizeNumbers(text)
	text = n.whitespacePattern.ReplaceAllString(text, " ")
	text = collapseRepeatedWords(text)
	text = collapseRepeatedPunctuation(text)
	text = n.spaceBeforePunctPattern.ReplaceAllString(text, "$1")

	return ensureSentenceEnding(text)
}

// normalizeNumbers finds all integers in the text and converts them to words.
func (n *Normalizer) normalizeNumbers(text string) string {
	return n.numberPattern.ReplaceAllStringFunc(text, func(s string) string {
		num, err := strconv.Atoi(s)
		if err != nil {
			return s
		}

		return n.numbers.toWords(num)
	})
}

// collapseRepeatedWords removes immediate word repetitions such as "a dog dog".
func collapseRepeatedWords(text string) string {
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))

	previous := ""

	for _, word := range words {
		bare := strings.ToLower(strings.TrimFunc(word, unicode.IsPunct))
		if bare != "" && bare == previous && !strings.ContainsFunc(kept[len(kept)-1], unicode.IsPunct) {
			kept[len(kept)-1] = word

			continue
		}

		kept = append(kept, word)
		previous = bare
	}

	return strings.Join(kept, " ")
}

// collapseRepeatedPunctuation reduces runs of the same sentence punctuation mark
// to a single mark. Ellipses are kept.
func collapseRepeatedPunctuation(text string) string {
	var (
		builder strings.Builder
		last    rune
	)

	builder.Grow(len(text))

	for _, char := range text {
		if char == last && strings.ContainsRune("!?,;:", char) {
			continue
		}

		builder.WriteRune(char)

		last = char
	}

	return builder.String()
}

// ensureSentenceEnding ensures the text ends with sentence-ending punctuation.
func ensureSentenceEnding(text string) string {
	trimmedText := strings.TrimSpace(text)
	if trimmedText == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(trimmedText)

	switch lastChar {
	case '.', '!', '?':
		return trimmedText
	case ',', ';', ':', '-':
		return strings.TrimRight(trimmedText, ",;:- ") + "."
	default:
		return trimmedText + "."
	}
}

type numberConverter struct {
	ones  []string
	teens []string
	tens  []string
}

func newNumberConverter() *numberConverter {
	return &numberConverter{
		ones: []string{
			"", "one", "two", "three", "four", "five",
			"six", "seven", "eight", "nine",
		},
		teens: []string{
			"ten", "eleven", "twelve", "thirteen", "fourteen",
			"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
		},
		tens: []string{
			"", "", "twenty", "thirty", "forty", "fifty",
			"sixty", "seventy", "eighty", "ninety",
		},
	}
}

func (nc *numberConverter) convertUnderHundred(num int) string {
	switch {
	case num < NumberBaseTen:
		return nc.ones[num]
	case num < NumberBaseTwenty:
		return nc.teens[num-NumberBaseTen]
	}

	result := nc.tens[num/NumberBaseTen]
	if num%NumberBaseTen > 0 {
		result += " " + nc.ones[num%NumberBaseTen]
	}

	return result
}

func (nc *numberConverter) convertUnderThousand(num int) string {
	if num < NumberBaseHundred {
		return nc.convertUnderHundred(num)
	}

	result := nc.ones[num/NumberBaseHundred] + " hundred"

	remainder := num % NumberBaseHundred
	if remainder > 0 {
		result += " " + nc.convertUnderHundred(remainder)
	}

	return result
}

// toWords converts an integer into its English word representation. Numbers
// outside [0, MaxNumberForWords] are returned as digits.
func (nc *numberConverter) toWords(number int) string {
	if number < 0 || number > MaxNumberForWords {
		return strconv.Itoa(number)
	}

	if number == 0 {
		return "zero"
	}

	var parts []string

	thousands := number / NumberBaseThousand
	if thousands > 0 {
		parts = append(parts, nc.convertUnderThousand(thousands)+" thousand")
	}

	remaining := number % NumberBaseThousand
	if remaining > 0 {
		parts = append(parts, nc.convertUnderThousand(remaining))
	}

	return strings.Join(parts, " ")
}
