package lyrics

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrEmptyTranscript is returned when nothing typable is left after cleanup.
var ErrEmptyTranscript = errors.New("no valid lyrics found after processing")

// Punctuation is the set removed by Filters.NoPunctuation.
const Punctuation = ".,/#!$%^&*;:{}=-_`~()"

var (
	metadataRe  = regexp.MustCompile(`(?m)^\[(ar|al|ti|length):.*\]$`)
	timestampRe = regexp.MustCompile(`\[\d{2}:\d{2}\.\d{2}\]`)
	parenRe     = regexp.MustCompile(`\(([^)]+)\)`)
)

// Filters select optional transforms applied to every line.
type Filters struct {
	// Lowercase case-folds each line.
	Lowercase bool
	// NoPunctuation strips every rune in Punctuation. Applied after Lowercase.
	NoPunctuation bool
}

// Normalize strips metadata, timing markup, note glyphs and parenthesized
// asides from a raw transcript and splits it into lines of words.
func Normalize(raw string, f Filters) (Lyrics, error) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = metadataRe.ReplaceAllString(text, "")
	text = timestampRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "♪", "")
	text = parenRe.ReplaceAllString(text, "")

	var lower cases.Caser
	if f.Lowercase {
		lower = cases.Lower(language.Und)
	}

	var lines [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if f.Lowercase {
			line = lower.String(line)
		}
		if f.NoPunctuation {
			line = stripPunctuation(line)
		}
		lines = append(lines, splitWords(line))
	}

	l := New(lines)
	if l.Empty() {
		return Lyrics{}, ErrEmptyTranscript
	}
	return l, nil
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(Punctuation, r) {
			return -1
		}
		return r
	}, s)
}

func splitWords(line string) []string {
	parts := strings.Split(line, " ")
	words := parts[:0]
	for _, p := range parts {
		if p != "" {
			words = append(words, p)
		}
	}
	return words
}
