// Package lyrics turns raw lyric transcripts into tokenized typing targets.
package lyrics

import (
	"strings"
	"unicode/utf8"
)

// Lyrics is an ordered list of lines, each an ordered list of non-empty words.
// The zero value has no words.
type Lyrics struct {
	lines   [][]string
	words   []string
	lineOf  []int
	offsets []int
	total   int
}

// New builds Lyrics from lines of words. Empty words and lines left without
// words are dropped.
func New(lines [][]string) Lyrics {
	var l Lyrics
	for _, line := range lines {
		kept := make([]string, 0, len(line))
		for _, w := range line {
			if w != "" {
				kept = append(kept, w)
			}
		}
		if len(kept) == 0 {
			continue
		}
		lineIdx := len(l.lines)
		l.lines = append(l.lines, kept)
		for _, w := range kept {
			if len(l.words) > 0 {
				l.total++
			}
			l.offsets = append(l.offsets, l.total)
			l.words = append(l.words, w)
			l.lineOf = append(l.lineOf, lineIdx)
			l.total += utf8.RuneCountInString(w)
		}
	}
	return l
}

// Lines returns a copy of the line-of-words structure.
func (l Lyrics) Lines() [][]string {
	out := make([][]string, len(l.lines))
	for i, line := range l.lines {
		out[i] = append([]string(nil), line...)
	}
	return out
}

// Words returns the flattened word sequence.
func (l Lyrics) Words() []string {
	return append([]string(nil), l.words...)
}

// Word returns the word at a global index.
func (l Lyrics) Word(i int) string {
	return l.words[i]
}

// WordCount returns the number of words across all lines.
func (l Lyrics) WordCount() int {
	return len(l.words)
}

// LineCount returns the number of lines.
func (l Lyrics) LineCount() int {
	return len(l.lines)
}

// Offset returns the starting character position of word i in the
// space-joined text.
func (l Lyrics) Offset(i int) int {
	return l.offsets[i]
}

// LineOf returns the line index holding word i.
func (l Lyrics) LineOf(i int) int {
	return l.lineOf[i]
}

// FirstWord returns the global index of the first word on a line.
func (l Lyrics) FirstWord(line int) int {
	idx := 0
	for i := 0; i < line && i < len(l.lines); i++ {
		idx += len(l.lines[i])
	}
	return idx
}

// TotalChars is the character count of the space-joined text.
func (l Lyrics) TotalChars() int {
	return l.total
}

// Text returns every word joined by single spaces.
func (l Lyrics) Text() string {
	return strings.Join(l.words, " ")
}

// Empty reports whether there are no words.
func (l Lyrics) Empty() bool {
	return len(l.words) == 0
}
