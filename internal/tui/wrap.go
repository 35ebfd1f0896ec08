package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/lyritype/internal/cue"
	"github.com/verte-zerg/lyritype/internal/session"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

func newStyledRune(r rune, style lipgloss.Style) styledRune {
	return styledRune{
		s:       style.Render(string(r)),
		width:   runewidth.RuneWidth(r),
		isSpace: r == ' ',
	}
}

// buildStyledRunes renders one lyric line of the session, classifying each
// character against the typed input.
func buildStyledRunes(s *session.Session, line int) []styledRune {
	l := s.Lyrics()
	lines := l.Lines()
	if line < 0 || line >= len(lines) {
		return nil
	}
	curWord, curChar := s.Cursor()
	finished := s.State() == session.StateFinished
	first := l.FirstWord(line)

	var out []styledRune
	for k, word := range lines[line] {
		w := first + k
		if k > 0 {
			out = append(out, newStyledRune(' ', pendingStyle))
		}
		target := []rune(word)
		for c, r := range target {
			style := pendingStyle
			switch s.Classify(w, c) {
			case session.ClassCorrect:
				style = correctStyle
			case session.ClassIncorrect:
				style = incorrectStyle
			case session.ClassActive:
				style = cursorStyle
			default:
				if w == curWord && !finished {
					style = currentWordStyle
				}
			}
			out = append(out, newStyledRune(r, style))
		}
		if w != curWord || finished {
			continue
		}
		typed := []rune(s.Input())
		for i := len(target); i < len(typed); i++ {
			out = append(out, newStyledRune(typed[i], extraStyle))
		}
		if curChar >= len(target) {
			out = append(out, newStyledRune(' ', cursorStyle))
		}
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}

// lineWindow returns the range of lyric lines shown around the cursor.
func lineWindow(current, total, before, after int) (from, to int) {
	from = max(0, current-before)
	to = min(total, current+after+1)
	return from, to
}

// renderLyrics wraps the visible window of lyric lines to width.
func renderLyrics(s *session.Session, width int) string {
	l := s.Lyrics()
	if l.Empty() {
		return ""
	}
	word, _ := s.Cursor()
	from, to := lineWindow(l.LineOf(word), l.LineCount(), 1, 3)
	blocks := make([]string, 0, to-from)
	for line := from; line < to; line++ {
		blocks = append(blocks, wrapStyledRunes(buildStyledRunes(s, line), width))
	}
	return strings.Join(blocks, "\n")
}

// renderCueBox shows the active synced line with its neighbours.
func renderCueBox(cues []cue.Cue, active, width int) string {
	if len(cues) == 0 {
		return ""
	}
	from, to := lineWindow(max(active, 0), len(cues), 1, 1)
	lines := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		text := runewidth.Truncate(cues[i].Text, max(width, 1), "…")
		switch {
		case i == active:
			lines = append(lines, cueActiveStyle.Render(text))
		case i < active:
			lines = append(lines, cuePastStyle.Render(text))
		default:
			lines = append(lines, cueUpcomingStyle.Render(text))
		}
	}
	return cueBoxStyle.Width(max(width, 1)).Render(strings.Join(lines, "\n"))
}
