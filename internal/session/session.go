// Package session implements the typing state machine for one lyric run.
package session

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/verte-zerg/lyritype/internal/cue"
	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/playback"
	"github.com/verte-zerg/lyritype/internal/stats"
)

// State is the lifecycle stage of a Session.
type State int

const (
	// StateIdle has no transcript loaded.
	StateIdle State = iota
	// StateReady has a transcript but no accepted keystroke yet.
	StateReady
	// StateActive has started the clock with a first accepted keystroke.
	StateActive
	// StateFinished is terminal until the next Load.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// CharClass is the presentation state of a single target character.
type CharClass int

const (
	ClassUntyped CharClass = iota
	ClassActive
	ClassCorrect
	ClassIncorrect
)

// Option configures a Session.
type Option func(*options)

type options struct {
	policy           playback.Policy
	throttle         time.Duration
	clearOnBackspace bool
}

// WithPolicy sets the playback gating policy used for each loaded transcript.
func WithPolicy(p playback.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithThrottle sets the minimum spacing of accepted position updates.
func WithThrottle(d time.Duration) Option {
	return func(o *options) {
		o.throttle = d
	}
}

// WithClearOnBackspace clears correctness flags past the end of a shortened
// input. By default those flags keep their last value.
func WithClearOnBackspace() Option {
	return func(o *options) {
		o.clearOnBackspace = true
	}
}

// CharCount tallies typed positions of one target character.
type CharCount struct {
	Correct   int
	Incorrect int
}

// Session owns the cursor, correctness buffer and clock of one typing run.
// It is not safe for concurrent use; callers serialize events.
type Session struct {
	opts options

	id      string
	lyrics  lyrics.Lyrics
	words   [][]rune
	cues    []cue.Cue
	gate    *playback.Gate
	state   State
	word    int
	char    int
	input   string
	correct []bool

	startedAt time.Time
	result    stats.Result
}

// New returns an idle session.
func New(opts ...Option) *Session {
	o := options{throttle: playback.DefaultThrottle}
	for _, fn := range opts {
		fn(&o)
	}
	return &Session{opts: o}
}

// Load replaces any current run with a fresh one over l, gated by cues.
func (s *Session) Load(l lyrics.Lyrics, cues []cue.Cue) {
	s.id = uuid.NewString()
	s.lyrics = l
	s.words = make([][]rune, l.WordCount())
	for i := range s.words {
		s.words[i] = []rune(l.Word(i))
	}
	s.cues = cues
	s.gate = playback.NewGate(cues, playback.WithPolicy(s.opts.policy), playback.WithThrottle(s.opts.throttle))
	s.word = 0
	s.char = 0
	s.input = ""
	s.correct = make([]bool, l.TotalChars())
	s.startedAt = time.Time{}
	s.result = stats.Result{}
	s.state = StateReady
	if l.Empty() {
		s.state = StateIdle
	}
}

// Restart reloads the current transcript and cues.
func (s *Session) Restart() {
	if s.state == StateIdle {
		return
	}
	s.Load(s.lyrics, s.cues)
}

// ReportPosition forwards a playback position to the gate.
func (s *Session) ReportPosition(positionMs int64, now time.Time) bool {
	if s.gate == nil {
		return false
	}
	return s.gate.Report(positionMs, now)
}

// CanType reports whether a keystroke would currently be accepted.
func (s *Session) CanType() bool {
	if s.state != StateReady && s.state != StateActive {
		return false
	}
	return s.gate.Permits(s.lyrics.LineOf(s.word))
}

// Keystroke applies the full content of the input field after a key press.
// A trailing space submits the current word. Keystrokes arriving while the
// session is finished, unloaded or gated are dropped and false is returned.
func (s *Session) Keystroke(value string, now time.Time) bool {
	if !s.CanType() {
		return false
	}
	if s.startedAt.IsZero() {
		s.startedAt = now
		s.state = StateActive
	}

	target := s.words[s.word]
	offset := s.lyrics.Offset(s.word)

	if strings.HasSuffix(value, " ") {
		attempt := []rune(strings.TrimSpace(value))
		for i, r := range target {
			s.correct[offset+i] = i < len(attempt) && attempt[i] == r
		}
		if s.word == len(s.words)-1 {
			s.input = string(attempt)
			s.char = len(attempt)
			s.finish(now)
			return true
		}
		s.word++
		s.char = 0
		s.input = ""
		return true
	}

	typed := []rune(value)
	s.input = value
	s.char = len(typed)
	for i, r := range typed {
		if i >= len(target) {
			break
		}
		s.correct[offset+i] = r == target[i]
	}
	if s.opts.clearOnBackspace {
		for i := len(typed); i < len(target); i++ {
			s.correct[offset+i] = false
		}
	}
	return true
}

// Finish ends the run early. A run that never started is credited with one
// second so scoring has a denominator.
func (s *Session) Finish(now time.Time) (stats.Result, bool) {
	if s.state != StateReady && s.state != StateActive {
		return s.result, false
	}
	if s.startedAt.IsZero() {
		s.startedAt = now.Add(-time.Second)
	}
	s.finish(now)
	return s.result, true
}

func (s *Session) finish(now time.Time) {
	lengths := make([]int, len(s.words))
	for i, w := range s.words {
		lengths[i] = len(w)
	}
	s.result = stats.Compute(stats.Input{
		WordLengths: lengths,
		Correct:     s.correct,
		CurrentWord: s.word,
		PartialLen:  utf8.RuneCountInString(s.input),
		StartedAt:   s.startedAt,
		FinishedAt:  now,
	})
	s.state = StateFinished
}

// Result returns the metrics of a finished run.
func (s *Session) Result() (stats.Result, bool) {
	return s.result, s.state == StateFinished
}

// Classify returns the presentation class of a character of a word.
func (s *Session) Classify(word, char int) CharClass {
	if s.state == StateIdle || word < 0 || word >= len(s.words) {
		return ClassUntyped
	}
	pos := s.lyrics.Offset(word) + char
	flag := func() CharClass {
		if pos < len(s.correct) && s.correct[pos] {
			return ClassCorrect
		}
		return ClassIncorrect
	}
	switch {
	case word < s.word:
		return flag()
	case word == s.word:
		if s.state == StateFinished {
			if char < s.char {
				return flag()
			}
			return ClassUntyped
		}
		if char == s.char {
			return ClassActive
		}
		if char < utf8.RuneCountInString(s.input) {
			return flag()
		}
	}
	return ClassUntyped
}

// CharTally counts correct and incorrect typed positions per target
// character, walking the same positions scoring does. Separators are skipped.
func (s *Session) CharTally() map[rune]CharCount {
	tally := map[rune]CharCount{}
	if s.state == StateIdle {
		return tally
	}
	for w := 0; w <= s.word && w < len(s.words); w++ {
		target := s.words[w]
		limit := len(target)
		if w == s.word {
			limit = min(utf8.RuneCountInString(s.input), len(target))
		}
		offset := s.lyrics.Offset(w)
		for i := 0; i < limit; i++ {
			c := tally[target[i]]
			if s.correct[offset+i] {
				c.Correct++
			} else {
				c.Incorrect++
			}
			tally[target[i]] = c
		}
	}
	return tally
}

// ID identifies the current run; it changes on every Load.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle stage.
func (s *Session) State() State { return s.state }

// Cursor returns the current word index and character index.
func (s *Session) Cursor() (word, char int) { return s.word, s.char }

// Input returns the text typed into the current word.
func (s *Session) Input() string { return s.input }

// Lyrics returns the loaded target text.
func (s *Session) Lyrics() lyrics.Lyrics { return s.lyrics }

// Cues returns the loaded cues.
func (s *Session) Cues() []cue.Cue { return s.cues }

// StartedAt returns when the first keystroke was accepted, or the zero time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// CanStartTyping reports whether the playback gate has opened.
func (s *Session) CanStartTyping() bool {
	return s.gate != nil && s.gate.CanStartTyping()
}

// ActiveCue returns the index of the cue at the last accepted position.
func (s *Session) ActiveCue() int {
	if s.gate == nil {
		return -1
	}
	return s.gate.ActiveCue()
}

// Policy returns the gating policy of the loaded run.
func (s *Session) Policy() playback.Policy {
	if s.gate == nil {
		return s.opts.policy
	}
	return s.gate.Policy()
}

// Position returns the last accepted playback position.
func (s *Session) Position() int64 {
	if s.gate == nil {
		return 0
	}
	return s.gate.Position()
}

// Progress returns the share of words completed, from 0 to 1.
func (s *Session) Progress() float64 {
	if len(s.words) == 0 {
		return 0
	}
	if s.state == StateFinished && s.word == len(s.words)-1 && s.char >= len(s.words[s.word]) {
		return 1
	}
	return float64(s.word) / float64(len(s.words))
}
