// Package cue parses time-stamped lyric feeds into ordered playback cues.
package cue

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedEntry marks a timestamp that does not match any known layout.
var ErrMalformedEntry = errors.New("malformed cue timestamp")

// Cue marks when a lyric line becomes active during playback.
type Cue struct {
	StartMs int64  `yaml:"start_ms"`
	Text    string `yaml:"text"`
}

// Entry is one provider line before timestamp conversion.
type Entry struct {
	Timestamp string `yaml:"time"`
	Text      string `yaml:"text"`
}

// Accepts HH:MM:SS,mmm and HH:MM:SS.mmm (SRT style) and mm:ss.cc (LRC tags).
var timestampRe = regexp.MustCompile(`^(?:(\d{1,2}):)?(\d{1,2}):(\d{1,2})(?:[.,](\d{1,3}))?$`)

// ParseTimestamp converts a timestamp into milliseconds.
func ParseTimestamp(ts string) (int64, error) {
	m := timestampRe.FindStringSubmatch(strings.TrimSpace(ts))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedEntry, ts)
	}
	h := atoi(m[1])
	mins := atoi(m[2])
	secs := atoi(m[3])
	frac := atoi(m[4])
	// A fraction is a decimal part of a second: ".5" is 500ms, ".34" is 340ms.
	for i := len(m[4]); i > 0 && i < 3; i++ {
		frac *= 10
	}
	return h*3600000 + mins*60000 + secs*1000 + frac, nil
}

// FromEntries converts entries to cues sorted by start time. Entries with a
// malformed timestamp are dropped.
func FromEntries(entries []Entry) []Cue {
	cues := make([]Cue, 0, len(entries))
	for _, e := range entries {
		ms, err := ParseTimestamp(e.Timestamp)
		if err != nil {
			continue
		}
		cues = append(cues, Cue{StartMs: ms, Text: e.Text})
	}
	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].StartMs < cues[j].StartMs
	})
	return cues
}

// Active returns the index of the cue playing at positionMs, or -1 when the
// position precedes every cue.
func Active(cues []Cue, positionMs int64) int {
	// First cue starting strictly after the position; its predecessor is active.
	next := sort.Search(len(cues), func(i int) bool {
		return cues[i].StartMs > positionMs
	})
	return next - 1
}

func atoi(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
