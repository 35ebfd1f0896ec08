package cue

import (
	"regexp"
	"strings"
)

var (
	lrcLineRe = regexp.MustCompile(`^((?:\[\d{1,2}:\d{1,2}(?:\.\d{1,3})?\]\s*)+)(.*)$`)
	lrcTagRe  = regexp.MustCompile(`\[(\d{1,2}:\d{1,2}(?:\.\d{1,3})?)\]`)
)

// SRTEntries splits SubRip text into entries. Each block must have an index
// line, a "start --> end" line and a text line; other blocks are kept with an
// empty timestamp so FromEntries drops them.
func SRTEntries(raw string) []Entry {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var entries []Entry
	for _, block := range strings.Split(raw, "\n\n") {
		lines := strings.Split(strings.Trim(block, "\n"), "\n")
		if len(lines) < 3 {
			continue
		}
		start, _, ok := strings.Cut(lines[1], "-->")
		if !ok {
			start = ""
		}
		entries = append(entries, Entry{
			Timestamp: strings.TrimSpace(start),
			Text:      strings.TrimSpace(lines[2]),
		})
	}
	return entries
}

// ParseSRT parses SubRip text into sorted cues.
func ParseSRT(raw string) []Cue {
	return FromEntries(SRTEntries(raw))
}

// LRCEntries extracts "[mm:ss.cc] words" lines. A line with several leading
// tags, as used for repeated choruses, yields one entry per tag. Lines
// without a leading time tag, such as metadata headers, are skipped.
func LRCEntries(raw string) []Entry {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var entries []Entry
	for _, line := range strings.Split(raw, "\n") {
		m := lrcLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		for _, tag := range lrcTagRe.FindAllStringSubmatch(m[1], -1) {
			entries = append(entries, Entry{Timestamp: tag[1], Text: text})
		}
	}
	return entries
}

// ParseLRC parses LRC text into sorted cues.
func ParseLRC(raw string) []Cue {
	return FromEntries(LRCEntries(raw))
}
