package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/lyritype/internal/model"
)

func TestTableLinesAlignsColumns(t *testing.T) {
	cols := []column{{title: "Char"}, {title: "Accuracy", right: true}, {title: "Correct", right: true}}
	rows := [][]string{
		{"a", "97.50%", "12"},
		{"<space>", "8.00%", "3"},
	}

	lines := tableLines(cols, rows)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Char    Accuracy Correct" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "a         97.50%      12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "<space>    8.00%       3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTableLinesUsesDisplayWidth(t *testing.T) {
	lines := tableLines([]column{{title: "Song"}, {title: "Plays", right: true}}, [][]string{{"夜に駆ける", "3"}, {"abc", "12"}})
	if lines[1] != "夜に駆ける     3" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "abc           12" {
		t.Fatalf("unexpected row: %q", lines[2])
	}
}

func TestTableLinesTruncatesCappedColumns(t *testing.T) {
	cols := []column{{title: "Song", max: 8}, {title: "URL"}}
	lines := tableLines(cols, [][]string{{"A Very Long Song Title", "https://open.spotify.com/track/abc"}})
	if lines[1] != "A Very … https://open.spotify.com/track/abc" {
		t.Fatalf("unexpected truncated row: %q", lines[1])
	}
}

func TestRenderTopSongsShortensLongLabels(t *testing.T) {
	var buf bytes.Buffer
	songs := []model.SongPlays{{
		URL:       "https://open.spotify.com/track/abc",
		Title:     strings.Repeat("la", 30),
		Artist:    "Band",
		PlayCount: 7,
	}}
	if err := RenderTopSongs(&buf, songs); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Band") || !strings.Contains(out, "…") {
		t.Fatalf("expected song label truncated, got %q", out)
	}
	if !strings.Contains(out, "https://open.spotify.com/track/abc") {
		t.Fatalf("expected full url, got %q", out)
	}
}
