// Package stats contains scoring and statistics reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/lyritype/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalWPM, totalAcc, totalScore int
	best := sessions[0]
	for _, s := range sessions {
		totalWPM += s.WPM
		totalAcc += s.Accuracy
		totalScore += s.Score
		if s.WPM > best.WPM {
			best = s
		}
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Avg WPM: %.2f", float64(totalWPM)/count),
		fmt.Sprintf("Best WPM: %d (%s)", best.WPM, songLabel(best.Title, best.Artist)),
		fmt.Sprintf("Avg Accuracy: %.2f%%", float64(totalAcc)/count),
		fmt.Sprintf("Total Score: %d", totalScore),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints WPM and accuracy sparklines smoothed over window.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	if len(sessions) == 0 {
		return nil
	}
	wpms := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		wpms[i] = float64(s.WPM)
		accs[i] = float64(s.Accuracy)
	}
	wpms = MovingAverage(wpms, window)
	accs = MovingAverage(accs, window)

	if _, err := fmt.Fprintln(w, "Learning Curves"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "WPM      %s  %.0f\n", Sparkline(wpms), wpms[len(wpms)-1]); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Accuracy %s  %.0f%%\n", Sparkline(accs), accs[len(accs)-1]); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderSessionTable prints one row per session, newest last.
func RenderSessionTable(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		return nil
	}
	cols := []column{
		{title: "Ended"},
		songColumn,
		{title: "WPM", right: true},
		{title: "Raw", right: true},
		{title: "Acc", right: true},
		{title: "Score", right: true},
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			songLabel(s.Title, s.Artist),
			fmt.Sprintf("%d", s.WPM),
			fmt.Sprintf("%d", s.RawWPM),
			fmt.Sprintf("%d%%", s.Accuracy),
			fmt.Sprintf("%d", s.Score),
		})
	}
	if _, err := fmt.Fprintln(w, "Sessions"); err != nil {
		return err
	}
	if err := writeTable(w, cols, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCharTable prints per-character aggregates, weakest first.
func RenderCharTable(w io.Writer, aggs []model.CharAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No character stats found.")
		return err
	}
	type row struct {
		char      string
		acc       float64
		correct   int
		incorrect int
	}
	rows := make([]row, 0, len(aggs))
	for _, agg := range aggs {
		charLabel := agg.Char
		if charLabel == " " {
			charLabel = "<space>"
		}
		total := agg.Correct + agg.Incorrect
		acc := 0.0
		if total > 0 {
			acc = float64(agg.Correct) / float64(total)
		}
		rows = append(rows, row{
			char:      charLabel,
			acc:       acc,
			correct:   agg.Correct,
			incorrect: agg.Incorrect,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].acc == rows[j].acc {
			return rows[i].char < rows[j].char
		}
		return rows[i].acc < rows[j].acc
	})

	if _, err := fmt.Fprintln(w, "Per-Character (Windowed)"); err != nil {
		return err
	}

	cols := []column{
		{title: "Char"},
		{title: "Accuracy", right: true},
		{title: "Correct", right: true},
		{title: "Incorrect", right: true},
	}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.char,
			fmt.Sprintf("%.2f%%", r.acc*100),
			fmt.Sprintf("%d", r.correct),
			fmt.Sprintf("%d", r.incorrect),
		})
	}
	if err := writeTable(w, cols, tableRows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderTopSongs prints the play counter leaderboard.
func RenderTopSongs(w io.Writer, songs []model.SongPlays) error {
	if len(songs) == 0 {
		_, err := fmt.Fprintln(w, "No songs played yet.")
		return err
	}
	cols := []column{
		{title: "#", right: true},
		songColumn,
		{title: "Plays", right: true},
		{title: "URL"},
	}
	rows := make([][]string, 0, len(songs))
	for i, s := range songs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			songLabel(s.Title, s.Artist),
			fmt.Sprintf("%d", s.PlayCount),
			s.URL,
		})
	}
	return writeTable(w, cols, rows)
}

func songLabel(title, artist string) string {
	switch {
	case title == "" && artist == "":
		return "unknown"
	case artist == "":
		return title
	case title == "":
		return artist
	}
	return title + " - " + artist
}
