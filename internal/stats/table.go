package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// songColumnWidth caps "Title - Artist" labels so long featuring credits do
// not push the numeric columns off screen.
const songColumnWidth = 40

type column struct {
	title string
	right bool
	// max truncates wider cells with an ellipsis; 0 means unlimited.
	max int
}

var songColumn = column{title: "Song", max: songColumnWidth}

// writeTable prints the header and rows, one line each.
func writeTable(w io.Writer, cols []column, rows [][]string) error {
	for _, line := range tableLines(cols, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func tableLines(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	cells := make([][]string, 0, len(rows)+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.title
	}
	cells = append(cells, header)
	for _, row := range rows {
		fitted := make([]string, len(cols))
		for i, c := range cols {
			if i < len(row) {
				fitted[i] = truncateCell(row[i], c.max)
			}
		}
		cells = append(cells, fitted)
	}

	widths := make([]int, len(cols))
	for _, row := range cells {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(cells))
	for _, row := range cells {
		var b strings.Builder
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(padCell(cell, widths[i], cols[i].right))
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return lines
}

func truncateCell(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	return runewidth.Truncate(value, limit, "…")
}

func padCell(value string, width int, right bool) string {
	padding := width - runewidth.StringWidth(value)
	if padding <= 0 {
		return value
	}
	if right {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}
