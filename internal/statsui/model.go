// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/stats"
)

const (
	tabOverview = iota
	tabSessions
	tabChars
	tabSongs
)

const topSongsLimit = 20

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source is the persistence the stats UI reads from.
type Source interface {
	stats.Source
	TopSongs(ctx context.Context, limit int) ([]model.SongPlays, error)
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	src Source
	cfg model.StatsConfig

	report stats.Report
	songs  []model.SongPlays
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	tables    map[int]*table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a stats UI model.
func NewModel(src Source, cfg model.StatsConfig) *Model {
	m := &Model{
		src:  src,
		cfg:  cfg,
		tabs: []string{"Overview", "Sessions", "Chars", "Songs"},
	}
	m.initInputs()
	m.initViewports()
	m.initTables()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if t, ok := m.tables[m.activeTab]; ok {
				t.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if t, ok := m.tables[m.activeTab]; ok {
				t.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			var cmd tea.Cmd
			if t, ok := m.tables[m.activeTab]; ok {
				*t, cmd = t.Update(msg)
				return m, cmd
			}
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("User: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func (m *Model) initTables() {
	sessions := newTable(sessionColumns())
	chars := newTable(charColumns())
	m.tables = map[int]*table.Model{
		tabSessions: &sessions,
		tabChars:    &chars,
	}
}

func newTable(cols []table.Column) table.Model {
	t := table.New(table.WithColumns(cols), table.WithHeight(1))
	t.SetStyles(tableStyles())
	return t
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	m.filterInputs[0].SetValue(strings.TrimSpace(m.cfg.User))
	if m.cfg.Since != nil {
		m.filterInputs[1].SetValue(m.cfg.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[1].SetValue("")
	}
	if m.cfg.Last > 0 {
		m.filterInputs[2].SetValue(strconv.Itoa(m.cfg.Last))
	} else {
		m.filterInputs[2].SetValue("")
	}
	m.filterInputs[3].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	for _, t := range m.tables {
		t.SetWidth(m.width)
		t.SetHeight(max(1, bodyHeight-1))
	}
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	for idx, t := range m.tables {
		if idx == m.activeTab {
			t.Focus()
		} else {
			t.Blur()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return padLines(m.renderTabs(), m.width) + "\n" + padLines(m.renderFilterSummary(), m.width)
}

func (m *Model) renderFilterSummary() string {
	user := m.cfg.User
	if user == "" {
		user = "any"
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: user=%s  since=%s  last=%s  window=%d", user, since, last, m.cfg.CurveWindow)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if t, ok := m.tables[m.activeTab]; ok {
		if len(t.Rows()) == 0 {
			return fitLines("No sessions found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(t.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	ctx := context.Background()
	report, err := stats.BuildReport(ctx, m.src, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	songs, err := m.src.TopSongs(ctx, topSongsLimit)
	if err != nil {
		m.errMsg = err.Error()
	} else {
		m.errMsg = ""
	}
	m.report = report
	m.songs = songs
	m.tables[tabSessions].SetRows(sessionRows(report.Sessions))
	m.tables[tabChars].SetRows(charRows(report.CharAggsWindow))
	m.updateLayout()
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report.Sessions, m.cfg.CurveWindow, width))
	m.viewports[tabSongs].SetContent(renderSongs(m.songs))
}

func renderOverview(sessions []model.SessionAggregate, window, width int) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	var totalWPM, totalAcc, totalScore int
	bestWPM := 0
	for _, s := range sessions {
		totalWPM += s.WPM
		totalAcc += s.Accuracy
		totalScore += s.Score
		bestWPM = max(bestWPM, s.WPM)
	}
	count := float64(len(sessions))
	cards := []string{
		metricCard("Sessions", strconv.Itoa(len(sessions))),
		metricCard("Avg WPM", fmt.Sprintf("%.1f", float64(totalWPM)/count)),
		metricCard("Best WPM", strconv.Itoa(bestWPM)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", float64(totalAcc)/count)),
		metricCard("Score", strconv.Itoa(totalScore)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}

	// Keep one sparkline column per session that fits beside the labels.
	if limit := width - 20; limit > 0 && len(sessions) > limit {
		sessions = sessions[len(sessions)-limit:]
	}
	var buf bytes.Buffer
	if err := stats.RenderCurves(&buf, sessions, window); err != nil {
		return summary + "\n\n" + fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(summary+"\n\n"+buf.String(), "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderSongs(songs []model.SongPlays) string {
	var buf bytes.Buffer
	if err := stats.RenderTopSongs(&buf, songs); err != nil {
		return fmt.Sprintf("Failed to render songs: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func sessionColumns() []table.Column {
	return []table.Column{
		{Title: "Ended", Width: 16},
		{Title: "Song", Width: 32},
		{Title: "WPM", Width: 5},
		{Title: "Raw", Width: 5},
		{Title: "Acc", Width: 5},
		{Title: "Score", Width: 6},
	}
}

func sessionRows(sessions []model.SessionAggregate) []table.Row {
	rows := make([]table.Row, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		song := s.Title
		if s.Artist != "" {
			song += " - " + s.Artist
		}
		rows = append(rows, table.Row{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			song,
			strconv.Itoa(s.WPM),
			strconv.Itoa(s.RawWPM),
			fmt.Sprintf("%d%%", s.Accuracy),
			strconv.Itoa(s.Score),
		})
	}
	return rows
}

func charColumns() []table.Column {
	return []table.Column{
		{Title: "Char", Width: 7},
		{Title: "Accuracy", Width: 9},
		{Title: "Correct", Width: 7},
		{Title: "Incorrect", Width: 9},
		{Title: "Total", Width: 6},
	}
}

func charRows(aggs []model.CharAggregate) []table.Row {
	sorted := append([]model.CharAggregate(nil), aggs...)
	sort.Slice(sorted, func(i, j int) bool {
		totalI := sorted[i].Correct + sorted[i].Incorrect
		totalJ := sorted[j].Correct + sorted[j].Incorrect
		if totalI == totalJ {
			return sorted[i].Char < sorted[j].Char
		}
		return totalI > totalJ
	})
	rows := make([]table.Row, 0, len(sorted))
	for _, agg := range sorted {
		total := agg.Correct + agg.Incorrect
		acc := 0.0
		if total > 0 {
			acc = float64(agg.Correct) / float64(total) * 100
		}
		label := agg.Char
		if label == " " {
			label = "<space>"
		}
		rows = append(rows, table.Row{
			label,
			fmt.Sprintf("%.2f%%", acc),
			strconv.Itoa(agg.Correct),
			strconv.Itoa(agg.Incorrect),
			strconv.Itoa(total),
		})
	}
	return rows
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		cfg, err := parseFilter(m.filterInputs[0].Value(), m.filterInputs[1].Value(), m.filterInputs[2].Value(), m.filterInputs[3].Value())
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.cfg = cfg
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func parseFilter(userInput, sinceInput, lastInput, windowInput string) (model.StatsConfig, error) {
	var since *time.Time
	if s := strings.TrimSpace(sinceInput); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}
	last := 0
	if s := strings.TrimSpace(lastInput); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 0 {
			return model.StatsConfig{}, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		last = parsed
	}
	window := 1
	if s := strings.TrimSpace(windowInput); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			return model.StatsConfig{}, fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		window = parsed
	}
	return model.StatsConfig{
		User:        strings.TrimSpace(userInput),
		Since:       since,
		Last:        last,
		CurveWindow: window,
	}, nil
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
