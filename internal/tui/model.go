// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/playback"
	"github.com/verte-zerg/lyritype/internal/provider"
	"github.com/verte-zerg/lyritype/internal/session"
	"github.com/verte-zerg/lyritype/internal/stats"
)

type mode int

const (
	modePrompt mode = iota
	modeLoading
	modeTyping
	modeResults
)

// PositionMsg carries a playback position from the position source.
type PositionMsg struct {
	PositionMs int64
}

type bundleLoadedMsg struct {
	bundle provider.Bundle
}

type loadFailedMsg struct {
	err error
}

// Loader resolves a track link or lyrics file into a bundle.
type Loader func(ctx context.Context, input string) (provider.Bundle, error)

// Recorder persists finished sessions and play counts.
type Recorder interface {
	InsertSession(ctx context.Context, st model.SessionStats, chars []model.CharStats) (int64, error)
	RecordSongPlay(ctx context.Context, url string, song model.SongDetails) (int, error)
	ReportResult(ctx context.Context, user string, wpm, accuracy int) (score, total int, err error)
}

// Options wires the model to its collaborators.
type Options struct {
	Config   model.Config
	Recorder Recorder
	Load     Loader
	Player   playback.Controller
	Logger   *slog.Logger
	// Initial is loaded right away when set.
	Initial string
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	config   model.Config
	recorder Recorder
	load     Loader
	player   playback.Controller
	logger   *slog.Logger
	now      func() time.Time

	mode    mode
	prompt  textinput.Model
	input   textinput.Model
	spinner spinner.Model
	errMsg  string

	sess    *session.Session
	bundle  provider.Bundle
	pending string

	result     stats.Result
	scoreTotal int
	hasTotal   bool

	width  int
	height int
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	extraStyle       = incorrectStyle.Faint(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = currentWordStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	cueBoxStyle      = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4A4A4A"))
	cueActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	cuePastStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	cueUpcomingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	resultValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	resultLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

// NewModel constructs a typing TUI model.
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sessOpts := []session.Option{}
	if policy, ok := playback.ParsePolicy(opts.Config.Gate); ok {
		sessOpts = append(sessOpts, session.WithPolicy(policy))
	}
	if opts.Config.ClearOnBackspace {
		sessOpts = append(sessOpts, session.WithClearOnBackspace())
	}

	prompt := textinput.New()
	prompt.Prompt = "Track: "
	prompt.Placeholder = "Enter Spotify song URL..."
	prompt.CharLimit = 512

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 256

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = currentWordStyle

	m := &Model{
		config:   opts.Config,
		recorder: opts.Recorder,
		load:     opts.Load,
		player:   opts.Player,
		logger:   logger,
		now:      time.Now,
		prompt:   prompt,
		input:    input,
		spinner:  spin,
		sess:     session.New(sessOpts...),
		pending:  strings.TrimSpace(opts.Initial),
	}
	m.prompt.Focus()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.pending != "" {
		return m.startLoad(m.pending)
	}
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.prompt.Width = max(10, m.contentWidth()-lipgloss.Width(m.prompt.Prompt)-1)
		m.input.Width = max(10, m.contentWidth()-lipgloss.Width(m.input.Prompt)-1)
		return m, nil
	case PositionMsg:
		m.sess.ReportPosition(msg.PositionMs, m.now())
		return m, nil
	case bundleLoadedMsg:
		return m, m.handleLoaded(msg.bundle)
	case loadFailedMsg:
		m.mode = modePrompt
		m.errMsg = loadErrorMessage(msg.err)
		m.logger.Warn("failed to load lyrics", "input", m.pending, "error", msg.err)
		return m, m.prompt.Focus()
	case spinner.TickMsg:
		if m.mode != modeLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modePrompt:
			return m.updatePrompt(msg)
		case modeTyping:
			return m.updateTyping(msg)
		case modeResults:
			return m.updateResults(msg)
		}
	}
	return m, nil
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "ctrl+l":
		m.config.Lowercase = !m.config.Lowercase
		return m, nil
	case "ctrl+n":
		m.config.NoPunctuation = !m.config.NoPunctuation
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.prompt.Value())
		if value == "" {
			m.errMsg = "No URL provided"
			return m, nil
		}
		return m, m.startLoad(value)
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.finish()
		return m, nil
	case "ctrl+r":
		m.restart()
		return m, nil
	case "ctrl+p":
		if m.player != nil {
			m.player.Toggle()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	value := m.input.Value()
	if value != m.sess.Input() {
		m.sess.Keystroke(value, m.now())
	}
	m.input.SetValue(m.sess.Input())
	m.input.CursorEnd()
	if m.sess.State() == session.StateFinished {
		m.finish()
	}
	return m, cmd
}

func (m *Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "enter", "ctrl+r":
		m.restart()
		return m, nil
	case "n":
		m.mode = modePrompt
		m.errMsg = ""
		m.prompt.SetValue("")
		if m.player != nil {
			m.player.Pause()
		}
		return m, m.prompt.Focus()
	}
	return m, nil
}

func (m *Model) startLoad(input string) tea.Cmd {
	m.mode = modeLoading
	m.errMsg = ""
	m.pending = input
	m.prompt.Blur()
	load := m.load
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		if load == nil {
			return loadFailedMsg{err: errors.New("no lyrics loader configured")}
		}
		b, err := load(context.Background(), input)
		if err != nil {
			return loadFailedMsg{err: err}
		}
		return bundleLoadedMsg{bundle: b}
	})
}

func (m *Model) handleLoaded(b provider.Bundle) tea.Cmd {
	l, err := b.Lyrics(lyrics.Filters{Lowercase: m.config.Lowercase, NoPunctuation: m.config.NoPunctuation})
	if err != nil {
		m.mode = modePrompt
		m.errMsg = loadErrorMessage(err)
		return m.prompt.Focus()
	}
	m.bundle = b
	m.sess.Load(l, b.Cues())
	m.logger.Info("loaded lyrics",
		"run", m.sess.ID(),
		"track", b.Track.TrackID,
		"words", l.WordCount(),
		"cues", len(m.sess.Cues()),
	)
	if m.recorder != nil && b.URL != "" {
		if _, err := m.recorder.RecordSongPlay(context.Background(), b.URL, b.Track); err != nil {
			m.logger.Warn("failed to record song play", "url", b.URL, "error", err)
		}
	}
	m.beginTyping()
	return m.input.Focus()
}

func (m *Model) beginTyping() {
	m.mode = modeTyping
	m.errMsg = ""
	m.hasTotal = false
	m.result = stats.Result{}
	m.input.SetValue("")
	if m.player != nil {
		m.player.Restart()
	}
}

func (m *Model) restart() {
	if m.sess.State() == session.StateIdle {
		return
	}
	m.sess.Restart()
	m.beginTyping()
	m.input.Focus()
}

func (m *Model) finish() {
	now := m.now()
	res, ok := m.sess.Finish(now)
	if !ok {
		res, ok = m.sess.Result()
		if !ok {
			return
		}
	}
	m.result = res
	m.mode = modeResults
	m.input.Blur()
	if m.player != nil {
		m.player.Pause()
	}
	m.persist(res, now)
}

func (m *Model) persist(res stats.Result, endedAt time.Time) {
	if m.recorder == nil {
		return
	}
	ctx := context.Background()
	st := model.SessionStats{
		RunID:         m.sess.ID(),
		StartedAt:     m.sess.StartedAt(),
		EndedAt:       endedAt,
		Song:          m.bundle.Track,
		User:          m.config.User,
		Lowercase:     m.config.Lowercase,
		NoPunctuation: m.config.NoPunctuation,
		Words:         m.sess.Lyrics().WordCount(),
		TotalTyped:    res.TotalTyped,
		CorrectTyped:  res.CorrectTyped,
		RawWPM:        res.RawWPM,
		WPM:           res.WPM,
		Accuracy:      res.Accuracy,
		Score:         res.Score,
		DurationMs:    res.Elapsed.Milliseconds(),
	}
	tally := m.sess.CharTally()
	chars := make([]model.CharStats, 0, len(tally))
	for r, c := range tally {
		chars = append(chars, model.CharStats{Char: string(r), Correct: c.Correct, Incorrect: c.Incorrect})
	}
	if _, err := m.recorder.InsertSession(ctx, st, chars); err != nil {
		m.logger.Error("failed to save session", "run", st.RunID, "error", err)
	}
	if m.config.User == "" {
		return
	}
	score, total, err := m.recorder.ReportResult(ctx, m.config.User, res.WPM, res.Accuracy)
	if err != nil {
		m.logger.Error("failed to update score", "user", m.config.User, "error", err)
		return
	}
	m.scoreTotal = total
	m.hasTotal = true
	m.logger.Info("score recorded", "user", m.config.User, "score", score, "total", total)
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.mode {
	case modePrompt:
		content = m.renderPrompt()
	case modeLoading:
		content = m.spinner.View() + " Loading lyrics..."
	case modeTyping:
		content = m.renderTyping()
	case modeResults:
		content = m.renderResults()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	content = lipgloss.NewStyle().Width(m.contentWidth()).Render(content)
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 80
	}
	return max(1, int(float64(m.width)*0.70))
}

func (m *Model) renderPrompt() string {
	lines := []string{
		titleStyle.Render("lyritype"),
		footerStyle.Render("Right-click a track in Spotify, Share, Copy link to song, then paste it below."),
		"",
		m.prompt.View(),
		"",
		fmt.Sprintf("Lowercase: %s   No Punctuation: %s", onOff(m.config.Lowercase), onOff(m.config.NoPunctuation)),
	}
	if m.errMsg != "" {
		lines = append(lines, "", errorStyle.Render(m.errMsg))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTyping() string {
	width := m.contentWidth()
	parts := []string{songTitle(m.bundle.Track)}
	if box := renderCueBox(m.sess.Cues(), m.sess.ActiveCue(), width-4); box != "" {
		parts = append(parts, box)
	}
	parts = append(parts, "", renderLyrics(m.sess, width), "", m.input.View(), m.statusLine())
	return strings.Join(parts, "\n")
}

func (m *Model) statusLine() string {
	if !m.sess.CanType() {
		if m.sess.CanStartTyping() && m.sess.Policy() == playback.PolicyPerLine {
			return footerStyle.Render("Waiting for the next line...")
		}
		return footerStyle.Render("Waiting for lyrics to start...")
	}
	if m.sess.State() == session.StateReady {
		return footerStyle.Render("Start typing to begin the test...")
	}
	return ""
}

func (m *Model) renderResults() string {
	res := m.result
	rows := [][2]string{
		{"WPM", fmt.Sprintf("%d", res.WPM)},
		{"Raw WPM", fmt.Sprintf("%d", res.RawWPM)},
		{"Accuracy", fmt.Sprintf("%d%%", res.Accuracy)},
		{"Time", res.Elapsed.Round(time.Second).String()},
		{"Score", fmt.Sprintf("%d", res.Score)},
	}
	if m.hasTotal {
		rows = append(rows, [2]string{"Total", fmt.Sprintf("%d", m.scoreTotal)})
	}
	lines := []string{songTitle(m.bundle.Track), ""}
	for _, r := range rows {
		lines = append(lines, resultLabelStyle.Render(fmt.Sprintf("%-9s", r[0]))+" "+resultValueStyle.Render(r[1]))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	var segments []string
	switch m.mode {
	case modePrompt:
		segments = []string{"enter: load", "ctrl+l: lowercase", "ctrl+n: punctuation", "esc: quit"}
	case modeTyping:
		segments = []string{
			fmt.Sprintf("Progress %d%%", int(m.sess.Progress()*100)),
			"esc: end test", "ctrl+r: restart", "ctrl+p: play/pause",
		}
	case modeResults:
		segments = []string{"enter: restart", "n: new song", "q: quit"}
	default:
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func songTitle(song model.SongDetails) string {
	title := song.Title
	if song.Artist != "" {
		title += " - " + song.Artist
	}
	return titleStyle.Render(title)
}

func onOff(v bool) string {
	if v {
		return "On"
	}
	return "Off"
}

func loadErrorMessage(err error) string {
	switch {
	case errors.Is(err, provider.ErrInvalidURL), errors.Is(err, provider.ErrNotTrack):
		return err.Error()
	case errors.Is(err, lyrics.ErrEmptyTranscript):
		return "No valid lyrics found after processing"
	case errors.Is(err, provider.ErrNoLyrics):
		return "No lyrics found for this track"
	default:
		return "Failed to get lyrics"
	}
}
