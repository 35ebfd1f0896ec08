package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/lyritype/internal/cue"
	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/provider"
)

type fakeRecorder struct {
	sessions []model.SessionStats
	chars    [][]model.CharStats
	plays    []string
	reports  []string
}

func (f *fakeRecorder) InsertSession(_ context.Context, st model.SessionStats, chars []model.CharStats) (int64, error) {
	f.sessions = append(f.sessions, st)
	f.chars = append(f.chars, chars)
	return int64(len(f.sessions)), nil
}

func (f *fakeRecorder) RecordSongPlay(_ context.Context, url string, _ model.SongDetails) (int, error) {
	f.plays = append(f.plays, url)
	return len(f.plays), nil
}

func (f *fakeRecorder) ReportResult(_ context.Context, user string, _, _ int) (int, int, error) {
	f.reports = append(f.reports, user)
	return 1000, 1000 * len(f.reports), nil
}

type fakePlayer struct {
	restarts int
	toggles  int
	pauses   int
}

func (p *fakePlayer) Play()    {}
func (p *fakePlayer) Pause()   { p.pauses++ }
func (p *fakePlayer) Toggle()  { p.toggles++ }
func (p *fakePlayer) Restart() { p.restarts++ }

func newTestModel(cfg model.Config) (*Model, *fakeRecorder, *fakePlayer) {
	rec := &fakeRecorder{}
	player := &fakePlayer{}
	m := NewModel(Options{Config: cfg, Recorder: rec, Player: player})
	clock := time.Unix(1000, 0)
	m.now = func() time.Time {
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}
	return m, rec, player
}

func testBundle() provider.Bundle {
	return provider.Bundle{
		Track:      model.SongDetails{TrackID: "abc", Title: "Song", Artist: "Band"},
		URL:        "https://open.spotify.com/track/abc",
		SyncType:   provider.SyncUnsynced,
		Transcript: "ab cd",
	}
}

func typeText(m *Model, text string) {
	for _, r := range text {
		if r == ' ' {
			m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestLoadedBundleStartsTyping(t *testing.T) {
	m, rec, player := newTestModel(model.Config{Gate: model.GateGlobal})
	m.Update(bundleLoadedMsg{bundle: testBundle()})

	if m.mode != modeTyping {
		t.Fatalf("expected typing mode, got %d", m.mode)
	}
	if len(rec.plays) != 1 || rec.plays[0] != "https://open.spotify.com/track/abc" {
		t.Fatalf("expected song play recorded, got %v", rec.plays)
	}
	if player.restarts != 1 {
		t.Fatalf("expected playback restart, got %d", player.restarts)
	}
	if !strings.Contains(m.View(), "Start typing to begin the test...") {
		t.Fatalf("expected ready status line")
	}
}

func TestTypingToEndPersistsSession(t *testing.T) {
	m, rec, player := newTestModel(model.Config{Gate: model.GateGlobal, User: "alice"})
	m.Update(bundleLoadedMsg{bundle: testBundle()})

	typeText(m, "ab cd ")

	if m.mode != modeResults {
		t.Fatalf("expected results mode, got %d", m.mode)
	}
	if len(rec.sessions) != 1 {
		t.Fatalf("expected one saved session, got %d", len(rec.sessions))
	}
	st := rec.sessions[0]
	if st.Accuracy != 100 || st.Words != 2 || st.User != "alice" || st.Song.Title != "Song" {
		t.Fatalf("unexpected session %+v", st)
	}
	if len(rec.chars[0]) != 4 {
		t.Fatalf("expected 4 char rows, got %v", rec.chars[0])
	}
	if len(rec.reports) != 1 || rec.reports[0] != "alice" {
		t.Fatalf("expected score report for alice, got %v", rec.reports)
	}
	if player.pauses == 0 {
		t.Fatalf("expected playback paused at finish")
	}
	view := m.View()
	for _, want := range []string{"WPM", "Accuracy", "100%", "Total"} {
		if !strings.Contains(view, want) {
			t.Fatalf("results missing %q", want)
		}
	}
}

func TestAnonymousSessionSkipsScoreReport(t *testing.T) {
	m, rec, _ := newTestModel(model.Config{Gate: model.GateGlobal})
	m.Update(bundleLoadedMsg{bundle: testBundle()})
	typeText(m, "ab")
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if m.mode != modeResults || len(rec.sessions) != 1 {
		t.Fatalf("expected finished session saved")
	}
	if len(rec.reports) != 0 {
		t.Fatalf("expected no score report without user")
	}
	if strings.Contains(m.View(), "Total") {
		t.Fatalf("did not expect total score without user")
	}
}

func TestGateHoldsInputUntilFirstCue(t *testing.T) {
	m, _, _ := newTestModel(model.Config{Gate: model.GateGlobal})
	b := testBundle()
	b.SyncType = provider.SyncLine
	b.Entries = []cue.Entry{{Timestamp: "00:05.00", Text: "ab cd"}}
	m.Update(bundleLoadedMsg{bundle: b})

	if !strings.Contains(m.View(), "Waiting for lyrics to start...") {
		t.Fatalf("expected waiting status")
	}
	typeText(m, "a")
	if m.sess.Input() != "" || m.input.Value() != "" {
		t.Fatalf("expected gated keystroke dropped, got %q", m.sess.Input())
	}

	m.Update(PositionMsg{PositionMs: 5200})
	typeText(m, "a")
	if m.sess.Input() != "a" {
		t.Fatalf("expected keystroke accepted after cue, got %q", m.sess.Input())
	}
}

func TestRestartAndPlaybackKeys(t *testing.T) {
	m, _, player := newTestModel(model.Config{Gate: model.GateGlobal})
	m.Update(bundleLoadedMsg{bundle: testBundle()})
	typeText(m, "ab c")
	id := m.sess.ID()

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	if player.toggles != 1 {
		t.Fatalf("expected play/pause toggle")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.sess.ID() == id || m.sess.Input() != "" {
		t.Fatalf("expected fresh run after restart")
	}
	if player.restarts != 2 {
		t.Fatalf("expected playback restarted twice, got %d", player.restarts)
	}
}

func TestLoadFailureReturnsToPrompt(t *testing.T) {
	m, _, _ := newTestModel(model.Config{})
	m.mode = modeLoading
	m.Update(loadFailedMsg{err: errors.Join(errors.New("http"), provider.ErrNoLyrics)})

	if m.mode != modePrompt {
		t.Fatalf("expected prompt mode, got %d", m.mode)
	}
	if !strings.Contains(m.View(), "No lyrics found for this track") {
		t.Fatalf("expected no-lyrics message")
	}
}

func TestPromptTogglesFilters(t *testing.T) {
	m, _, _ := newTestModel(model.Config{})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if !m.config.Lowercase || !m.config.NoPunctuation {
		t.Fatalf("expected both filters enabled, got %+v", m.config)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.errMsg != "No URL provided" {
		t.Fatalf("expected empty input error, got %q", m.errMsg)
	}
}

func TestRenderFooterShowsProgress(t *testing.T) {
	m, _, _ := newTestModel(model.Config{Gate: model.GateGlobal})
	m.Update(bundleLoadedMsg{bundle: testBundle()})
	typeText(m, "ab ")
	if out := m.renderFooter(); !strings.Contains(out, "Progress 50%") {
		t.Fatalf("footer missing progress: %s", out)
	}
}

func TestPerLineGateWaitsForNextLine(t *testing.T) {
	m, _, _ := newTestModel(model.Config{Gate: model.GatePerLine})
	b := testBundle()
	b.Transcript = "ab\ncd"
	b.SyncType = provider.SyncLine
	b.Entries = []cue.Entry{{Timestamp: "00:01.00", Text: "ab"}, {Timestamp: "00:05.00", Text: "cd"}}
	m.Update(bundleLoadedMsg{bundle: b})

	m.Update(PositionMsg{PositionMs: 1200})
	typeText(m, "ab ")
	if !strings.Contains(m.View(), "Waiting for the next line...") {
		t.Fatalf("expected per-line waiting status")
	}
	typeText(m, "c")
	if m.sess.Input() != "" {
		t.Fatalf("expected keystroke on locked line dropped, got %q", m.sess.Input())
	}
}
