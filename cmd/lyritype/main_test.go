package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/lyritype/internal/config"
	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/provider"
)

func TestResolveProviderConfigPrecedence(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	fileID := "file-id"
	fileSecret := "file-secret"
	timeout := 5 * time.Second
	cfg, err := resolveProviderConfig(config.FileConfig{Provider: config.ProviderConfig{
		SpotifyClientID:     &fileID,
		SpotifyClientSecret: &fileSecret,
		Timeout:             &timeout,
	}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.ClientID != "env-id" || cfg.ClientSecret != "file-secret" {
		t.Fatalf("unexpected credentials %+v", cfg)
	}
	if cfg.Timeout != timeout || cfg.LyricsEndpoint != provider.DefaultLyricsEndpoint {
		t.Fatalf("unexpected provider cfg %+v", cfg)
	}
}

func TestResolveProviderConfigRejectsHalfCredentials(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "only-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	if _, err := resolveProviderConfig(config.FileConfig{}); err == nil {
		t.Fatalf("expected credentials pair error")
	}
}

func TestLoaderUsesCachedBundleOffline(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cached := provider.Bundle{
		Track:      model.SongDetails{TrackID: "4uLU6hMCjMI75M1A2tKUQC", Title: "Cached"},
		SyncType:   provider.SyncUnsynced,
		Transcript: "hello world",
	}
	if err := provider.SaveBundle(config.DefaultBundlePath("4uLU6hMCjMI75M1A2tKUQC"), cached); err != nil {
		t.Fatalf("save bundle: %v", err)
	}

	load := newLoader(nil, true, discardLogger())
	b, err := load(context.Background(), "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=x")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Track.Title != "Cached" || b.URL != "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC" {
		t.Fatalf("unexpected bundle %+v", b)
	}

	_, err = load(context.Background(), "spotify:track:0000000000000000000000")
	if !errors.Is(err, provider.ErrNoLyrics) {
		t.Fatalf("expected no lyrics offline, got %v", err)
	}
}

func TestLoaderReadsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.lrc")
	if err := os.WriteFile(path, []byte("[00:01.00] one two\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := newLoader(nil, true, discardLogger())(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(b.Entries) != 1 {
		t.Fatalf("expected one cue entry, got %d", len(b.Entries))
	}
}

func TestLoaderRejectsInvalidInput(t *testing.T) {
	_, err := newLoader(nil, true, discardLogger())(context.Background(), "not a link")
	if !errors.Is(err, provider.ErrInvalidURL) {
		t.Fatalf("expected invalid url, got %v", err)
	}
}

func TestRenderPlainStatsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := renderPlainStats(context.Background(), &buf, emptySource{}, model.StatsConfig{CurveWindow: 5}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No sessions found.") {
		t.Fatalf("expected summary output, got %q", buf.String())
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		t.Fatalf("template should decode: %v", err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type emptySource struct{}

func (emptySource) ListSessions(context.Context, model.StatsConfig) ([]model.SessionAggregate, error) {
	return nil, nil
}

func (emptySource) ListCharAggregatesForSessions(context.Context, []int64) ([]model.CharAggregate, error) {
	return nil, nil
}
