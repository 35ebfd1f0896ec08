package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/lyritype/internal/cue"
	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/model"
)

func TestParseTrackURL(t *testing.T) {
	tests := []struct {
		in      string
		id      string
		wantErr error
	}{
		{in: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc", id: "4uLU6hMCjMI75M1A2tKUQC"},
		{in: "  spotify:track:4uLU6hMCjMI75M1A2tKUQC ", id: "4uLU6hMCjMI75M1A2tKUQC"},
		{in: "https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", wantErr: ErrNotTrack},
		{in: "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", wantErr: ErrNotTrack},
		{in: "https://example.com/track/abc", wantErr: ErrInvalidURL},
		{in: "", wantErr: ErrInvalidURL},
	}
	for _, tt := range tests {
		got, err := ParseTrackURL(tt.in)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.id, got.ID)
	}
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "https://open.spotify.com/track/abc", CleanURL("https://open.spotify.com/track/abc?si=x#frag"))
	assert.Equal(t, "spotify:track:abc", CleanURL(" spotify:track:abc "))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "03:25.43", FormatDuration(205439))
	assert.Equal(t, "00:00.00", FormatDuration(-5))
}

type fakeAPI struct {
	lyricsHits atomic.Int32
	tokenHits  atomic.Int32
	syncType   string
	status     int
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/lyrics/", func(w http.ResponseWriter, r *http.Request) {
		f.lyricsHits.Add(1)
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		if r.URL.Query().Get("trackid") != "abc" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		resp := map[string]any{"error": false, "syncType": f.syncType}
		if r.URL.Query().Get("format") == "srt" {
			resp["lines"] = []map[string]any{
				{"index": 1, "startTime": "00:00:12,340", "endTime": "00:00:15,000", "words": "Hello (oh) world "},
				{"index": 2, "startTime": "00:00:05,000", "endTime": "00:00:12,000", "words": "First line"},
			}
		} else {
			resp["lines"] = []map[string]any{
				{"timeTag": "00:05.00", "words": "First line"},
				{"timeTag": "00:12.34", "words": "Hello (oh) world"},
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenHits.Add(1)
		id, secret, ok := r.BasicAuth()
		if !ok || id != "id" || secret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/v1/tracks/abc", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "abc",
			"name":        "Song",
			"duration_ms": 205439,
			"artists":     []map[string]any{{"name": "A"}, {"name": "B"}},
			"album":       map[string]any{"name": "Album"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, withCreds bool) *Client {
	cfg := model.ProviderConfig{LyricsEndpoint: srv.URL + "/lyrics/", Timeout: 3 * time.Second}
	if withCreds {
		cfg.ClientID = "id"
		cfg.ClientSecret = "secret"
	}
	return NewClient(cfg,
		WithSpotifyURLs(srv.URL+"/token", srv.URL+"/v1/"),
		WithRateLimit(time.Millisecond, 10),
	)
}

func TestFetchWithTrackDetails(t *testing.T) {
	api := &fakeAPI{syncType: SyncLine}
	srv := api.server(t)
	c := newTestClient(srv, true)

	b, err := c.Fetch(context.Background(), Track{ID: "abc", URL: "https://open.spotify.com/track/abc"})
	require.NoError(t, err)

	assert.Equal(t, model.SongDetails{TrackID: "abc", Title: "Song", Artist: "A, B", Album: "Album", Duration: "03:25.43"}, b.Track)
	assert.Equal(t, SyncLine, b.SyncType)
	assert.Contains(t, b.Transcript, "[ar:A, B]\n[al:Album]\n[ti:Song]\n[length:03:25.43]\n\n[00:05.00] First line")

	cues := b.Cues()
	require.Len(t, cues, 2)
	assert.Equal(t, cue.Cue{StartMs: 5000, Text: "First line"}, cues[0])
	assert.Equal(t, cue.Cue{StartMs: 12340, Text: "Hello (oh) world"}, cues[1])

	l, err := b.Lyrics(lyrics.Filters{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"First", "line"}, {"Hello", "world"}}, l.Lines())

	_, err = c.Fetch(context.Background(), Track{ID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.tokenHits.Load(), "token is cached")
	assert.Equal(t, int32(4), api.lyricsHits.Load())
}

func TestFetchWithoutCredentials(t *testing.T) {
	api := &fakeAPI{syncType: SyncLine}
	c := newTestClient(api.server(t), false)

	b, err := c.Fetch(context.Background(), Track{ID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", b.Track.Title)
	assert.Zero(t, api.tokenHits.Load())
}

func TestFetchUnsynced(t *testing.T) {
	api := &fakeAPI{syncType: SyncUnsynced}
	c := newTestClient(api.server(t), false)

	b, err := c.Fetch(context.Background(), Track{ID: "abc"})
	require.NoError(t, err)
	assert.Empty(t, b.Entries)
	assert.Contains(t, b.Transcript, "\n\nFirst line\nHello (oh) world")
	assert.NotContains(t, b.Transcript, "[00:05.00]")
}

func TestFetchNoLyrics(t *testing.T) {
	api := &fakeAPI{syncType: SyncLine}
	c := newTestClient(api.server(t), false)

	_, err := c.Fetch(context.Background(), Track{ID: "missing"})
	assert.ErrorIs(t, err, ErrNoLyrics)
}

func TestFetchServerError(t *testing.T) {
	api := &fakeAPI{status: http.StatusBadGateway}
	c := newTestClient(api.server(t), false)

	_, err := c.Fetch(context.Background(), Track{ID: "abc"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoLyrics)
}

func TestBundleSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundles", "abc.yaml")
	in := Bundle{
		Track:      model.SongDetails{TrackID: "abc", Title: "Song"},
		URL:        "https://open.spotify.com/track/abc",
		SyncType:   SyncLine,
		Transcript: "First line\nSecond line",
		Entries:    []cue.Entry{{Timestamp: "00:00:05,000", Text: "First line"}},
	}
	require.NoError(t, SaveBundle(path, in))

	out, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadFileLRCAndSRT(t *testing.T) {
	dir := t.TempDir()
	lrcPath := filepath.Join(dir, "song.lrc")
	require.NoError(t, os.WriteFile(lrcPath, []byte("[ti:Song]\n[00:01.50] one two\n[00:03.00] three\n"), 0o644))
	b, err := LoadFile(lrcPath)
	require.NoError(t, err)
	assert.Equal(t, "song", b.Track.Title)
	assert.Equal(t, []cue.Cue{{StartMs: 1500, Text: "one two"}, {StartMs: 3000, Text: "three"}}, b.Cues())
	l, err := b.Lyrics(lyrics.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, l.Words())

	srtPath := filepath.Join(dir, "song.srt")
	require.NoError(t, os.WriteFile(srtPath, []byte("1\n00:00:01,000 --> 00:00:02,000\nalpha\n\n2\n00:00:02,500 --> 00:00:04,000\nbeta\n"), 0o644))
	b, err = LoadFile(srtPath)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta", b.Transcript)
	assert.Len(t, b.Cues(), 2)

	txtPath := filepath.Join(dir, "song.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = LoadFile(txtPath)
	assert.Error(t, err)
}

func TestLoadFileLRCStripsAllTagForms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.lrc")
	raw := "[ar:Band]\n[00:01.500] hello world\n[00:03.250] second line\n[00:05][00:09.00] chorus\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	b, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, SyncLine, b.SyncType)
	assert.Equal(t, "hello world\nsecond line\nchorus\nchorus", b.Transcript)
	assert.Len(t, b.Cues(), 4)

	l, err := b.Lyrics(lyrics.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world", "second", "line", "chorus", "chorus"}, l.Words())
	assert.Equal(t, len(b.Cues()), l.LineCount())
}
