package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/verte-zerg/lyritype/internal/cue"
	"github.com/verte-zerg/lyritype/internal/model"
)

// ErrNoLyrics is returned when the lyrics API has nothing for a track.
var ErrNoLyrics = errors.New("no lyrics found")

// Sync types reported by the lyrics API.
const (
	SyncLine     = "LINE_SYNCED"
	SyncUnsynced = "UNSYNCED"
)

const (
	// DefaultLyricsEndpoint is the public lyrics API.
	DefaultLyricsEndpoint = "https://spotify-lyrics-api-pi.vercel.app/"
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultAPIURL   = "https://api.spotify.com/v1"
)

// Client fetches lyrics and track details.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger

	endpoint     string
	tokenURL     string
	apiURL       string
	clientID     string
	clientSecret string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSpotifyURLs points the client at alternative Spotify token and API
// endpoints.
func WithSpotifyURLs(tokenURL, apiURL string) ClientOption {
	return func(c *Client) {
		c.tokenURL = tokenURL
		c.apiURL = strings.TrimSuffix(apiURL, "/")
	}
}

// WithRateLimit overrides the request pacing.
func WithRateLimit(every time.Duration, burst int) ClientOption {
	return func(c *Client) {
		c.rateLimiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// NewClient creates a client from provider settings.
func NewClient(cfg model.ProviderConfig, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	endpoint := cfg.LyricsEndpoint
	if endpoint == "" {
		endpoint = DefaultLyricsEndpoint
	}
	c := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		rateLimiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 4),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		endpoint:     endpoint,
		tokenURL:     defaultTokenURL,
		apiURL:       defaultAPIURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredentials reports whether track details can be looked up.
func (c *Client) HasCredentials() bool {
	return c.clientID != "" && c.clientSecret != ""
}

func (c *Client) wait(ctx context.Context) error {
	return c.rateLimiter.Wait(ctx)
}

// Fetch downloads both lyric formats and the track details concurrently and
// assembles a bundle.
func (c *Client) Fetch(ctx context.Context, track Track) (Bundle, error) {
	var (
		lrc     lyricsResponse
		srt     lyricsResponse
		details model.SongDetails
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lrc, err = c.fetchLyrics(gctx, track.ID, "lrc")
		return err
	})
	g.Go(func() error {
		var err error
		srt, err = c.fetchLyrics(gctx, track.ID, "srt")
		return err
	})
	if c.HasCredentials() {
		g.Go(func() error {
			var err error
			details, err = c.TrackDetails(gctx, track.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}
	if details.TrackID == "" {
		details = model.SongDetails{TrackID: track.ID, Title: track.ID}
	}

	b := Bundle{
		Track:      details,
		URL:        track.URL,
		SyncType:   lrc.SyncType,
		Transcript: formatTranscript(details, lrc),
	}
	if srt.SyncType != SyncUnsynced {
		for _, l := range srt.Lines {
			b.Entries = append(b.Entries, cue.Entry{Timestamp: l.StartTime, Text: strings.TrimSpace(l.Words)})
		}
	}
	c.logger.Info("fetched lyrics",
		"track", track.ID,
		"sync_type", b.SyncType,
		"lines", len(lrc.Lines),
		"cues", len(b.Entries),
	)
	return b, nil
}

type lyricsLine struct {
	TimeTag   string `json:"timeTag"`
	StartTime string `json:"startTime"`
	Words     string `json:"words"`
}

type lyricsResponse struct {
	Error    bool         `json:"error"`
	Message  string       `json:"message"`
	SyncType string       `json:"syncType"`
	Lines    []lyricsLine `json:"lines"`
}

func (c *Client) fetchLyrics(ctx context.Context, trackID, format string) (lyricsResponse, error) {
	if err := c.wait(ctx); err != nil {
		return lyricsResponse{}, fmt.Errorf("rate limit: %w", err)
	}
	params := url.Values{}
	params.Set("trackid", trackID)
	params.Set("format", format)
	reqURL := c.endpoint + "?" + params.Encode()

	c.logger.Debug("fetching lyrics", "track", trackID, "format", format)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return lyricsResponse{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return lyricsResponse{}, fmt.Errorf("lyrics request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return lyricsResponse{}, ErrNoLyrics
	}
	if resp.StatusCode != http.StatusOK {
		return lyricsResponse{}, fmt.Errorf("lyrics request failed: status %d", resp.StatusCode)
	}
	var out lyricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return lyricsResponse{}, fmt.Errorf("parse lyrics: %w", err)
	}
	if out.Error || len(out.Lines) == 0 {
		return lyricsResponse{}, ErrNoLyrics
	}
	return out, nil
}

// formatTranscript renders an LRC response with a metadata header. Unsynced
// lyrics become plain lines.
func formatTranscript(details model.SongDetails, resp lyricsResponse) string {
	lines := []string{
		"[ar:" + details.Artist + "]",
		"[al:" + details.Album + "]",
		"[ti:" + details.Title + "]",
		"[length:" + details.Duration + "]",
		"",
	}
	for _, l := range resp.Lines {
		if resp.SyncType == SyncUnsynced {
			lines = append(lines, l.Words)
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", l.TimeTag, l.Words))
	}
	return strings.Join(lines, "\n")
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type trackResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
}

// TrackDetails looks a track up in the Spotify Web API.
func (c *Client) TrackDetails(ctx context.Context, trackID string) (model.SongDetails, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return model.SongDetails{}, err
	}
	if err := c.wait(ctx); err != nil {
		return model.SongDetails{}, fmt.Errorf("rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/tracks/"+url.PathEscape(trackID), nil)
	if err != nil {
		return model.SongDetails{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	var tr trackResponse
	if err := c.doJSON(req, &tr); err != nil {
		return model.SongDetails{}, fmt.Errorf("track details: %w", err)
	}
	artists := make([]string, 0, len(tr.Artists))
	for _, a := range tr.Artists {
		artists = append(artists, a.Name)
	}
	id := tr.ID
	if id == "" {
		id = trackID
	}
	return model.SongDetails{
		TrackID:  id,
		Title:    tr.Name,
		Artist:   strings.Join(artists, ", "),
		Album:    tr.Album.Name,
		Duration: FormatDuration(tr.DurationMs),
	}, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var tok tokenResponse
	if err := c.doJSON(req, &tok); err != nil {
		return "", fmt.Errorf("spotify token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("spotify token: empty access token")
	}
	c.token = tok.AccessToken
	// Refresh a little before the advertised expiry.
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) doJSON(req *http.Request, v any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// FormatDuration renders milliseconds as mm:ss.cc.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	hundredths := (ms % 1000) / 10
	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, hundredths)
}
