// Package provider fetches lyrics and track details for a Spotify track and
// stores them as offline bundles.
package provider

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalidURL is returned for input that is not a Spotify link or URI.
	ErrInvalidURL = errors.New("invalid URL, please check the URL and try again")
	// ErrNotTrack is returned for album and playlist links.
	ErrNotTrack = errors.New("URL must be a Spotify track URL")
)

var trackURLRe = regexp.MustCompile(`^(?:spotify:(track|album|playlist):|https://[a-z]+\.spotify\.com/(track|playlist|album)/)([\w\d]+)`)

// Track identifies a Spotify track.
type Track struct {
	ID  string
	URL string
}

// ParseTrackURL accepts spotify:track:<id> URIs and
// https://<sub>.spotify.com/track/<id> links.
func ParseTrackURL(raw string) (Track, error) {
	raw = strings.TrimSpace(raw)
	m := trackURLRe.FindStringSubmatch(raw)
	if m == nil {
		return Track{}, ErrInvalidURL
	}
	kind := m[2]
	if kind == "" {
		kind = m[1]
	}
	if kind != "track" {
		return Track{}, ErrNotTrack
	}
	return Track{ID: m[3], URL: CleanURL(raw)}, nil
}

// CleanURL drops the query string and fragment of a link. URIs and
// unparsable input are returned trimmed.
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "spotify" || u.Host == "" {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
