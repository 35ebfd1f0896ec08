package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/lyritype/internal/cue"
	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/model"
)

// Bundle is everything needed to type along with one track offline.
type Bundle struct {
	Track      model.SongDetails `yaml:"track"`
	URL        string            `yaml:"url,omitempty"`
	SyncType   string            `yaml:"sync_type"`
	Transcript string            `yaml:"transcript"`
	Entries    []cue.Entry       `yaml:"cues,omitempty"`
}

// Cues converts the bundle's timed entries, dropping malformed ones.
func (b Bundle) Cues() []cue.Cue {
	return cue.FromEntries(b.Entries)
}

// Lyrics normalizes the transcript with the given filters.
func (b Bundle) Lyrics(f lyrics.Filters) (lyrics.Lyrics, error) {
	return lyrics.Normalize(b.Transcript, f)
}

// SaveBundle writes b as YAML, creating parent directories.
func SaveBundle(path string, b Bundle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadBundle reads a YAML bundle.
func LoadBundle(path string) (Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, err
	}
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("decode bundle %s: %w", path, err)
	}
	return b, nil
}

// LoadFile reads a bundle from a .yaml, .lrc or .srt file. LRC and SRT files
// double as transcript and cue source.
func LoadFile(path string) (Bundle, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return LoadBundle(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, err
	}
	raw := string(data)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	b := Bundle{Track: model.SongDetails{TrackID: name, Title: name}}
	switch ext {
	case ".lrc":
		b.Entries = cue.LRCEntries(raw)
	case ".srt":
		b.Entries = cue.SRTEntries(raw)
	default:
		return Bundle{}, fmt.Errorf("unsupported lyrics file %q", filepath.Base(path))
	}
	b.Transcript = cueTranscript(b.Cues())
	b.SyncType = SyncLine
	if len(b.Entries) == 0 {
		b.SyncType = SyncUnsynced
	}
	return b, nil
}

// cueTranscript lays the cue texts out in playback order, so a repeated
// chorus is typed once per time it is sung and no timing markup survives.
func cueTranscript(cues []cue.Cue) string {
	texts := make([]string, 0, len(cues))
	for _, c := range cues {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, "\n")
}
