// Package playback tracks the playback position of the song being typed and
// decides when typing is permitted.
package playback

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/verte-zerg/lyritype/internal/cue"
)

// DefaultThrottle is the minimum spacing between accepted position updates.
const DefaultThrottle = 50 * time.Millisecond

// Policy selects how cue start times gate typing.
type Policy int

const (
	// PolicyGlobal unlocks typing once the first cue starts.
	PolicyGlobal Policy = iota
	// PolicyPerLine unlocks each lyric line once its own cue starts.
	PolicyPerLine
)

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithPolicy sets the gating policy.
func WithPolicy(p Policy) GateOption {
	return func(g *Gate) {
		g.policy = p
	}
}

// WithThrottle overrides the minimum spacing between accepted updates.
func WithThrottle(d time.Duration) GateOption {
	return func(g *Gate) {
		g.throttle = d
	}
}

// Gate consumes playback position updates for one set of cues.
type Gate struct {
	cues     []cue.Cue
	policy   Policy
	throttle time.Duration
	limiter  *rate.Limiter

	position int64
	active   int
	open     bool
}

// NewGate returns a closed gate for cues. With no cues the gate is always open.
func NewGate(cues []cue.Cue, opts ...GateOption) *Gate {
	g := &Gate{
		cues:     cues,
		throttle: DefaultThrottle,
	}
	for _, o := range opts {
		o(g)
	}
	g.Reset()
	return g
}

// Reset rewinds to position 0 and closes the gate again.
func (g *Gate) Reset() {
	g.limiter = rate.NewLimiter(rate.Every(g.throttle), 1)
	g.position = 0
	g.active = -1
	g.open = len(g.cues) == 0
}

// Report applies a position update unless it arrives within the throttle
// window of the last accepted one. It returns whether the update was applied.
func (g *Gate) Report(positionMs int64, now time.Time) bool {
	if !g.limiter.AllowN(now, 1) {
		return false
	}
	g.position = positionMs
	g.active = cue.Active(g.cues, positionMs)
	if len(g.cues) > 0 {
		g.open = positionMs >= g.cues[0].StartMs
	}
	return true
}

// CanStartTyping reports whether the first cue has started, or true when
// there are no cues at all.
func (g *Gate) CanStartTyping() bool {
	return g.open
}

// Permits reports whether words on the given lyric line may be typed.
func (g *Gate) Permits(line int) bool {
	if !g.open {
		return false
	}
	if g.policy != PolicyPerLine || len(g.cues) == 0 {
		return true
	}
	// Transcript lines past the cue list share the last cue.
	if line >= len(g.cues) {
		line = len(g.cues) - 1
	}
	if line < 0 {
		line = 0
	}
	return g.position >= g.cues[line].StartMs
}

// Position returns the last accepted position in milliseconds.
func (g *Gate) Position() int64 {
	return g.position
}

// ActiveCue returns the index of the cue playing at the last accepted
// position, or -1.
func (g *Gate) ActiveCue() int {
	return g.active
}

// Policy returns the gating policy.
func (g *Gate) Policy() Policy {
	return g.policy
}

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "global":
		return PolicyGlobal, true
	case "per-line":
		return PolicyPerLine, true
	default:
		return PolicyGlobal, false
	}
}
