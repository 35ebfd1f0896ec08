package stats

import (
	"math"
	"time"
)

// MaxWPM caps both raw and adjusted WPM.
const MaxWPM = 500

// Input is the typing state needed to score a finished session.
type Input struct {
	// WordLengths holds the rune length of each target word.
	WordLengths []int
	// Correct is the correctness buffer over the space-joined target text.
	Correct []bool
	// CurrentWord is the index of the word in progress at finish time.
	CurrentWord int
	// PartialLen is the rune length of the input typed into CurrentWord.
	PartialLen int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Result holds the final metrics of a session.
type Result struct {
	RawWPM       int
	WPM          int
	Accuracy     int
	Score        int
	TotalTyped   int
	CorrectTyped int
	Elapsed      time.Duration
}

// Compute scores a session. Completed words count every character plus one
// always-correct separator; the word in progress counts only what was typed.
func Compute(in Input) Result {
	elapsed := in.FinishedAt.Sub(in.StartedAt)
	seconds := math.Max(elapsed.Seconds(), 1)
	minutes := seconds / 60

	total, correct := 0, 0
	offset := 0
	for i := 0; i <= in.CurrentWord && i < len(in.WordLengths); i++ {
		length := in.WordLengths[i]
		limit := length
		if i == in.CurrentWord {
			limit = min(in.PartialLen, length)
		}
		for c := 0; c < limit; c++ {
			total++
			if pos := offset + c; pos < len(in.Correct) && in.Correct[pos] {
				correct++
			}
		}
		if i < in.CurrentWord {
			total++
			correct++
		}
		offset += length + 1
	}

	res := Result{
		TotalTyped:   total,
		CorrectTyped: correct,
		Elapsed:      time.Duration(seconds * float64(time.Second)),
	}
	if total == 0 {
		return res
	}
	res.Accuracy = roundHalfUp(100 * float64(correct) / float64(total))
	raw := roundHalfUp(float64(total) / 5 / minutes)
	res.RawWPM = min(raw, MaxWPM)
	res.WPM = min(roundHalfUp(float64(raw)*float64(res.Accuracy)/100), MaxWPM)
	res.Score = SessionScore(res.WPM, res.Accuracy)
	return res
}

// SessionScore maps WPM and accuracy onto two banded curves worth up to 500
// points each.
func SessionScore(wpm, accuracy int) int {
	return roundHalfUp(wpmBand(float64(wpm)) + accuracyBand(float64(accuracy)))
}

func wpmBand(wpm float64) float64 {
	switch {
	case wpm < 40:
		return wpm / 40 * 200
	case wpm < 60:
		return 200 + (wpm-40)/20*100
	case wpm < 80:
		return 300 + (wpm-60)/20*100
	default:
		return 400 + math.Min((wpm-80)/20*100, 100)
	}
}

func accuracyBand(acc float64) float64 {
	switch {
	case acc < 92:
		return acc / 92 * 200
	case acc < 96:
		return 200 + (acc-92)/4*100
	case acc < 98:
		return 300 + (acc-96)/2*100
	default:
		return 400 + math.Min((acc-98)/2*100, 100)
	}
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
