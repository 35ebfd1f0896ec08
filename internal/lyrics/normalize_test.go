package lyrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTranscript = `[ar:Some Artist]
[al:Some Album]
[ti:Some Song]
[length:03:21.40]

[00:12.34] Hello, world (ooh)
[00:15.00] ♪
[00:17.50] It's   a  NEW day!
`

func TestNormalizeStripsMarkup(t *testing.T) {
	l, err := Normalize(sampleTranscript, Filters{})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Hello,", "world"},
		{"It's", "a", "NEW", "day!"},
	}, l.Lines())
	assert.Equal(t, 6, l.WordCount())
	assert.Equal(t, "Hello, world It's a NEW day!", l.Text())
}

func TestNormalizeFilters(t *testing.T) {
	l, err := Normalize(sampleTranscript, Filters{Lowercase: true, NoPunctuation: true})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"hello", "world"},
		{"it's", "a", "new", "day"},
	}, l.Lines())
}

func TestNormalizeDropsLinesEmptiedByFilters(t *testing.T) {
	l, err := Normalize("...\nfine words\n-- --", Filters{NoPunctuation: true})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"fine", "words"}}, l.Lines())
}

func TestNormalizeEmptyTranscript(t *testing.T) {
	for _, raw := range []string{
		"",
		"[ar:Artist]\n[ti:Title]\n",
		"[00:01.00] ♪\n(instrumental)\n   \n",
	} {
		_, err := Normalize(raw, Filters{})
		require.ErrorIs(t, err, ErrEmptyTranscript, "raw=%q", raw)
	}
}

func TestNormalizeCRLF(t *testing.T) {
	l, err := Normalize("[ti:x]\r\n[00:01.00] one two\r\n", Filters{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"one", "two"}}, l.Lines())
}

func TestNormalizeIsDeterministic(t *testing.T) {
	a, err := Normalize(sampleTranscript, Filters{Lowercase: true})
	require.NoError(t, err)
	b, err := Normalize(sampleTranscript, Filters{Lowercase: true})
	require.NoError(t, err)
	assert.Equal(t, a.Lines(), b.Lines())
}

func TestOffsetsMatchJoinedText(t *testing.T) {
	l, err := Normalize("héllo wörld\nsecond line here\nx", Filters{})
	require.NoError(t, err)

	joined := []rune(l.Text())
	require.Equal(t, len(joined), l.TotalChars())
	require.Equal(t, 0, l.Offset(0))

	for i, w := range l.Words() {
		if i > 0 {
			prev := []rune(l.Word(i - 1))
			assert.Equal(t, l.Offset(i-1)+len(prev)+1, l.Offset(i))
		}
		wr := []rune(w)
		assert.Equal(t, w, string(joined[l.Offset(i):l.Offset(i)+len(wr)]))
	}
}

func TestLineLookup(t *testing.T) {
	l := New([][]string{{"a", "b"}, {}, {"c"}, {"d", "", "e"}})
	assert.Equal(t, 3, l.LineCount())
	assert.Equal(t, []int{0, 0, 1, 2, 2}, []int{l.LineOf(0), l.LineOf(1), l.LineOf(2), l.LineOf(3), l.LineOf(4)})
	assert.Equal(t, 3, l.FirstWord(2))
	assert.Equal(t, strings.Join([]string{"a", "b", "c", "d", "e"}, " "), l.Text())
}
