package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountSyllables(t *testing.T) {
	cases := map[string]int{
		"cat":       1,
		"window":    2,
		"beautiful": 3,
		"table":     2,
		"make":      1,
		"a":         1,
		"":          1,
	}

	for word, expected := range cases {
		require.Equal(t, expected, countSyllables(word), "word %q", word)
	}
}

func TestCountSentences(t *testing.T) {
	require.Equal(t, 0, countSentences(""))
	require.Equal(t, 1, countSentences("No terminal punctuation"))
	require.Equal(t, 2, countSentences("First one. Second one!"))
	require.Equal(t, 2, countSentences("Wait... what"))
}

func TestFleschReadingEase(t *testing.T) {
	_, ok := fleschReadingEase("   ")
	require.False(t, ok)

	simple, ok := fleschReadingEase("The cat sat on the mat. The dog ran fast.")
	require.True(t, ok)

	dense, ok := fleschReadingEase("Notwithstanding considerable organizational complexity, interdisciplinary collaboration facilitates extraordinary institutional transformation.")
	require.True(t, ok)

	require.Greater(t, simple, dense)
}
