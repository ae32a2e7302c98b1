package session

import (
	"fmt"
	"math/rand"

	"github.com/mlindgren/uttala/internal/content"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(7))
}

func testOptions() Options {
	return Options{Rand: testRNG()}
}

// makeEntries builds n entries sharing one phoneme label, each with a tiny
// distinct audio clip.
func makeEntries(n int, phoneme string) []content.Entry {
	out := make([]content.Entry, n)
	for i := range out {
		out[i] = content.Entry{
			ID:       fmt.Sprintf("w%02d", i),
			Word:     fmt.Sprintf("ord%02d", i),
			Phoneme:  phoneme,
			Audio:    []byte{byte(i + 1)},
			Language: "sv-SE",
		}
	}
	return out
}
