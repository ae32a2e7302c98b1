package content

import "strings"

// Entry is one reusable vocabulary unit: a word, the sound being trained,
// and the media used to present it.
type Entry struct {
	ID          string
	Word        string
	Highlight   string   // contiguous part of Word carrying the target sound; may be empty
	Phoneme     string   // canonical label of the correct sound ("sj", "tj", ...)
	Distractors []string // wrong options offered alongside Phoneme
	Image       string   // emoji glyph or opaque image payload reference
	IsImageFile bool     // discriminates the two Image interpretations
	Audio       []byte   // recorded clip; nil means no audio yet
	Category    string
	Language    string // BCP-47 tag, e.g. "sv-SE"
}

// HasAudio reports whether the entry carries a recorded clip.
func (e *Entry) HasAudio() bool {
	return len(e.Audio) > 0
}

// CleanWord returns the word with bracket markers stripped, as shown to the
// player and as compared against spelling guesses.
func (e *Entry) CleanWord() string {
	return StripBrackets(e.Word)
}

// StripBrackets removes the [ ] markers used to annotate the target sound.
func StripBrackets(word string) string {
	word = strings.ReplaceAll(word, "[", "")
	word = strings.ReplaceAll(word, "]", "")
	return strings.TrimSpace(word)
}

// Parsed is a word split around its bracketed target sound.
type Parsed struct {
	FullWord  string
	Prefix    string
	Highlight string
	Suffix    string
}

// ParseBracketed splits an authored word string around its bracket markers.
// "Du[sch]" yields prefix "Du", highlight "sch", empty suffix. Input without
// brackets falls back to the whole word with an empty highlight.
func ParseBracketed(input string) Parsed {
	open := strings.Index(input, "[")
	if open >= 0 {
		if close := strings.Index(input[open+1:], "]"); close >= 0 {
			prefix := input[:open]
			highlight := input[open+1 : open+1+close]
			suffix := input[open+2+close:]
			return Parsed{
				FullWord:  prefix + highlight + suffix,
				Prefix:    prefix,
				Highlight: highlight,
				Suffix:    suffix,
			}
		}
	}
	return Parsed{FullWord: input, Prefix: input}
}

// normalizeDistractors deduplicates the list and drops the target phoneme so
// an entry can never offer its own answer as a wrong option.
func normalizeDistractors(distractors []string, phoneme string) []string {
	seen := make(map[string]struct{}, len(distractors))
	out := make([]string, 0, len(distractors))
	for _, d := range distractors {
		if d == "" || d == phoneme {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
