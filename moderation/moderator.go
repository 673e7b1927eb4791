// Package moderation censors blacklisted words in chat text before it is
// persisted or broadcast. Matching ignores case, spacing, and punctuation;
// replacement happens in place so spacing is preserved.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator wraps an Aho-Corasick automaton built once from the word lists.
// Censor is safe for concurrent use; the automaton is read-only after Build.
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// mapping relates the normalized search text back to rune positions in the
// original input.
type mapping struct {
	normalized []rune
	origIdx    []int
}

func NewModerator(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalizeRunes([]rune(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, replacement: replacement}, nil
}

// Censor replaces every character of a matched word with the replacement
// rune. Unmatched input is returned unchanged.
func (m *Moderator) Censor(original string) string {
	mapped := normalize(original)
	if len(mapped.normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(mapped.normalized, false)
	if len(spans) == 0 {
		return original
	}

	origRunes := []rune(original)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapped.origIdx) {
			continue
		}
		for i := mapped.origIdx[start]; i <= mapped.origIdx[end-1]; i++ {
			origRunes[i] = m.replacement
		}
	}
	return string(origRunes)
}

// normalize lowercases the input and strips spacing/punctuation while
// recording where each kept rune came from.
func normalize(input string) mapping {
	origRunes := []rune(input)
	out := mapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		if isNoise(r) {
			continue
		}
		out.normalized = append(out.normalized, unicode.ToLower(r))
		out.origIdx = append(out.origIdx, i)
	}
	return out
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if isNoise(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

func isNoise(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}
