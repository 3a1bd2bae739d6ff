// Package moderation censors forbidden words before a message is handed to a channel.
package moderation

import (
	"chat-broadcast/errors"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type IModerator interface {
	Censor(original string) (string, []string)
}

// Moderator masks dictionary words in chat texts. Matching ignores case,
// punctuation and spacing, so "B.A.D.G.E.R" is caught like "badger".
type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// lookalikes folds digits and symbols commonly typed in place of letters.
var lookalikes = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

// NewModerator builds the matcher from words. Words made only of
// punctuation are skipped, ErrEmptyWords is returned when nothing is left.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	var patterns [][]rune
	for _, word := range words {
		if folded, _ := fold(word); len(folded) > 0 {
			patterns = append(patterns, folded)
		}
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, replacement: replacement}, nil
}

// Censor replaces every rune of a matched word, including the noise in
// between, and keeps the rest of the text untouched. Found words are
// returned folded, in order of appearance.
func (m *Moderator) Censor(text string) (string, []string) {
	folded, positions := fold(text)
	if len(folded) == 0 {
		return text, nil
	}
	hits := m.machine.MultiPatternSearch(folded, false)
	if len(hits) == 0 {
		return text, nil
	}

	out := []rune(text)
	found := make([]string, 0, len(hits))
	for _, hit := range hits {
		last := hit.Pos + len(hit.Word) - 1
		if hit.Pos < 0 || last >= len(positions) {
			continue
		}
		for i := positions[hit.Pos]; i <= positions[last]; i++ {
			out[i] = m.replacement
		}
		found = append(found, string(hit.Word))
	}
	return string(out), found
}

// fold lowercases s, maps lookalikes to letters and drops punctuation,
// spaces and symbols. positions[i] is the rune index in s of folded[i].
func fold(s string) (folded []rune, positions []int) {
	for i, r := range []rune(s) {
		if l, ok := lookalikes[r]; ok {
			r = l
		}
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, unicode.ToLower(r))
		positions = append(positions, i)
	}
	return folded, positions
}
