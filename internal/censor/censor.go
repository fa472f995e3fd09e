// Package censor detects banned words in user text, including spellings
// disguised with look-alike characters, and scores them by severity tier.
package censor

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// PartialStrikeCount is the least a single match can weigh, whatever the leniency.
const PartialStrikeCount = 0.25

// Result describes one censored text. Words[i] lists the raw matches of tier i.
type Result struct {
	Censored string
	Strikes  float64
	Words    [][]string
}

// Filter holds one compiled matcher per tier. A nil matcher never matches.
type Filter struct {
	tiers []*regexp.Regexp
}

var defaultFilter = sync.OnceValue(func() *Filter {
	list, err := LoadWordList(wordsYAML)
	if err != nil {
		panic(err)
	}
	glyphs, err := LoadHomoglyphs(homoglyphsYAML)
	if err != nil {
		panic(err)
	}
	return MustCompile(list, glyphs)
})

// Default returns the filter built from the embedded word list.
func Default() *Filter {
	return defaultFilter()
}

// Censor runs the embedded word list over text.
func Censor(text string, leniency float64) (Result, bool) {
	return defaultFilter().Censor(text, leniency)
}

// Compile builds one matcher per tier of list, expanding letters with glyphs.
func Compile(list WordList, glyphs HomoglyphMap) (*Filter, error) {
	filter := &Filter{tiers: make([]*regexp.Regexp, len(list.Tiers))}
	for i, tier := range list.Tiers {
		re, err := compileTier(tier, glyphs)
		if err != nil {
			return nil, fmt.Errorf("tier %d: %w", i, err)
		}
		filter.tiers[i] = re
	}
	return filter, nil
}

// MustCompile is like Compile but panics on an invalid pattern.
func MustCompile(list WordList, glyphs HomoglyphMap) *Filter {
	filter, err := Compile(list, glyphs)
	if err != nil {
		panic(err)
	}
	return filter
}

// Tiers returns the number of severity tiers.
func (f *Filter) Tiers() int {
	return len(f.tiers)
}

// Censor normalizes text and masks every banned word, tier by tier. Each tier
// scans the output of the previous one. It reports false when nothing matched.
func (f *Filter) Censor(text string, leniency float64) (Result, bool) {
	censored := Normalize(text)
	if censored == "" {
		return Result{}, false
	}

	words := make([][]string, len(f.tiers))
	matched := false
	for i, re := range f.tiers {
		words[i] = []string{}
		if re == nil {
			continue
		}
		censored = re.ReplaceAllStringFunc(censored, func(word string) string {
			words[i] = append(words[i], word)
			matched = true
			return mask(word)
		})
	}
	if !matched {
		return Result{}, false
	}

	strikes := 0.0
	for i, found := range words {
		strikes += float64(len(found)) * math.Max(float64(i)-leniency, PartialStrikeCount)
	}
	return Result{Censored: censored, Strikes: strikes, Words: words}, true
}

func mask(word string) string {
	n := utf8.RuneCountInString(word)
	if n < 3 {
		return strings.Repeat("#", n)
	}
	first, _ := utf8.DecodeRuneInString(word)
	return string(first) + strings.Repeat("#", n-1)
}

func compileTier(tier Tier, glyphs HomoglyphMap) (*regexp.Regexp, error) {
	var parts []string
	if len(tier.Free) > 0 {
		parts = append(parts, "(?:"+decodeAll(tier.Free, glyphs)+")")
	}
	if len(tier.Bounded) > 0 {
		parts = append(parts, `\b(?:`+decodeAll(tier.Bounded, glyphs)+`)\b`)
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return regexp.Compile("(?i)" + strings.Join(parts, "|"))
}

func decodeAll(patterns []string, glyphs HomoglyphMap) string {
	decoded := make([]string, len(patterns))
	for i, pattern := range patterns {
		decoded[i] = expand(rot13(pattern), glyphs)
	}
	return strings.Join(decoded, "|")
}

func rot13(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return 'a' + (r-'a'+13)%26
		case r >= 'A' && r <= 'Z':
			return 'A' + (r-'A'+13)%26
		}
		return r
	}, s)
}

// expand turns every letter into a class of its look-alikes. Letters already
// inside a bracket expression get the look-alikes appended in place.
func expand(pattern string, glyphs HomoglyphMap) string {
	var b strings.Builder
	inClass := false
	for _, r := range pattern {
		switch {
		case r == '[':
			inClass = true
			b.WriteRune(r)
		case r == ']':
			inClass = false
			b.WriteRune(r)
		case r == ' ' && !inClass:
			b.WriteString(`[\W_]+`)
		case r < utf8.RuneSelf && unicode.IsLetter(r):
			letter := unicode.ToLower(r)
			if !inClass {
				b.WriteByte('[')
			}
			b.WriteRune(letter)
			writeGlyphs(&b, glyphs[letter])
			if !inClass {
				b.WriteByte(']')
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func writeGlyphs(b *strings.Builder, glyphs string) {
	for _, g := range glyphs {
		if g < utf8.RuneSelf && !unicode.IsLetter(g) && !unicode.IsDigit(g) {
			b.WriteByte('\\')
		}
		b.WriteRune(g)
	}
}
