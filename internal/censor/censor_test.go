package censor

import (
	"strings"
	"testing"
)

func TestEmbeddedDataIsValid(t *testing.T) {
	list, err := LoadWordList(wordsYAML)
	if err != nil {
		t.Fatalf("load word list: %v", err)
	}
	if err := list.Validate(); err != nil {
		t.Fatalf("word list: %v", err)
	}
	glyphs, err := LoadHomoglyphs(homoglyphsYAML)
	if err != nil {
		t.Fatalf("load homoglyphs: %v", err)
	}
	if err := glyphs.Validate(); err != nil {
		t.Fatalf("homoglyphs: %v", err)
	}
	if _, err := Compile(list, glyphs); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if Default().Tiers() != 3 {
		t.Fatalf("expected 3 tiers, got %d", Default().Tiers())
	}
}

func TestCensorNoMatch(t *testing.T) {
	for _, text := range []string{"", "foo", "class", "assessment", "hello there"} {
		if result, ok := Censor(text, 0); ok {
			t.Fatalf("expected no match for %q, got %+v", text, result)
		}
	}
}

func TestCensorMasks(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{name: "long word", text: "fuck", want: "f###"},
		{name: "short word", text: "af", want: "##"},
		{name: "upper case", text: "FUCK", want: "F###"},
		{name: "optional suffix", text: "asshole", want: "a######"},
		{name: "digits", text: "sh1t", want: "s###"},
		{name: "symbols", text: "5h!7", want: "5###"},
		{name: "look-alikes", text: "f\u03c5\u00a2k", want: "f###"},
		{name: "full width", text: "\uff46\uff55\uff43\uff4b", want: "f###"},
		{name: "math bold", text: "\U0001D41F\U0001D42E\U0001D41C\U0001D424", want: "f###"},
		{name: "cyrillic", text: "\u0455h\u0456t", want: "s###"},
		{name: "zero width", text: "sh\u200bit", want: "s###"},
		{name: "diacritics", text: "sh\u00eft", want: "s###"},
		{name: "sentence", text: "fuck this shit", want: "f### this s###"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, ok := Censor(tc.text, 0)
			if !ok {
				t.Fatalf("expected %q to be censored", tc.text)
			}
			if result.Censored != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, result.Censored)
			}
		})
	}
}

func TestCensorStrikes(t *testing.T) {
	cases := []struct {
		text     string
		leniency float64
		tier     int
		strikes  float64
	}{
		{text: "wtf", leniency: 0, tier: 0, strikes: PartialStrikeCount},
		{text: "d1ck", leniency: 0, tier: 1, strikes: 1},
		{text: "kys", leniency: 0, tier: 2, strikes: 2},
		{text: "kys", leniency: 1, tier: 2, strikes: 1},
		{text: "kys", leniency: 5, tier: 2, strikes: PartialStrikeCount},
		{text: "dickhead", leniency: 0, tier: 1, strikes: 1},
	}

	for _, tc := range cases {
		result, ok := Censor(tc.text, tc.leniency)
		if !ok {
			t.Fatalf("expected %q to be censored", tc.text)
		}
		if result.Strikes != tc.strikes {
			t.Fatalf("%q leniency %v: expected %v strikes, got %v", tc.text, tc.leniency, tc.strikes, result.Strikes)
		}
		if len(result.Words[tc.tier]) != 1 || result.Words[tc.tier][0] != tc.text {
			t.Fatalf("%q: expected tier %d match, got %v", tc.text, tc.tier, result.Words)
		}
	}
}

func TestCensorCountsEveryMatch(t *testing.T) {
	result, ok := Censor("fuck this shit", 0)
	if !ok {
		t.Fatalf("expected match")
	}
	if got := strings.Join(result.Words[0], ","); got != "fuck,shit" {
		t.Fatalf("expected fuck,shit, got %s", got)
	}
	if result.Strikes != 2*PartialStrikeCount {
		t.Fatalf("expected %v strikes, got %v", 2*PartialStrikeCount, result.Strikes)
	}
}

func TestCensorPhraseAcrossSeparators(t *testing.T) {
	result, ok := Censor("kill yourself", 0)
	if !ok {
		t.Fatalf("expected match")
	}
	if result.Censored != "k"+strings.Repeat("#", 12) {
		t.Fatalf("unexpected mask %q", result.Censored)
	}

	if _, ok := Censor("kill__yourself", 0); !ok {
		t.Fatalf("expected underscores to count as a separator")
	}
}

func TestCensorTierOrder(t *testing.T) {
	filter := MustCompile(WordList{Tiers: []Tier{
		{Free: []string{"ovg"}},
		{Free: []string{"ovgpu"}},
	}}, nil)

	result, ok := filter.Censor("bitch", 0)
	if !ok {
		t.Fatalf("expected match")
	}
	if result.Censored != "b##ch" {
		t.Fatalf("expected b##ch, got %q", result.Censored)
	}
	if len(result.Words[0]) != 1 || len(result.Words[1]) != 0 {
		t.Fatalf("expected only tier 0 to match, got %v", result.Words)
	}
}

func TestEmptyTierNeverMatches(t *testing.T) {
	filter, err := Compile(WordList{Tiers: []Tier{{}, {Free: []string{"ovgpu"}}}}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, ok := filter.Censor("hello world", 0); ok {
		t.Fatalf("empty tier matched")
	}
	result, ok := filter.Censor("bitch", 0)
	if !ok || result.Strikes != 1 {
		t.Fatalf("expected tier 1 match, got %+v", result)
	}

	empty := MustCompile(WordList{Tiers: []Tier{{}}}, nil)
	if _, ok := empty.Censor("anything", 0); ok {
		t.Fatalf("empty list matched")
	}
}

func TestValidateRejectsBadData(t *testing.T) {
	list := WordList{Tiers: []Tier{{Free: []string{`n\o`}}, {}}}
	if err := list.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	glyphs := HomoglyphMap{'a': "a4"}
	if err := glyphs.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := LoadHomoglyphs([]byte("ab: x\n")); err == nil {
		t.Fatalf("expected key error")
	}
}
