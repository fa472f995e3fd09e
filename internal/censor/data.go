package censor

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed data/words.yaml
var wordsYAML []byte

//go:embed data/homoglyphs.yaml
var homoglyphsYAML []byte

// Tier holds the rot13 encoded patterns of one severity level.
type Tier struct {
	Free    []string `yaml:"free"`
	Bounded []string `yaml:"bounded"`
}

// WordList is ordered from the mildest tier to the most severe.
type WordList struct {
	Tiers []Tier `yaml:"tiers"`
}

// HomoglyphMap maps a lowercase ASCII letter to the runes that may stand in for it.
type HomoglyphMap map[rune]string

// LoadWordList decodes a YAML word list. Patterns stay rot13 encoded.
func LoadWordList(data []byte) (WordList, error) {
	var list WordList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return WordList{}, fmt.Errorf("decode word list: %w", err)
	}
	return list, nil
}

// LoadHomoglyphs decodes a YAML letter to look-alikes table.
func LoadHomoglyphs(data []byte) (HomoglyphMap, error) {
	raw := make(map[string]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode homoglyphs: %w", err)
	}
	glyphs := make(HomoglyphMap, len(raw))
	for key, value := range raw {
		letter, size := utf8.DecodeRuneInString(key)
		if size != len(key) || letter < 'a' || letter > 'z' {
			return nil, fmt.Errorf("homoglyph key %q is not a lowercase letter", key)
		}
		glyphs[letter] = value
	}
	return glyphs, nil
}

// Validate reports tiers without patterns and patterns using unsupported syntax.
func (l WordList) Validate() error {
	if len(l.Tiers) == 0 {
		return errors.New("word list has no tiers")
	}
	var problems []string
	for i, tier := range l.Tiers {
		if len(tier.Free) == 0 && len(tier.Bounded) == 0 {
			problems = append(problems, fmt.Sprintf("tier %d is empty", i))
		}
		for _, pattern := range append(append([]string{}, tier.Free...), tier.Bounded...) {
			if pattern == "" {
				problems = append(problems, fmt.Sprintf("tier %d has an empty pattern", i))
				continue
			}
			if strings.ContainsAny(pattern, `\^$`) || strings.Contains(pattern, "(?") {
				problems = append(problems, fmt.Sprintf("tier %d pattern %q uses escapes, anchors or flags", i, pattern))
			}
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (m HomoglyphMap) Validate() error {
	var problems []string
	for letter := 'a'; letter <= 'z'; letter++ {
		glyphs, ok := m[letter]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing letter %c", letter))
			continue
		}
		if strings.ContainsRune(glyphs, letter) || strings.ContainsRune(glyphs, letter-'a'+'A') {
			problems = append(problems, fmt.Sprintf("letter %c lists itself", letter))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
