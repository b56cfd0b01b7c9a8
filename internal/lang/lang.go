// Package lang describes the supported target languages and the character
// classes used to tell them apart.
package lang

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Language is a normalized target language code.
type Language string

const (
	Korean  Language = "ko"
	English Language = "en"
	Chinese Language = "zh"
)

// ErrUnsupported is returned for codes outside the supported set.
var ErrUnsupported = errors.New("unsupported target language")

// Supported lists the accepted languages in display order.
var Supported = []Language{Korean, English, Chinese}

// Normalize maps user-supplied codes such as "ko-KR", "en_GB" or "zh-Hant"
// onto a supported Language.
func Normalize(code string) (Language, error) {
	c := strings.TrimSpace(code)
	if c == "" {
		return "", fmt.Errorf("%w: empty code (supported: %s)", ErrUnsupported, supportedList())
	}
	tag, err := language.Parse(strings.ReplaceAll(c, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupported, code, supportedList())
	}
	base, _ := tag.Base()
	switch base.String() {
	case "ko":
		return Korean, nil
	case "en":
		return English, nil
	case "zh":
		return Chinese, nil
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupported, code, supportedList())
}

func supportedList() string {
	parts := make([]string, len(Supported))
	for i, l := range Supported {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}

// Name returns the English language name used in prompts.
func (l Language) Name() string {
	switch l {
	case Korean:
		return "Korean"
	case English:
		return "English"
	case Chinese:
		return "Simplified Chinese"
	}
	return string(l)
}

// IsHangul reports whether r is a precomposed Hangul syllable.
func IsHangul(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

// IsHan reports whether r is a CJK ideograph.
func IsHan(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// IsLatinLetter reports whether r is an ASCII letter.
func IsLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Owns reports whether r belongs to the script of l.
func (l Language) Owns(r rune) bool {
	switch l {
	case Korean:
		return IsHangul(r)
	case Chinese:
		return IsHan(r)
	case English:
		return IsLatinLetter(r)
	}
	return false
}

// Count returns how many runes of s belong to l's script.
func (l Language) Count(s string) int {
	n := 0
	for _, r := range s {
		if l.Owns(r) {
			n++
		}
	}
	return n
}

// LeakScript is the script most likely to leak into output for l: a
// Korean or English request that comes back in Han characters.
func (l Language) LeakScript() (Language, bool) {
	switch l {
	case Korean, English:
		return Chinese, true
	}
	return "", false
}
