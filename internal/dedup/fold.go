// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/bibextract/internal/extract"
)

// accentMarks maps LaTeX accent commands to Unicode combining marks.
var accentMarks = map[string]rune{
	`"`: '\u0308', `'`: '\u0301', "`": '\u0300', `^`: '\u0302', `~`: '\u0303',
	`=`: '\u0304', `.`: '\u0307', `c`: '\u0327', `v`: '\u030C', `u`: '\u0306',
	`H`: '\u030B', `k`: '\u0328', `r`: '\u030A',
}

var (
	// accentRe matches \"o, \"{o}, \'{e}, \c{c}, \v s and similar.
	accentRe = regexp.MustCompile(`\\(["'^~` + "`" + `=.])\s*(?:\{\s*([A-Za-z])\s*\}|([A-Za-z]))|\\([cvuHkr])(?:\s*\{\s*([A-Za-z])\s*\}|\s+([A-Za-z]))`)

	// strayAccentRe matches accent commands left without a plain letter.
	strayAccentRe = regexp.MustCompile(`\\["'^~` + "`" + `=.]`)

	// letterRe matches the special-letter commands (\ss, \o, \ae, ...).
	letterRe = regexp.MustCompile(`\\(ss|ae|AE|oe|OE|aa|AA|o|O|l|L|i|j)\b`)
)

// plain removes LaTeX markup and turns accent commands into accented
// letters, leaving readable text.
func plain(s string) string {
	s = accentRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := accentRe.FindStringSubmatch(m)
		mark := sub[1] + sub[4]
		letter := sub[2] + sub[3] + sub[5] + sub[6]
		return norm.NFC.String(letter + string(accentMarks[mark]))
	})
	s = strayAccentRe.ReplaceAllString(s, "")
	s = letterRe.ReplaceAllString(s, "$1")
	return extract.CleanText(s)
}

// Fold reduces s to its comparison form: markup and diacritics removed,
// lower case, punctuation turned into spaces, whitespace collapsed.
func Fold(s string) string {
	s = plain(s)
	if folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
