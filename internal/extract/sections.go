// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pdiddy/bibextract/pkg/types"
)

// headingRe matches a sectioning command and its optional star.
var headingRe = regexp.MustCompile(`\\(part|chapter|section|subsection|subsubsection|paragraph)\b\*?`)

// terminatorRe matches the points where the survey prose ends: the
// bibliography and the appendix.
var terminatorRe = regexp.MustCompile(`\\(?:bibliography\s*\{|printbibliography\b|begin\s*\{thebibliography\}|appendix\b)`)

var headingLevels = map[string]int{
	"part":          -1,
	"chapter":       0,
	"section":       1,
	"subsection":    2,
	"subsubsection": 3,
	"paragraph":     4,
}

type heading struct {
	start     int // offset of the backslash
	bodyStart int // offset just past the closing brace of the title
	level     int
	title     string
}

// FindSections returns the sections of text whose headings match a target,
// ordered by position and never overlapping. targets must already be
// normalized with NormalizeTitle. Scanning is confined to the document
// environment when text has one.
func FindSections(text string, targets []string) []types.ExtractedSection {
	lo, hi := documentBody(text)
	headings := findHeadings(text, lo, hi)
	terminators := terminatorRe.FindAllStringIndex(text[lo:hi], -1)

	var sections []types.ExtractedSection
	covered := -1
	for i, h := range headings {
		if h.start < covered || !matchesTarget(h.title, targets) {
			continue
		}

		end := hi
		for _, next := range headings[i+1:] {
			if next.level <= h.level {
				end = next.start
				break
			}
		}
		for _, t := range terminators {
			if pos := lo + t[0]; pos > h.start && pos < end {
				end = pos
				break
			}
		}

		sections = append(sections, types.ExtractedSection{
			Title: CleanText(h.title),
			Level: h.level,
			Start: h.start,
			End:   end,
			Text:  strings.TrimSpace(text[h.bodyStart:end]),
		})
		covered = end
	}
	return sections
}

// documentBody returns the bounds of the document environment, or the whole
// text when it has none.
func documentBody(text string) (int, int) {
	lo, hi := 0, len(text)
	if i := strings.Index(text, `\begin{document}`); i >= 0 {
		lo = i + len(`\begin{document}`)
	}
	if i := strings.LastIndex(text, `\end{document}`); i >= lo {
		hi = i
	}
	return lo, hi
}

func findHeadings(text string, lo, hi int) []heading {
	var out []heading
	for _, m := range headingRe.FindAllStringSubmatchIndex(text[lo:hi], -1) {
		start, pos := lo+m[0], lo+m[1]
		pos = skipSpace(text, pos)
		if pos < hi && text[pos] == '[' {
			closing := matchDelim(text, pos, '[', ']')
			if closing < 0 {
				continue
			}
			pos = skipSpace(text, closing+1)
		}
		if pos >= hi || text[pos] != '{' {
			continue
		}
		closing := matchDelim(text, pos, '{', '}')
		if closing < 0 || closing >= hi {
			continue
		}
		out = append(out, heading{
			start:     start,
			bodyStart: closing + 1,
			level:     headingLevels[text[lo+m[2]:lo+m[3]]],
			title:     text[pos+1 : closing],
		})
	}
	return out
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// matchDelim returns the index of the delimiter closing the one at s[open],
// honoring nesting and backslash escapes, or -1.
func matchDelim(s string, open int, left, right byte) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case left:
			depth++
		case right:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchesTarget reports whether a target phrase starts at a word boundary of
// the normalized title. The last word may continue, so "related works"
// matches "related work" while "unrelated work" does not.
func matchesTarget(title string, targets []string) bool {
	norm := " " + NormalizeTitle(title)
	for _, t := range targets {
		if strings.Contains(norm, " "+t) {
			return true
		}
	}
	return false
}

// commandRe matches a control word such as \textbf or \emph*.
var commandRe = regexp.MustCompile(`\\[a-zA-Z]+\*?`)

// NormalizeTitle folds a heading for matching: markup removed, lower-cased,
// punctuation turned into spaces and whitespace collapsed.
func NormalizeTitle(title string) string {
	s := strings.ToLower(CleanText(title))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// noteRe matches commands whose argument is not part of the visible text.
var noteRe = regexp.MustCompile(`\\(?:thanks|footnote|footnotemark|label|inst|IEEEauthorrefmark|orcidID|email)\s*(?:\[[^\]]*\])?\s*\{`)

// CleanText removes LaTeX markup from a short fragment such as a heading or
// author list: note-like commands are dropped with their argument, other
// commands keep their argument text, and whitespace is collapsed.
func CleanText(s string) string {
	for {
		loc := noteRe.FindStringIndex(s)
		if loc == nil {
			break
		}
		closing := matchDelim(s, loc[1]-1, '{', '}')
		if closing < 0 {
			s = s[:loc[0]]
			break
		}
		s = s[:loc[0]] + s[closing+1:]
	}
	s = strings.ReplaceAll(s, `\\`, " ")
	s = strings.ReplaceAll(s, `\&`, "&")
	s = strings.ReplaceAll(s, `\%`, "%")
	s = commandRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer("{", "", "}", "", "~", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
