// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Author is one parsed author name.
type Author struct {
	Given   string
	Surname string
}

// String renders the name as "Surname, Given", or the surname alone.
func (a Author) String() string {
	if a.Given == "" {
		return a.Surname
	}
	return a.Surname + ", " + a.Given
}

var (
	andRe    = regexp.MustCompile(`(?i)\s+and\s+`)
	etAlRe   = regexp.MustCompile(`(?i)\bet\.?\s+al\b\.?`)
	suffixRe = regexp.MustCompile(`(?i)^(?:jr|sr|ii|iii|iv)\.?$`)
)

// ParseAuthors splits an author field into names. It understands the BibTeX
// form ("Vaswani, Ashish and Shazeer, Noam") and the typeset list form of
// .bbl files ("Ashish Vaswani, Noam Shazeer, and Niki Parmar"). "et al."
// and "others" are dropped.
func ParseAuthors(field string) []Author {
	text := strings.TrimSpace(etAlRe.ReplaceAllString(plain(field), " "))
	if text == "" {
		return nil
	}

	parts := lo.Filter(andRe.Split(text, -1), func(p string, _ int) bool {
		return strings.TrimSpace(p) != ""
	})
	listForm := lo.SomeBy(parts, func(p string) bool {
		p = strings.TrimSpace(p)
		return strings.HasSuffix(p, ",") || (strings.Count(p, ",") >= 2 && !hasNameSuffix(p))
	})

	var names []string
	for _, p := range parts {
		if listForm {
			names = append(names, strings.Split(p, ",")...)
		} else {
			names = append(names, p)
		}
	}

	var authors []Author
	for _, n := range names {
		n = trimName(n)
		if n == "" || strings.EqualFold(n, "others") {
			continue
		}
		authors = append(authors, parseName(n))
	}
	return authors
}

// trimName drops trailing punctuation, keeping the period of a final initial.
func trimName(n string) string {
	n = strings.TrimRight(strings.TrimSpace(n), ";,")
	base := strings.TrimSuffix(n, ".")
	if i := strings.LastIndexAny(base, " ,"); len([]rune(base[i+1:])) > 1 {
		return strings.TrimSpace(base)
	}
	return n
}

func hasNameSuffix(p string) bool {
	fields := strings.Split(p, ",")
	return len(fields) == 3 && suffixRe.MatchString(strings.TrimSpace(fields[1]))
}

// parseName reads "Surname, Given", "Surname, Jr., Given" or "Given von Surname".
func parseName(n string) Author {
	if fields := strings.Split(n, ","); len(fields) > 1 {
		surname := strings.TrimSpace(fields[0])
		given := strings.TrimSpace(fields[len(fields)-1])
		if len(fields) == 3 {
			surname += " " + strings.TrimSpace(fields[1])
		}
		return Author{Given: given, Surname: surname}
	}

	words := strings.Fields(n)
	if len(words) == 1 {
		return Author{Surname: words[0]}
	}
	// Lower-case particles ("van", "de", "von der") belong to the surname.
	cut := len(words) - 1
	for cut > 1 && isParticle(words[cut-1]) {
		cut--
	}
	return Author{
		Given:   strings.Join(words[:cut], " "),
		Surname: strings.Join(words[cut:], " "),
	}
}

func isParticle(w string) bool {
	return w != "" && strings.ToLower(w) == w && w[0] >= 'a' && w[0] <= 'z'
}

// FormatAuthors joins names in BibTeX form.
func FormatAuthors(authors []Author) string {
	return strings.Join(lo.Map(authors, func(a Author, _ int) string { return a.String() }), " and ")
}

// Surnames returns the folded comparison form of each author's surname. Only
// the last surname word is kept so "van der Berg" and "Berg" agree.
func Surnames(authors []Author) []string {
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		words := strings.Fields(Fold(a.Surname))
		if len(words) == 0 {
			continue
		}
		out = append(out, words[len(words)-1])
	}
	return lo.Uniq(out)
}

// SharedCount counts the surnames present in both sets.
func SharedCount(a, b []string) int {
	return lo.CountBy(a, func(s string) bool { return lo.Contains(b, s) })
}
