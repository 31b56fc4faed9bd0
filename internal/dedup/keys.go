// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/pdiddy/bibextract/pkg/types"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// CitationKey builds the canonical key of an entry: the first author's
// surname, the first three title words longer than three characters, and
// the year, lower-cased and joined with underscores.
func CitationKey(e types.BibEntry) string {
	var parts []string

	surname := "anonymous"
	if authors := ParseAuthors(e.Get(types.FieldAuthor)); len(authors) > 0 {
		if s := Fold(authors[0].Surname); s != "" {
			surname = strings.ReplaceAll(s, " ", "")
		}
	}
	parts = append(parts, surname)

	words := 0
	for _, w := range strings.Fields(Fold(e.Get(types.FieldTitle))) {
		if words == 3 {
			break
		}
		if len([]rune(w)) > 3 {
			parts = append(parts, w)
			words++
		}
	}
	if y := e.Get(types.FieldYear); y != "" {
		parts = append(parts, y)
	}

	key := nonAlnumRe.ReplaceAllString(strings.ToLower(strings.Join(parts, "_")), "_")
	return strings.Trim(key, "_")
}

// assignKeys sets the canonical key of every entry. Entries whose keys
// collide are ordered by title then year and get letter suffixes
// (smith_graph_2017a, smith_graph_2017b).
func assignKeys(entries []types.CanonicalBibEntry) {
	byKey := make(map[string][]int)
	var bases []string
	for i := range entries {
		k := CitationKey(entries[i].BibEntry)
		if _, ok := byKey[k]; !ok {
			bases = append(bases, k)
		}
		byKey[k] = append(byKey[k], i)
	}
	slices.Sort(bases)

	used := make(map[string]bool, len(entries))
	for _, b := range bases {
		if len(byKey[b]) == 1 {
			used[b] = true
		}
	}
	for _, b := range bases {
		idx := byKey[b]
		if len(idx) == 1 {
			entries[idx[0]].Key = b
			continue
		}
		slices.SortStableFunc(idx, func(x, y int) int {
			ex, ey := &entries[x], &entries[y]
			return cmp.Or(
				cmp.Compare(Fold(ex.Get(types.FieldTitle)), Fold(ey.Get(types.FieldTitle))),
				cmp.Compare(ex.Get(types.FieldYear), ey.Get(types.FieldYear)),
				cmp.Compare(firstRef(ex), firstRef(ey)),
			)
		})
		n := 0
		for _, i := range idx {
			k := b + suffix(n)
			for used[k] {
				n++
				k = b + suffix(n)
			}
			used[k] = true
			entries[i].Key = k
			n++
		}
	}
}

func firstRef(c *types.CanonicalBibEntry) string {
	if len(c.Aliases) == 0 {
		return ""
	}
	return c.Aliases[0].PaperID + "\x00" + c.Aliases[0].Key
}

// suffix returns a, b, ..., z, aa, ab, ...
func suffix(n int) string {
	s := ""
	for {
		s = string(rune('a'+n%26)) + s
		n = n/26 - 1
		if n < 0 {
			return s
		}
	}
}
