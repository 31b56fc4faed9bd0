// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"strings"

	"github.com/pdiddy/bibextract/internal/dedup"
	"github.com/pdiddy/bibextract/pkg/types"
)

// Confident reports whether cand describes the same work as entry: equal
// folded titles and a shared-surname ratio, over the smaller author set, of
// at least overlap. A candidate found by identifier may also have a title
// that contains or is contained in the entry's, and matches any entry
// without a title. Author checks are skipped when either side has none.
func Confident(entry, cand types.BibEntry, byIdentifier bool, overlap float64) bool {
	et := dedup.Fold(entry.Get(types.FieldTitle))
	ct := dedup.Fold(cand.Get(types.FieldTitle))

	titleOK := et != "" && et == ct
	if !titleOK && byIdentifier {
		titleOK = et == "" || (ct != "" && (strings.Contains(et, ct) || strings.Contains(ct, et)))
	}
	if !titleOK {
		return false
	}
	return AuthorOverlap(entry, cand) >= overlap
}

// AuthorOverlap is the number of shared surnames divided by the size of the
// smaller surname set. It is 1 when either record lists no authors.
func AuthorOverlap(a, b types.BibEntry) float64 {
	as := dedup.Surnames(dedup.ParseAuthors(a.Get(types.FieldAuthor)))
	bs := dedup.Surnames(dedup.ParseAuthors(b.Get(types.FieldAuthor)))
	if len(as) == 0 || len(bs) == 0 {
		return 1
	}
	return float64(dedup.SharedCount(as, bs)) / float64(min(len(as), len(bs)))
}
