// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/bibextract/internal/dedup"
	"github.com/pdiddy/bibextract/pkg/types"
)

// dblpSearchBase is the DBLP publication search endpoint. Declared as a var
// so tests can substitute an httptest server.
var dblpSearchBase = "https://dblp.org/search/publ/api"

// dblpHits bounds the hits requested per title search.
const dblpHits = 10

// dblpMinScore is the lowest hit score accepted as a candidate.
const dblpMinScore = 2

// dblpHomonymRe matches the numeric suffix DBLP appends to homonymous
// author names ("Jian Li 0001").
var dblpHomonymRe = regexp.MustCompile(`\s+\d{4}$`)

// DBLPSource searches DBLP by title and keeps the best-scoring hit.
type DBLPSource struct {
	httpSource
}

// Name returns the source identifier.
func (s *DBLPSource) Name() string { return types.SourceDBLP }

// Lookup searches DBLP for the entry's title. Hits are scored against the
// entry (year +1; exact title +3, containment +2, more than two shared
// words +1) and the best hit scoring at least 2 is the candidate.
func (s *DBLPSource) Lookup(ctx context.Context, entry types.BibEntry) ([]Candidate, error) {
	title := entry.Get(types.FieldTitle)
	if title == "" {
		return nil, nil
	}
	params := url.Values{
		"q":      {dedup.Fold(title)},
		"format": {"json"},
		"h":      {strconv.Itoa(dblpHits)},
	}
	data, err := s.get(ctx, "dblp", dblpSearchBase+"?"+params.Encode())
	if err != nil || data == nil {
		return nil, err
	}

	var best *types.BibEntry
	bestScore := 0
	gjson.GetBytes(data, "result.hits.hit").ForEach(func(_, hit gjson.Result) bool {
		cand := dblpEntry(hit.Get("info"))
		if sc := dblpScore(entry, cand); sc > bestScore {
			best, bestScore = &cand, sc
		}
		return true
	})
	if best == nil || bestScore < dblpMinScore {
		return nil, nil
	}
	return []Candidate{{Entry: *best}}, nil
}

func dblpEntry(info gjson.Result) types.BibEntry {
	e := types.BibEntry{Type: "misc", Key: info.Get("key").String(), Fields: make(map[string]string)}
	e.Set(types.FieldTitle, strings.TrimSuffix(strings.TrimSpace(info.Get("title").String()), "."))

	// A single author is an object, several are an array.
	var authors []string
	addAuthor := func(a gjson.Result) {
		name := a.Get("text").String()
		if name == "" {
			name = a.String()
		}
		if name = dblpHomonymRe.ReplaceAllString(strings.TrimSpace(name), ""); name != "" {
			authors = append(authors, name)
		}
	}
	if list := info.Get("authors.author"); list.IsArray() {
		for _, a := range list.Array() {
			addAuthor(a)
		}
	} else if list.Exists() {
		addAuthor(list)
	}
	e.Set(types.FieldAuthor, strings.Join(authors, " and "))

	venue := info.Get("venue").String()
	switch info.Get("type").String() {
	case "Journal Articles":
		e.Type = "article"
		e.Set(types.FieldJournal, venue)
	case "Conference and Workshop Papers":
		e.Type = "inproceedings"
		e.Set(types.FieldBooktitle, venue)
	case "Informal and Other Publications", "Informal Publications":
		e.Set(types.FieldVenue, venue)
	}
	e.Set(types.FieldYear, info.Get("year").String())
	e.Set(types.FieldVolume, info.Get("volume").String())
	e.Set(types.FieldPages, info.Get("pages").String())
	e.Set(types.FieldDOI, info.Get("doi").String())
	return e
}

// dblpScore rates how well a DBLP hit fits the entry.
func dblpScore(entry, hit types.BibEntry) int {
	score := 0
	if y := entry.Get(types.FieldYear); y != "" && y == hit.Get(types.FieldYear) {
		score++
	}
	et := dedup.Fold(entry.Get(types.FieldTitle))
	ht := dedup.Fold(hit.Get(types.FieldTitle))
	switch {
	case et == "" || ht == "":
	case et == ht:
		score += 3
	case strings.Contains(ht, et) || strings.Contains(et, ht):
		score += 2
	default:
		if sharedWords(et, ht) > 2 {
			score++
		}
	}
	return score
}

func sharedWords(a, b string) int {
	words := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		words[w] = true
	}
	n := 0
	for _, w := range strings.Fields(b) {
		if words[w] {
			n++
			delete(words, w)
		}
	}
	return n
}
