// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup normalizes bibliography records from many papers and merges
// the ones that describe the same work into canonical entries.
package dedup

import (
	"cmp"
	"slices"

	"github.com/pdiddy/bibextract/pkg/types"
)

// Result holds the canonical entries, ordered by key, and the alias map from
// each original record to the key of the entry it was merged into.
type Result struct {
	Entries []types.CanonicalBibEntry
	Aliases map[types.EntryRef]string
}

// Lookup returns the canonical key for a paper's original citation key.
func (r *Result) Lookup(paperID, key string) (string, bool) {
	k, ok := r.Aliases[types.EntryRef{PaperID: paperID, Key: key}]
	return k, ok
}

// PaperKeys returns the original-to-canonical key map of one paper.
func (r *Result) PaperKeys(paperID string) map[string]string {
	out := make(map[string]string)
	for ref, k := range r.Aliases {
		if ref.PaperID == paperID {
			out[ref.Key] = k
		}
	}
	return out
}

// record is a normalized entry together with its comparison forms.
type record struct {
	entry    types.BibEntry
	ref      types.EntryRef
	title    string
	year     string
	surnames []string
	doi      string
	arxiv    string
}

// Merge normalizes entries and merges the records that describe the same
// work. Two records are the same work when they share a DOI, share an arXiv
// id, or have equal folded titles and at least cfg.DedupMinSharedAuthors
// shared surnames (a record without parsable authors matches on title
// alone). The relation is closed transitively.
//
// Records are stably sorted by folded title and year before grouping, so the
// outcome depends only on the input, not on the order papers finished in.
func Merge(entries []types.BibEntry, cfg types.SurveyConfig) *Result {
	norm := NewNormalizer(cfg.VenueAbbreviations)

	recs := make([]record, 0, len(entries))
	for _, e := range entries {
		n := norm.Normalize(e)
		recs = append(recs, record{
			entry:    n,
			ref:      types.EntryRef{PaperID: e.PaperID, Key: e.Key},
			title:    Fold(n.Get(types.FieldTitle)),
			year:     n.Get(types.FieldYear),
			surnames: Surnames(ParseAuthors(n.Get(types.FieldAuthor))),
			doi:      n.Get(types.FieldDOI),
			arxiv:    n.Get(types.FieldEprint),
		})
	}
	slices.SortStableFunc(recs, func(a, b record) int {
		return cmp.Or(cmp.Compare(a.title, b.title), cmp.Compare(a.year, b.year))
	})

	groups := group(recs, cfg.DedupMinSharedAuthors)

	res := &Result{Aliases: make(map[types.EntryRef]string, len(recs))}
	for _, members := range groups {
		res.Entries = append(res.Entries, combine(recs, members))
	}
	assignKeys(res.Entries)
	for _, c := range res.Entries {
		for _, ref := range c.Aliases {
			res.Aliases[ref] = c.Key
		}
	}
	slices.SortFunc(res.Entries, func(a, b types.CanonicalBibEntry) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return res
}

// group partitions record indices into same-work groups, each listed in
// record order, groups ordered by their first member.
func group(recs []record, minShared int) [][]int {
	uf := newUnionFind(len(recs))

	byDOI := make(map[string]int)
	byArxiv := make(map[string]int)
	byTitle := make(map[string][]int)
	for i, r := range recs {
		if r.doi != "" {
			if j, ok := byDOI[r.doi]; ok {
				uf.union(i, j)
			} else {
				byDOI[r.doi] = i
			}
		}
		if r.arxiv != "" {
			if j, ok := byArxiv[r.arxiv]; ok {
				uf.union(i, j)
			} else {
				byArxiv[r.arxiv] = i
			}
		}
		if r.title == "" {
			continue
		}
		for _, j := range byTitle[r.title] {
			if sameAuthors(r.surnames, recs[j].surnames, minShared) {
				uf.union(i, j)
			}
		}
		byTitle[r.title] = append(byTitle[r.title], i)
	}

	index := make(map[int]int)
	var groups [][]int
	for i := range recs {
		root := uf.find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func sameAuthors(a, b []string, minShared int) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	return SharedCount(a, b) >= minShared
}

// combine merges a group into one canonical entry. The densest record wins
// field conflicts; ties go to the earlier record. Fields missing from the
// winner are filled from the others in order.
func combine(recs []record, members []int) types.CanonicalBibEntry {
	order := slices.Clone(members)
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(recs[b].entry.Density(), recs[a].entry.Density())
	})

	out := recs[order[0]].entry.Clone()
	if out.Fields == nil {
		out.Fields = make(map[string]string)
	}
	for _, i := range order[1:] {
		for k, v := range recs[i].entry.Fields {
			if _, ok := out.Fields[k]; !ok {
				out.Fields[k] = v
			}
		}
	}
	out.PaperID = ""
	out.Origin = ""

	c := types.CanonicalBibEntry{BibEntry: out}
	for _, i := range members {
		c.Aliases = append(c.Aliases, recs[i].ref)
	}
	return c
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union links the later root under the earlier one so roots stay the
// smallest index of their set.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
