// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/bibextract/pkg/types"
)

func bib(fields map[string]string) types.BibEntry {
	return types.BibEntry{Type: "article", Key: "k", Fields: fields}
}

func TestConfident(t *testing.T) {
	entry := bib(map[string]string{
		types.FieldTitle:  "Attention is all you need",
		types.FieldAuthor: "Vaswani, Ashish and Shazeer, Noam",
	})
	tests := []struct {
		name         string
		cand         types.BibEntry
		byIdentifier bool
		want         bool
	}{
		{"equal title and authors", bib(map[string]string{
			types.FieldTitle: "Attention Is All You Need.", types.FieldAuthor: "Ashish Vaswani and Noam Shazeer and Niki Parmar",
		}), false, true},
		{"half the authors shared", bib(map[string]string{
			types.FieldTitle: "Attention is all you need", types.FieldAuthor: "Vaswani, A. and Other, B.",
		}), false, true},
		{"no shared authors", bib(map[string]string{
			types.FieldTitle: "Attention is all you need", types.FieldAuthor: "Doe, Jane and Roe, Rick",
		}), false, false},
		{"candidate without authors", bib(map[string]string{
			types.FieldTitle: "Attention is all you need",
		}), false, true},
		{"different title", bib(map[string]string{
			types.FieldTitle: "Attention is not all you need", types.FieldAuthor: "Vaswani, Ashish",
		}), false, false},
		{"title search rejects containment", bib(map[string]string{
			types.FieldTitle: "Attention is all you need: extended version", types.FieldAuthor: "Vaswani, Ashish",
		}), false, false},
		{"identifier lookup accepts containment", bib(map[string]string{
			types.FieldTitle: "Attention is all you need: extended version", types.FieldAuthor: "Vaswani, Ashish",
		}), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confident(entry, tt.cand, tt.byIdentifier, 0.5))
		})
	}
}

func TestConfident_UntitledEntryByIdentifier(t *testing.T) {
	entry := bib(map[string]string{types.FieldEprint: "1706.03762"})
	cand := bib(map[string]string{types.FieldTitle: "Attention is all you need"})
	assert.True(t, Confident(entry, cand, true, 0.5))
	assert.False(t, Confident(entry, cand, false, 0.5))
}

func TestCorrections(t *testing.T) {
	entry := bib(map[string]string{
		types.FieldTitle:   "Deep learning",
		types.FieldAuthor:  "LeCun, Yann",
		types.FieldJournal: "nature",
		types.FieldPages:   "436",
		types.FieldRaw:     "raw text",
	})
	match := bib(map[string]string{
		types.FieldTitle:   "Deep Learning",
		types.FieldAuthor:  "LeCun, Yann and Bengio, Yoshua and Hinton, Geoffrey",
		types.FieldJournal: "Nature",
		types.FieldPages:   "436--444",
		types.FieldVolume:  "521",
		types.FieldYear:    "2015",
		types.FieldRaw:     "other raw",
	})
	fixes, changed := Corrections(entry, match)
	assert.Equal(t, map[string]string{
		types.FieldJournal: "Nature",
		types.FieldPages:   "436--444",
		types.FieldVolume:  "521",
		types.FieldYear:    "2015",
	}, fixes)
	assert.Equal(t, []string{"journal", "pages", "volume", "year"}, changed)
}

func TestCorrections_NothingToChange(t *testing.T) {
	e := bib(map[string]string{types.FieldTitle: "Same", types.FieldYear: "2020"})
	fixes, changed := Corrections(e, e)
	assert.Nil(t, fixes)
	assert.Nil(t, changed)
}

func TestDBLPScore(t *testing.T) {
	entry := bib(map[string]string{types.FieldTitle: "Graph attention networks", types.FieldYear: "2018"})
	tests := []struct {
		name string
		hit  map[string]string
		want int
	}{
		{"exact title and year", map[string]string{types.FieldTitle: "Graph Attention Networks", types.FieldYear: "2018"}, 4},
		{"exact title only", map[string]string{types.FieldTitle: "Graph Attention Networks", types.FieldYear: "2017"}, 3},
		{"containment", map[string]string{types.FieldTitle: "Graph attention networks for molecules"}, 2},
		{"shared words and year", map[string]string{types.FieldTitle: "Networks of graph attention heads", types.FieldYear: "2018"}, 2},
		{"unrelated", map[string]string{types.FieldTitle: "Protein folding"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dblpScore(entry, bib(tt.hit)))
		})
	}
}
