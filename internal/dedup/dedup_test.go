// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibextract/pkg/types"
)

func paperEntry(paper, typ, key string, fields map[string]string) types.BibEntry {
	return types.BibEntry{Type: typ, Key: key, PaperID: paper, Fields: fields}
}

func canonicalKeys(r *Result) []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Key
	}
	return out
}

func TestMerge_SameWorkAcrossPapers(t *testing.T) {
	entries := []types.BibEntry{
		paperEntry("2301.00001", "inproceedings", "vaswani2017attention", map[string]string{
			types.FieldAuthor:    "Ashish Vaswani et~al.",
			types.FieldTitle:     "Attention is all you need",
			types.FieldBooktitle: "Advances in neural information processing systems",
			types.FieldPages:     "5998--6008",
			types.FieldYear:      "2017",
		}),
		paperEntry("2301.00002", "inproceedings", "Vaswani17", map[string]string{
			types.FieldAuthor: "Vaswani, Ashish and Shazeer, Noam and Parmar, Niki and Uszkoreit, Jakob",
			types.FieldTitle:  "Attention Is All You {Need}",
			types.FieldYear:   "2017",
		}),
	}
	res := Merge(entries, types.DefaultSurveyConfig())

	require.Len(t, res.Entries, 1)
	c := res.Entries[0]
	assert.Equal(t, "vaswani_attention_need_2017", c.Key)
	assert.Equal(t, "5998--6008", c.Get(types.FieldPages))
	assert.ElementsMatch(t, []types.EntryRef{
		{PaperID: "2301.00001", Key: "vaswani2017attention"},
		{PaperID: "2301.00002", Key: "Vaswani17"},
	}, c.Aliases)

	k, ok := res.Lookup("2301.00002", "Vaswani17")
	require.True(t, ok)
	assert.Equal(t, c.Key, k)
	assert.Equal(t, map[string]string{"vaswani2017attention": c.Key}, res.PaperKeys("2301.00001"))
}

func TestMerge_DenserRecordWinsConflicts(t *testing.T) {
	entries := []types.BibEntry{
		paperEntry("p1", "misc", "a", map[string]string{
			types.FieldAuthor: "Smith, John",
			types.FieldTitle:  "Graph networks",
			types.FieldYear:   "2019",
		}),
		paperEntry("p2", "article", "b", map[string]string{
			types.FieldAuthor:  "Smith, J.",
			types.FieldTitle:   "Graph Networks",
			types.FieldYear:    "2019",
			types.FieldJournal: "Journal of Graphs",
			types.FieldVolume:  "4",
		}),
	}
	res := Merge(entries, types.DefaultSurveyConfig())
	require.Len(t, res.Entries, 1)
	c := res.Entries[0]
	assert.Equal(t, "article", c.Type)
	assert.Equal(t, "Smith, J.", c.Get(types.FieldAuthor))
	assert.Equal(t, "Journal of Graphs", c.Get(types.FieldJournal))
	assert.Empty(t, c.PaperID)
}

func TestMerge_FieldTieKeepsFirstSeen(t *testing.T) {
	entries := []types.BibEntry{
		paperEntry("p1", "article", "a", map[string]string{
			types.FieldTitle: "Same title", types.FieldYear: "2020", types.FieldJournal: "First",
		}),
		paperEntry("p2", "article", "b", map[string]string{
			types.FieldTitle: "Same Title", types.FieldYear: "2020", types.FieldJournal: "Second",
		}),
	}
	res := Merge(entries, types.DefaultSurveyConfig())
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "First", res.Entries[0].Get(types.FieldJournal))
}

func TestMerge_Identifiers(t *testing.T) {
	entries := []types.BibEntry{
		paperEntry("p1", "article", "a", map[string]string{
			types.FieldTitle: "Deep residual learning", types.FieldDOI: "10.1109/CVPR.2016.90",
		}),
		paperEntry("p2", "inproceedings", "b", map[string]string{
			types.FieldTitle: "ResNets (conference version)", types.FieldDOI: "https://doi.org/10.1109/cvpr.2016.90",
		}),
		paperEntry("p3", "misc", "c", map[string]string{
			types.FieldTitle: "Preprint title", types.FieldEprint: "1512.03385v1",
		}),
		paperEntry("p4", "misc", "d", map[string]string{
			types.FieldTitle: "Other spelling", types.FieldJournal: "arXiv preprint arXiv:1512.03385",
		}),
	}
	res := Merge(entries, types.DefaultSurveyConfig())
	assert.Len(t, res.Entries, 2)
	assert.Len(t, res.Aliases, 4)
}

func TestMerge_TransitiveClosure(t *testing.T) {
	// a~b through the DOI, b~c through title and authors.
	entries := []types.BibEntry{
		paperEntry("p1", "article", "a", map[string]string{
			types.FieldTitle: "Old title", types.FieldDOI: "10.1/x", types.FieldAuthor: "Lee, Ann",
		}),
		paperEntry("p2", "article", "b", map[string]string{
			types.FieldTitle: "Learning to rank", types.FieldDOI: "10.1/X", types.FieldAuthor: "Lee, Ann",
		}),
		paperEntry("p3", "article", "c", map[string]string{
			types.FieldTitle: "Learning to Rank", types.FieldAuthor: "Ann Lee and Bo Kim",
		}),
	}
	res := Merge(entries, types.DefaultSurveyConfig())
	require.Len(t, res.Entries, 1)
	assert.Len(t, res.Entries[0].Aliases, 3)
}

func TestMerge_SameTitleDifferentAuthorsStaySeparate(t *testing.T) {
	entries := []types.BibEntry{
		paperEntry("p1", "article", "a", map[string]string{
			types.FieldTitle: "Introduction", types.FieldAuthor: "Doe, Jane", types.FieldYear: "2010",
		}),
		paperEntry("p2", "article", "b", map[string]string{
			types.FieldTitle: "Introduction", types.FieldAuthor: "Roe, Richard", types.FieldYear: "2012",
		}),
		paperEntry("p3", "article", "c", map[string]string{
			types.FieldTitle: "Introduction", types.FieldYear: "2012",
		}),
	}
	cfg := types.DefaultSurveyConfig()
	res := Merge(entries, cfg)
	// The author-less record matches both on title alone, joining them.
	assert.Len(t, res.Entries, 1)

	res = Merge(entries[:2], cfg)
	assert.Len(t, res.Entries, 2)
}

func TestMerge_MinSharedAuthors(t *testing.T) {
	entries := []types.BibEntry{
		paperEntry("p1", "article", "a", map[string]string{
			types.FieldTitle: "Shared work", types.FieldAuthor: "Lee, Ann and Kim, Bo",
		}),
		paperEntry("p2", "article", "b", map[string]string{
			types.FieldTitle: "Shared work", types.FieldAuthor: "Lee, Ann and Park, Cy",
		}),
	}
	cfg := types.DefaultSurveyConfig()
	assert.Len(t, Merge(entries, cfg).Entries, 1)

	cfg.DedupMinSharedAuthors = 2
	assert.Len(t, Merge(entries, cfg).Entries, 2)
}

func TestMerge_KeyCollisionsAreSuffixedDeterministically(t *testing.T) {
	entries := []types.BibEntry{
		paperEntry("p1", "article", "x", map[string]string{
			types.FieldAuthor: "Smith, John", types.FieldTitle: "Learning graph models: part two", types.FieldYear: "2017",
		}),
		paperEntry("p1", "article", "y", map[string]string{
			types.FieldAuthor: "Smith, Jane", types.FieldTitle: "Learning graph models: part one", types.FieldYear: "2017",
		}),
		paperEntry("p2", "article", "z", map[string]string{
			types.FieldAuthor: "Jones, Al", types.FieldTitle: "Unrelated", types.FieldYear: "2001",
		}),
	}
	first := Merge(entries, types.DefaultSurveyConfig())
	assert.Equal(t, []string{"jones_unrelated_2001", "smith_learning_graph_models_2017a", "smith_learning_graph_models_2017b"}, canonicalKeys(first))

	k, _ := first.Lookup("p1", "y")
	assert.Equal(t, "smith_learning_graph_models_2017a", k, "part one sorts before part two")

	reversed := slices.Clone(entries)
	slices.Reverse(reversed)
	second := Merge(reversed, types.DefaultSurveyConfig())
	assert.Equal(t, canonicalKeys(first), canonicalKeys(second))
	assert.Equal(t, first.Aliases, second.Aliases)
}

func TestMerge_Empty(t *testing.T) {
	res := Merge(nil, types.DefaultSurveyConfig())
	assert.Empty(t, res.Entries)
	assert.Empty(t, res.Aliases)
}

func TestCitationKey(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{"full", map[string]string{
			types.FieldAuthor: "LeCun, Yann and Bengio, Yoshua", types.FieldTitle: "Deep learning", types.FieldYear: "2015",
		}, "lecun_deep_learning_2015"},
		{"short words skipped", map[string]string{
			types.FieldAuthor: "Vaswani, Ashish", types.FieldTitle: "Attention is all you need", types.FieldYear: "2017",
		}, "vaswani_attention_need_2017"},
		{"only three words", map[string]string{
			types.FieldAuthor: "Wei, Jason", types.FieldTitle: "Chain-of-thought prompting elicits reasoning in large language models", types.FieldYear: "2022",
		}, "wei_chain_thought_prompting_2022"},
		{"no author", map[string]string{
			types.FieldTitle: "Anonymous report",
		}, "anonymous_anonymous_report"},
		{"accented surname", map[string]string{
			types.FieldAuthor: `Sch{\"o}lkopf, Bernhard`, types.FieldTitle: "Kernels", types.FieldYear: "2002",
		}, "scholkopf_kernels_2002"},
		{"particle surname", map[string]string{
			types.FieldAuthor: "van der Maaten, Laurens", types.FieldTitle: "Visualizing data using t-SNE", types.FieldYear: "2008",
		}, "vandermaaten_visualizing_data_using_2008"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CitationKey(types.BibEntry{Fields: tt.fields}))
		})
	}
}

func TestSuffix(t *testing.T) {
	assert.Equal(t, "a", suffix(0))
	assert.Equal(t, "z", suffix(25))
	assert.Equal(t, "aa", suffix(26))
	assert.Equal(t, "ab", suffix(27))
}
