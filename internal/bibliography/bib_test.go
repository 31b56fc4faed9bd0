// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibliography

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibextract/pkg/types"
)

func TestParseBib(t *testing.T) {
	src := `% leading comment with an @ sign
@string{nips = "Advances in Neural Information Processing Systems"}
@comment{jabref-meta: databaseType:bibtex;}
@preamble{"\newcommand{\noop}[1]{}"}

@inproceedings{vaswani2017attention,
  title     = {Attention is All you {Need}},
  author    = {Vaswani, Ashish and Shazeer, Noam and Parmar, Niki},
  booktitle = nips # " 30",
  year      = 2017,
  month     = dec,
  pages     = "5998--6008"
}

@Article(devlin2019bert,
  title = {{BERT}: Pre-training of Deep
           Bidirectional Transformers},
  author = "Devlin, Jacob and Chang, Ming-Wei"
  journal = {NAACL},
  year = {2019},)

@misc{noComma, title={No trailing comma} year={2020}}
`
	entries, errs := ParseBib(src)
	require.Empty(t, errs)
	require.Len(t, entries, 3)

	v := entries[0]
	assert.Equal(t, "inproceedings", v.Type)
	assert.Equal(t, "vaswani2017attention", v.Key)
	assert.Equal(t, "Attention is All you {Need}", v.Get(types.FieldTitle))
	assert.Equal(t, "Advances in Neural Information Processing Systems 30", v.Get(types.FieldBooktitle))
	assert.Equal(t, "2017", v.Get(types.FieldYear))
	assert.Equal(t, "December", v.Get("month"))
	assert.Equal(t, "5998--6008", v.Get(types.FieldPages))

	d := entries[1]
	assert.Equal(t, "article", d.Type)
	assert.Equal(t, "{BERT}: Pre-training of Deep Bidirectional Transformers", d.Get(types.FieldTitle))
	assert.Equal(t, "Devlin, Jacob and Chang, Ming-Wei", d.Get(types.FieldAuthor))
	assert.Equal(t, "NAACL", d.Get(types.FieldJournal))

	n := entries[2]
	assert.Equal(t, "noComma", n.Key)
	assert.Equal(t, "No trailing comma", n.Get(types.FieldTitle))
	assert.Equal(t, "2020", n.Get(types.FieldYear))
}

func TestParseBib_SkipsBrokenEntryAndResynchronizes(t *testing.T) {
	src := `@article{broken,
  title = ,
  year = 2020
}

@article{good, title = {Fine}, year = 2021}
`
	entries, errs := ParseBib(src)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], types.ErrParse)
	assert.Contains(t, errs[0].Error(), "line 1")
	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Key)
}

func TestParseBib_UnclosedEntryFollowedByNext(t *testing.T) {
	src := "@article{first, title = {One}\n@article{second, title = {Two}}"
	entries, errs := ParseBib(src)
	require.Empty(t, errs)
	require.Len(t, entries, 2)
	assert.Equal(t, "One", entries[0].Get(types.FieldTitle))
	assert.Equal(t, "Two", entries[1].Get(types.FieldTitle))
}

func TestParseBib_MissingKey(t *testing.T) {
	entries, errs := ParseBib("@article{title = {No key}}\n@misc{k, title={T}}")
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], types.ErrParse)
	require.Len(t, entries, 1)
	assert.Equal(t, "k", entries[0].Key)
}

func TestParseBib_Empty(t *testing.T) {
	entries, errs := ParseBib("")
	assert.Empty(t, entries)
	assert.Empty(t, errs)
}
