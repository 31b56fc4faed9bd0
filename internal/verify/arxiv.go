// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"

	"github.com/pdiddy/bibextract/internal/bibliography"
	"github.com/pdiddy/bibextract/pkg/types"
)

// arxivBibtexBase serves the BibTeX record of an arXiv paper. Declared as a
// var so tests can substitute an httptest server.
var arxivBibtexBase = "https://arxiv.org/bibtex/"

// ArxivSource reads the BibTeX record arXiv publishes for each paper. It
// only applies to entries carrying an arXiv id.
type ArxivSource struct {
	httpSource
}

// Name returns the source identifier.
func (s *ArxivSource) Name() string { return types.SourceArxiv }

// Lookup fetches the arXiv BibTeX record of the entry's eprint.
func (s *ArxivSource) Lookup(ctx context.Context, entry types.BibEntry) ([]Candidate, error) {
	id := entry.Get(types.FieldEprint)
	if id == "" {
		return nil, nil
	}
	data, err := s.get(ctx, "arxiv-bibtex", arxivBibtexBase+id)
	if err != nil || data == nil {
		return nil, err
	}

	parsed, _ := bibliography.ParseBib(string(data))
	var out []Candidate
	for _, p := range parsed {
		out = append(out, Candidate{Entry: p, ByIdentifier: true})
	}
	return out, nil
}
