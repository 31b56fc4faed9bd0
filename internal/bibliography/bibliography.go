// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibliography finds and parses the bibliography of an extracted
// LaTeX source tree: inline thebibliography environments, compiled .bbl
// files and .bib databases.
package bibliography

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/bibextract/pkg/types"
)

// Extractor turns bibliography sources into BibEntry records.
type Extractor struct {
	locator SourceLocator
	log     *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLocator replaces the source discovery strategy.
func WithLocator(l SourceLocator) Option {
	return func(e *Extractor) { e.locator = l }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

// New returns an Extractor using DefaultLocator.
func New(opts ...Option) *Extractor {
	e := &Extractor{locator: DefaultLocator{}, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract parses every bibliography source of the tree. Records sharing a
// citation key are merged; the denser record wins field conflicts. Entries
// that fail to parse are skipped with a parse warning. No bibliography at all
// is an empty result, not an error.
func (e *Extractor) Extract(fs afero.Fs, files []string, primary, expanded string) ([]types.BibEntry, []types.Warning) {
	sources, warnings := e.locator.Locate(fs, files, primary, expanded)

	var entries []types.BibEntry
	index := make(map[string]int)
	for _, src := range sources {
		var parsed []types.BibEntry
		var errs []error
		switch src.Kind {
		case SourceBib:
			parsed, errs = ParseBib(src.Text)
		default:
			parsed, errs = ParseBBL(src.Text)
		}
		for _, err := range errs {
			warnings = append(warnings, types.Warning{Kind: types.KindParse, Message: src.Name + ": " + err.Error()})
		}
		for _, p := range parsed {
			p.Origin = src.Name
			if i, ok := index[p.Key]; ok {
				entries[i] = mergeSameKey(entries[i], p)
				continue
			}
			index[p.Key] = len(entries)
			entries = append(entries, p)
		}
		e.log.Debug("parsed bibliography source",
			zap.String("source", src.Name),
			zap.String("kind", string(src.Kind)),
			zap.Int("entries", len(parsed)),
			zap.Int("errors", len(errs)),
		)
	}
	return entries, warnings
}

// mergeSameKey combines two records of one paper that share a key.
func mergeSameKey(a, b types.BibEntry) types.BibEntry {
	winner, loser := a, b
	if b.Density() > a.Density() {
		winner, loser = b, a
	}
	out := winner.Clone()
	if out.Fields == nil {
		out.Fields = make(map[string]string)
	}
	for k, v := range loser.Fields {
		if _, ok := out.Fields[k]; !ok {
			out.Fields[k] = v
		}
	}
	return out
}
