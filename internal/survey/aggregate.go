// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package survey

import (
	"fmt"
	"slices"
	"sort"

	"github.com/pdiddy/bibextract/internal/dedup"
	"github.com/pdiddy/bibextract/internal/extract"
	"github.com/pdiddy/bibextract/pkg/types"
)

// Aggregate assembles the survey from per-paper outputs in input order, the
// merged bibliography and the verification results. It performs no I/O. The
// only error is an internal invariant violation: two canonical entries
// sharing a key, or a result for a key that does not exist.
func Aggregate(papers []PaperOutput, merged *dedup.Result, results []types.VerificationResult) (*types.SurveyResult, error) {
	if merged == nil {
		merged = &dedup.Result{}
	}

	byKey := make(map[string]types.VerificationResult, len(results))
	for _, r := range results {
		byKey[r.Key] = r
	}

	known := make(map[string]bool, len(merged.Entries))
	entries := make([]types.CanonicalBibEntry, 0, len(merged.Entries))
	for _, e := range merged.Entries {
		if known[e.Key] {
			return nil, fmt.Errorf("%w: duplicate canonical key %q", types.ErrInternal, e.Key)
		}
		known[e.Key] = true
		entries = append(entries, applyVerification(e, byKey))
	}
	for key := range byKey {
		if !known[key] {
			return nil, fmt.Errorf("%w: verification result for unknown key %q", types.ErrInternal, key)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	result := &types.SurveyResult{Entries: entries}
	for _, paper := range papers {
		result.Papers = append(result.Papers, paper.Summary)
		result.Warnings = append(result.Warnings, paper.Warnings...)
		if paper.Summary.Status == types.PaperFailed {
			continue
		}

		keys := merged.PaperKeys(paper.Summary.ID)
		for _, s := range paper.Sections {
			s.Text = extract.RewriteCitations(s.Text, keys)
			result.Sections = append(result.Sections, s)
		}
		result.Warnings = append(result.Warnings, unresolvedCitations(paper, keys, known)...)
	}

	result.SectionText = RenderSections(papers, result.Sections)
	result.Bibliography = RenderBibTeX(entries)
	return result, nil
}

// applyVerification returns a copy of e carrying the outcome of its
// verification. Entries without a result are returned unchanged.
func applyVerification(e types.CanonicalBibEntry, results map[string]types.VerificationResult) types.CanonicalBibEntry {
	out := e
	out.BibEntry = e.BibEntry.Clone()
	out.Aliases = slices.Clone(e.Aliases)

	r, ok := results[e.Key]
	if !ok {
		return out
	}
	out.Status = r.Status
	if r.Status == types.StatusUnverifiable {
		return out
	}
	for field, value := range r.Corrections {
		out.Set(field, value)
	}
	out.Set(types.FieldVerifiedSource, r.Source)
	return out
}

// unresolvedCitations warns about every key cited in a paper's sections
// that maps to no canonical entry, in sorted order.
func unresolvedCitations(paper PaperOutput, keys map[string]string, known map[string]bool) []types.Warning {
	// Cited key to the words around its first citation.
	seen := make(map[string]string)
	for _, s := range paper.Sections {
		for _, c := range extract.ParseCitations(s.Text) {
			if canonical, ok := keys[c.Key]; ok && known[canonical] {
				continue
			}
			if _, dup := seen[c.Key]; !dup {
				seen[c.Key] = c.Context
			}
		}
	}

	var missing []string
	for key := range seen {
		missing = append(missing, key)
	}
	sort.Strings(missing)

	warnings := make([]types.Warning, 0, len(missing))
	for _, key := range missing {
		warnings = append(warnings, types.Warning{
			PaperID:  paper.Summary.ID,
			EntryKey: key,
			Kind:     types.KindCitation,
			Message:  unresolvedMessage(seen[key]),
		})
	}
	return warnings
}

func unresolvedMessage(near string) string {
	if near == "" {
		return "cited key has no bibliography entry"
	}
	return "cited key has no bibliography entry, cited in: " + near
}
