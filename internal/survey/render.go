// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package survey

import (
	"slices"
	"strings"

	"github.com/pdiddy/bibextract/pkg/types"
)

// RenderSections concatenates the sections of every paper that did not
// fail, in input order. Each paper opens with a comment block naming it.
func RenderSections(papers []PaperOutput, sections []types.ExtractedSection) string {
	byPaper := make(map[string][]types.ExtractedSection)
	for _, s := range sections {
		byPaper[s.PaperID] = append(byPaper[s.PaperID], s)
	}

	var b strings.Builder
	for _, paper := range papers {
		if paper.Summary.Status == types.PaperFailed {
			continue
		}
		b.WriteString("% Paper ID: " + paper.Summary.ID + "\n")
		b.WriteString("% Title: " + oneLine(paper.Summary.Title) + "\n")
		b.WriteString("% Authors: " + oneLine(strings.Join(paper.Summary.Authors, ", ")) + "\n\n")
		for _, s := range byPaper[paper.Summary.ID] {
			b.WriteString(`\section{` + s.Title + "}\n\n")
			b.WriteString(strings.TrimSpace(s.Text))
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// RenderBibTeX renders entries ordered by key. Fields are sorted by name,
// the raw source is omitted and braces are stripped from values.
func RenderBibTeX(entries []types.CanonicalBibEntry) string {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b types.CanonicalBibEntry) int {
		return strings.Compare(a.Key, b.Key)
	})

	var b strings.Builder
	for _, e := range sorted {
		typ := e.Type
		if typ == "" {
			typ = "misc"
		}
		b.WriteString("@" + typ + "{" + e.Key + ",\n")
		for _, name := range e.FieldNames() {
			b.WriteString("  " + name + " = {" + braceless.Replace(e.Fields[name]) + "},\n")
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}

var braceless = strings.NewReplacer("{", "", "}", "")

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
