// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExtractedSection is one in-scope section of a paper's include-expanded document.
type ExtractedSection struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title is the heading text with LaTeX markup removed.
	Title string `json:"title" yaml:"title"`

	// Level is the heading depth: 0 chapter, 1 section, 2 subsection, and so on.
	Level int `json:"level" yaml:"level"`

	// Start and End delimit the section (heading included) as a byte range
	// of the expanded document.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// Text is the section body after the heading.
	Text string `json:"text" yaml:"text"`
}

// SurveyResult is the output of one pipeline run.
type SurveyResult struct {
	// SectionText is the extracted prose of every paper, in input order.
	SectionText string `json:"section_text" yaml:"section_text"`

	// Bibliography is the merged bibliography rendered as BibTeX.
	Bibliography string `json:"bibliography" yaml:"bibliography"`

	Warnings []Warning `json:"warnings" yaml:"warnings"`

	Papers  []PaperSummary      `json:"papers" yaml:"papers"`
	Entries []CanonicalBibEntry `json:"entries" yaml:"entries"`

	// Sections holds the extracted sections with citation keys rewritten,
	// in the same order as SectionText.
	Sections []ExtractedSection `json:"sections" yaml:"sections"`
}
