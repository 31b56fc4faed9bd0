// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Paper holds the descriptive metadata of one requested paper, used for the
// per-paper header in the survey text.
type Paper struct {
	// ID is the identifier as supplied by the caller (e.g. "2301.07041").
	ID string `json:"id" yaml:"id"`

	// SourceURL is the URL the source archive was downloaded from.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// Title is the paper title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date,omitzero" yaml:"date,omitempty"`

	// Source identifies where the metadata came from ("latex" or "arxiv").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// PaperStatus is the processing outcome of one paper.
type PaperStatus string

const (
	PaperDone    PaperStatus = "done"
	PaperPartial PaperStatus = "partial"
	PaperFailed  PaperStatus = "failed"
)

// PaperSummary reports what the pipeline obtained from one paper.
type PaperSummary struct {
	Paper    `yaml:",inline"`
	Status   PaperStatus `json:"status" yaml:"status"`
	Primary  string      `json:"primary,omitempty" yaml:"primary,omitempty"`
	Sections int         `json:"sections" yaml:"sections"`
	Entries  int         `json:"entries" yaml:"entries"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
}
