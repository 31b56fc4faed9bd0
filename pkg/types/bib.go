// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"maps"
	"slices"
	"strings"
)

// Well-known BibEntry field names.
const (
	FieldAuthor         = "author"
	FieldTitle          = "title"
	FieldYear           = "year"
	FieldJournal        = "journal"
	FieldBooktitle      = "booktitle"
	FieldVenue          = "venue"
	FieldPages          = "pages"
	FieldVolume         = "volume"
	FieldDOI            = "doi"
	FieldEprint         = "eprint"
	FieldArchivePrefix  = "archiveprefix"
	FieldURL            = "url"
	FieldVerifiedSource = "verified_source"

	// FieldRaw holds the unparsed source text of an entry. It never reaches
	// rendered output.
	FieldRaw = "raw"
)

// BibEntry is one parsed bibliography record. Field names are lower case.
type BibEntry struct {
	// Type is the entry type without the @ (e.g. "article", "inproceedings").
	Type string `json:"type" yaml:"type"`

	// Key is the citation key as written in the source.
	Key string `json:"key" yaml:"key"`

	Fields map[string]string `json:"fields" yaml:"fields"`

	// PaperID is the identifier of the paper the record came from.
	PaperID string `json:"paper_id,omitempty" yaml:"paper_id,omitempty"`

	// Origin is the file (relative to the source tree) the record was parsed from.
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// Get returns a field value, or "" when the field is absent.
func (e *BibEntry) Get(name string) string {
	if e.Fields == nil {
		return ""
	}
	return e.Fields[name]
}

// Set stores a field value. An empty value removes the field.
func (e *BibEntry) Set(name, value string) {
	if value == "" {
		delete(e.Fields, name)
		return
	}
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[name] = value
}

// Density counts populated fields, ignoring internal ones. It decides which
// record wins a field conflict during deduplication.
func (e *BibEntry) Density() int {
	n := 0
	for k, v := range e.Fields {
		if k == FieldRaw || k == FieldVerifiedSource || strings.TrimSpace(v) == "" {
			continue
		}
		n++
	}
	return n
}

// FieldNames returns the populated field names in sorted order, internal fields excluded.
func (e *BibEntry) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		if k == FieldRaw || v == "" {
			continue
		}
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Clone returns a copy whose field map can be modified independently.
func (e BibEntry) Clone() BibEntry {
	e.Fields = maps.Clone(e.Fields)
	return e
}

// EntryRef identifies a bibliography record by its originating paper and its
// original citation key.
type EntryRef struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`
	Key     string `json:"key" yaml:"key"`
}

// CanonicalBibEntry is a BibEntry deduplicated across every processed paper.
// Key holds the canonical citation key; Aliases lists the records merged into it.
type CanonicalBibEntry struct {
	BibEntry `yaml:",inline"`

	Aliases []EntryRef `json:"aliases" yaml:"aliases"`

	// Status is filled in once verification has run.
	Status VerificationStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// VerificationStatus is the outcome of checking an entry against external sources.
type VerificationStatus string

const (
	StatusConfirmed    VerificationStatus = "confirmed"
	StatusCorrected    VerificationStatus = "corrected"
	StatusUnverifiable VerificationStatus = "unverifiable"
)

// VerificationResult records what a verifier found for one canonical entry.
type VerificationResult struct {
	// Key is the canonical key of the verified entry.
	Key    string             `json:"key" yaml:"key"`
	Status VerificationStatus `json:"status" yaml:"status"`

	// Source names the service that produced the match.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Corrections maps field names to the values to apply.
	Corrections map[string]string `json:"corrections,omitempty" yaml:"corrections,omitempty"`

	// Changed lists the corrected field names in sorted order.
	Changed []string `json:"changed,omitempty" yaml:"changed,omitempty"`
}
