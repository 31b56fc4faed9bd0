// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/bibextract/pkg/types"
)

// crossrefWorksBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefWorksBase = "https://api.crossref.org/works/"

// CrossrefSource looks entries up by DOI.
type CrossrefSource struct {
	httpSource

	// Mailto is sent for Crossref's polite pool.
	Mailto string
}

// Name returns the source identifier.
func (s *CrossrefSource) Name() string { return types.SourceCrossref }

// Lookup fetches the Crossref record of the entry's DOI.
func (s *CrossrefSource) Lookup(ctx context.Context, entry types.BibEntry) ([]Candidate, error) {
	doi := entry.Get(types.FieldDOI)
	if doi == "" {
		return nil, nil
	}
	reqURL := crossrefWorksBase + url.PathEscape(doi)
	if s.Mailto != "" {
		reqURL += "?mailto=" + url.QueryEscape(s.Mailto)
	}
	data, err := s.get(ctx, "crossref", reqURL)
	if err != nil || data == nil {
		return nil, err
	}

	var resp crossrefResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing Crossref response: %w", types.ErrNetwork, err)
	}
	return []Candidate{{Entry: resp.Message.entry(), ByIdentifier: true}}, nil
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	DOI            string           `json:"DOI"`
	Type           string           `json:"type"`
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Author         []crossrefAuthor `json:"author"`
	Volume         string           `json:"volume"`
	Page           string           `json:"page"`
	Publisher      string           `json:"publisher"`
	Issued         crossrefDate     `json:"issued"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (w crossrefWork) entry() types.BibEntry {
	e := types.BibEntry{Type: "misc", Key: w.DOI, Fields: make(map[string]string)}
	if len(w.Title) > 0 {
		e.Set(types.FieldTitle, w.Title[0])
	}
	var authors []string
	for _, a := range w.Author {
		switch {
		case a.Family != "" && a.Given != "":
			authors = append(authors, a.Family+", "+a.Given)
		case a.Family != "":
			authors = append(authors, a.Family)
		case a.Name != "":
			authors = append(authors, a.Name)
		}
	}
	e.Set(types.FieldAuthor, strings.Join(authors, " and "))

	venue := ""
	if len(w.ContainerTitle) > 0 {
		venue = w.ContainerTitle[0]
	}
	switch w.Type {
	case "journal-article":
		e.Type = "article"
		e.Set(types.FieldJournal, venue)
	case "proceedings-article":
		e.Type = "inproceedings"
		e.Set(types.FieldBooktitle, venue)
	case "book-chapter":
		e.Type = "incollection"
		e.Set(types.FieldBooktitle, venue)
	case "book", "monograph":
		e.Type = "book"
		e.Set("publisher", w.Publisher)
	}
	e.Set(types.FieldVolume, w.Volume)
	e.Set(types.FieldPages, w.Page)
	e.Set(types.FieldDOI, w.DOI)
	if len(w.Issued.DateParts) > 0 && len(w.Issued.DateParts[0]) > 0 && w.Issued.DateParts[0][0] > 0 {
		e.Set(types.FieldYear, strconv.Itoa(w.Issued.DateParts[0][0]))
	}
	return e
}
