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

// openAlexWorksBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

// openAlexPerPage bounds the candidates requested per title search.
const openAlexPerPage = 5

// OpenAlexSource searches OpenAlex by title.
type OpenAlexSource struct {
	httpSource

	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name returns the source identifier.
func (s *OpenAlexSource) Name() string { return types.SourceOpenAlex }

// Lookup searches OpenAlex for the entry's title.
func (s *OpenAlexSource) Lookup(ctx context.Context, entry types.BibEntry) ([]Candidate, error) {
	title := entry.Get(types.FieldTitle)
	if title == "" {
		return nil, nil
	}
	params := url.Values{
		"search":   {title},
		"per_page": {strconv.Itoa(openAlexPerPage)},
	}
	if s.Email != "" {
		params.Set("mailto", s.Email)
	}
	data, err := s.get(ctx, "openalex", openAlexWorksBase+"?"+params.Encode())
	if err != nil || data == nil {
		return nil, err
	}

	var oar openAlexResponse
	if err := json.Unmarshal(data, &oar); err != nil {
		return nil, fmt.Errorf("%w: parsing OpenAlex response: %w", types.ErrNetwork, err)
	}
	out := make([]Candidate, 0, len(oar.Results))
	for _, w := range oar.Results {
		out = append(out, Candidate{Entry: w.entry()})
	}
	return out, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DOI             string               `json:"doi"`
	Type            string               `json:"type"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	PrimaryLocation *openAlexLocation    `json:"primary_location"`
	Biblio          openAlexBiblio       `json:"biblio"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source *openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

type openAlexBiblio struct {
	Volume    string `json:"volume"`
	FirstPage string `json:"first_page"`
	LastPage  string `json:"last_page"`
}

func (w openAlexWork) entry() types.BibEntry {
	e := types.BibEntry{Type: "misc", Key: w.ID, Fields: make(map[string]string)}
	e.Set(types.FieldTitle, w.Title)

	var authors []string
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, a.Author.DisplayName)
		}
	}
	e.Set(types.FieldAuthor, strings.Join(authors, " and "))

	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		venue := w.PrimaryLocation.Source.DisplayName
		switch w.PrimaryLocation.Source.Type {
		case "journal":
			e.Type = "article"
			e.Set(types.FieldJournal, venue)
		case "conference":
			e.Type = "inproceedings"
			e.Set(types.FieldBooktitle, venue)
		}
	}
	if w.PublicationYear > 0 {
		e.Set(types.FieldYear, strconv.Itoa(w.PublicationYear))
	}
	e.Set(types.FieldVolume, w.Biblio.Volume)
	switch {
	case w.Biblio.FirstPage != "" && w.Biblio.LastPage != "" && w.Biblio.FirstPage != w.Biblio.LastPage:
		e.Set(types.FieldPages, w.Biblio.FirstPage+"--"+w.Biblio.LastPage)
	case w.Biblio.FirstPage != "":
		e.Set(types.FieldPages, w.Biblio.FirstPage)
	}
	e.Set(types.FieldDOI, strings.TrimPrefix(w.DOI, "https://doi.org/"))
	return e
}
