// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/bibextract/internal/httputil"
	"github.com/pdiddy/bibextract/pkg/types"
)

// openAlexResponse captures the fields we need from an OpenAlex work record.
type openAlexResponse struct {
	Locations []openAlexLocation `json:"locations"`
}

// openAlexLocation represents one hosting location in the OpenAlex response.
type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}

// resolveOpenAlex looks a DOI up in OpenAlex and returns the arXiv ID of a
// hosting location, since only arXiv serves LaTeX source. A DOI without an
// arXiv location is not found.
func (f *Fetcher) resolveOpenAlex(ctx context.Context, doi string) (string, error) {
	apiURL := openAlexAPIBase + "https://doi.org/" + doi
	if f.mailto != "" {
		apiURL += "?mailto=" + url.QueryEscape(f.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating OpenAlex request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := httputil.Do(ctx, f.client, req, f.policy("openalex-resolve"))
	if err != nil {
		return "", err
	}
	if err := httputil.CheckStatus(resp); err != nil {
		resp.Body.Close()
		return "", fmt.Errorf("OpenAlex lookup of %s: %w", doi, err)
	}
	defer resp.Body.Close()

	var oa openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return "", fmt.Errorf("%w: parsing OpenAlex response: %w", types.ErrNetwork, err)
	}

	for _, loc := range oa.Locations {
		for _, u := range []string{loc.LandingURL, loc.PDFURL} {
			if u == "" {
				continue
			}
			if idType, id := Classify(u); idType == TypeArxiv {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("%w: DOI %s has no arXiv source", types.ErrNotFound, doi)
}
