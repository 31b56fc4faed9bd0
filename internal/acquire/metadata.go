// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/pdiddy/bibextract/internal/httputil"
	"github.com/pdiddy/bibextract/pkg/types"
)

// Metadata retrieves title, authors and date of an arXiv paper from the
// arXiv Atom API.
func (f *Fetcher) Metadata(ctx context.Context, arxivID string) (*types.Paper, error) {
	apiURL := arxivAPIBase + "?id_list=" + url.QueryEscape(arxivID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := httputil.Do(ctx, f.client, req, f.policy("arxiv-api"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("arXiv API: %w", err)
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: parsing arXiv response: %w", types.ErrNetwork, err)
	}
	return parseAtomEntry(doc, arxivID)
}

// parseAtomEntry reads the first entry of an arXiv Atom feed. arXiv reports
// unknown IDs as an entry whose id points at its errors page.
func parseAtomEntry(doc *etree.Document, arxivID string) (*types.Paper, error) {
	entry := doc.FindElement("//entry")
	if entry == nil {
		return nil, fmt.Errorf("%w: no arXiv entry for %s", types.ErrNotFound, arxivID)
	}
	if id := entry.SelectElement("id"); id != nil && strings.Contains(id.Text(), "/api/errors") {
		return nil, fmt.Errorf("%w: arXiv rejected ID %s", types.ErrNotFound, arxivID)
	}

	paper := &types.Paper{
		ID:        arxivID,
		SourceURL: SourceURL(TypeArxiv, arxivID),
		Source:    "arxiv",
	}
	if title := entry.SelectElement("title"); title != nil {
		paper.Title = strings.Join(strings.Fields(title.Text()), " ")
	}
	for _, a := range entry.SelectElements("author") {
		if name := a.SelectElement("name"); name != nil {
			if n := strings.TrimSpace(name.Text()); n != "" {
				paper.Authors = append(paper.Authors, n)
			}
		}
	}
	if published := entry.SelectElement("published"); published != nil {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(published.Text())); err == nil {
			paper.Date = t
		}
	}
	return paper, nil
}
