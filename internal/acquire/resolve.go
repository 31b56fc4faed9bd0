// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"net/url"
	"regexp"
	"strings"
)

// IdentifierType classifies an input identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypeURL
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// Base URLs for identifier resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	arxivEprintBase = "https://arxiv.org/e-print/"
	arxivAPIBase    = "https://export.arxiv.org/api/query"
	openAlexAPIBase = "https://api.openalex.org/works/"
)

// arxivPattern matches new-style arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// arxivOldPattern matches pre-2007 arXiv IDs: "hep-th/9901001", "math.GT/0309136v2".
var arxivOldPattern = regexp.MustCompile(`^(?i:arxiv:)?([a-z][a-z\-]*(?:\.[A-Z]{2})?/\d{7}(?:v\d+)?)$`)

// arxivURLPattern matches arXiv abstract, PDF and e-print URLs.
var arxivURLPattern = regexp.MustCompile(`^https?://(?:www\.|export\.)?arxiv\.org/(?:abs|pdf|e-print|src)/(.+?)(?:\.pdf)?/?$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// Classify determines the identifier type and returns the normalized form.
// For arXiv, it strips the optional "arXiv:" prefix and unwraps arxiv.org URLs.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if id, ok := arxivID(identifier); ok {
		return TypeArxiv, id
	}

	if m := arxivURLPattern.FindStringSubmatch(identifier); m != nil {
		if id, ok := arxivID(m[1]); ok {
			return TypeArxiv, id
		}
	}

	doi := strings.TrimPrefix(strings.TrimPrefix(identifier, "https://doi.org/"), "doi:")
	if doiPattern.MatchString(doi) {
		return TypeDOI, doi
	}

	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return TypeURL, identifier
	}

	return TypeUnknown, identifier
}

func arxivID(s string) (string, bool) {
	if m := arxivPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if m := arxivOldPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}

// SourceURL returns the source-archive download URL for the identifier.
// DOIs have no direct source URL and return "" (see resolveOpenAlex).
func SourceURL(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv:
		return arxivEprintBase + normalized
	case TypeURL:
		return normalized
	default:
		return ""
	}
}
