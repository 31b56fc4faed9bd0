// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"regexp"
	"strings"

	"github.com/pdiddy/bibextract/pkg/types"
)

// defaultVenues maps lower-case venue spellings to their canonical case.
var defaultVenues = map[string]string{
	"neurips": "NeurIPS",
	"nips":    "NeurIPS",
	"icml":    "ICML",
	"iclr":    "ICLR",
	"cvpr":    "CVPR",
	"iccv":    "ICCV",
	"eccv":    "ECCV",
	"acl":     "ACL",
	"emnlp":   "EMNLP",
	"naacl":   "NAACL",
	"coling":  "COLING",
	"aaai":    "AAAI",
	"ijcai":   "IJCAI",
	"kdd":     "KDD",
	"sigir":   "SIGIR",
	"www":     "WWW",
	"jmlr":    "JMLR",
	"tacl":    "TACL",
	"tpami":   "TPAMI",
	"corr":    "CoRR",
	"arxiv":   "arXiv",
}

var (
	yearRe       = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})[a-z]?\b`)
	pageRangeRe  = regexp.MustCompile(`^\s*([A-Za-z]?\d+)\s*(?:-+|–|—)\s*([A-Za-z]?\d+)\s*$`)
	doiPrefixRe  = regexp.MustCompile(`(?i)^(?:https?://(?:dx\.)?doi\.org/|doi:\s*)`)
	arxivIDRe    = regexp.MustCompile(`(?i)(?:arxiv:|arxiv\.org/(?:abs|pdf)/)?(\d{4}\.\d{4,5}|[a-z\-]+(?:\.[A-Z]{2})?/\d{7})(?:v\d+)?`)
	arxivTextRe  = regexp.MustCompile(`(?i)(?:arxiv[:\s]*|arxiv\.org/(?:abs|pdf)/)(\d{4}\.\d{4,5})`)
	venueFields  = []string{types.FieldJournal, types.FieldBooktitle, types.FieldVenue}
	searchFields = []string{types.FieldJournal, types.FieldURL, "note", "howpublished"}
)

// Normalizer canonicalizes the field values of bibliography records.
type Normalizer struct {
	venues map[string]string
}

// NewNormalizer returns a Normalizer using the built-in venue table extended
// (and overridden) by extra, keyed by lower-case spelling.
func NewNormalizer(extra map[string]string) *Normalizer {
	venues := make(map[string]string, len(defaultVenues)+len(extra))
	for k, v := range defaultVenues {
		venues[k] = v
	}
	for k, v := range extra {
		venues[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Normalizer{venues: venues}
}

// Normalize returns a normalized copy of e. The raw field is left as is.
func (n *Normalizer) Normalize(e types.BibEntry) types.BibEntry {
	out := e.Clone()
	out.Type = strings.ToLower(strings.TrimSpace(out.Type))
	for k, v := range out.Fields {
		if k == types.FieldRaw {
			continue
		}
		out.Set(k, unwrap(v))
	}

	if a := out.Get(types.FieldAuthor); a != "" {
		if authors := ParseAuthors(a); len(authors) > 0 {
			out.Set(types.FieldAuthor, FormatAuthors(authors))
		}
	}
	for _, f := range venueFields {
		if v := out.Get(f); v != "" {
			if canon, ok := n.venues[strings.ToLower(v)]; ok {
				out.Set(f, canon)
			}
		}
	}
	out.Set(types.FieldDOI, NormalizeDOI(out.Get(types.FieldDOI)))
	out.Set(types.FieldEprint, arxivOf(&out))
	if out.Get(types.FieldEprint) != "" && out.Get(types.FieldArchivePrefix) == "" {
		out.Set(types.FieldArchivePrefix, "arXiv")
	}
	if p := out.Get(types.FieldPages); p != "" {
		if m := pageRangeRe.FindStringSubmatch(p); m != nil {
			out.Set(types.FieldPages, m[1]+"--"+m[2])
		}
	}
	if y := out.Get(types.FieldYear); y != "" {
		if m := yearRe.FindStringSubmatch(y); m != nil {
			out.Set(types.FieldYear, m[1])
		}
	}
	return out
}

// unwrap collapses whitespace and strips braces or quotes that enclose the
// whole value.
func unwrap(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	for len(v) >= 2 {
		switch {
		case v[0] == '"' && v[len(v)-1] == '"':
			v = strings.TrimSpace(v[1 : len(v)-1])
		case v[0] == '{' && matchingBrace(v) == len(v)-1:
			v = strings.TrimSpace(v[1 : len(v)-1])
		default:
			return v
		}
	}
	return v
}

// matchingBrace returns the index of the brace closing v[0], or -1.
func matchingBrace(v string) int {
	depth := 0
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// NormalizeDOI lower-cases a DOI and strips resolver prefixes.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doiPrefixRe.ReplaceAllString(strings.TrimSpace(doi), ""))
	return strings.ToLower(strings.TrimRight(doi, "."))
}

// NormalizeArxiv strips the "arXiv:" prefix, URL wrapping and version suffix
// from an arXiv identifier. Anything that is not an arXiv id yields "".
func NormalizeArxiv(id string) string {
	m := arxivIDRe.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return ""
	}
	return m[1]
}

// arxivOf finds the arXiv id of a record: its eprint field when the archive
// is arXiv (or unnamed), otherwise an arXiv reference in the venue, URL or note.
func arxivOf(e *types.BibEntry) string {
	prefix := strings.ToLower(e.Get(types.FieldArchivePrefix))
	if eprint := e.Get(types.FieldEprint); eprint != "" && (prefix == "" || prefix == "arxiv") {
		if id := NormalizeArxiv(eprint); id != "" {
			return id
		}
	}
	for _, f := range searchFields {
		if m := arxivTextRe.FindStringSubmatch(e.Get(f)); m != nil {
			return m[1]
		}
	}
	if prefix != "" && prefix != "arxiv" {
		return e.Get(types.FieldEprint)
	}
	return ""
}
