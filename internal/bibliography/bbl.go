// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibliography

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/bibextract/internal/extract"
	"github.com/pdiddy/bibextract/pkg/types"
)

var (
	beginBibRe   = regexp.MustCompile(`\\begin\s*\{thebibliography\}`)
	endBibRe     = regexp.MustCompile(`\\end\s*\{thebibliography\}`)
	bibitemRe    = regexp.MustCompile(`\\bibitem\b`)
	newblockRe   = regexp.MustCompile(`\\newblock\b`)
	authorYearRe = regexp.MustCompile(`\\citeauthoryear\s*\{[^{}]*\}\s*\{((?:19|20)\d{2})[a-z]?\}`)
	labelYearRe  = regexp.MustCompile(`\(((?:19|20)\d{2})[a-z]?\b`)
	lineYearRe   = regexp.MustCompile(`(?m)\b((?:19|20)\d{2})[a-z]?\.\s*$`)
	anyYearRe    = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	doiRe        = regexp.MustCompile(`\b(10\.\d{4,9}/[^\s{},]+)`)
	arxivRe      = regexp.MustCompile(`(?i)(?:arxiv[:\s]*|arxiv\.org/abs/)(\d{4}\.\d{4,5}|[a-z\-]+(?:\.[A-Z]{2})?/\d{7})`)
	urlRe        = regexp.MustCompile(`\\url\s*\{([^{}]+)\}`)
	pagesRe      = regexp.MustCompile(`(?:pages?\s+|:\s*)(\d+)\s*[-–]+\s*(\d+)`)
	volumeRe     = regexp.MustCompile(`,\s*(\d+)\s*(?:\(\d+\))?\s*:`)
	linkCmdRe    = regexp.MustCompile(`\\(?:url|doi|href)\s*\{[^{}]*\}(?:\s*\{[^{}]*\})?|\\penalty-?\d+|\\natexlab\s*\{[^{}]*\}|\\(?:urlprefix|providecommand)\b`)
)

// ParseBBL reads the thebibliography environments of text and returns one
// entry per \bibitem. An item without a recognizable key is reported as an
// error wrapping types.ErrParse and skipped.
func ParseBBL(text string) ([]types.BibEntry, []error) {
	var entries []types.BibEntry
	var errs []error
	for _, block := range bibliographyBlocks(text) {
		items := bibitemRe.Split(block, -1)
		for _, item := range items[1:] {
			entry, err := parseBibitem(item)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			entries = append(entries, entry)
		}
	}
	return entries, errs
}

// bibliographyBlocks returns the body of every thebibliography environment.
func bibliographyBlocks(text string) []string {
	var blocks []string
	for {
		loc := beginBibRe.FindStringIndex(text)
		if loc == nil {
			return blocks
		}
		rest := text[loc[1]:]
		end := endBibRe.FindStringIndex(rest)
		if end == nil {
			return append(blocks, rest)
		}
		blocks = append(blocks, rest[:end[0]])
		text = rest[end[1]:]
	}
}

// parseBibitem reads the text following one \bibitem.
func parseBibitem(item string) (types.BibEntry, error) {
	raw := strings.TrimSpace(item)
	pos := skipSpace(item, 0)

	label := ""
	if pos < len(item) && item[pos] == '[' {
		end := matchBlock(item, pos, '[', ']')
		if end < 0 {
			return types.BibEntry{}, fmt.Errorf("%w: \\bibitem with unterminated label: %q", types.ErrParse, firstLine(raw))
		}
		label = item[pos+1 : end]
		pos = skipSpace(item, end+1)
	}

	key := ""
	if pos < len(item) && item[pos] == '{' {
		if end := matchBlock(item, pos, '{', '}'); end > 0 {
			key = strings.TrimSpace(item[pos+1 : end])
			pos = end + 1
		}
	}
	if key == "" {
		// Fall back to the last braced group on the first line.
		line := firstLine(item)
		if i := strings.LastIndexByte(line, '{'); i >= 0 {
			if j := strings.IndexByte(line[i:], '}'); j > 0 {
				key = strings.TrimSpace(line[i+1 : i+j])
				pos = i + j + 1
			}
		}
	}
	if key == "" {
		return types.BibEntry{}, fmt.Errorf("%w: \\bibitem without citation key: %q", types.ErrParse, firstLine(raw))
	}

	body := item[pos:]
	entry := types.BibEntry{Type: "article", Key: key, Fields: make(map[string]string)}
	entry.Set(types.FieldRaw, raw)

	segments := newblockRe.Split(body, -1)
	entry.Set(types.FieldAuthor, trimEnd(clean(segments[0])))
	if len(segments) > 1 {
		entry.Set(types.FieldTitle, trimEnd(clean(segments[1])))
	}
	if len(segments) > 2 {
		setVenue(&entry, strings.Join(segments[2:], " "))
	} else {
		entry.Type = "misc"
	}

	entry.Set(types.FieldYear, bibitemYear(label, body))
	if m := doiRe.FindStringSubmatch(body); m != nil {
		entry.Set(types.FieldDOI, strings.TrimRight(m[1], "."))
	}
	if m := arxivRe.FindStringSubmatch(body); m != nil {
		entry.Set(types.FieldEprint, m[1])
		entry.Set(types.FieldArchivePrefix, "arXiv")
	}
	if m := urlRe.FindStringSubmatch(body); m != nil {
		entry.Set(types.FieldURL, strings.TrimSpace(m[1]))
	}
	return entry, nil
}

// setVenue reads the venue segment: "In <booktitle>, ..." marks a
// conference paper, anything else names a journal or publisher.
func setVenue(entry *types.BibEntry, segment string) {
	text := clean(segment)
	if m := pagesRe.FindStringSubmatch(text); m != nil {
		entry.Set(types.FieldPages, m[1]+"--"+m[2])
	}
	if m := volumeRe.FindStringSubmatch(text); m != nil {
		entry.Set(types.FieldVolume, m[1])
	}

	if rest, ok := strings.CutPrefix(text, "In "); ok {
		entry.Type = "inproceedings"
		entry.Set(types.FieldBooktitle, venueName(rest))
		return
	}
	if strings.Contains(strings.ToLower(text), "arxiv preprint") {
		entry.Type = "misc"
		entry.Set(types.FieldJournal, venueName(text))
		return
	}
	entry.Set(types.FieldJournal, venueName(text))
}

// venueName is the leading part of a venue segment, before volume, pages or year.
func venueName(text string) string {
	name, _, _ := strings.Cut(text, ",")
	name = anyYearRe.ReplaceAllString(name, "")
	return trimEnd(name)
}

func bibitemYear(label, body string) string {
	if m := authorYearRe.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	if m := labelYearRe.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	if all := lineYearRe.FindAllStringSubmatch(body, -1); len(all) > 0 {
		return all[len(all)-1][1]
	}
	if m := anyYearRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

func clean(s string) string {
	return extract.CleanText(linkCmdRe.ReplaceAllString(s, " "))
}

func trimEnd(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ".,;:"))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}
