// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// citeRe matches natbib and biblatex citation commands with up to two
// optional arguments. Group 1 spans the key list.
var citeRe = regexp.MustCompile(`\\(?:[Cc]ite[a-zA-Z]*|nocite|parencite|textcite|autocite|footcite)\*?(?:\s*\[[^\]]*\]){0,2}\s*\{([^{}]*)\}`)

// Citation is one citation key as it first appears in a text.
type Citation struct {
	Key string

	// Context holds the words around the first occurrence.
	Context string
}

// ParseCitations returns every key cited in text, in order of first
// appearance. The wildcard key of \nocite{*} is skipped.
func ParseCitations(text string) []Citation {
	seen := make(map[string]bool)
	var citations []Citation
	for _, m := range citeRe.FindAllStringSubmatchIndex(text, -1) {
		for _, key := range strings.Split(text[m[2]:m[3]], ",") {
			key = strings.TrimSpace(key)
			if key == "" || key == "*" || seen[key] {
				continue
			}
			seen[key] = true
			citations = append(citations, Citation{
				Key:     key,
				Context: citationContext(text, m[0], m[1]),
			})
		}
	}
	return citations
}

// RewriteCitations replaces each cited key with keys[key] when present.
// Unknown keys and everything outside the key lists are left unchanged.
func RewriteCitations(text string, keys map[string]string) string {
	if len(keys) == 0 {
		return text
	}
	matches := citeRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[2]])
		parts := strings.Split(text[m[2]:m[3]], ",")
		for i, p := range parts {
			if repl, ok := keys[strings.TrimSpace(p)]; ok {
				parts[i] = repl
			} else {
				parts[i] = strings.TrimSpace(p)
			}
		}
		b.WriteString(strings.Join(parts, ","))
		last = m[3]
	}
	b.WriteString(text[last:])
	return b.String()
}

// citationContext returns the words around text[start:end], up to
// contextWindow bytes on each side, with whitespace collapsed. A word cut by
// the window edge is dropped.
func citationContext(text string, start, end int) string {
	lo, hi := max(start-contextWindow, 0), min(end+contextWindow, len(text))
	snippet := text[lo:hi]
	if hi < len(text) && !isSpace(text[hi]) {
		if i := strings.LastIndexFunc(snippet, unicode.IsSpace); i >= end-lo {
			snippet = snippet[:i]
		}
	}
	if lo > 0 && !isSpace(text[lo-1]) {
		if i := strings.IndexFunc(snippet, unicode.IsSpace); i >= 0 && i < start-lo {
			snippet = snippet[i:]
		}
	}
	return strings.Join(strings.Fields(snippet), " ")
}

const contextWindow = 40

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
