// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibliography

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/bibextract/pkg/types"
)

// monthMacros are the predefined BibTeX month strings.
var monthMacros = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

// ParseBib scans BibTeX source permissively. It tolerates missing commas
// between fields, a missing comma before the closing delimiter, entries
// delimited by parentheses, # concatenation, @string macros and month macros,
// and a missing closing delimiter when the next entry begins. @comment and
// @preamble blocks are skipped.
//
// An entry that cannot be parsed is reported as an error wrapping
// types.ErrParse; scanning resumes at the next @.
func ParseBib(src string) ([]types.BibEntry, []error) {
	p := &bibParser{src: src, macros: make(map[string]string)}
	return p.parse()
}

type bibParser struct {
	src    string
	pos    int
	macros map[string]string
}

func (p *bibParser) parse() ([]types.BibEntry, []error) {
	var entries []types.BibEntry
	var errs []error
	for {
		at := strings.IndexByte(p.src[p.pos:], '@')
		if at < 0 {
			return entries, errs
		}
		start := p.pos + at
		p.pos = start + 1

		entry, ok, err := p.item()
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: line %d: %w", types.ErrParse, p.line(start), err))
			p.pos = start + 1
			continue
		}
		if ok {
			entries = append(entries, entry)
		}
	}
}

// item parses one @-block after the @. ok is false for blocks that yield no
// entry (@comment, @preamble, @string, stray @ signs).
func (p *bibParser) item() (types.BibEntry, bool, error) {
	typ := strings.ToLower(p.ident())
	if typ == "" {
		return types.BibEntry{}, false, nil
	}
	p.skipSpace()
	if p.eof() || (p.peek() != '{' && p.peek() != '(') {
		// Text outside entries is a comment in BibTeX, stray @ signs included.
		return types.BibEntry{}, false, nil
	}
	open := p.peek()
	closer := byte('}')
	if open == '(' {
		closer = ')'
	}

	switch typ {
	case "comment", "preamble":
		end := matchBlock(p.src, p.pos, open, closer)
		if end < 0 {
			return types.BibEntry{}, false, fmt.Errorf("@%s: unterminated block", typ)
		}
		p.pos = end + 1
		return types.BibEntry{}, false, nil
	case "string":
		p.pos++
		p.skipSpace()
		name := strings.ToLower(p.fieldName())
		p.skipSpace()
		if name == "" || !p.consume('=') {
			return types.BibEntry{}, false, fmt.Errorf("@string: expected name = value")
		}
		value, err := p.value(closer)
		if err != nil {
			return types.BibEntry{}, false, fmt.Errorf("@string{%s}: %w", name, err)
		}
		p.macros[name] = value
		p.skipSpace()
		p.consume(closer)
		return types.BibEntry{}, false, nil
	}

	p.pos++
	p.skipSpace()
	key := p.key(closer)
	if key == "" {
		return types.BibEntry{}, false, fmt.Errorf("@%s: missing citation key", typ)
	}
	entry := types.BibEntry{Type: typ, Key: key, Fields: make(map[string]string)}

	for {
		p.skipSeparators()
		if p.eof() {
			return entry, true, nil
		}
		c := p.peek()
		if c == closer {
			p.pos++
			return entry, true, nil
		}
		if c == '@' {
			// Unclosed entry followed by the next one.
			return entry, true, nil
		}
		name := strings.ToLower(p.fieldName())
		if name == "" {
			return types.BibEntry{}, false, fmt.Errorf("@%s{%s: unexpected %q", typ, key, c)
		}
		p.skipSpace()
		if !p.consume('=') {
			return types.BibEntry{}, false, fmt.Errorf("@%s{%s: field %s has no value", typ, key, name)
		}
		value, err := p.value(closer)
		if err != nil {
			return types.BibEntry{}, false, fmt.Errorf("@%s{%s: field %s: %w", typ, key, name, err)
		}
		if value != "" {
			entry.Fields[name] = value
		}
	}
}

// value reads a field value: braced, quoted or bare parts joined by #.
func (p *bibParser) value(closer byte) (string, error) {
	var b strings.Builder
	for {
		p.skipSpace()
		if p.eof() {
			return "", fmt.Errorf("unexpected end of input")
		}
		switch c := p.peek(); {
		case c == '{':
			end := matchBlock(p.src, p.pos, '{', '}')
			if end < 0 {
				return "", fmt.Errorf("unbalanced braces")
			}
			b.WriteString(p.src[p.pos+1 : end])
			p.pos = end + 1
		case c == '"':
			end := matchQuote(p.src, p.pos)
			if end < 0 {
				return "", fmt.Errorf("unterminated quoted value")
			}
			b.WriteString(p.src[p.pos+1 : end])
			p.pos = end + 1
		default:
			start := p.pos
			for !p.eof() {
				c := p.peek()
				if c == ',' || c == '#' || c == closer || c == '\n' || c == '}' || unicode.IsSpace(rune(c)) {
					break
				}
				p.pos++
			}
			word := p.src[start:p.pos]
			if word == "" {
				return "", fmt.Errorf("missing value")
			}
			if m, ok := p.macros[strings.ToLower(word)]; ok {
				b.WriteString(m)
			} else if m, ok := monthMacros[strings.ToLower(word)]; ok {
				b.WriteString(m)
			} else {
				b.WriteString(word)
			}
		}
		p.skipSpace()
		if !p.consume('#') {
			return collapse(b.String()), nil
		}
	}
}

func (p *bibParser) key(closer byte) string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if c == ',' || c == closer || c == '\n' || c == '=' {
			break
		}
		p.pos++
	}
	key := strings.TrimSpace(p.src[start:p.pos])
	if !p.eof() && p.peek() == '=' {
		// "@article{title = ..." has no key; rewind so the error points here.
		p.pos = start
		return ""
	}
	return key
}

func (p *bibParser) ident() string {
	start := p.pos
	for !p.eof() && (isLetter(p.peek()) || isDigit(p.peek())) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *bibParser) fieldName() string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if isLetter(c) || isDigit(c) || c == '_' || c == '-' || c == ':' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *bibParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.peek())) {
		p.pos++
	}
}

func (p *bibParser) skipSeparators() {
	for !p.eof() && (unicode.IsSpace(rune(p.peek())) || p.peek() == ',') {
		p.pos++
	}
}

func (p *bibParser) consume(c byte) bool {
	if !p.eof() && p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *bibParser) peek() byte { return p.src[p.pos] }
func (p *bibParser) eof() bool  { return p.pos >= len(p.src) }

func (p *bibParser) line(offset int) int {
	return strings.Count(p.src[:offset], "\n") + 1
}

// matchBlock returns the index of the delimiter closing src[open]. Braces
// nest inside either delimiter kind; backslash escapes are honored.
func matchBlock(src string, open int, left, right byte) int {
	depth := 0
	braces := 0
	for i := open; i < len(src); i++ {
		switch c := src[i]; {
		case c == '\\':
			i++
		case left != '{' && c == '{':
			braces++
		case left != '{' && c == '}':
			braces--
		case c == left:
			depth++
		case c == right && braces == 0:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchQuote returns the index of the quote closing src[open], skipping
// quotes nested in braces.
func matchQuote(src string, open int) int {
	depth := 0
	for i := open + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		case '"':
			if depth <= 0 {
				return i
			}
		}
	}
	return -1
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
