// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibliography

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/bibextract/pkg/types"
)

// SourceKind tells the extractor which parser a Source needs.
type SourceKind string

const (
	SourceInline SourceKind = "inline"
	SourceBBL    SourceKind = "bbl"
	SourceBib    SourceKind = "bib"
)

// Source is one piece of bibliography text found in a tree.
type Source struct {
	Kind SourceKind

	// Name is the file the text came from.
	Name string
	Text string
}

// SourceLocator finds the bibliography sources of a document.
type SourceLocator interface {
	Locate(fs afero.Fs, files []string, primary, expanded string) ([]Source, []types.Warning)
}

// DefaultLocator returns, in order: the inline thebibliography of the
// expanded document, every .bbl file, and the .bib databases the document
// names with \bibliography or \addbibresource. When it names none that
// exist, every .bib file of the tree is used.
type DefaultLocator struct{}

var (
	bibliographyCmdRe = regexp.MustCompile(`\\bibliography\s*\{([^{}]*)\}`)
	addBibResourceRe  = regexp.MustCompile(`\\addbibresource\s*(?:\[[^\]]*\])?\s*\{([^{}]*)\}`)
)

// Locate implements SourceLocator.
func (DefaultLocator) Locate(fs afero.Fs, files []string, primary, expanded string) ([]Source, []types.Warning) {
	var sources []Source
	var warnings []types.Warning

	if beginBibRe.MatchString(expanded) {
		sources = append(sources, Source{Kind: SourceInline, Name: primary, Text: expanded})
	}

	read := func(kind SourceKind, name string) {
		data, err := afero.ReadFile(fs, name)
		if err != nil {
			warnings = append(warnings, types.Warning{
				Kind:    types.KindNotFound,
				Message: fmt.Sprintf("reading bibliography %s: %v", name, err),
			})
			return
		}
		sources = append(sources, Source{Kind: kind, Name: name, Text: string(data)})
	}

	for _, f := range files {
		if strings.EqualFold(path.Ext(f), ".bbl") {
			read(SourceBBL, f)
		}
	}

	var bibFiles []string
	for _, f := range files {
		if strings.EqualFold(path.Ext(f), ".bib") {
			bibFiles = append(bibFiles, f)
		}
	}

	named := namedDatabases(expanded, path.Dir(primary))
	var used []string
	for _, n := range named {
		if slices.Contains(bibFiles, n) {
			used = append(used, n)
			continue
		}
		if len(bibFiles) > 0 {
			warnings = append(warnings, types.Warning{
				Kind:    types.KindNotFound,
				Message: fmt.Sprintf("bibliography database %s not in source archive", n),
			})
		}
	}
	if len(used) == 0 {
		used = bibFiles
	}
	for _, f := range used {
		read(SourceBib, f)
	}
	return sources, warnings
}

// namedDatabases lists the .bib files a document names, resolved against dir.
func namedDatabases(text, dir string) []string {
	var names []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if !strings.EqualFold(path.Ext(name), ".bib") {
			name += ".bib"
		}
		p := path.Join(dir, name)
		if !slices.Contains(names, p) {
			names = append(names, p)
		}
	}
	for _, m := range bibliographyCmdRe.FindAllStringSubmatch(text, -1) {
		for _, n := range strings.Split(m[1], ",") {
			add(n)
		}
	}
	for _, m := range addBibResourceRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return names
}
