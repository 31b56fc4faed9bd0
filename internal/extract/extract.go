// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract expands a LaTeX document's include directives and finds the
// sections whose headings match the configured survey targets.
package extract

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/bibextract/pkg/types"
)

// ExtendedTargets is a broader catalogue of survey-relevant headings,
// added to the configured targets by the CLI's --extended-sections.
var ExtendedTargets = []string{
	"related work",
	"background",
	"literature review",
	"prior work",
	"previous work",
	"state of the art",
	"comparison with existing approaches",
	"comparative analysis",
	"existing work",
	"existing approaches",
	"existing methods",
	"review of the literature",
	"review of existing work",
	"overview of related work",
	"previous approaches",
}

// Document is a primary document after include expansion.
type Document struct {
	// Primary is the path of the top-level file within the tree.
	Primary string

	// Text is the comment-stripped document with every resolvable include
	// spliced in place. Section offsets index into it.
	Text string

	Sections []types.ExtractedSection

	// Title and Authors come from the preamble's \title and \author.
	Title   string
	Authors string

	Warnings []types.Warning
}

// Extractor finds in-scope sections. It holds no per-document state.
type Extractor struct {
	targets  []string
	maxDepth int
	log      *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

// New returns an Extractor for the target sections and include depth of cfg.
func New(cfg types.SurveyConfig, opts ...Option) *Extractor {
	targets := cfg.TargetSections
	if len(targets) == 0 {
		targets = types.DefaultTargetSections
	}
	e := &Extractor{
		targets:  normalizeTargets(targets),
		maxDepth: cfg.MaxIncludeDepth,
		log:      zap.NewNop(),
	}
	if e.maxDepth <= 0 {
		e.maxDepth = 16
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract expands primary and returns its in-scope sections. A document with
// no matching heading yields an empty section list.
//
// An include cycle or nesting deeper than the configured ceiling fails with
// types.ErrRecursionLimit. The returned Document is still non-nil in that
// case and carries the unexpanded primary text, so the bibliography can
// still be read from it.
func (e *Extractor) Extract(fs afero.Fs, primary string) (*Document, error) {
	data, err := afero.ReadFile(fs, primary)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", types.ErrNotFound, primary, err)
	}

	doc := &Document{Primary: primary}
	x := &expander{fs: fs, baseDir: path.Dir(primary), maxDepth: e.maxDepth}
	text, err := x.expand(primary, string(data), 0, map[string]bool{})
	doc.Warnings = x.warnings
	if err != nil {
		if errors.Is(err, types.ErrRecursionLimit) {
			doc.Text = StripComments(string(data))
			doc.Title, doc.Authors = DocumentMeta(doc.Text)
		}
		return doc, err
	}

	doc.Text = text
	doc.Title, doc.Authors = DocumentMeta(text)
	doc.Sections = FindSections(text, e.targets)

	e.log.Debug("extracted sections",
		zap.String("primary", primary),
		zap.Int("bytes", len(text)),
		zap.Int("sections", len(doc.Sections)),
	)
	return doc, nil
}

func normalizeTargets(targets []string) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if n := NormalizeTitle(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// StripComments removes LaTeX comments: every unescaped % through the end of
// its line. Line breaks are kept.
func StripComments(text string) string {
	if !strings.Contains(text, "%") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = uncommented(line)
	}
	return strings.Join(lines, "\n")
}

func uncommented(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != '%' {
			continue
		}
		bs := 0
		for j := i - 1; j >= 0 && line[j] == '\\'; j-- {
			bs++
		}
		if bs%2 == 0 {
			return line[:i]
		}
	}
	return line
}
