// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibextract/pkg/types"
)

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	return fs
}

func newExtractor(depth int) *Extractor {
	cfg := types.DefaultSurveyConfig()
	cfg.MaxIncludeDepth = depth
	return New(cfg)
}

const surveyMain = `\documentclass{article}
\title{A Survey of Things}
\author{Alice Smith\thanks{MIT} \and Bob Jones}
\begin{document}
\maketitle
\section{Introduction}
Intro text \cite{intro}.
\input{sections/related}
\section{Method}
Our method.
\bibliography{refs}
\end{document}
`

const relatedSection = `\section{Related Work}
Transformers \citep{vaswani2017attention} changed everything.
\subsection{Background on Attention}
Attention predates them \cite[see][p.~3]{bahdanau2014}.
`

func TestExtract_IncludeAndSections(t *testing.T) {
	fs := memFs(t, map[string]string{
		"main.tex":             surveyMain,
		"sections/related.tex": relatedSection,
	})

	doc, err := newExtractor(16).Extract(fs, "main.tex")
	require.NoError(t, err)
	assert.Empty(t, doc.Warnings)
	assert.Contains(t, doc.Text, "Transformers")
	assert.NotContains(t, doc.Text, `\input`)

	require.Len(t, doc.Sections, 1, "the nested subsection lies inside the extracted section")
	sec := doc.Sections[0]
	assert.Equal(t, "Related Work", sec.Title)
	assert.Equal(t, 1, sec.Level)
	assert.Contains(t, sec.Text, "Background on Attention")
	assert.NotContains(t, sec.Text, "Our method")
	assert.Equal(t, `\section{Related Work}`, doc.Text[sec.Start:sec.Start+len(`\section{Related Work}`)])

	assert.Equal(t, "A Survey of Things", doc.Title)
	assert.Equal(t, "Alice Smith, Bob Jones", doc.Authors)
}

func TestExtract_IncludeForms(t *testing.T) {
	tests := []struct {
		name      string
		directive string
	}{
		{"input braces", `\input{sec}`},
		{"input with extension", `\input{sec.tex}`},
		{"input bare", "\\input sec\n"},
		{"include", `\include{sec}`},
		{"subfile", `\subfile{sec}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memFs(t, map[string]string{
				"main.tex": "\\begin{document}\n" + tt.directive + "\n\\end{document}",
				"sec.tex":  "\\section{Prior Work}\nEarlier ideas.",
			})
			doc, err := newExtractor(16).Extract(fs, "main.tex")
			require.NoError(t, err)
			require.Len(t, doc.Sections, 1)
			assert.Equal(t, "Earlier ideas.", doc.Sections[0].Text)
		})
	}
}

func TestExtract_MissingIncludeIsWarning(t *testing.T) {
	fs := memFs(t, map[string]string{
		"main.tex": "\\begin{document}\\input{missing}\n\\section{Background}\nText.\\end{document}",
	})
	doc, err := newExtractor(16).Extract(fs, "main.tex")
	require.NoError(t, err)
	require.Len(t, doc.Warnings, 1)
	assert.Equal(t, types.KindNotFound, doc.Warnings[0].Kind)
	require.Len(t, doc.Sections, 1)
}

func TestExtract_CommentedIncludeIgnored(t *testing.T) {
	fs := memFs(t, map[string]string{
		"main.tex": "% \\input{missing}\n\\section{Background}\nText 50\\% done.",
	})
	doc, err := newExtractor(16).Extract(fs, "main.tex")
	require.NoError(t, err)
	assert.Empty(t, doc.Warnings)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, `Text 50\% done.`, doc.Sections[0].Text)
}

func TestExtract_Cycle(t *testing.T) {
	fs := memFs(t, map[string]string{
		"main.tex": "\\documentclass{article}\\begin{document}\\input{a}\\end{document}",
		"a.tex":    "\\input{b}",
		"b.tex":    "\\input{a}",
	})
	doc, err := newExtractor(16).Extract(fs, "main.tex")
	require.ErrorIs(t, err, types.ErrRecursionLimit)
	require.NotNil(t, doc)
	assert.Contains(t, doc.Text, `\input{a}`, "unexpanded primary text is kept for bibliography extraction")
	assert.Empty(t, doc.Sections)
}

func TestExtract_SelfInclude(t *testing.T) {
	fs := memFs(t, map[string]string{"main.tex": `\input{main}`})
	_, err := newExtractor(16).Extract(fs, "main.tex")
	assert.ErrorIs(t, err, types.ErrRecursionLimit)
}

func TestExtract_DepthCeiling(t *testing.T) {
	fs := memFs(t, map[string]string{
		"main.tex": `\input{l1}`,
		"l1.tex":   `\input{l2}`,
		"l2.tex":   `\input{l3}`,
		"l3.tex":   `\section{Related Work} deep`,
	})

	_, err := newExtractor(2).Extract(fs, "main.tex")
	assert.ErrorIs(t, err, types.ErrRecursionLimit)

	doc, err := newExtractor(3).Extract(fs, "main.tex")
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "deep", doc.Sections[0].Text)
}

func TestExtract_NoMatchingSections(t *testing.T) {
	fs := memFs(t, map[string]string{
		"main.tex": "\\begin{document}\\section{Introduction}\nHi.\\section{Results}\nOK.\\end{document}",
	})
	doc, err := newExtractor(16).Extract(fs, "main.tex")
	require.NoError(t, err)
	assert.Empty(t, doc.Sections)
}

func TestExtract_MissingPrimary(t *testing.T) {
	_, err := newExtractor(16).Extract(afero.NewMemMapFs(), "main.tex")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestExtract_CustomTargets(t *testing.T) {
	cfg := types.DefaultSurveyConfig()
	cfg.TargetSections = []string{"State of the Art"}
	fs := memFs(t, map[string]string{
		"main.tex": "\\section{Related Work}\nA\\section{State-of-the-art}\nB",
	})
	doc, err := New(cfg).Extract(fs, "main.tex")
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "B", doc.Sections[0].Text)
}
