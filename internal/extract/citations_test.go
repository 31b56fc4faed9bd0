// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCitations(t *testing.T) {
	text := `As shown by \citet{smith2020} and others \citep[see][ch.~2]{jones2019, smith2020},
results vary \cite*{lee2021}. \citeauthor{kim2018} (\citeyear{kim2018}) and \citealp{x1}. \nocite{*}`

	got := ParseCitations(text)
	var keys []string
	for _, c := range got {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"smith2020", "jones2019", "lee2021", "kim2018", "x1"}, keys)
	assert.Contains(t, got[0].Context, `\citet{smith2020}`)
}

func TestParseCitations_Context(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "short text kept whole",
			text: "As shown \\cite{a}\n  by   others.",
			want: `As shown \cite{a} by others.`,
		},
		{
			name: "words cut by the window are dropped",
			text: "Alphabetically ordered long prefix words come before the citation \\cite{a} and a suffix that runs well past the forty byte window",
			want: `prefix words come before the citation \cite{a} and a suffix that runs well past the`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCitations(tt.text)
			assert.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Context)
		})
	}
}

func TestParseCitations_None(t *testing.T) {
	assert.Empty(t, ParseCitations("No citations here."))
}

func TestRewriteCitations(t *testing.T) {
	keys := map[string]string{
		"vaswani2017attention": "vaswani_attention_need_2017",
		"bahdanau2014":         "bahdanau_neural_machine_translation_2014",
	}
	tests := []struct {
		in   string
		want string
	}{
		{`\cite{vaswani2017attention}`, `\cite{vaswani_attention_need_2017}`},
		{`\citep[p.~3]{bahdanau2014, unknown}`, `\citep[p.~3]{bahdanau_neural_machine_translation_2014,unknown}`},
		{`\citet*{unknown}`, `\citet*{unknown}`},
		{`plain text`, `plain text`},
		{`\nocite{*}`, `\nocite{*}`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteCitations(tt.in, keys))
		})
	}
}

func TestRewriteCitations_EmptyMap(t *testing.T) {
	in := `\cite{a, b}`
	assert.Equal(t, in, RewriteCitations(in, nil))
}
