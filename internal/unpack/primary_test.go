// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unpack

import (
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibextract/pkg/types"
)

const doc = "\\documentclass{article}\n\\begin{document}\nx\n\\end{document}\n"

func memTree(t *testing.T, files map[string]string) (afero.Fs, []string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	var names []string
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
		names = append(names, name)
	}
	sort.Strings(names)
	return fs, names
}

func TestDefaultLocator(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		want    string
		wantErr error
	}{
		{
			name:  "single compilable file",
			files: map[string]string{"paper.tex": doc, "intro.tex": "\\section{Intro}"},
			want:  "paper.tex",
		},
		{
			name:  "commented documentclass is ignored",
			files: map[string]string{"old.tex": "% \\documentclass{article}\n\\begin{document}", "new.tex": doc},
			want:  "new.tex",
		},
		{
			name: "00README.json toplevel wins",
			files: map[string]string{
				"a.tex":         doc + "padding padding padding",
				"b.tex":         doc,
				"00README.json": `{"sources":[{"filename":"a.tex","usage":"include"},{"filename":"b.tex","usage":"toplevel"}]}`,
			},
			want: "b.tex",
		},
		{
			name: "00README.XXX toplevelfile wins",
			files: map[string]string{
				"a.tex":        doc + "padding",
				"b.tex":        doc,
				"00README.XXX": "b.tex toplevelfile\nfig.eps ignore\n",
			},
			want: "b.tex",
		},
		{
			name:  "largest candidate",
			files: map[string]string{"short.tex": doc, "long.tex": doc + "much more text here"},
			want:  "long.tex",
		},
		{
			name:    "size tie is ambiguous",
			files:   map[string]string{"a.tex": doc, "b.tex": doc},
			wantErr: types.ErrPrimaryNotFound,
		},
		{
			name:  "lone tex file without marker",
			files: map[string]string{"main.tex": "\\section{Related Work}"},
			want:  "main.tex",
		},
		{
			name:    "several tex files without marker",
			files:   map[string]string{"a.tex": "x", "b.tex": "y"},
			wantErr: types.ErrPrimaryNotFound,
		},
		{
			name:    "no tex files",
			files:   map[string]string{"refs.bib": "@misc{x}"},
			wantErr: types.ErrPrimaryNotFound,
		},
		{
			name:  "nested directory",
			files: map[string]string{"src/paper.tex": doc, "src/sec.tex": "x"},
			want:  "src/paper.tex",
		},
		{
			name:  "escaped percent keeps the line",
			files: map[string]string{"a.tex": "50\\% \\documentclass{article}\n\\begin{document}", "b.tex": "x"},
			want:  "a.tex",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, names := memTree(t, tt.files)
			got, err := DefaultLocator{}.Locate(fs, names)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUncommented(t *testing.T) {
	assert.Equal(t, "abc ", uncommented("abc % comment"))
	assert.Equal(t, `50\% done`, uncommented(`50\% done`))
	assert.Equal(t, `a\\`, uncommented(`a\\% comment`))
	assert.Equal(t, "", uncommented("% all comment"))
}
