// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		dirs  []string
		want  Secrets
	}{
		{
			name: "reads key files and trims whitespace",
			files: map[string]string{
				CrossrefMailto: "  someone@example.org  \n",
				OpenAlexEmail:  "user@example.com\n",
			},
			want: Secrets{
				CrossrefMailto: "someone@example.org",
				OpenAlexEmail:  "user@example.com",
			},
		},
		{
			name: "skips empty files",
			files: map[string]string{
				OpenAlexEmail:     "user@example.com",
				"empty-key":       "",
				"whitespace-only": "   \n\t  ",
			},
			want: Secrets{OpenAlexEmail: "user@example.com"},
		},
		{
			name: "skips dotfiles",
			files: map[string]string{
				".gitkeep":     "",
				".hidden-key":  "secret",
				CrossrefMailto: "real@example.org",
			},
			want: Secrets{CrossrefMailto: "real@example.org"},
		},
		{
			name:  "skips subdirectories",
			files: map[string]string{CrossrefMailto: "a@example.org"},
			dirs:  []string{"nested"},
			want:  Secrets{CrossrefMailto: "a@example.org"},
		},
		{
			name: "returns empty set for empty directory",
			want: Secrets{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, fs.MkdirAll(DefaultDir, 0o755))
			for name, body := range tt.files {
				require.NoError(t, afero.WriteFile(fs, filepath.Join(DefaultDir, name), []byte(body), 0o600))
			}
			for _, d := range tt.dirs {
				require.NoError(t, fs.MkdirAll(filepath.Join(DefaultDir, d), 0o755))
			}

			got, err := Load(fs, DefaultDir, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	got, err := Load(afero.NewMemMapFs(), "does-not-exist", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions do not apply to root")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CrossrefMailto), []byte("a@example.org"), 0o644))
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(afero.NewOsFs(), dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "a@example.org", got.Get(CrossrefMailto))
	assert.NotContains(t, got, "bad-key", "unreadable file is skipped")
}

func TestSecrets_Or(t *testing.T) {
	s := Secrets{CrossrefMailto: "file@example.org"}
	assert.Equal(t, "flag@example.org", s.Or(CrossrefMailto, "flag@example.org"))
	assert.Equal(t, "file@example.org", s.Or(CrossrefMailto, ""))
	assert.Empty(t, s.Or(OpenAlexEmail, ""))
	assert.Equal(t, []string{CrossrefMailto}, s.Keys())
}
