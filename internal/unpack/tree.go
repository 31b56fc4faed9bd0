// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unpack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// Tree is an extracted source archive. Its filesystem is confined to the
// scratch root; paths are slash-separated and relative to it.
type Tree struct {
	// Root is the scratch directory on the underlying filesystem.
	Root string

	// Primary is the path of the top-level document.
	Primary string

	fs    afero.Fs
	base  afero.Fs
	files []string

	closeOnce sync.Once
	closeErr  error
}

func newTree(base afero.Fs, root string) *Tree {
	return &Tree{
		Root: root,
		fs:   afero.NewBasePathFs(base, root),
		base: base,
	}
}

// Fs returns the filesystem rooted at the scratch directory.
func (t *Tree) Fs() afero.Fs { return t.fs }

// Files returns every regular file in the tree, sorted.
func (t *Tree) Files() []string { return t.files }

// ReadFile reads a file of the tree.
func (t *Tree) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(t.fs, name)
}

// Close removes the scratch directory. It is safe to call more than once.
func (t *Tree) Close() error {
	t.closeOnce.Do(func() {
		if err := t.base.RemoveAll(t.Root); err != nil {
			t.closeErr = fmt.Errorf("removing %s: %w", t.Root, err)
		}
	})
	return t.closeErr
}

func (t *Tree) scan() error {
	var files []string
	err := afero.Walk(t.fs, string(filepath.Separator), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, err := filepath.Rel(string(filepath.Separator), path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing extracted files: %w", err)
	}
	sort.Strings(files)
	t.files = files
	return nil
}
