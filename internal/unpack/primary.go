// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unpack

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/pdiddy/bibextract/pkg/types"
)

// PrimaryLocator selects the top-level document of an extracted tree.
type PrimaryLocator interface {
	Locate(fs afero.Fs, files []string) (string, error)
}

// DefaultLocator picks the single compilable .tex file, then the file the
// submission's 00README names as toplevel, then the largest compilable file.
// A tree with one .tex file and no compilable marker uses that file.
type DefaultLocator struct{}

type candidate struct {
	name string
	size int
}

// Locate implements PrimaryLocator.
func (DefaultLocator) Locate(fs afero.Fs, files []string) (string, error) {
	var texFiles []string
	var compilable []candidate
	for _, f := range files {
		if !strings.EqualFold(path.Ext(f), ".tex") {
			continue
		}
		texFiles = append(texFiles, f)
		data, err := afero.ReadFile(fs, f)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", f, err)
		}
		if isCompilable(data) {
			compilable = append(compilable, candidate{name: f, size: len(data)})
		}
	}

	switch len(compilable) {
	case 1:
		return compilable[0].name, nil
	case 0:
		if len(texFiles) == 1 {
			return texFiles[0], nil
		}
		if top := listedToplevel(fs, files); top != "" && slices.Contains(texFiles, top) {
			return top, nil
		}
		return "", fmt.Errorf("%w: %d .tex files, none with \\documentclass", types.ErrPrimaryNotFound, len(texFiles))
	}

	if top := listedToplevel(fs, files); top != "" {
		for _, c := range compilable {
			if c.name == top {
				return top, nil
			}
		}
	}

	best, tie := compilable[0], false
	for _, c := range compilable[1:] {
		switch {
		case c.size > best.size:
			best, tie = c, false
		case c.size == best.size:
			tie = true
		}
	}
	if tie {
		return "", fmt.Errorf("%w: %d candidate documents, largest is ambiguous", types.ErrPrimaryNotFound, len(compilable))
	}
	return best.name, nil
}

// isCompilable reports whether data declares a document class and opens the
// document environment outside of comments.
func isCompilable(data []byte) bool {
	var class, begin bool
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := uncommented(sc.Text())
		if strings.Contains(line, `\documentclass`) || strings.Contains(line, `\documentstyle`) {
			class = true
		}
		if strings.Contains(line, `\begin{document}`) {
			begin = true
		}
		if class && begin {
			return true
		}
	}
	return false
}

// uncommented cuts line at its first unescaped %.
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

// listedToplevel returns the toplevel file named by the arXiv 00README
// listing, either the JSON form or the legacy 00README.XXX form.
func listedToplevel(fs afero.Fs, files []string) string {
	if slices.Contains(files, "00README.json") {
		if data, err := afero.ReadFile(fs, "00README.json"); err == nil && gjson.ValidBytes(data) {
			if name := gjson.GetBytes(data, `sources.#(usage=="toplevel").filename`).String(); name != "" {
				return path.Clean(name)
			}
		}
	}
	if slices.Contains(files, "00README.XXX") {
		data, err := afero.ReadFile(fs, "00README.XXX")
		if err != nil {
			return ""
		}
		for _, line := range strings.Split(string(data), "\n") {
			fields := strings.Fields(line)
			if len(fields) == 2 && fields[1] == "toplevelfile" {
				return path.Clean(fields[0])
			}
		}
	}
	return ""
}
