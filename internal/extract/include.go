// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/bibextract/pkg/types"
)

// includeRe matches \input{x}, \include{x}, \subfile{x} and the brace-less
// \input x form.
var includeRe = regexp.MustCompile(`\\(?:input|include|subfile)\s*\{([^{}]*)\}|\\input\s+([^\s{}\\]+)`)

type expander struct {
	fs       afero.Fs
	baseDir  string
	maxDepth int
	warnings []types.Warning
}

// expand splices includes into text depth-first. stack holds the files on the
// current inclusion path.
func (x *expander) expand(name, text string, depth int, stack map[string]bool) (string, error) {
	if depth > x.maxDepth {
		return "", fmt.Errorf("%w: %s nested deeper than %d", types.ErrRecursionLimit, name, x.maxDepth)
	}
	if stack[name] {
		return "", fmt.Errorf("%w: %s includes itself", types.ErrRecursionLimit, name)
	}
	stack[name] = true
	defer delete(stack, name)

	text = StripComments(text)
	matches := includeRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		last = m[1]

		target := ""
		if m[2] >= 0 {
			target = text[m[2]:m[3]]
		} else {
			target = text[m[4]:m[5]]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}

		file, data, ok := x.resolve(target)
		if !ok {
			x.warnings = append(x.warnings, types.Warning{
				Kind:    types.KindNotFound,
				Message: fmt.Sprintf("included file %q not found (from %s)", target, name),
			})
			continue
		}
		nested, err := x.expand(file, string(data), depth+1, stack)
		if err != nil {
			return "", err
		}
		b.WriteString(nested)
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// resolve finds an include target relative to the primary document's
// directory, as-is first and then with .tex appended.
func (x *expander) resolve(target string) (string, []byte, bool) {
	candidates := []string{target}
	if path.Ext(target) != ".tex" {
		candidates = append(candidates, target+".tex")
	}
	for _, c := range candidates {
		p := path.Join(x.baseDir, c)
		if strings.HasPrefix(p, "../") || p == ".." {
			continue
		}
		info, err := x.fs.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := afero.ReadFile(x.fs, p)
		if err != nil {
			continue
		}
		return p, data, true
	}
	return "", nil, false
}
