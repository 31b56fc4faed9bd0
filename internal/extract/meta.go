// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"
)

var (
	titleCmdRe  = regexp.MustCompile(`\\title\s*(?:\[[^\]]*\])?\s*\{`)
	authorCmdRe = regexp.MustCompile(`\\author\s*(?:\[[^\]]*\])?\s*\{`)
	andRe       = regexp.MustCompile(`\\(?:and|AND)\b`)
)

// DocumentMeta reads the first \title and every \author of a document.
// Authors are listed comma-separated, each reduced to the line naming them
// (affiliations after \\ are dropped).
func DocumentMeta(text string) (title, authors string) {
	if loc := titleCmdRe.FindStringIndex(text); loc != nil {
		if closing := matchDelim(text, loc[1]-1, '{', '}'); closing > 0 {
			title = CleanText(text[loc[1]:closing])
		}
	}

	var names []string
	for _, loc := range authorCmdRe.FindAllStringIndex(text, -1) {
		closing := matchDelim(text, loc[1]-1, '{', '}')
		if closing < 0 {
			continue
		}
		for _, part := range andRe.Split(text[loc[1]:closing], -1) {
			line, _, _ := strings.Cut(part, `\\`)
			for _, name := range strings.Split(CleanText(line), ",") {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
		}
	}
	return title, strings.Join(names, ", ")
}
