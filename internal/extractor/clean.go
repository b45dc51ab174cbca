package extractor

import (
	"regexp"
	"strings"
)

var (
	// blankRunRe matches runs of three or more newlines.
	blankRunRe = regexp.MustCompile(`\n{3,}`)

	// spaceRunRe matches runs of two or more spaces or tabs.
	spaceRunRe = regexp.MustCompile(`[ \t]{2,}`)
)

// Clean normalizes raw extracted page text. The steps run in a fixed order:
// null bytes are removed, lone newlines (soft line wraps) become spaces,
// runs of three or more newlines collapse to a paragraph break, runs of
// spaces collapse to one, and each line is trimmed. The result never
// contains null bytes or trailing whitespace on any line.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = collapseSoftWraps(s)
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = trimLines(s)
	return strings.TrimSpace(s)
}

// collapseSoftWraps replaces a newline with a space when it is not adjacent
// to another newline. Paragraph breaks (two or more consecutive newlines)
// are preserved.
func collapseSoftWraps(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\n' {
			b.WriteByte(c)
			continue
		}
		prevIsNL := i > 0 && s[i-1] == '\n'
		nextIsNL := i+1 < len(s) && s[i+1] == '\n'
		if prevIsNL || nextIsNL {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// trimLines removes leading and trailing whitespace from every line.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
