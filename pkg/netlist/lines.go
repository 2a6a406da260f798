package netlist

import (
	"regexp"
	"strings"
)

type logicalLine struct {
	num     int      // physical line number the statement starts on
	text    string   // continuation joined, inline comment removed
	raw     []string // physical lines as written
	comment bool
}

var (
	spaceRe  = regexp.MustCompile(`\s+`)
	equalsRe = regexp.MustCompile(`\s*=\s*`)
)

// splitLines groups physical lines into statements. Lines starting with "+"
// continue the previous statement; "*" lines are comments; ";" starts an
// inline comment. Blank lines are dropped.
func splitLines(text string) []logicalLine {
	var lines []logicalLine
	last := -1 // index of the last non-comment statement

	for i, physical := range strings.Split(text, "\n") {
		physical = strings.TrimRight(physical, "\r")
		line := strings.TrimSpace(physical)
		if len(line) == 0 {
			continue
		}

		if strings.HasPrefix(line, "*") {
			lines = append(lines, logicalLine{num: i + 1, text: line, raw: []string{physical}, comment: true})
			continue
		}

		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		if strings.HasPrefix(line, "+") && last >= 0 {
			cont := strings.TrimSpace(strings.TrimPrefix(line, "+"))
			if cont != "" {
				lines[last].text += " " + cont
			}
			lines[last].raw = append(lines[last].raw, physical)
			continue
		}

		if len(line) == 0 {
			// only an inline comment
			continue
		}

		lines = append(lines, logicalLine{num: i + 1, text: line, raw: []string{physical}})
		last = len(lines) - 1
	}

	for i := range lines {
		if !lines[i].comment {
			lines[i].text = normalizeStatement(lines[i].text)
		}
	}
	return lines
}

// normalizeStatement collapses whitespace and binds "k = v" into "k=v".
func normalizeStatement(text string) string {
	text = spaceRe.ReplaceAllString(text, " ")
	return equalsRe.ReplaceAllString(text, "=")
}

// firstField returns the statement's leading token.
func firstField(text string) string {
	if fields := strings.Fields(text); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
