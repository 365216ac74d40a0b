// SPDX-License-Identifier: MPL-2.0

package docfmt

import (
	"regexp"
	"strings"
)

var (
	boldRe    = regexp.MustCompile(`(^|[\s(\["'])\*([^*\s](?:[^*]*[^*\s])?)\*($|[\s.,;:!?)\]"'])`)
	italicRe  = regexp.MustCompile(`(^|[\s(\["'])_([^_\s](?:[^_]*[^_\s])?)_($|[\s.,;:!?)\]"'])`)
	linkRe    = regexp.MustCompile(`\[([^|\]\s]+)\|([^\]]+)\]`)
	headingRe = regexp.MustCompile(`^(={1,3})\s+(.+?)\s+={1,3}$`)
)

// RobotToMarkdown converts Robot Framework documentation markup to Markdown:
// *bold*, _italic_, ``code``, [target|label] links, = Heading = sections,
// | table | rows and "| " preformatted blocks. Plain paragraphs and "- "
// lists carry over unchanged.
func RobotToMarkdown(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))

	inTable := false
	inPre := false
	for _, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		isRow := len(trimmed) > 1 && strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")
		isPre := !isRow && (trimmed == "|" || strings.HasPrefix(trimmed, "| "))

		if inPre && !isPre {
			out = append(out, "```")
			inPre = false
		}
		if inTable && !isRow {
			inTable = false
		}

		switch {
		case isRow:
			cells := tableCells(trimmed)
			out = append(out, "| "+strings.Join(cells, " | ")+" |")
			if !inTable {
				sep := make([]string, len(cells))
				for i := range sep {
					sep[i] = "---"
				}
				out = append(out, "| "+strings.Join(sep, " | ")+" |")
				inTable = true
			}
		case isPre:
			if !inPre {
				out = append(out, "```")
				inPre = true
			}
			out = append(out, strings.TrimPrefix(strings.TrimPrefix(trimmed, "|"), " "))
		default:
			if m := headingRe.FindStringSubmatch(trimmed); m != nil {
				out = append(out, strings.Repeat("#", len(m[1]))+" "+inline(m[2]))
				continue
			}
			out = append(out, inline(line))
		}
	}
	if inPre {
		out = append(out, "```")
	}
	return strings.Join(out, "\n")
}

// tableCells splits a "| a | b |" row, converting inline markup in each cell.
func tableCells(row string) []string {
	parts := strings.Split(strings.Trim(row, "|"), "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = inline(strings.TrimSpace(p))
	}
	return cells
}

// inline converts inline markup outside ``code`` spans.
func inline(s string) string {
	segments := strings.Split(s, "``")
	// An odd number of markers leaves the last one literal.
	if len(segments)%2 == 0 {
		segments[len(segments)-2] += "``" + segments[len(segments)-1]
		segments = segments[:len(segments)-1]
	}
	var b strings.Builder
	for i, seg := range segments {
		if i%2 == 1 {
			b.WriteString("`" + seg + "`")
			continue
		}
		seg = linkRe.ReplaceAllString(seg, "[$2]($1)")
		seg = replaceAll(boldRe, seg, "$1**$2**$3")
		seg = replaceAll(italicRe, seg, "$1*$2*$3")
		b.WriteString(seg)
	}
	return b.String()
}

// replaceAll repeats a replacement until it is stable, since adjacent matches
// share their delimiter and a single pass skips every other one.
func replaceAll(re *regexp.Regexp, s, repl string) string {
	for range 4 {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			return s
		}
		s = next
	}
	return s
}
