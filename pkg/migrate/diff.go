package migrate

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 3

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

// UnifiedDiff renders a line-level unified diff of before and after with
// three lines of context. Identical inputs yield an empty string.
func UnifiedDiff(path string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var flat []diffLine

	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			flat = append(flat, diffLine{op: d.Type, text: line})
		}
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)

	for _, h := range hunks(flat) {
		writeHunk(&sb, flat, h)
	}

	return sb.String()
}

func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

type hunk struct{ from, to int }

// hunks groups changed lines with their context, merging groups whose
// context overlaps.
func hunks(flat []diffLine) []hunk {
	var out []hunk

	for i, l := range flat {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}

		from := max(i-diffContext, 0)
		to := min(i+diffContext+1, len(flat))

		if n := len(out); n > 0 && from <= out[n-1].to {
			out[n-1].to = max(out[n-1].to, to)

			continue
		}

		out = append(out, hunk{from: from, to: to})
	}

	return out
}

func writeHunk(sb *strings.Builder, flat []diffLine, h hunk) {
	oldStart, newStart := 1, 1

	for _, l := range flat[:h.from] {
		if l.op != diffmatchpatch.DiffInsert {
			oldStart++
		}

		if l.op != diffmatchpatch.DiffDelete {
			newStart++
		}
	}

	var oldLen, newLen int

	var body strings.Builder

	for _, l := range flat[h.from:h.to] {
		prefix := " "

		switch l.op {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
			oldLen++
		case diffmatchpatch.DiffInsert:
			prefix = "+"
			newLen++
		case diffmatchpatch.DiffEqual:
			oldLen++
			newLen++
		}

		body.WriteString(prefix)
		body.WriteString(l.text)

		if !strings.HasSuffix(l.text, "\n") {
			body.WriteString("\n\\ No newline at end of file\n")
		}
	}

	// An empty side names the line before the hunk.
	if oldLen == 0 {
		oldStart--
	}

	if newLen == 0 {
		newStart--
	}

	fmt.Fprintf(sb, "@@ -%d,%d +%d,%d @@\n%s", oldStart, oldLen, newStart, newLen, body.String())
}
