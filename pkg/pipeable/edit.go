package pipeable

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Sentinel errors for edit validation.
var (
	ErrEditOutOfRange = errors.New("edit out of range")
	ErrEditWidth      = errors.New("edit has invalid width")
	ErrEditOverlap    = errors.New("edits overlap")
	ErrEmptySpan      = errors.New("violation span is empty")
)

// Edit replaces the bytes [Start, End) with Text. An edit with Start == End
// is an insertion.
type Edit struct {
	Text  string `json:"text"  yaml:"text"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end"   yaml:"end"`
}

// Insert returns an edit inserting text at offset.
func Insert(offset int, text string) Edit {
	return Edit{Start: offset, End: offset, Text: text}
}

// Replace returns an edit replacing [start, end) with text.
func Replace(start, end int, text string) Edit {
	return Edit{Start: start, End: end, Text: text}
}

// IsInsert reports whether the edit inserts without removing text.
func (e Edit) IsInsert() bool {
	return e.Start == e.End
}

func (e Edit) String() string {
	if e.IsInsert() {
		return fmt.Sprintf("insert %q at %d", e.Text, e.Start)
	}

	return fmt.Sprintf("replace [%d,%d) with %q", e.Start, e.End, e.Text)
}

// SortEdits orders edits by start offset. At equal offsets insertions come
// before replacements; otherwise generation order is kept.
func SortEdits(edits []Edit) {
	slices.SortStableFunc(edits, func(a, b Edit) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}

		switch {
		case a.IsInsert() && !b.IsInsert():
			return -1
		case !a.IsInsert() && b.IsInsert():
			return 1
		default:
			return 0
		}
	})
}

// ValidateEdits checks sorted edits against a source of size bytes. Negative
// widths, empty insertions, offsets outside the source and overlapping spans
// are rejected.
func ValidateEdits(edits []Edit, size int) error {
	for i, e := range edits {
		switch {
		case e.Start < 0 || e.End > size:
			return fmt.Errorf("%w: %s in %d bytes", ErrEditOutOfRange, e, size)
		case e.End < e.Start:
			return fmt.Errorf("%w: %s", ErrEditWidth, e)
		case e.IsInsert() && e.Text == "":
			return fmt.Errorf("%w: empty insertion at %d", ErrEditWidth, e.Start)
		}

		if i > 0 && edits[i-1].End > e.Start {
			return fmt.Errorf("%w: %s and %s", ErrEditOverlap, edits[i-1], e)
		}
	}

	return nil
}

// Apply returns src with the edits applied. Edits are sorted and validated
// first; src is not modified.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	sorted := slices.Clone(edits)
	SortEdits(sorted)

	if err := ValidateEdits(sorted, len(src)); err != nil {
		return nil, err
	}

	var sb strings.Builder

	sb.Grow(len(src) + 64)

	last := 0

	for _, e := range sorted {
		sb.Write(src[last:e.Start])
		sb.WriteString(e.Text)
		last = e.End
	}

	sb.Write(src[last:])

	return []byte(sb.String()), nil
}

// editsConflict reports whether two edits from different violations cannot
// both be applied in one pass.
func editsConflict(a, b Edit) bool {
	if a.Start == b.Start {
		return true
	}

	if a.Start > b.Start {
		a, b = b, a
	}

	return a.End > b.Start
}

// Violation is one detected migration with the edits that fix it.
type Violation struct {
	Rule    string `json:"rule"    yaml:"rule"`
	Message string `json:"message" yaml:"message"`
	Edits   []Edit `json:"edits"   yaml:"edits"`
	Start   int    `json:"start"   yaml:"start"`
	End     int    `json:"end"     yaml:"end"`
}

// NewViolation builds a violation over [start, end) of a source of size
// bytes. The edits are copied, sorted and validated.
func NewViolation(rule, message string, start, end int, edits []Edit, size int) (Violation, error) {
	if start < 0 || end > size || end <= start {
		return Violation{}, fmt.Errorf("%w: [%d,%d)", ErrEmptySpan, start, end)
	}

	sorted := slices.Clone(edits)
	SortEdits(sorted)

	if err := ValidateEdits(sorted, size); err != nil {
		return Violation{}, fmt.Errorf("%s: %w", rule, err)
	}

	return Violation{Rule: rule, Message: message, Start: start, End: end, Edits: sorted}, nil
}

// Conflicts reports whether any edit of v overlaps or shares a start offset
// with an edit of other.
func (v Violation) Conflicts(other Violation) bool {
	for _, a := range v.Edits {
		for _, b := range other.Edits {
			if editsConflict(a, b) {
				return true
			}
		}
	}

	return false
}

// SelectCompatible keeps violations in order, dropping any that conflict
// with one already kept. Dropped violations are returned separately so a
// later pass can retry them on the rewritten source.
func SelectCompatible(violations []Violation) (kept, deferred []Violation) {
	for _, v := range violations {
		if slices.ContainsFunc(kept, v.Conflicts) {
			deferred = append(deferred, v)

			continue
		}

		kept = append(kept, v)
	}

	return kept, deferred
}

// Edits flattens the edits of violations into one sorted list.
func Edits(violations []Violation) []Edit {
	var out []Edit
	for _, v := range violations {
		out = append(out, v.Edits...)
	}

	SortEdits(out)

	return out
}
