// Package compose implements the line generator: it folds a list of labeled
// fields into newline-joined "label : value" rows ready to paste into the
// store system.
package compose

import "strings"

// Field is one labeled input on the generator form. A multiline field holds
// one value per line; a single-line field holds a scalar that repeats on
// every generated row.
type Field struct {
	ID        string
	Label     string
	Value     string
	Multiline bool
}

const (
	pairSeparator = " : "
	partSeparator = " / "
)

// Compose builds the output block. Row i pairs the i-th line of every
// multiline field with the (repeated) value of every single-line field,
// preserving field order. Fields with an empty label or an empty value at a
// given row contribute nothing; rows with no contributions are dropped
// entirely rather than emitted blank.
//
// Compose is pure: it performs no I/O and never fails. Empty input yields "".
func Compose(fields []Field) string {
	maxLines := 1
	hasMultiline := false
	for _, f := range fields {
		if !f.Multiline {
			continue
		}
		hasMultiline = true
		if n := len(splitLines(f.Value)); n > maxLines {
			maxLines = n
		}
	}
	if !hasMultiline {
		maxLines = 1
	}

	var rows []string
	for i := 0; i < maxLines; i++ {
		var parts []string
		for _, f := range fields {
			label := strings.TrimSpace(f.Label)
			if label == "" {
				continue
			}
			var val string
			if f.Multiline {
				lines := splitLines(f.Value)
				if i < len(lines) {
					val = strings.TrimSpace(lines[i])
				}
			} else {
				val = strings.TrimSpace(f.Value)
			}
			if val == "" {
				continue
			}
			parts = append(parts, label+pairSeparator+val)
		}
		if len(parts) > 0 {
			rows = append(rows, strings.Join(parts, partSeparator))
		}
	}
	return strings.Join(rows, "\n")
}

// LineCount reports how many rows a composed block contains.
func LineCount(block string) int {
	if strings.TrimSpace(block) == "" {
		return 0
	}
	return strings.Count(block, "\n") + 1
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}
