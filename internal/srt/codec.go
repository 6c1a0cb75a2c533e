package srt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrFormat marks structural problems in timed-text data.
var ErrFormat = errors.New("subtitle format error")

// Entry is one timed-text record.
type Entry struct {
	Sequence string
	Timing   string
	Lines    []string
}

// Text returns the entry lines joined by newlines.
func (e Entry) Text() string {
	return strings.Join(e.Lines, "\n")
}

func (e Entry) clone() Entry {
	lines := make([]string, len(e.Lines))
	copy(lines, e.Lines)
	return Entry{Sequence: e.Sequence, Timing: e.Timing, Lines: lines}
}

// MismatchError reports a translated unit count that does not line up with
// the entries it should replace.
type MismatchError struct {
	Entries int
	Units   int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("srt reassemble: %d entries but %d translated units", e.Entries, e.Units)
}

func (e *MismatchError) Unwrap() error { return ErrFormat }

// ErrorKind classifies the mismatch for status mapping.
func (e *MismatchError) ErrorKind() string { return "format" }

// Decode parses raw SubRip text into entries.
func Decode(raw string) []Entry {
	lines := splitLines(raw)
	entries := make([]Entry, 0, len(lines)/4+1)

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if !isSequence(line) {
			i++
			continue
		}
		sequence := line
		i++
		if i >= len(lines) {
			break
		}
		timing := strings.TrimSpace(lines[i])
		i++
		if timing == "" {
			continue
		}

		var text []string
		for i < len(lines) {
			current := strings.TrimSpace(lines[i])
			if current == "" || isSequence(current) {
				break
			}
			text = append(text, current)
			i++
		}
		if len(text) == 0 {
			continue
		}
		entries = append(entries, Entry{Sequence: sequence, Timing: timing, Lines: text})
	}
	return entries
}

// Encode serializes entries back to SubRip text. Every entry, including the
// last one, is followed by a blank separator line.
func Encode(entries []Entry) string {
	var sb strings.Builder
	for _, entry := range entries {
		sb.WriteString(entry.Sequence)
		sb.WriteByte('\n')
		sb.WriteString(entry.Timing)
		sb.WriteByte('\n')
		for _, line := range entry.Lines {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// TextUnits returns one cleaned translation unit per entry, in entry order.
func TextUnits(entries []Entry) []string {
	units := make([]string, len(entries))
	for i, entry := range entries {
		units[i] = CleanMarkup(entry.Text())
	}
	return units
}

// Reassemble replaces entry text with the matching translated unit. Empty
// units keep the original lines. When the counts differ the original entries
// are returned unchanged together with a *MismatchError.
func Reassemble(entries []Entry, units []string) ([]Entry, error) {
	out := make([]Entry, len(entries))
	if len(entries) != len(units) {
		for i, entry := range entries {
			out[i] = entry.clone()
		}
		return out, &MismatchError{Entries: len(entries), Units: len(units)}
	}
	for i, entry := range entries {
		out[i] = entry.clone()
		unit := strings.TrimSpace(units[i])
		if unit == "" {
			continue
		}
		out[i].Lines = strings.Split(unit, "\n")
	}
	return out, nil
}

var markupPattern = regexp.MustCompile(`<[^>]+>`)

// CleanMarkup strips angle-bracket tags and collapses whitespace runs.
func CleanMarkup(text string) string {
	stripped := markupPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(stripped), " ")
}

func splitLines(raw string) []string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Split(raw, "\n")
}

func isSequence(line string) bool {
	if line == "" {
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] < '0' || line[i] > '9' {
			return false
		}
	}
	return true
}
