package srt

import (
	"fmt"
	"strings"
)

// Validate reports structural issues worth logging before translation.
// An empty result means the entries look sane.
func Validate(entries []Entry) []string {
	if len(entries) == 0 {
		return []string{"empty_subtitle_file"}
	}
	var issues []string
	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		if !strings.Contains(entry.Timing, "-->") {
			issues = append(issues, fmt.Sprintf("entry %s: timing %q has no range marker", entry.Sequence, entry.Timing))
		}
		if prev, ok := seen[entry.Sequence]; ok {
			issues = append(issues, fmt.Sprintf("entry %s: duplicate sequence (first at position %d)", entry.Sequence, prev+1))
			continue
		}
		seen[entry.Sequence] = i
	}
	return issues
}
