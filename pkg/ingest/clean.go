package ingest

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	multiSpace = regexp.MustCompile(`[ \t]{2,}`)
	multiBlank = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes extracted text: strips control characters,
// collapses runs of whitespace, and drops lines that repeat across the
// document like headers, footers, and page numbers.
func CleanText(text string) string {
	text = stripControl(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiSpace.ReplaceAllString(text, " ")

	text = dropRepeatedFurniture(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = multiBlank.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// dropRepeatedFurniture removes short lines that occur three or more
// times verbatim. Page headers and footers repeat once per page, so in a
// multi-page document they dominate the duplicate counts.
func dropRepeatedFurniture(text string) string {
	lines := strings.Split(text, "\n")

	counts := make(map[string]int)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && len(trimmed) <= 80 {
			counts[trimmed]++
		}
	}

	furniture := make(map[string]bool)
	for line, n := range counts {
		if n >= 3 {
			furniture[line] = true
		}
	}
	if len(furniture) == 0 {
		return text
	}

	kept := lines[:0]
	seen := make(map[string]bool)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if furniture[trimmed] {
			// Keep the first occurrence so a legitimately repeated
			// heading is not erased entirely.
			if seen[trimmed] {
				continue
			}
			seen[trimmed] = true
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) || r == '�' {
			return -1
		}
		return r
	}, text)
}
