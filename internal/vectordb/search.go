package vectordb

import (
	"fmt"
	"strings"
)

// FormatSnippet renders one search result as a context block for the
// generation prompt. withSource labels the block with the bill it came
// from, so answers spanning several bills stay attributable; queries
// scoped to one bill skip the header.
func FormatSnippet(r SearchResult, withSource bool) string {
	if !withSource {
		return r.Document.Content
	}
	header := fmt.Sprintf("From bill %s", r.Document.Metadata.Bill)
	if t := r.Document.Metadata.Title; t != "" {
		header += fmt.Sprintf(" (%s)", t)
	}
	return header + ":\n" + r.Document.Content
}

// FormatResults renders search results as human-readable text, used
// by logging and the debug search path.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (similarity: %.4f) ---\n", i+1, r.Similarity))
		sb.WriteString(FormatSnippet(r, true))
		sb.WriteString("\n\n")
	}

	return sb.String()
}
