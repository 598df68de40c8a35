package chat

import (
	"strings"

	"github.com/openlegis/billchat/internal/vectordb"
)

// assembleContext joins retrieved snippets in similarity order until
// the token budget is exhausted. annotate labels each snippet with its
// source bill, used for cross-bill questions where attribution matters.
func assembleContext(results []vectordb.SearchResult, counter TokenCounter, budget int, annotate bool) string {
	if len(results) == 0 || budget <= 0 {
		return ""
	}

	var parts []string
	used := 0
	for _, r := range results {
		snippet := vectordb.FormatSnippet(r, annotate)
		n := counter.Count(snippet)
		if used+n > budget {
			if len(parts) == 0 {
				// A single oversized snippet still beats no context.
				parts = append(parts, snippet)
			}
			break
		}
		parts = append(parts, snippet)
		used += n
	}
	return strings.Join(parts, "\n\n")
}
