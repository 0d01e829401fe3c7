package retrieval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/studyflow-ai/studyflow/internal/domain"
)

// maxCitations caps how many page references are appended to an answer.
const maxCitations = 3

// pageMarker matches the trailing page token of chunk ids like "chunk_4_p12".
var pageMarker = regexp.MustCompile(`_p(\d+)$`)

// extractPages pulls distinct page numbers out of result chunk ids, in
// relevance order, capped at limit. Ids without a page token contribute
// nothing.
func extractPages(results []domain.SearchResult, limit int) []int {
	pages := []int{}
	seen := map[int]bool{}
	for _, r := range results {
		m := pageMarker.FindStringSubmatch(r.ChunkID)
		if m == nil {
			continue
		}
		page, err := strconv.Atoi(m[1])
		if err != nil || page <= 0 || seen[page] {
			continue
		}
		seen[page] = true
		pages = append(pages, page)
		if len(pages) == limit {
			break
		}
	}
	return pages
}

// appendCitations adds a human-readable reference list to the answer text.
func appendCitations(answer string, pages []int) string {
	if len(pages) == 0 {
		return answer
	}
	refs := make([]string, len(pages))
	for i, p := range pages {
		refs[i] = fmt.Sprintf("p. %d", p)
	}
	return answer + "\n\nSources: " + strings.Join(refs, ", ")
}
