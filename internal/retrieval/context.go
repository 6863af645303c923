package retrieval

import (
	"fmt"
	"strings"

	"docuchat/internal/models"
)

// FormatContext renders search hits as a labelled context block for the
// model. Empty input yields an empty string.
func FormatContext(hits []models.SearchHit) string {
	if len(hits) == 0 {
		return ""
	}
	parts := make([]string, 0, len(hits))
	for i, hit := range hits {
		score := hit.Similarity
		if hit.RRFScore > 0 {
			score = hit.RRFScore
		}
		if hit.Reranked {
			score = hit.RerankScore
		}
		label := fmt.Sprintf("Source %d", i+1)
		if hit.Meta.Title != "" {
			label += " - " + hit.Meta.Title
		}
		if hit.Meta.DocumentType != "" {
			label += " [" + hit.Meta.DocumentType + "]"
		}
		parts = append(parts, fmt.Sprintf("[%s (relevance: %.2f)]\n%s", label, score, hit.Chunk.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
