package brain

import (
	"math"
	"sort"

	"github.com/viterin/vek/vek32"
)

// Rerank orders documents by cosine similarity between their stored
// embeddings and the query embedding, highest first, and fills in the
// Score field. Documents without an embedding (or with a mismatched
// dimension) sink to the bottom with a zero score. The input slice is
// not modified.
func Rerank(query []float32, docs []Document) []Document {
	ranked := make([]Document, len(docs))
	copy(ranked, docs)

	for i := range ranked {
		ranked[i].Score = similarity(query, ranked[i].Embedding)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	return ranked
}

func similarity(query, embedding []float32) float64 {
	if len(query) == 0 || len(embedding) != len(query) {
		return 0
	}
	magQ := math.Sqrt(float64(vek32.Dot(query, query)))
	magE := math.Sqrt(float64(vek32.Dot(embedding, embedding)))
	if magQ == 0 || magE == 0 {
		return 0
	}
	return float64(vek32.Dot(query, embedding)) / (magQ * magE)
}
