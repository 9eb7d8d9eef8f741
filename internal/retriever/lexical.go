// Package retriever ranks document chunks against a natural-language
// query by keyword overlap. It is a deliberate placeholder for a true
// embedding-based retriever; the interface (text in, ranked text out)
// is the stable contract a future swap must honor.
package retriever

import (
	"sort"
	"strings"

	"contract-intel/internal/models"
)

// DefaultTopK is the default number of chunks returned by a search.
const DefaultTopK = 5

// Scored pairs a chunk with its relevance score.
type Scored struct {
	models.Chunk
	Score int
}

// Lexical scores chunks by how many unique query words occur in them.
type Lexical struct{}

// NewLexical creates a Lexical retriever.
func NewLexical() *Lexical {
	return &Lexical{}
}

// Search returns the topK highest-scoring chunks for query, fewer if
// fewer qualify. A chunk's score is the number of unique lower-cased
// query words that occur in its lower-cased text; chunks scoring zero
// are excluded. Ties keep original corpus order, which fixes citation
// order downstream.
func (l *Lexical) Search(query string, chunks []models.Chunk, topK int) []Scored {
	words := uniqueWords(query)
	if len(words) == 0 {
		return nil
	}

	var scored []Scored
	for _, chunk := range chunks {
		text := strings.ToLower(chunk.Text)
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, Scored{Chunk: chunk, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK >= 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// uniqueWords lower-cases and whitespace-tokenizes the query, keeping
// each word once in first-seen order.
func uniqueWords(query string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}
