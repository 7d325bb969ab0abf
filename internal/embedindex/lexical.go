package embedindex

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/sohamzycus/contractos/internal/model"
)

// BM25-style scoring constants, deliberately fixed (not tuned) so lexical
// scores are stable across runs — spec.md §4.6 requires the fallback be
// "deterministic".
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

var tokenRe = regexp.MustCompile(`[A-Za-z0-9]+`)

func tokenize(text string) []string {
	matches := tokenRe.FindAllString(strings.ToLower(text), -1)
	return matches
}

// lexicalSearch ranks chunks by BM25 against queryText when no semantic
// index is usable for this document (spec.md §4.6's guaranteed fallback).
func lexicalSearch(queryText string, docID model.DocumentID, chunks []model.Chunk, chunkTypeFilter *model.ChunkType, topK int) ([]model.SearchHit, error) {
	queryTerms := tokenize(queryText)
	if len(queryTerms) == 0 || len(chunks) == 0 {
		return nil, nil
	}

	docTokens := make([][]string, len(chunks))
	avgLen := 0.0
	for i, c := range chunks {
		docTokens[i] = tokenize(c.Text)
		avgLen += float64(len(docTokens[i]))
	}
	avgLen /= float64(len(chunks))

	df := map[string]int{}
	for _, toks := range docTokens {
		seen := map[string]bool{}
		for _, t := range toks {
			if !seen[t] {
				df[t]++
				seen[t] = true
			}
		}
	}
	n := float64(len(chunks))

	type scored struct {
		idx   int
		score float64
	}
	var results []scored
	for i, c := range chunks {
		if chunkTypeFilter != nil && c.ChunkType != *chunkTypeFilter {
			continue
		}
		toks := docTokens[i]
		tf := map[string]int{}
		for _, t := range toks {
			tf[t]++
		}
		docLen := float64(len(toks))
		var score float64
		for _, qt := range queryTerms {
			f := float64(tf[qt])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[qt])+0.5)/(float64(df[qt])+0.5))
			score += idf * (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
		}
		if score > 0 {
			results = append(results, scored{idx: i, score: score})
		}
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].score > results[b].score })
	if len(results) > topK {
		results = results[:topK]
	}

	hits := make([]model.SearchHit, len(results))
	for i, r := range results {
		c := chunks[r.idx]
		hits[i] = model.SearchHit{ChunkID: c.ChunkID, SourceFactID: c.SourceFactID, DocumentID: docID, Score: r.score}
	}
	return hits, nil
}
