package domain

import (
	"math"
	"slices"
	"strings"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or zero magnitude have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankNeighbors scores records against query.Vector and returns the best
// query.Count records at or above query.Threshold. Records outside
// query.Scope (when set), records without an embedding and records embedded
// with a different dimension than the query are skipped. Equal scores are
// ordered by id.
func RankNeighbors(records []ItemRecord, query NeighborQuery) []ScoredRecord {
	var scope map[string]bool
	if len(query.Scope) > 0 {
		scope = make(map[string]bool, len(query.Scope))
		for _, id := range query.Scope {
			scope[id] = true
		}
	}

	scored := make([]ScoredRecord, 0, len(records))
	for _, r := range records {
		if !r.IsEnriched() || len(r.Embedding) != len(query.Vector) {
			continue
		}
		if scope != nil && !scope[r.ID] {
			continue
		}
		sim := CosineSimilarity(query.Vector, r.Embedding)
		if sim < query.Threshold {
			continue
		}
		scored = append(scored, ScoredRecord{Record: r, Similarity: sim})
	}

	slices.SortStableFunc(scored, func(a, b ScoredRecord) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		default:
			return strings.Compare(a.Record.ID, b.Record.ID)
		}
	})

	if query.Count > 0 && len(scored) > query.Count {
		scored = scored[:query.Count]
	}
	return scored
}
