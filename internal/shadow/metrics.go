// Package shadow implements the fire-and-forget alternative-model runner
// (§4.5): overlap@k and NDCG@k against production rankings, persisted
// for offline evaluation. Grounded on
// original_source/services/api/shadow/runner.py.
package shadow

import "math"

// OverlapAtK computes |shadow[:k] ∩ production[:k]| / k_effective, where
// k_effective is the size of the shadow top-k (handles short lists).
// Returns 0 on empty input.
func OverlapAtK(shadowRankings, productionRankings []string, k int) float64 {
	shadowTop := topK(shadowRankings, k)
	prodTop := topK(productionRankings, k)
	if len(shadowTop) == 0 || len(prodTop) == 0 {
		return 0.0
	}

	prodSet := make(map[string]struct{}, len(prodTop))
	for _, id := range prodTop {
		prodSet[id] = struct{}{}
	}

	var overlap int
	seen := make(map[string]struct{}, len(shadowTop))
	for _, id := range shadowTop {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := prodSet[id]; ok {
			overlap++
		}
	}

	return float64(overlap) / float64(len(shadowTop))
}

// NDCGAtK computes NDCG@k using the production ranking as ground truth
// with linear relevance rel(item) = max(0, len(production) - position).
// DCG sums over the shadow top-k; IDCG uses the top-k of ALL production
// relevance values (not only those present in the shadow list) — this
// intentionally does NOT fall back to a shadow-only ideal ranking, to
// avoid over-rewarding a shadow model that only ever proposes easy items.
func NDCGAtK(shadowRankings, productionRankings []string, k int) float64 {
	relevance := make(map[string]float64, len(productionRankings))
	prodLen := len(productionRankings)
	for idx, id := range productionRankings {
		rel := float64(prodLen - idx)
		if rel < 0 {
			rel = 0
		}
		relevance[id] = rel
	}

	shadowTop := topK(shadowRankings, k)
	var dcg float64
	for i, id := range shadowTop {
		rel := relevance[id] // 0 if shadow proposed something outside production
		dcg += rel / math.Log2(float64(i+2))
	}

	allRels := sortedValuesDesc(relevance)
	idealTop := allRels
	if len(idealTop) > k {
		idealTop = idealTop[:k]
	}
	var idcg float64
	for i, rel := range idealTop {
		idcg += rel / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 0.0
	}
	return dcg / idcg
}

func topK(items []string, k int) []string {
	if k < 0 || k > len(items) {
		k = len(items)
	}
	return items[:k]
}

func sortedValuesDesc(m map[string]float64) []float64 {
	values := make([]float64, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	// simple insertion sort descending; ranking lists here are short
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j] > values[j-1]; j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
	return values
}
