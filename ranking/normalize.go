package ranking

// NormalizeSimilarity rescales raw similarity to [0,1] across cands using
// min/max. When every value is equal each candidate gets 1. Candidates without
// a similarity are left at 0.
func NormalizeSimilarity(cands []Candidate) {
	first := true
	var lo, hi float64
	for _, c := range cands {
		if c.Similarity == nil {
			continue
		}
		s := *c.Similarity
		if first {
			lo, hi = s, s
			first = false
			continue
		}
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if first {
		return
	}
	for i := range cands {
		if cands[i].Similarity == nil {
			continue
		}
		if hi == lo {
			cands[i].SimilarityNorm = 1
			continue
		}
		cands[i].SimilarityNorm = (*cands[i].Similarity - lo) / (hi - lo)
	}
}
