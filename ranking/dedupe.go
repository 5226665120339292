package ranking

// Dedupe keeps one candidate per product: the one with the strictly highest
// similarity, or the first seen when similarities tie or are absent. Output
// follows first-seen product order.
func Dedupe(cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	pos := make(map[int64]int, len(cands))
	for _, c := range cands {
		i, ok := pos[c.ProductID]
		if !ok {
			pos[c.ProductID] = len(out)
			out = append(out, c)
			continue
		}
		if moreSimilar(c, out[i]) {
			out[i] = c
		}
	}
	return out
}

func moreSimilar(c, cur Candidate) bool {
	if c.Similarity == nil {
		return false
	}
	if cur.Similarity == nil {
		return true
	}
	return *c.Similarity > *cur.Similarity
}
