package eval

// Ranking quality metrics over product ids, for hand-written relevance cases.

type Case struct {
	Name     string
	Query    string
	Category string
	Expected []int64
}

// RecallAtK computes recall@k for a single case.
func RecallAtK(got []int64, expected []int64, k int) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	if k <= 0 {
		return 0.0
	}
	if k > len(got) {
		k = len(got)
	}

	exp := toSet(expected)
	hit := 0
	for i := 0; i < k; i++ {
		if _, ok := exp[got[i]]; ok {
			hit++
		}
	}

	return float64(hit) / float64(len(exp))
}

// MRR computes mean reciprocal rank for a single case.
func MRR(got []int64, expected []int64) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	exp := toSet(expected)
	for i, g := range got {
		if _, ok := exp[g]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}

// Mean averages per-case scores; an empty slice yields 0.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
