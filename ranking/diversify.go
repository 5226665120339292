package ranking

import "github.com/doujins-org/recokit/internal/textnormalize"

// diversityFloor is how many items are placed in score order before category
// and brand repeats start being deferred.
const diversityFloor = 6

// Diversify reorders score-sorted items so repeated category+brand pairs past
// the first diversityFloor slots move behind fresher ones. An item is placed
// when its category is new, its brand is new, or fewer than diversityFloor items
// are placed; the rest are appended afterwards in their original order. The
// output is a permutation of items.
func Diversify(items []Candidate) []Candidate {
	out := make([]Candidate, 0, len(items))
	placed := make(map[int64]struct{}, len(items))
	seenCategory := map[string]struct{}{}
	seenBrand := map[string]struct{}{}

	for _, it := range items {
		cat := textnormalize.Heavy(it.Category)
		brand := textnormalize.Heavy(it.Brand)
		_, hasCat := seenCategory[cat]
		_, hasBrand := seenBrand[brand]
		if !hasCat || !hasBrand || len(out) < diversityFloor {
			out = append(out, it)
			placed[it.ProductID] = struct{}{}
			seenCategory[cat] = struct{}{}
			seenBrand[brand] = struct{}{}
		}
	}

	for _, it := range items {
		if len(out) >= len(items) {
			break
		}
		if _, ok := placed[it.ProductID]; ok {
			continue
		}
		out = append(out, it)
		placed[it.ProductID] = struct{}{}
	}
	return out
}
