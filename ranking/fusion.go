package ranking

// Semantic weights. Relevance dominates; friend and recency signals break ties.
const (
	SemanticSimilarityWeight = 0.75
	SemanticFriendWeight     = 0.10
	SemanticRecencyWeight    = 0.10
	SemanticLexicalWeight    = 0.05
)

// Social weights, used when there is no query.
const (
	SocialFriendWeight  = 0.50
	SocialRecencyWeight = 0.30
	SocialEventWeight   = 0.20
)

// SemanticScore fuses normalized similarity with friend, recency and lexical
// signals. All inputs in [0,1] give a score in [0,1].
func SemanticScore(c Candidate) float64 {
	return SemanticSimilarityWeight*c.SimilarityNorm +
		SemanticFriendWeight*c.FriendStrength +
		SemanticRecencyWeight*c.Recency +
		SemanticLexicalWeight*c.LexicalBoost
}

// SocialScore fuses friend strength, recency and event weight.
func SocialScore(c Candidate) float64 {
	return SocialFriendWeight*c.FriendStrength +
		SocialRecencyWeight*c.Recency +
		SocialEventWeight*c.EventWeight
}
