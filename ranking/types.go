package ranking

import "time"

// EventType is the kind of friend interaction behind an observation.
type EventType string

const (
	EventPurchase EventType = "purchase"
	EventView     EventType = "view"
)

// Mode reports which scoring path produced a result.
type Mode string

const (
	// ModeSemanticFallback compares deterministic embeddings of the query and products.
	ModeSemanticFallback Mode = "semantic_fallback"
	// ModeSemanticProvider compares a service embedding of the query with stored product embeddings.
	ModeSemanticProvider Mode = "semantic_provider"
	// ModeSocialOnly ranks by friend signals alone; there is no query.
	ModeSocialOnly Mode = "social_only"
)

// Observation is one friend interaction with a product, as read from storage.
type Observation struct {
	ProductID   int64
	Name        string
	Brand       string
	Category    string
	Description string
	Price       string

	FriendID       int64
	FriendName     string
	FriendAvatar   string
	FriendStrength float64

	EventType EventType
	EventAt   time.Time

	// Embedding is the stored product embedding. Only loaded for provider mode;
	// nil means the product has not been indexed.
	Embedding []float32
}

// Candidate is the ranked representation of one product.
type Candidate struct {
	ProductID   int64  `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	Description string `json:"description"`

	FriendName   string    `json:"friendName"`
	FriendAvatar string    `json:"friendAvatar"`
	EventType    EventType `json:"eventType"`
	EventAt      time.Time `json:"eventAt"`
	Reason       string    `json:"reason"`

	// Similarity is the raw cosine similarity; nil in social mode.
	Similarity     *float64 `json:"similarity"`
	SimilarityNorm float64  `json:"similarityNorm"`
	FriendStrength float64  `json:"friendStrength"`
	Recency        float64  `json:"recency"`
	EventWeight    float64  `json:"eventWeight"`
	LexicalBoost   float64  `json:"lexicalBoost"`
	Keywords       []string `json:"keywords"`
	Confidence     string   `json:"confidence"`
	Score          float64  `json:"score"`
}

// EmbeddingConfig carries the facts mode selection depends on.
type EmbeddingConfig struct {
	ServiceAvailable           bool
	PrecomputedEmbeddingsExist bool
}

// Request is one ranking call. Observations must already be filtered by any
// category constraint.
type Request struct {
	Query        string
	Observations []Observation
	Limit        int
	Embedding    EmbeddingConfig
	// Now anchors recency. Zero means time.Now().
	Now time.Time
}

type Result struct {
	Query string      `json:"query"`
	Mode  Mode        `json:"mode"`
	Items []Candidate `json:"items"`
}
