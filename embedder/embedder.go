package embedder

import "context"

// DefaultDimensions is the vector size stored in product_embeddings and produced
// by the deterministic embedder.
const DefaultDimensions = 1536

// Embedder generates text embeddings.
type Embedder interface {
	Model() string
	Dimensions() int
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ProductDocument is the text embedded for a product. The join must stay
// byte-stable: deterministic similarity scores depend on it.
func ProductDocument(name, brand, category, description string) string {
	return name + ". " + brand + ". " + category + ". " + description
}
