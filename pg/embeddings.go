package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/doujins-org/recokit/internalerr"
	"github.com/doujins-org/recokit/store"
)

// EmbeddingDimensions is the size of product_embeddings.embedding.
const EmbeddingDimensions = 1536

// ProductsMissingEmbeddings returns up to limit products after afterID with no
// stored embedding, oldest id first.
func (s *Store) ProductsMissingEmbeddings(ctx context.Context, afterID int64, limit int) ([]store.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`
		SELECT p.id, p.name, p.brand, p.category, p.price::text, p.description
		FROM %s p
		LEFT JOIN %s pe ON pe.product_id = p.id
		WHERE pe.product_id IS NULL AND p.id > $1
		ORDER BY p.id
		LIMIT $2
	`, s.table("products"), s.table("product_embeddings"))
	return s.queryProducts(ctx, q, afterID, limit)
}

func (s *Store) UpsertProductEmbedding(ctx context.Context, productID int64, model string, vec []float32) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model is required")
	}
	if len(vec) != EmbeddingDimensions {
		return fmt.Errorf("embedding has %d dimensions, column is %s: %w",
			len(vec), VectorType(EmbeddingDimensions), internalerr.ErrInvalidInput)
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (product_id, embedding, model, updated_at)
		VALUES ($1, $2::%s, $3, now())
		ON CONFLICT (product_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			updated_at = now()
	`, s.table("product_embeddings"), VectorType(EmbeddingDimensions))

	_, err := s.pool.Exec(ctx, q, productID, QueryVector(vec), model)
	return err
}

// SimilarProducts ranks products that have friend activity by cosine
// similarity between their stored embedding and vec.
func (s *Store) SimilarProducts(ctx context.Context, vec []float32, limit int) ([]store.ProductMatch, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if limit <= 0 {
		limit = 5
	}
	q := fmt.Sprintf(`
		SELECT p.id, p.name, %s AS similarity
		FROM %s p
		JOIN %s pe ON pe.product_id = p.id
		WHERE EXISTS (SELECT 1 FROM %s fe WHERE fe.product_id = p.id)
		ORDER BY %s
		LIMIT $2
	`, SimilarityExpr("pe.embedding", "$1"),
		s.table("products"), s.table("product_embeddings"), s.table("friend_events"),
		DistanceOrderExpr("pe.embedding", "$1"))

	rows, err := s.pool.Query(ctx, q, VectorLiteral(vec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []store.ProductMatch{}
	for rows.Next() {
		var m store.ProductMatch
		if err := rows.Scan(&m.ID, &m.Name, &m.Similarity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
