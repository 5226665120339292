package pg

import (
	"fmt"
	"strconv"

	pgvector "github.com/pgvector/pgvector-go"
)

// VectorType returns the SQL type name for a vector of the given dimension.
func VectorType(dim int) string {
	return fmt.Sprintf("vector(%d)", dim)
}

// VectorLiteral renders vec as "[v1,...,vn]" with six decimals per component.
// This is the form sent into similarity queries.
func VectorLiteral(vec []float32) string {
	buf := make([]byte, 0, 2+len(vec)*10)
	buf = append(buf, '[')
	for i, v := range vec {
		if i > 0 {
			buf = append(buf, ',')
		}
		if v == 0 {
			// Avoid "-0.000000" for negative zero.
			buf = append(buf, "0.000000"...)
			continue
		}
		buf = strconv.AppendFloat(buf, float64(v), 'f', 6, 64)
	}
	buf = append(buf, ']')
	return string(buf)
}

// SimilarityExpr returns a SQL expression that computes cosine similarity from
// cosine distance (<=>) between column and a vector literal parameter.
func SimilarityExpr(column, param string) string {
	return "1 - (" + DistanceOrderExpr(column, param) + ")"
}

// DistanceOrderExpr returns a SQL ORDER BY expression for cosine distance.
func DistanceOrderExpr(column, param string) string {
	return column + " <=> " + param + "::vector"
}

// QueryVector wraps a []float32 for parameter binding via pgvector-go.
func QueryVector(vec []float32) pgvector.Vector {
	return pgvector.NewVector(vec)
}

// parseVector decodes pgvector text output.
func parseVector(text string) ([]float32, error) {
	var v pgvector.Vector
	if err := v.Scan(text); err != nil {
		return nil, fmt.Errorf("parse vector: %w", err)
	}
	return v.Slice(), nil
}
