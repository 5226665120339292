package store

import (
	"context"
	"time"

	"github.com/doujins-org/recokit/ranking"
)

// Store is the persistence surface the recommendation service and the indexer
// depend on. pg.Store and memstore.Store implement it.
type Store interface {
	// Reads for ranking
	ListObservations(ctx context.Context, f ObservationFilter) ([]ranking.Observation, error)
	CountProductEmbeddings(ctx context.Context) (int64, error)

	// Catalog and debug views
	ListFriends(ctx context.Context) ([]Friend, error)
	Stats(ctx context.Context) (Stats, error)
	ListEventProducts(ctx context.Context) ([]Product, error)
	SimilarProducts(ctx context.Context, vec []float32, limit int) ([]ProductMatch, error)

	// Indexing
	// ProductsMissingEmbeddings pages by id: only products with id > afterID
	// are returned, in ascending id order.
	ProductsMissingEmbeddings(ctx context.Context, afterID int64, limit int) ([]Product, error)
	UpsertProductEmbedding(ctx context.Context, productID int64, model string, vec []float32) error

	// Events
	RecordEvent(ctx context.Context, e NewEvent) (int64, error)
}

// ObservationFilter narrows ListObservations.
type ObservationFilter struct {
	// Category matches case-insensitively; empty means all categories.
	Category string
	// WithEmbeddings loads stored product embeddings into each observation.
	WithEmbeddings bool
}

type Friend struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	AvatarURL string  `json:"avatar"`
	Strength  float64 `json:"strength"`
}

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

// Stats are row counts per table.
type Stats struct {
	Products   int64 `json:"products"`
	Friends    int64 `json:"friends"`
	Events     int64 `json:"events"`
	Embeddings int64 `json:"embeddings"`
}

// ProductMatch is one row of a similarity lookup.
type ProductMatch struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// NewEvent records that a friend purchased or viewed a product.
type NewEvent struct {
	FriendID  int64
	ProductID int64
	EventType ranking.EventType
	// At defaults to the current time.
	At time.Time
}

// Catalog is a full set of rows for an empty database. Friend and product ids
// are explicit so events can reference them.
type Catalog struct {
	Friends  []Friend
	Products []Product
	Events   []NewEvent
}

// Seeder loads a Catalog into a store that has no friends yet. It reports
// whether anything was written; a populated store is left untouched.
type Seeder interface {
	SeedCatalog(ctx context.Context, c Catalog) (bool, error)
}
