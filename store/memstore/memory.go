package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/doujins-org/recokit/internal/normalize"
	"github.com/doujins-org/recokit/internalerr"
	"github.com/doujins-org/recokit/ranking"
	"github.com/doujins-org/recokit/store"
)

type event struct {
	id        int64
	friendID  int64
	productID int64
	eventType ranking.EventType
	at        time.Time
}

// Store is an in-memory implementation of store.Store for tests and demos.
type Store struct {
	mu          sync.RWMutex
	nextEventID int64
	friends     map[int64]store.Friend
	products    map[int64]store.Product
	events      []event
	embeddings  map[int64][]float32
	models      map[int64]string
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Seeder = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextEventID: 1,
		friends:     make(map[int64]store.Friend),
		products:    make(map[int64]store.Product),
		embeddings:  make(map[int64][]float32),
		models:      make(map[int64]string),
	}
}

// PutFriend inserts or replaces a friend.
func (s *Store) PutFriend(f store.Friend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends[f.ID] = f
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p store.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// EmbeddingModel returns the model recorded for a product's embedding.
func (s *Store) EmbeddingModel(productID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[productID]
	return m, ok
}

func (s *Store) ListObservations(ctx context.Context, f store.ObservationFilter) ([]ranking.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category := strings.TrimSpace(f.Category)
	var out []ranking.Observation
	for _, e := range s.events {
		p := s.products[e.productID]
		fr := s.friends[e.friendID]
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		o := ranking.Observation{
			ProductID:      p.ID,
			Name:           p.Name,
			Brand:          p.Brand,
			Category:       p.Category,
			Description:    p.Description,
			Price:          p.Price,
			FriendID:       fr.ID,
			FriendName:     fr.Name,
			FriendAvatar:   fr.AvatarURL,
			FriendStrength: fr.Strength,
			EventType:      e.eventType,
			EventAt:        e.at,
		}
		if f.WithEmbeddings {
			if v, ok := s.embeddings[p.ID]; ok {
				o.Embedding = append([]float32(nil), v...)
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) CountProductEmbeddings(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.embeddings)), nil
}

func (s *Store) ListFriends(ctx context.Context) ([]store.Friend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Friend, 0, len(s.friends))
	for _, f := range s.friends {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Stats{
		Products:   int64(len(s.products)),
		Friends:    int64(len(s.friends)),
		Events:     int64(len(s.events)),
		Embeddings: int64(len(s.embeddings)),
	}, nil
}

func (s *Store) ListEventProducts(ctx context.Context) ([]store.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[int64]bool{}
	var out []store.Product
	for _, e := range s.events {
		if seen[e.productID] {
			continue
		}
		seen[e.productID] = true
		out = append(out, s.products[e.productID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SimilarProducts(ctx context.Context, vec []float32, limit int) ([]store.ProductMatch, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if limit <= 0 {
		limit = 5
	}
	products, _ := s.ListEventProducts(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []store.ProductMatch{}
	for _, p := range products {
		emb, ok := s.embeddings[p.ID]
		if !ok {
			continue
		}
		sim, err := normalize.Cosine(vec, emb)
		if err != nil {
			return nil, fmt.Errorf("product %d stored embedding: %w (%v)", p.ID, internalerr.ErrInconsistentData, err)
		}
		out = append(out, store.ProductMatch{ID: p.ID, Name: p.Name, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ProductsMissingEmbeddings(ctx context.Context, afterID int64, limit int) ([]store.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Product
	for id, p := range s.products {
		if _, ok := s.embeddings[id]; !ok && id > afterID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpsertProductEmbedding(ctx context.Context, productID int64, model string, vec []float32) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model is required")
	}
	if len(vec) == 0 {
		return fmt.Errorf("embedding is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		return fmt.Errorf("product %d: %w", productID, internalerr.ErrNotFound)
	}
	s.embeddings[productID] = append([]float32(nil), vec...)
	s.models[productID] = model
	return nil
}

func (s *Store) RecordEvent(ctx context.Context, e store.NewEvent) (int64, error) {
	if e.EventType != ranking.EventPurchase && e.EventType != ranking.EventView {
		return 0, fmt.Errorf("event type %q: %w", e.EventType, internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.friends[e.FriendID]; !ok {
		return 0, fmt.Errorf("friend %d: %w", e.FriendID, internalerr.ErrNotFound)
	}
	if _, ok := s.products[e.ProductID]; !ok {
		return 0, fmt.Errorf("product %d: %w", e.ProductID, internalerr.ErrNotFound)
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	id := s.nextEventID
	s.nextEventID++
	s.events = append(s.events, event{id: id, friendID: e.FriendID, productID: e.ProductID, eventType: e.EventType, at: at})
	return id, nil
}

// SeedCatalog loads c when the store has no friends. Events referencing unknown
// ids are rejected before anything is written.
func (s *Store) SeedCatalog(ctx context.Context, c store.Catalog) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.friends) > 0 {
		return false, nil
	}
	friends := make(map[int64]bool, len(c.Friends))
	for _, f := range c.Friends {
		friends[f.ID] = true
	}
	products := make(map[int64]bool, len(c.Products))
	for _, p := range c.Products {
		products[p.ID] = true
	}
	for _, e := range c.Events {
		if !friends[e.FriendID] || !products[e.ProductID] {
			return false, fmt.Errorf("event %d/%d: %w", e.FriendID, e.ProductID, internalerr.ErrInvalidInput)
		}
		if e.EventType != ranking.EventPurchase && e.EventType != ranking.EventView {
			return false, fmt.Errorf("event type %q: %w", e.EventType, internalerr.ErrInvalidInput)
		}
	}

	for _, f := range c.Friends {
		s.friends[f.ID] = f
	}
	for _, p := range c.Products {
		s.products[p.ID] = p
	}
	for _, e := range c.Events {
		at := e.At
		if at.IsZero() {
			at = time.Now()
		}
		s.events = append(s.events, event{id: s.nextEventID, friendID: e.FriendID, productID: e.ProductID, eventType: e.EventType, at: at})
		s.nextEventID++
	}
	return true, nil
}
