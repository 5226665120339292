package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/doujins-org/recokit/internalerr"
	"github.com/doujins-org/recokit/ranking"
	"github.com/doujins-org/recokit/store"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.PutFriend(store.Friend{ID: 1, Name: "Maya", Strength: 0.9})
	s.PutFriend(store.Friend{ID: 2, Name: "Leo", Strength: 0.6})
	s.PutProduct(store.Product{ID: 10, Name: "Eden Skin Serum", Category: "Beauty"})
	s.PutProduct(store.Product{ID: 11, Name: "Atlas Carry-On", Category: "Luggage"})
	s.PutProduct(store.Product{ID: 12, Name: "Unseen", Category: "Home"})
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, e := range []store.NewEvent{
		{FriendID: 1, ProductID: 10, EventType: ranking.EventPurchase, At: at},
		{FriendID: 2, ProductID: 11, EventType: ranking.EventView, At: at},
	} {
		if _, err := s.RecordEvent(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	return s
}

func TestListObservations_CategoryFilter(t *testing.T) {
	s := seeded(t)
	obs, err := s.ListObservations(context.Background(), store.ObservationFilter{Category: "beauty"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(obs) != 1 || obs[0].ProductID != 10 || obs[0].FriendName != "Maya" {
		t.Fatalf("unexpected observations %+v", obs)
	}
}

func TestEmbeddingsAndSimilarity(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	if err := s.UpsertProductEmbedding(ctx, 10, "m", []float32{1, 0}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertProductEmbedding(ctx, 12, "m", []float32{1, 0}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertProductEmbedding(ctx, 99, "m", []float32{1, 0}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	missing, _ := s.ProductsMissingEmbeddings(ctx, 0, 10)
	if len(missing) != 1 || missing[0].ID != 11 {
		t.Fatalf("unexpected missing products %+v", missing)
	}
	if after, _ := s.ProductsMissingEmbeddings(ctx, 11, 10); len(after) != 0 {
		t.Fatalf("cursor should exclude ids <= 11, got %+v", after)
	}

	matches, err := s.SimilarProducts(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	// Product 12 has no friend events and is excluded.
	if len(matches) != 1 || matches[0].ID != 10 || matches[0].Similarity != 1 {
		t.Fatalf("unexpected matches %+v", matches)
	}

	obs, _ := s.ListObservations(ctx, store.ObservationFilter{WithEmbeddings: true})
	for _, o := range obs {
		if (o.ProductID == 10) != (o.Embedding != nil) {
			t.Fatalf("embedding presence wrong for product %d", o.ProductID)
		}
	}
	if m, ok := s.EmbeddingModel(10); !ok || m != "m" {
		t.Fatalf("expected model to be recorded")
	}
}

func TestRecordEvent_Validation(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	if _, err := s.RecordEvent(ctx, store.NewEvent{FriendID: 9, ProductID: 10, EventType: ranking.EventView}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected not found for unknown friend, got %v", err)
	}
	if _, err := s.RecordEvent(ctx, store.NewEvent{FriendID: 1, ProductID: 10, EventType: "like"}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	st, _ := s.Stats(ctx)
	if st.Events != 2 || st.Products != 3 || st.Friends != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestListFriends_StrengthOrder(t *testing.T) {
	s := seeded(t)
	friends, _ := s.ListFriends(context.Background())
	if len(friends) != 2 || friends[0].Name != "Maya" {
		t.Fatalf("expected strongest friend first, got %+v", friends)
	}
}

func TestSeedCatalog(t *testing.T) {
	ctx := context.Background()
	c := store.Catalog{
		Friends:  []store.Friend{{ID: 1, Name: "Maya", Strength: 0.9}},
		Products: []store.Product{{ID: 1, Name: "Eden Skin Serum"}, {ID: 2, Name: "Atlas Carry-On"}},
		Events:   []store.NewEvent{{FriendID: 1, ProductID: 2, EventType: ranking.EventView}},
	}

	s := New()
	ok, err := s.SeedCatalog(ctx, c)
	if err != nil || !ok {
		t.Fatalf("first seed: ok=%v err=%v", ok, err)
	}
	ok, err = s.SeedCatalog(ctx, c)
	if err != nil || ok {
		t.Fatalf("second seed should be a no-op: ok=%v err=%v", ok, err)
	}
	st, _ := s.Stats(ctx)
	if st.Friends != 1 || st.Products != 2 || st.Events != 1 {
		t.Fatalf("unexpected stats after reseed %+v", st)
	}
	id, err := s.RecordEvent(ctx, store.NewEvent{FriendID: 1, ProductID: 1, EventType: ranking.EventPurchase})
	if err != nil || id != 2 {
		t.Fatalf("event after seed: id=%d err=%v", id, err)
	}

	if ok, _ := seeded(t).SeedCatalog(ctx, c); ok {
		t.Fatalf("a store with friends must not be seeded")
	}
}

func TestSeedCatalog_RejectsDanglingEvent(t *testing.T) {
	s := New()
	_, err := s.SeedCatalog(context.Background(), store.Catalog{
		Friends: []store.Friend{{ID: 1, Name: "Maya"}},
		Events:  []store.NewEvent{{FriendID: 1, ProductID: 9, EventType: ranking.EventView}},
	})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if st, _ := s.Stats(context.Background()); st.Friends != 0 {
		t.Fatalf("rejected catalog must not be partially written: %+v", st)
	}
}
