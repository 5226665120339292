package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/doujins-org/recokit/embedder"
	"github.com/doujins-org/recokit/metrics"
	"github.com/doujins-org/recokit/ranking"
	"github.com/doujins-org/recokit/recommend"
	"github.com/doujins-org/recokit/store"
	"github.com/doujins-org/recokit/store/memstore"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	st.PutFriend(store.Friend{ID: 1, Name: "Maya", AvatarURL: "/a/maya.png", Strength: 0.9})
	st.PutFriend(store.Friend{ID: 2, Name: "Leo", AvatarURL: "/a/leo.png", Strength: 0.6})
	st.PutProduct(store.Product{ID: 1, Name: "Eden Skin Serum", Brand: "Eden", Category: "Beauty",
		Price: "42.00", Description: "Lightweight hydrating serum with hyaluronic acid."})
	st.PutProduct(store.Product{ID: 2, Name: "Atlas Carry-On", Brand: "Atlas", Category: "Luggage",
		Price: "189.00", Description: "Hard-shell carry-on suitcase with spinner wheels."})
	now := time.Now()
	for _, e := range []store.NewEvent{
		{FriendID: 1, ProductID: 1, EventType: ranking.EventPurchase, At: now.Add(-24 * time.Hour)},
		{FriendID: 2, ProductID: 2, EventType: ranking.EventView, At: now.Add(-48 * time.Hour)},
	} {
		if _, err := st.RecordEvent(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}

	m := metrics.New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}
	fb := embedder.NewFallback(nil, embedder.FallbackOptions{Logger: quietLogger()})
	svc, err := recommend.New(recommend.Options{
		Store:    st,
		Ranker:   ranking.NewRanker(fb, ranking.Options{Logger: quietLogger()}),
		Embedder: fb,
		Metrics:  m,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(svc, Options{Logger: quietLogger(), Gatherer: reg}), st
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var out ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return out.Error
}

func TestRecommendations(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/recommendations?q=serum&limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id header")
	}
	var res ranking.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Mode != ranking.ModeSemanticFallback || res.Query != "serum" || len(res.Items) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Items[0].Reason == "" || res.Items[0].Similarity == nil {
		t.Fatalf("item missing fields %+v", res.Items[0])
	}
}

func TestRecommendations_SocialJSONShape(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/recommendations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var raw struct {
		Mode  string           `json:"mode"`
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Mode != string(ranking.ModeSocialOnly) || len(raw.Items) != 2 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if v, ok := raw.Items[0]["similarity"]; !ok || v != nil {
		t.Fatalf("social similarity should be null, got %v", v)
	}
	if raw.Items[0]["confidence"] != ranking.ConfidenceSocial {
		t.Fatalf("unexpected confidence %v", raw.Items[0]["confidence"])
	}
}

func TestRecommendations_LimitValidation(t *testing.T) {
	s, _ := newTestServer(t)
	for _, target := range []string{
		"/api/recommendations?limit=51",
		"/api/recommendations?limit=-1",
		"/api/recommendations?limit=abc",
	} {
		rec := do(t, s, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", target, rec.Code)
		}
		if got := decodeError(t, rec).Code; got != CodeValidation {
			t.Fatalf("%s: code %s", target, got)
		}
	}
}

func TestFriends(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/friends", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Friends []store.Friend `json:"friends"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Friends) != 2 || body.Friends[0].AvatarURL != "/a/maya.png" {
		t.Fatalf("unexpected friends %+v", body.Friends)
	}
}

func TestDebugSearch(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/debug/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank query status %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/debug/search?q=suitcase", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var res recommend.DebugSearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Mode != ranking.ModeSemanticFallback || len(res.Matches) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDebugStats(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/debug/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var rep recommend.StatsReport
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Counts.Products != 2 || rep.EmbeddingStatus != recommend.EmbeddingStatusPending {
		t.Fatalf("unexpected stats %+v", rep)
	}
}

func TestPostEvent(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/events", `{"friendId":2,"productId":1,"eventType":"view"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	stats, _ := st.Stats(context.Background())
	if stats.Events != 3 {
		t.Fatalf("expected 3 events, got %d", stats.Events)
	}

	rec = do(t, s, http.MethodPost, "/api/events", `{"friendId":2,"productId":1,"eventType":"like"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad type status %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/events", `{"friendId":7,"productId":1,"eventType":"view"}`)
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != CodeNotFound {
		t.Fatalf("unknown friend status %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/events", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}

	do(t, s, http.MethodGet, "/api/recommendations", "")
	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), metrics.MetricRecommendRequests) {
		t.Fatalf("metrics output missing %s", metrics.MetricRecommendRequests)
	}
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != CodeNotFound {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

// brokenService fails every call with an unclassified error.
type brokenService struct{}

var errBroken = errors.New("database unavailable")

func (brokenService) Recommend(context.Context, recommend.Query) (ranking.Result, error) {
	return ranking.Result{}, errBroken
}
func (brokenService) Friends(context.Context) ([]store.Friend, error) { return nil, errBroken }
func (brokenService) Stats(context.Context) (recommend.StatsReport, error) {
	return recommend.StatsReport{}, errBroken
}
func (brokenService) DebugSearch(context.Context, string) (recommend.DebugSearchResult, error) {
	return recommend.DebugSearchResult{}, errBroken
}
func (brokenService) RecordEvent(context.Context, recommend.Event) (int64, error) {
	return 0, errBroken
}
func (brokenService) Health(context.Context) error { return errBroken }

func TestInternalErrorsAreHidden(t *testing.T) {
	s := New(brokenService{}, Options{Logger: quietLogger()})

	rec := do(t, s, http.MethodGet, "/api/friends", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Code != CodeInternal || strings.Contains(body.Message, "database") {
		t.Fatalf("internal error leaked: %+v", body)
	}

	if rec := do(t, s, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("health status %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics route should be absent without a gatherer, got %d", rec.Code)
	}
}

type fixedEmbedder struct{ vec []float32 }

func (f fixedEmbedder) Model() string   { return "fixed" }
func (f fixedEmbedder) Dimensions() int { return len(f.vec) }
func (f fixedEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return f.vec, nil
}
func (f fixedEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func TestRecommendations_StoredEmbeddingMismatchIsInternal(t *testing.T) {
	st := memstore.New()
	st.PutFriend(store.Friend{ID: 1, Name: "Maya", Strength: 0.9})
	st.PutProduct(store.Product{ID: 1, Name: "Eden Skin Serum", Brand: "Eden", Category: "Beauty"})
	ctx := context.Background()
	if _, err := st.RecordEvent(ctx, store.NewEvent{FriendID: 1, ProductID: 1, EventType: ranking.EventView}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertProductEmbedding(ctx, 1, "fixed", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}

	fb := embedder.NewFallback(fixedEmbedder{vec: []float32{1, 0, 0}}, embedder.FallbackOptions{Logger: quietLogger()})
	svc, err := recommend.New(recommend.Options{
		Store:    st,
		Ranker:   ranking.NewRanker(fb, ranking.Options{Logger: quietLogger()}),
		Embedder: fb,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	s := New(svc, Options{Logger: quietLogger()})

	rec := do(t, s, http.MethodGet, "/api/recommendations?q=serum", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeError(t, rec).Code; got != CodeInternal {
		t.Fatalf("code = %s, want %s", got, CodeInternal)
	}
}
