package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"bookrec/internal/catalog"
	"bookrec/internal/interactions"
	"bookrec/internal/model"
	"bookrec/internal/recommend"
	"bookrec/internal/service"
	"bookrec/internal/similarity"
	"bookrec/pkg/database"
)

type fixedScorer map[int]float64

func (s fixedScorer) Estimate(_, itemID int) float64 { return s[itemID] }

type stubHistory struct {
	docs []database.RecommendationDocument
}

func (h *stubHistory) SaveRecommendation(context.Context, database.RecommendationDocument) error {
	return nil
}
func (h *stubHistory) SaveLog(context.Context, database.LogDocument) error { return nil }
func (h *stubHistory) History(_ context.Context, subject string, _ int) ([]database.RecommendationDocument, error) {
	var out []database.RecommendationDocument
	for _, d := range h.docs {
		if d.Subject == subject {
			out = append(out, d)
		}
	}
	return out, nil
}

func newRouter(t *testing.T, history service.HistoryStore) http.Handler {
	t.Helper()
	cat, err := catalog.New(
		[]catalog.Item{
			{ID: 1, Title: "A", Author: "Ann", Year: 1999},
			{ID: 2, Title: "B", Author: "Bob", Year: 2001},
			{ID: 3, Title: "C", Author: "Cid", Year: 2010},
			{ID: 4, Title: "D", Author: "Dee", Year: 2020, Publisher: "Penguin", AvgRating: 4.2},
		},
		[]catalog.User{{ID: 7, Name: "U"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := similarity.New(map[int][]similarity.Neighbor{
		0: {{Row: 1, Score: 0.8}, {Row: 2, Score: 0.6}},
	})
	if err != nil {
		t.Fatal(err)
	}
	engine, err := recommend.NewEngine(&recommend.Snapshot{
		Catalog: cat,
		Ratings: interactions.New([]interactions.Event{{UserID: 7, ItemID: 1, Rating: 5}}),
		Index:   idx,
		Scorer:  model.Parallel(fixedScorer{1: 5, 2: 4.5, 3: 3.1, 4: 4.9}, 1),
	}, recommend.Options{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	opts := service.Options{DefaultResults: 2}
	if history != nil {
		opts.History = history
	}
	svc := service.New(engine, opts, zerolog.Nop())
	t.Cleanup(svc.Wait)
	return NewRouter(NewRecommendHandler(svc), RouterConfig{RateLimit: 1000})
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRecommendByUser(t *testing.T) {
	h := newRouter(t, nil)

	rec := get(t, h, "/recommend/by-user?user=U&n=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decode[service.Response](t, rec)
	if len(resp.Results) != 2 || resp.Results[0].Title != "D" || resp.Results[1].Title != "B" {
		t.Fatalf("results = %+v, want [D B]", resp.Results)
	}
	d := resp.Results[0]
	if d.Author != "Dee" || d.Year != 2020 || d.Publisher != "Penguin" || d.AvgRating != 4.2 || d.Score != 4.9 {
		t.Errorf("record fields = %+v", d)
	}
}

func TestRecommendDefaultCount(t *testing.T) {
	h := newRouter(t, nil)
	resp := decode[service.Response](t, get(t, h, "/recommend/by-user?user=U"))
	if resp.N != 2 || len(resp.Results) != 2 {
		t.Errorf("default n: N=%d results=%d, want 2", resp.N, len(resp.Results))
	}
}

func TestRecommendByItem(t *testing.T) {
	h := newRouter(t, nil)

	rec := get(t, h, "/recommend/by-item?title=A&n=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[service.Response](t, rec)
	if len(resp.Results) != 2 || resp.Results[0].Title != "B" || resp.Results[1].Title != "C" {
		t.Errorf("results = %+v, want [B C]", resp.Results)
	}
}

func TestErrorStatus(t *testing.T) {
	h := newRouter(t, nil)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing user", "/recommend/by-user", http.StatusBadRequest},
		{"non-numeric n", "/recommend/by-user?user=U&n=abc", http.StatusBadRequest},
		{"zero n", "/recommend/by-user?user=U&n=0", http.StatusBadRequest},
		{"negative n", "/recommend/by-item?title=A&n=-1", http.StatusBadRequest},
		{"unknown user", "/recommend/by-user?user=ghost&n=3", http.StatusNotFound},
		{"unknown title", "/recommend/by-item?title=Nope", http.StatusNotFound},
		{"title without row", "/recommend/by-item?title=B", http.StatusNotFound},
		{"missing title", "/recommend/by-item", http.StatusBadRequest},
		{"history disabled", "/recommend/history?user=U", http.StatusServiceUnavailable},
		{"history without subject", "/recommend/history", http.StatusBadRequest},
		{"search without query", "/items/search", http.StatusBadRequest},
		{"users limit too large", "/users?limit=5000", http.StatusBadRequest},
		{"history limit too large", "/recommend/history?user=U&limit=101", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			body := decode[errorBody](t, rec)
			if body.Error == "" {
				t.Error("error body is empty")
			}
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	hist := &stubHistory{docs: []database.RecommendationDocument{
		{ID: "x1", Strategy: service.StrategyByUser, Subject: "U", N: 2},
		{ID: "x2", Strategy: service.StrategyByItem, Subject: "A", N: 1},
	}}
	h := newRouter(t, hist)

	docs := decode[[]database.RecommendationDocument](t, get(t, h, "/recommend/history?user=U"))
	if len(docs) != 1 || docs[0].ID != "x1" {
		t.Errorf("history(user=U) = %+v", docs)
	}
	docs = decode[[]database.RecommendationDocument](t, get(t, h, "/recommend/history?title=A&limit=3"))
	if len(docs) != 1 || docs[0].ID != "x2" {
		t.Errorf("history(title=A) = %+v", docs)
	}
}

func TestListingEndpoints(t *testing.T) {
	h := newRouter(t, nil)

	users := decode[[]catalog.User](t, get(t, h, "/users?q=u"))
	if len(users) != 1 || users[0].Name != "U" {
		t.Errorf("users = %+v", users)
	}
	items := decode[[]catalog.Item](t, get(t, h, "/items/search?q=c&limit=5"))
	if len(items) != 1 || items[0].Title != "C" {
		t.Errorf("items = %+v", items)
	}
	stats := decode[service.Stats](t, get(t, h, "/stats"))
	if stats.CatalogItems != 4 || stats.Interactions.Events != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newRouter(t, nil)

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}
	get(t, h, "/stats")
	rec := get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "bookrec_api_requests_total") {
		t.Error("/metrics does not expose API counters")
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor(badRequest("x")); got != http.StatusBadRequest {
		t.Errorf("bad request -> %d", got)
	}
	if got := statusFor(context.Canceled); got != http.StatusInternalServerError {
		t.Errorf("other -> %d", got)
	}
}

func TestValidateRequestMessages(t *testing.T) {
	tests := []struct {
		name string
		req  any
		want string
	}{
		{"required", byUserRequest{}, "bad request: user is required"},
		{"either", historyRequest{}, "bad request: user or title is required"},
		{"max", listRequest{Limit: 1001}, "bad request: limit must satisfy max=1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(tt.req)
			if err == nil || err.Error() != tt.want {
				t.Errorf("validateRequest() = %v, want %q", err, tt.want)
			}
		})
	}
	if err := validateRequest(byItemRequest{Title: "Emma", N: 3}); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}
