package recall

import (
	"context"
	"testing"
	"time"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/service"
	"github.com/filmy/reco/store"
	"github.com/filmy/reco/vector"
)

func newFixture(t *testing.T) (*vector.MovieIndex, *store.MemoryCatalog) {
	t.Helper()
	movies := []*core.Movie{
		{ID: 1, Title: "Star Runner", Overview: "Space opera with starships and lasers.",
			Genres: []string{"Science Fiction"}, Keywords: "space starship", Language: "en", Popularity: 90},
		{ID: 2, Title: "Galaxy Siege", Overview: "Starship crews defend the galaxy in space.",
			Genres: []string{"Science Fiction"}, Keywords: "space galaxy starship", Language: "en", Popularity: 70},
		{ID: 3, Title: "Paris in Spring", Overview: "A romance about chefs in Paris.",
			Genres: []string{"Romance"}, Keywords: "paris love", Language: "fr", Popularity: 50},
		{ID: 4, Title: "Deep Waters", Overview: "A thriller beneath the ocean waves.",
			Genres: []string{"Thriller"}, Keywords: "ocean submarine", Language: "en", Popularity: 30},
	}

	embedder := service.NewHashingEmbedding(64)
	vdb := store.NewMemoryVectorService(store.WithEmbedder(embedder))
	idx := vector.NewMovieIndex(vdb, embedder)
	ctx := context.Background()
	if err := idx.Ensure(ctx); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if err := idx.Index(ctx, movies); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	catalog := store.NewMemoryCatalog()
	for _, m := range movies {
		catalog.PutMovie(m)
	}
	return idx, catalog
}

func TestSemanticRecall(t *testing.T) {
	idx, _ := newFixture(t)
	src := &Semantic{Index: idx, TopK: 3}
	rctx := &core.RecommendContext{Params: map[string]any{ParamQuery: "space starship galaxy"}}

	items, err := src.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) == 0 {
		t.Fatal("no candidates")
	}
	if items[0].ID != 1 && items[0].ID != 2 {
		t.Errorf("top candidate = %d, want space movie", items[0].ID)
	}
	if items[0].MetaString("title") == "" {
		t.Error("payload not propagated to Meta")
	}
}

func TestSemanticRecallMissingQuery(t *testing.T) {
	idx, _ := newFixture(t)
	src := &Semantic{Index: idx}
	_, err := src.Recall(context.Background(), &core.RecommendContext{})
	if !core.IsInvalidQuery(err) {
		t.Errorf("Recall without query error = %v, want invalid query", err)
	}
}

func TestHotRecallFromCatalog(t *testing.T) {
	_, catalog := newFixture(t)
	src := &Hot{Movies: catalog, Limit: 3}

	items, err := src.Recall(context.Background(), &core.RecommendContext{})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	// popularity 降序：90, 70, 50
	want := []int64{1, 2, 3}
	for i, it := range items {
		if it.ID != want[i] {
			t.Errorf("items[%d].ID = %d, want %d", i, it.ID, want[i])
		}
	}
}

func TestHotRecallPrefersLeaderboard(t *testing.T) {
	_, catalog := newFixture(t)
	kv := store.NewMemoryStore()
	defer kv.Close()
	ctx := context.Background()

	kv.ZAdd(ctx, "hot:movies", 5, "4")
	kv.ZAdd(ctx, "hot:movies", 9, "3")

	src := &Hot{KV: kv, Key: "hot:movies", Movies: catalog, Limit: 10}
	items, err := src.Recall(ctx, &core.RecommendContext{})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != 3 || items[1].ID != 4 {
		ids := make([]int64, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		t.Errorf("leaderboard order = %v, want [3 4]", ids)
	}
}

func TestHistoryRecall(t *testing.T) {
	idx, catalog := newFixture(t)
	t0 := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	catalog.AddFeedback(&core.Feedback{UserID: 7, MovieID: 1, Status: core.FeedbackStatusWatched, CreatedAt: t0})
	catalog.AddFeedback(&core.Feedback{UserID: 7, MovieID: 3, Status: core.FeedbackStatusWatchlist, CreatedAt: t0.Add(time.Hour)})

	src := &History{Index: idx, Movies: catalog, Feedback: catalog, LastN: 3, PerSeedTopK: 3}
	items, err := src.Recall(context.Background(), &core.RecommendContext{UserID: 7})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) == 0 {
		t.Fatal("no candidates from history")
	}
	for _, it := range items {
		if it.ID == 1 {
			t.Error("seed movie must not appear in results")
		}
	}
}

func TestHistoryRecallNoWatched(t *testing.T) {
	idx, catalog := newFixture(t)
	src := &History{Index: idx, Movies: catalog, Feedback: catalog}
	items, err := src.Recall(context.Background(), &core.RecommendContext{UserID: 42})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty result for user without watched history, got %d", len(items))
	}
}

func TestFanoutMergeMaxScore(t *testing.T) {
	a := &staticSource{name: "a", items: []*core.Item{{ID: 1, Score: 0.3}, {ID: 2, Score: 0.9}}}
	b := &staticSource{name: "b", items: []*core.Item{{ID: 1, Score: 0.8}, {ID: 3, Score: 0.5}}}
	n := &Fanout{Sources: []Source{a, b}, Dedup: true, MergeStrategy: "max"}

	out, err := n.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	scores := make(map[int64]float64, len(out))
	for _, it := range out {
		scores[it.ID] = it.Score
	}
	if len(scores) != 3 {
		t.Fatalf("got %d unique items, want 3", len(scores))
	}
	if scores[1] != 0.8 {
		t.Errorf("duplicate id 1 score = %v, want max 0.8", scores[1])
	}
}

func TestFanoutNegativeMaxConcurrent(t *testing.T) {
	a := &staticSource{name: "a", items: []*core.Item{{ID: 1, Score: 0.3}}}
	b := &staticSource{name: "b", items: []*core.Item{{ID: 2, Score: 0.5}}}
	// 手工构造时 MaxConcurrent 可能为负，应当按无限制处理而不是 panic
	n := &Fanout{Sources: []Source{a, b}, Dedup: true, MaxConcurrent: -1}

	out, err := n.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 2 {
		t.Errorf("got %d items, want 2", len(out))
	}
}

type staticSource struct {
	name  string
	items []*core.Item
}

func (s *staticSource) Name() string { return s.name }
func (s *staticSource) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	out := make([]*core.Item, len(s.items))
	for i, it := range s.items {
		cp := core.NewItem(it.ID)
		cp.Score = it.Score
		out[i] = cp
	}
	return out, nil
}
