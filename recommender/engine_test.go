package recommender

import (
	"context"
	"testing"
	"time"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/dataset"
	"github.com/filmy/reco/mf"
	"github.com/filmy/reco/service"
	"github.com/filmy/reco/store"
	"github.com/filmy/reco/vector"
)

type staticModels struct{ model *mf.Model }

func (p *staticModels) Current() (*mf.Model, error) {
	if p.model == nil {
		return nil, core.ErrNoProductionModel
	}
	return p.model, nil
}

type fixture struct {
	engine  *Engine
	catalog *store.MemoryCatalog
	models  *staticModels
}

// newFixture 构造六部电影的小目录：1-3 太空题材簇，4-5 爱情题材簇，6 惊悚。
// 用户 7/8 偏好太空，用户 9 偏好爱情。
func newFixture(t *testing.T) *fixture {
	t.Helper()
	movies := []*core.Movie{
		{ID: 1, Title: "Star Runner", Overview: "Space opera with starships and lasers across the galaxy.",
			Genres: []string{"Science Fiction", "Action"}, Keywords: "space starship galaxy", Language: "en",
			Popularity: 95, ReleaseYear: 2005},
		{ID: 2, Title: "Galaxy Siege", Overview: "Starship crews defend the galaxy in an epic space war.",
			Genres: []string{"Science Fiction"}, Keywords: "space galaxy starship war", Language: "en",
			Popularity: 80, ReleaseYear: 2012},
		{ID: 3, Title: "Void Station", Overview: "Astronauts stranded on a space station beyond the galaxy rim.",
			Genres: []string{"Science Fiction"}, Keywords: "space station astronaut galaxy", Language: "en",
			Popularity: 60, ReleaseYear: 2018},
		{ID: 4, Title: "Paris in Spring", Overview: "A gentle romance about two chefs falling in love in Paris.",
			Genres: []string{"Romance", "Comedy"}, Keywords: "paris love cooking", Language: "fr",
			Popularity: 70, ReleaseYear: 1998},
		{ID: 5, Title: "Letters to Rome", Overview: "A love story told through letters between Rome and Madrid.",
			Genres: []string{"Romance"}, Keywords: "love letters rome", Language: "es",
			Popularity: 40, ReleaseYear: 2003},
		{ID: 6, Title: "Deep Waters", Overview: "A submarine thriller beneath the ocean waves.",
			Genres: []string{"Thriller"}, Keywords: "ocean submarine tension", Language: "en",
			Popularity: 50, ReleaseYear: 2010},
	}

	catalog := store.NewMemoryCatalog()
	for _, m := range movies {
		catalog.PutMovie(m)
	}
	catalog.PutUser(&core.User{ID: 7})
	catalog.PutUser(&core.User{ID: 9})
	catalog.PutUser(&core.User{ID: 100, GenrePreferences: []string{"Romance"}})
	catalog.PutUser(&core.User{ID: 101})

	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rating := func(v float64) *float64 { return &v }
	add := func(user, movie int64, r float64) {
		catalog.AddFeedback(&core.Feedback{
			UserID: user, MovieID: movie, Rating: rating(r),
			Status: core.FeedbackStatusWatched, CreatedAt: t0,
		})
		t0 = t0.Add(time.Minute)
	}
	// 用户 7 看了 1、2；用户 8 看了 1、2、3；用户 9 看了 4、5
	add(7, 1, 5)
	add(7, 2, 4.5)
	add(8, 1, 5)
	add(8, 2, 4)
	add(8, 3, 4.5)
	add(9, 4, 5)
	add(9, 5, 4.5)

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

	feedbacks, err := catalog.ListAllFeedback(ctx)
	if err != nil {
		t.Fatalf("ListAllFeedback() error = %v", err)
	}
	dm, m, err := dataset.Build(feedbacks, 10)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	model, err := mf.Fit(m, dm, mf.Options{Factors: 8, Epochs: 15})
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	models := &staticModels{model: model}
	engine := New(catalog, catalog, catalog, idx, WithModels(models))
	return &fixture{engine: engine, catalog: catalog, models: models}
}

func movieIDs(movies []*core.Movie) []int64 {
	out := make([]int64, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

func TestColdStartWithGenrePreferences(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.ColdStart(context.Background(), 100, 5)
	if err != nil {
		t.Fatalf("ColdStart() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no recommendations")
	}
	for _, m := range got {
		hasRomance := false
		for _, g := range m.Genres {
			if g == "Romance" {
				hasRomance = true
			}
		}
		if !hasRomance {
			t.Errorf("movie %d (%s) outside preferred genres", m.ID, m.Title)
		}
	}
	// 偏好内按 popularity 降序：4 (70) 在 5 (40) 前
	if len(got) >= 2 && (got[0].ID != 4 || got[1].ID != 5) {
		t.Errorf("popularity order = %v, want [4 5]", movieIDs(got))
	}
}

func TestColdStartWithoutPreferencesFallsBackToPopular(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.ColdStart(context.Background(), 101, 3)
	if err != nil {
		t.Fatalf("ColdStart() error = %v", err)
	}
	want := []int64{1, 2, 4} // popularity 95, 80, 70
	ids := movieIDs(got)
	if len(ids) != 3 {
		t.Fatalf("len = %d, want 3", len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}
}

func TestPersonalizedMatchesColdStartForNewUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 用户 100 有偏好但没有任何反馈
	fromPersonalized, err := f.engine.Personalized(ctx, 100, 5)
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}
	fromColdStart, err := f.engine.ColdStart(ctx, 100, 5)
	if err != nil {
		t.Fatalf("ColdStart() error = %v", err)
	}
	p, c := movieIDs(fromPersonalized), movieIDs(fromColdStart)
	if len(p) != len(c) {
		t.Fatalf("lengths differ: %v vs %v", p, c)
	}
	for i := range p {
		if p[i] != c[i] {
			t.Fatalf("results differ: %v vs %v", p, c)
		}
	}
}

func TestPersonalizedExcludesWatchedAndPrefersCluster(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.Personalized(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no recommendations")
	}
	for _, m := range got {
		if m.ID == 1 || m.ID == 2 {
			t.Errorf("watched movie %d leaked into results", m.ID)
		}
	}
	// 用户 7 与用户 8 同簇，物品 3 应排在爱情片之前
	if got[0].ID != 3 {
		t.Errorf("top recommendation = %d, want 3 (same-cluster unwatched)", got[0].ID)
	}
}

func TestPersonalizedFallsBackWithoutModel(t *testing.T) {
	f := newFixture(t)
	f.models.model = nil
	ctx := context.Background()

	fromPersonalized, err := f.engine.Personalized(ctx, 7, 3)
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}
	fromColdStart, err := f.engine.ColdStart(ctx, 7, 3)
	if err != nil {
		t.Fatalf("ColdStart() error = %v", err)
	}
	p, c := movieIDs(fromPersonalized), movieIDs(fromColdStart)
	for i := range p {
		if p[i] != c[i] {
			t.Fatalf("fallback differs from cold start: %v vs %v", p, c)
		}
	}
}

func TestPersonalizedPadsWhenCandidatesScarce(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.Personalized(context.Background(), 7, 4)
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}
	// 目录共 6 部，已看 2 部，limit 4 应该被填满
	if len(got) != 4 {
		t.Errorf("len = %d, want 4 (padded)", len(got))
	}
	seen := map[int64]bool{}
	for _, m := range got {
		if seen[m.ID] {
			t.Errorf("duplicate id %d", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestRecentActivity(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.RecentActivity(context.Background(), 7, 4, 3)
	if err != nil {
		t.Fatalf("RecentActivity() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no recommendations")
	}
	for _, m := range got {
		if m.ID == 1 || m.ID == 2 {
			t.Errorf("watched movie %d leaked into results", m.ID)
		}
	}
}

func TestRecentActivityEmptyWithoutWatched(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.RecentActivity(context.Background(), 100, 5, 3)
	if err != nil {
		t.Fatalf("RecentActivity() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", movieIDs(got))
	}
}

func TestFilteredSearchFilterMode(t *testing.T) {
	f := newFixture(t)
	yearMin := 2000
	got, err := f.engine.FilteredSearch(context.Background(), &SearchRequest{
		Genres:  []string{"Science Fiction"},
		YearMin: &yearMin,
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("FilteredSearch() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(got), movieIDs(got))
	}
	for _, m := range got {
		if m.ReleaseYear < 2000 {
			t.Errorf("movie %d year %d violates filter", m.ID, m.ReleaseYear)
		}
	}
}

func TestFilteredSearchSimilarityModeExcludesExamples(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.FilteredSearch(context.Background(), &SearchRequest{
		QueryMovies: []string{"Star Runner"},
		Limit:       3,
	})
	if err != nil {
		t.Fatalf("FilteredSearch() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no results")
	}
	for _, m := range got {
		if m.ID == 1 {
			t.Error("example movie leaked into results")
		}
	}
	if got[0].ID != 2 && got[0].ID != 3 {
		t.Errorf("top result = %d, want another space movie", got[0].ID)
	}
}

func TestFilteredSearchLoggedInExcludesWatched(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.FilteredSearch(context.Background(), &SearchRequest{
		UserID: 7,
		Genres: []string{"Science Fiction"},
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("FilteredSearch() error = %v", err)
	}
	for _, m := range got {
		if m.ID == 1 || m.ID == 2 {
			t.Errorf("watched movie %d leaked into results", m.ID)
		}
	}
}

func TestSimilarMovies(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.SimilarMovies(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("SimilarMovies() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no results")
	}
	for _, m := range got {
		if m.ID == 1 {
			t.Error("target movie leaked into results")
		}
	}
	if got[0].ID != 2 && got[0].ID != 3 {
		t.Errorf("top similar = %d, want another space movie", got[0].ID)
	}
}

func TestSimilarMoviesUnknownID(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine.SimilarMovies(context.Background(), 12345, 5)
	if err != nil {
		t.Fatalf("SimilarMovies(unknown) error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Errorf("SimilarMovies(unknown) = %v, want empty", movieIDs(got))
	}
}

func TestGuestRecommendations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 示例模式
	got, err := f.engine.Guest(ctx, nil, []string{"Paris in Spring"}, 3)
	if err != nil {
		t.Fatalf("Guest(examples) error = %v", err)
	}
	for _, m := range got {
		if m.ID == 4 {
			t.Error("example movie leaked into results")
		}
	}

	// 兜底模式
	got, err = f.engine.Guest(ctx, nil, nil, 2)
	if err != nil {
		t.Fatalf("Guest(fallback) error = %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 {
		t.Errorf("fallback = %v, want popularity order starting with 1", movieIDs(got))
	}
}
