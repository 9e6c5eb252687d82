package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/service"
	"github.com/filmy/reco/store"
)

func testMovies() []*core.Movie {
	return []*core.Movie{
		{
			ID: 1, Title: "Star Runner", Overview: "A space opera with starships and laser battles across the galaxy.",
			Genres: []string{"Science Fiction", "Action"}, Keywords: "space starship galaxy laser",
			Language: "en", ReleaseYear: 2005, Popularity: 80,
		},
		{
			ID: 2, Title: "Galaxy Siege", Overview: "Starship crews defend the galaxy in an epic space war.",
			Genres: []string{"Science Fiction"}, Keywords: "space galaxy war starship",
			Language: "en", ReleaseYear: 2012, Popularity: 65,
		},
		{
			ID: 3, Title: "Paris in Spring", Overview: "A gentle romance about two chefs falling in love in Paris.",
			Genres: []string{"Romance", "Comedy"}, Keywords: "paris love cooking romance",
			Language: "fr", ReleaseYear: 1998, Popularity: 40,
		},
	}
}

func newTestIndex(t *testing.T) *MovieIndex {
	t.Helper()
	embedder := service.NewHashingEmbedding(64)
	vdb := store.NewMemoryVectorService(store.WithEmbedder(embedder))
	idx := NewMovieIndex(vdb, embedder, WithCollection("movies_test"), WithBatchSize(2))
	require.NoError(t, idx.Ensure(context.Background()))
	require.NoError(t, idx.Index(context.Background(), testMovies()))
	return idx
}

func TestMovieIndexSearchFindsSimilar(t *testing.T) {
	idx := newTestIndex(t)

	items, err := idx.Search(context.Background(), "space starship galaxy war", 2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	// 太空题材应排在爱情片前面
	assert.Contains(t, []int64{1, 2}, items[0].ID)
}

func TestMovieIndexSearchEmptyQuery(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Search(context.Background(), "   ", 5, nil)
	assert.True(t, core.IsInvalidQuery(err), "want invalid query, got %v", err)
}

func TestMovieIndexSearchWithFilter(t *testing.T) {
	idx := newTestIndex(t)

	items, err := idx.Search(context.Background(), "space starship galaxy", 10,
		map[string]core.FilterClause{"genres": core.AnyOf("Romance")})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].ID)
}

func TestMovieIndexSearchByMovieExcludesSelf(t *testing.T) {
	idx := newTestIndex(t)
	movies := testMovies()

	items, err := idx.SearchByMovie(context.Background(), movies[0], 2, nil)
	require.NoError(t, err)
	for _, it := range items {
		assert.NotEqual(t, movies[0].ID, it.ID, "self must be excluded")
	}
	require.NotEmpty(t, items)
	assert.Equal(t, int64(2), items[0].ID, "most similar should be the other space movie")
}

func TestMovieIndexRemove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Remove(ctx, []int64{1, 2}))
	items, err := idx.Search(ctx, "space starship galaxy", 10, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].ID)
}

func TestMovieIndexPayloadFields(t *testing.T) {
	idx := newTestIndex(t)

	items, err := idx.Search(context.Background(), "paris love cooking", 10,
		map[string]core.FilterClause{"language": core.Equals("fr")})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Paris in Spring", items[0].Payload["title"])
	assert.EqualValues(t, 1998, items[0].Payload["release_year"])
}

func TestEmbeddingTextTemplate(t *testing.T) {
	m := &core.Movie{
		Title: "Heat", Overview: "Cops and robbers.", Genres: []string{"Crime", "Thriller"},
		Tagline: "A Los Angeles crime saga", Keywords: "heist", Language: "en",
	}
	text := EmbeddingText(m)
	assert.Equal(t,
		"Title: Heat\nOverview: Cops and robbers.\nGenres: Crime, Thriller\nTagline: A Los Angeles crime saga\nKeywords: heist\nLanguage: en",
		text)
}
