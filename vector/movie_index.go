package vector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/filmy/reco/core"
)

// MovieIndex 是电影语义索引的适配层：
// 把电影目录行转换为规范化的嵌入文本与 payload，
// 批量写入向量库，并提供文本/向量两种查询入口。
type MovieIndex struct {
	vdb      core.VectorDatabaseService
	embedder core.EmbeddingService
	logger   *zap.Logger

	collection string
	batchSize  int
}

// MovieIndexOption 配置 MovieIndex。
type MovieIndexOption func(*MovieIndex)

// WithCollection 设置集合名，默认 "movies"。
func WithCollection(name string) MovieIndexOption {
	return func(idx *MovieIndex) { idx.collection = name }
}

// WithBatchSize 设置写入批大小，默认 64。
func WithBatchSize(n int) MovieIndexOption {
	return func(idx *MovieIndex) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithIndexLogger 注入日志器。
func WithIndexLogger(l *zap.Logger) MovieIndexOption {
	return func(idx *MovieIndex) { idx.logger = l }
}

func NewMovieIndex(vdb core.VectorDatabaseService, embedder core.EmbeddingService, opts ...MovieIndexOption) *MovieIndex {
	idx := &MovieIndex{
		vdb:        vdb,
		embedder:   embedder,
		logger:     zap.NewNop(),
		collection: "movies",
		batchSize:  64,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Collection 返回索引使用的集合名。
func (idx *MovieIndex) Collection() string { return idx.collection }

// EmbeddingText 生成电影的规范化嵌入文本。
// 同一部电影在索引与查询两侧必须使用完全相同的模板。
func EmbeddingText(m *core.Movie) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", m.Title)
	fmt.Fprintf(&b, "Overview: %s\n", m.Overview)
	fmt.Fprintf(&b, "Genres: %s\n", strings.Join(m.Genres, ", "))
	fmt.Fprintf(&b, "Tagline: %s\n", m.Tagline)
	fmt.Fprintf(&b, "Keywords: %s\n", m.Keywords)
	fmt.Fprintf(&b, "Language: %s", m.Language)
	return b.String()
}

// moviePayload 是写入向量库的电影字段，过滤与展示两用。
func moviePayload(m *core.Movie) map[string]any {
	return map[string]any{
		"id":           m.ID,
		"title":        m.Title,
		"overview":     m.Overview,
		"genres":       m.Genres,
		"release_year": m.ReleaseYear,
		"language":     m.Language,
		"popularity":   m.Popularity,
	}
}

// Ensure 确保集合存在且维度与嵌入服务一致。
func (idx *MovieIndex) Ensure(ctx context.Context) error {
	return idx.vdb.EnsureCollection(ctx, idx.collection, idx.embedder.Dimension())
}

// Index 把一批电影写入向量索引：按批嵌入、按批 upsert。
// 单批失败中止并返回错误，已写入的批次保留（重复 upsert 幂等）。
func (idx *MovieIndex) Index(ctx context.Context, movies []*core.Movie) error {
	for start := 0; start < len(movies); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(movies) {
			end = len(movies)
		}
		batch := movies[start:end]

		texts := make([]string, len(batch))
		for i, m := range batch {
			texts[i] = EmbeddingText(m)
		}
		vectors, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("vector: embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("vector: embed batch returned %d vectors for %d texts", len(vectors), len(batch))
		}

		records := make([]*core.VectorRecord, len(batch))
		for i, m := range batch {
			records[i] = &core.VectorRecord{
				ID:      m.ID,
				Vector:  vectors[i],
				Payload: moviePayload(m),
			}
		}
		if err := idx.vdb.Upsert(ctx, idx.collection, records); err != nil {
			return err
		}
		idx.logger.Info("movies indexed",
			zap.Int("batch", len(batch)), zap.Int("indexed", end), zap.Int("total", len(movies)))
	}
	return nil
}

// Remove 从索引中删除指定电影。
func (idx *MovieIndex) Remove(ctx context.Context, movieIDs []int64) error {
	return idx.vdb.Delete(ctx, idx.collection, movieIDs)
}

// Clear 删除整个索引集合。
func (idx *MovieIndex) Clear(ctx context.Context) error {
	return idx.vdb.DropCollection(ctx, idx.collection)
}

// Search 按查询文本检索相似电影。
// 文本为空时返回 ErrInvalidQuery。
func (idx *MovieIndex) Search(ctx context.Context, query string, topK int, filter map[string]core.FilterClause) ([]core.VectorSearchItem, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrInvalidQuery
	}
	vec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vector: embed query: %w", err)
	}
	return idx.SearchByVector(ctx, vec, topK, filter)
}

// SearchByVector 按已有向量检索相似电影（如"相似电影"场景：
// 直接用目标电影自身的索引向量做近邻查询）。
func (idx *MovieIndex) SearchByVector(ctx context.Context, vec []float32, topK int, filter map[string]core.FilterClause) ([]core.VectorSearchItem, error) {
	res, err := idx.vdb.Search(ctx, &core.VectorSearchRequest{
		Collection: idx.collection,
		Vector:     vec,
		TopK:       topK,
		Filter:     filter,
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// SearchByMovie 用目标电影的规范化文本做近邻检索，并把自身从结果中剔除。
func (idx *MovieIndex) SearchByMovie(ctx context.Context, m *core.Movie, topK int, filter map[string]core.FilterClause) ([]core.VectorSearchItem, error) {
	vec, err := idx.embedder.Embed(ctx, EmbeddingText(m))
	if err != nil {
		return nil, fmt.Errorf("vector: embed movie %d: %w", m.ID, err)
	}
	// 多取一个，自身通常是最近邻
	items, err := idx.SearchByVector(ctx, vec, topK+1, filter)
	if err != nil {
		return nil, err
	}
	out := items[:0:0]
	for _, it := range items {
		if it.ID == m.ID {
			continue
		}
		out = append(out, it)
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
