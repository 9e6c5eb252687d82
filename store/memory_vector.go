package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/filmy/reco/core"
)

// MemoryVectorService 是内存实现的向量数据库，用于测试/开发。
// 余弦相似度打分（向量归一化后等价于点积），支持与生产实现
// 一致的 payload 过滤语义。
type MemoryVectorService struct {
	mu       sync.RWMutex
	embedder core.EmbeddingService // 可选：文本查询的向量化
	colls    map[string]*memoryCollection
}

type memoryCollection struct {
	dim     int
	records map[int64]*core.VectorRecord
}

// MemoryVectorOption 配置 MemoryVectorService。
type MemoryVectorOption func(*MemoryVectorService)

// WithEmbedder 注入文本向量化服务；注入后 Search 可接受 Query 文本。
func WithEmbedder(e core.EmbeddingService) MemoryVectorOption {
	return func(s *MemoryVectorService) { s.embedder = e }
}

func NewMemoryVectorService(opts ...MemoryVectorOption) *MemoryVectorService {
	s := &MemoryVectorService{
		colls: make(map[string]*memoryCollection),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ core.VectorDatabaseService = (*MemoryVectorService)(nil)

func (s *MemoryVectorService) EnsureCollection(ctx context.Context, collection string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.colls[collection]
	if ok && c.dim == dim {
		return nil
	}
	// 维度不一致时删除重建
	s.colls[collection] = &memoryCollection{
		dim:     dim,
		records: make(map[int64]*core.VectorRecord),
	}
	return nil
}

func (s *MemoryVectorService) Upsert(ctx context.Context, collection string, records []*core.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.colls[collection]
	if !ok {
		return core.ErrStoreNotFound
	}
	for _, r := range records {
		if r == nil {
			continue
		}
		c.records[r.ID] = r
	}
	return nil
}

func (s *MemoryVectorService) Delete(ctx context.Context, collection string, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.colls[collection]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(c.records, id)
	}
	return nil
}

func (s *MemoryVectorService) DropCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.colls, collection)
	return nil
}

func (s *MemoryVectorService) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.ErrInvalidQuery
	}

	queryVec := req.Vector
	if req.Query != "" && s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, req.Query)
		if err != nil {
			return nil, err
		}
		queryVec = vec
	}
	if len(queryVec) == 0 {
		return nil, core.ErrInvalidQuery
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.colls[req.Collection]
	if !ok {
		return nil, core.ErrStoreNotFound
	}

	items := make([]core.VectorSearchItem, 0, len(c.records))
	for _, r := range c.records {
		if !matchFilter(r.Payload, req.Filter) {
			continue
		}
		items = append(items, core.VectorSearchItem{
			ID:      r.ID,
			Score:   cosine(queryVec, r.Vector),
			Payload: r.Payload,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
	if req.TopK > 0 && len(items) > req.TopK {
		items = items[:req.TopK]
	}
	return &core.VectorSearchResult{Items: items}, nil
}

func (s *MemoryVectorService) Close() error { return nil }

// matchFilter 判断 payload 是否满足所有过滤条件（AND 语义）。
func matchFilter(payload map[string]any, filter map[string]core.FilterClause) bool {
	for field, clause := range filter {
		v, ok := payload[field]
		if !ok {
			return false
		}
		switch clause.Kind {
		case core.FilterEquals:
			if !equalsValue(v, clause.Equals) {
				return false
			}
		case core.FilterAnyOf:
			if !anyOfValue(v, clause.AnyOf) {
				return false
			}
		case core.FilterRange:
			f, ok := numericValue(v)
			if !ok {
				return false
			}
			if clause.Gte != nil && f < *clause.Gte {
				return false
			}
			if clause.Lte != nil && f > *clause.Lte {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equalsValue(v, want any) bool {
	if fv, ok := numericValue(v); ok {
		if fw, ok := numericValue(want); ok {
			return fv == fw
		}
	}
	return v == want
}

// anyOfValue 支持 payload 值为字符串或字符串列表：
// 列表值与条件列表取交集（任一命中即匹配）。
func anyOfValue(v any, want []string) bool {
	switch val := v.(type) {
	case string:
		for _, w := range want {
			if val == w {
				return true
			}
		}
	case []string:
		for _, item := range val {
			for _, w := range want {
				if item == w {
					return true
				}
			}
		}
	case []any:
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				continue
			}
			for _, w := range want {
				if s == w {
					return true
				}
			}
		}
	}
	return false
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// cosine 计算两个向量的余弦相似度；零向量返回 0。
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
