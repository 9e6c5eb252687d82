// Package vector 提供电影向量索引的基础设施实现：
// Qdrant 后端（生产）与电影语义索引适配层。
package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/filmy/reco/core"
)

// QdrantConfig 是 Qdrant gRPC 客户端配置。
type QdrantConfig struct {
	// Host Qdrant 服务地址，默认 localhost
	Host string

	// Port gRPC 端口（非 HTTP REST 端口），默认 6334
	Port int

	// UseTLS 是否启用 TLS，默认 false（本地开发）
	UseTLS bool

	// APIKey 可选的鉴权 key
	APIKey string

	// RequestTimeout 单次请求超时，默认 30s
	RequestTimeout time.Duration
}

func (c *QdrantConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

// QdrantService 是 core.VectorDatabaseService 的 Qdrant 实现。
// 距离度量固定为余弦；文本查询通过注入的 EmbeddingService 向量化。
type QdrantService struct {
	client   *qdrant.Client
	config   *QdrantConfig
	embedder core.EmbeddingService
	logger   *zap.Logger
}

var _ core.VectorDatabaseService = (*QdrantService)(nil)

// QdrantOption 配置 QdrantService。
type QdrantOption func(*QdrantService)

// WithQdrantEmbedder 注入文本向量化服务；注入后 Search 可接受 Query 文本。
func WithQdrantEmbedder(e core.EmbeddingService) QdrantOption {
	return func(s *QdrantService) { s.embedder = e }
}

// WithQdrantLogger 注入日志器。
func WithQdrantLogger(l *zap.Logger) QdrantOption {
	return func(s *QdrantService) { s.logger = l }
}

// NewQdrantService 创建 Qdrant 向量服务并做一次连通性检查。
func NewQdrantService(cfg *QdrantConfig, opts ...QdrantOption) (*QdrantService, error) {
	if cfg == nil {
		cfg = &QdrantConfig{}
	}
	cfg.applyDefaults()

	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = append(qcfg.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}
	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("vector: create qdrant client: %w", err)
	}

	s := &QdrantService{
		client: client,
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("vector: qdrant health check: %w", err)
	}
	s.logger.Info("qdrant connection established",
		zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
	return s, nil
}

func (s *QdrantService) EnsureCollection(ctx context.Context, collection string, dim int) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("vector: check collection %s: %w", collection, err)
	}
	if exists {
		info, err := s.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			return fmt.Errorf("vector: inspect collection %s: %w", collection, err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size == uint64(dim) {
			return nil
		}
		// 维度不一致：删除重建，配置正确性优先于保留脏索引
		s.logger.Warn("collection dimension mismatch, recreating",
			zap.String("collection", collection),
			zap.Uint64("existing", size), zap.Int("configured", dim))
		if err := s.client.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("vector: drop stale collection %s: %w", collection, err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("vector: create collection %s: %w", collection, err)
	}
	return nil
}

func (s *QdrantService) Upsert(ctx context.Context, collection string, records []*core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		points = append(points, toPoint(r))
	}

	upCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()
	_, err := s.client.Upsert(upCtx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err == nil {
		return nil
	}

	// 批量失败时退化为逐条写入，跳过个别坏点，尽量保住整批
	s.logger.Warn("batch upsert failed, retrying per point",
		zap.String("collection", collection), zap.Int("points", len(points)), zap.Error(err))
	var failed []error
	for _, p := range points {
		oneCtx, oneCancel := context.WithTimeout(ctx, s.config.RequestTimeout)
		_, perr := s.client.Upsert(oneCtx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         []*qdrant.PointStruct{p},
		})
		oneCancel()
		if perr != nil {
			s.logger.Warn("point upsert failed",
				zap.Uint64("id", p.GetId().GetNum()), zap.Error(perr))
			failed = append(failed, perr)
		}
	}
	if len(failed) == len(points) {
		return fmt.Errorf("vector: upsert to %s: %w", collection, errors.Join(failed...))
	}
	return nil
}

func (s *QdrantService) Delete(ctx context.Context, collection string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(uint64(id))
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("vector: delete from %s: %w", collection, err)
	}
	return nil
}

func (s *QdrantService) DropCollection(ctx context.Context, collection string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("vector: drop collection %s: %w", collection, err)
	}
	return nil
}

func (s *QdrantService) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.ErrInvalidQuery
	}
	queryVec := req.Vector
	if req.Query != "" && s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, req.Query)
		if err != nil {
			return nil, fmt.Errorf("vector: embed query: %w", err)
		}
		queryVec = vec
	}
	if len(queryVec) == 0 {
		return nil, core.ErrInvalidQuery
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	limit := uint64(req.TopK)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: req.Collection,
		Query:          qdrant.NewQuery(queryVec...),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         toFilter(req.Filter),
	})
	if err != nil {
		return nil, fmt.Errorf("vector: query %s: %w", req.Collection, err)
	}

	items := make([]core.VectorSearchItem, 0, len(points))
	for _, p := range points {
		items = append(items, core.VectorSearchItem{
			ID:      int64(p.GetId().GetNum()),
			Score:   float64(p.GetScore()),
			Payload: fromPayload(p.GetPayload()),
		})
	}
	return &core.VectorSearchResult{Items: items}, nil
}

func (s *QdrantService) Close() error {
	return s.client.Close()
}

func toPoint(r *core.VectorRecord) *qdrant.PointStruct {
	payload := make(map[string]*qdrant.Value, len(r.Payload))
	for k, v := range r.Payload {
		payload[k] = toValue(v)
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(uint64(r.ID)),
		Vectors: qdrant.NewVectors(r.Vector...),
		Payload: payload,
	}
}

func toValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	case []string:
		vals := make([]*qdrant.Value, len(val))
		for i, s := range val {
			vals[i] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: vals}}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
	}
}

func fromPayload(payload map[string]*qdrant.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		result[k] = fromValue(v)
	}
	return result
}

func fromValue(v *qdrant.Value) any {
	switch val := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_ListValue:
		items := make([]any, 0, len(val.ListValue.GetValues()))
		for _, item := range val.ListValue.GetValues() {
			items = append(items, fromValue(item))
		}
		return items
	default:
		return nil
	}
}

// toFilter 把领域过滤条件翻译为 Qdrant filter（全部挂在 Must 下，AND 语义）。
func toFilter(filter map[string]core.FilterClause) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filter))
	for field, clause := range filter {
		switch clause.Kind {
		case core.FilterEquals:
			must = append(must, matchCondition(field, clause.Equals))
		case core.FilterAnyOf:
			must = append(must, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: field,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keywords{
								Keywords: &qdrant.RepeatedStrings{Strings: clause.AnyOf},
							},
						},
					},
				},
			})
		case core.FilterRange:
			must = append(must, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   field,
						Range: &qdrant.Range{Gte: clause.Gte, Lte: clause.Lte},
					},
				},
			})
		}
	}
	return &qdrant.Filter{Must: must}
}

func matchCondition(field string, value any) *qdrant.Condition {
	var match *qdrant.Match
	switch v := value.(type) {
	case string:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}}
	case int:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(v)}}
	case int64:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: v}}
	case bool:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: v}}
	default:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: fmt.Sprintf("%v", v)}}
	}
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: field, Match: match},
		},
	}
}
