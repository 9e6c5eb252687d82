package core

import "context"

// VectorService 是向量检索服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（vector/store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景（召回场景专用）：
//   - 语义召回：根据查询向量检索相似电影
//   - 相似电影：根据电影自身向量检索近邻
//
// 实现：
//   - vector.QdrantService 实现此接口（通过 core.VectorDatabaseService）
//   - store.MemoryVectorService 实现此接口（内存实现，测试/开发用）
type VectorService interface {
	// Search 向量搜索
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// Close 关闭连接
	Close() error
}

// FilterKind 标记单个过滤条件的形态。
type FilterKind int

const (
	// FilterEquals 精确匹配（标量）
	FilterEquals FilterKind = iota
	// FilterAnyOf 多值任一匹配（列表）
	FilterAnyOf
	// FilterRange 闭区间数值范围
	FilterRange
)

// FilterClause 是 payload 字段上的一个过滤条件（tagged union）。
// 三种形态互斥：Equals / AnyOf / Range；多个 clause 之间为 AND 关系。
type FilterClause struct {
	Kind FilterKind

	// Equals 精确匹配的值（FilterEquals 时有效）
	Equals any

	// AnyOf 任一匹配的值列表（FilterAnyOf 时有效）
	AnyOf []string

	// Gte/Lte 闭区间边界（FilterRange 时有效；nil 表示该侧无界）
	Gte *float64
	Lte *float64
}

// Equals 构造精确匹配条件。
func Equals(v any) FilterClause {
	return FilterClause{Kind: FilterEquals, Equals: v}
}

// AnyOf 构造"属于列表之一"条件。
func AnyOf(values ...string) FilterClause {
	return FilterClause{Kind: FilterAnyOf, AnyOf: values}
}

// Range 构造闭区间条件；任一边界可传 nil 表示无界。
func Range(gte, lte *float64) FilterClause {
	return FilterClause{Kind: FilterRange, Gte: gte, Lte: lte}
}

// VectorSearchRequest 向量搜索请求。
// Vector 与 Query 至少提供其一；都缺失时实现方必须返回 ErrInvalidQuery。
type VectorSearchRequest struct {
	// Collection 集合名称
	Collection string

	// Vector 查询向量（已归一化）
	Vector []float32

	// Query 查询文本（由实现方负责向量化；优先于 Vector）
	Query string

	// TopK 返回 TopK 个最相似的结果
	TopK int

	// Filter 过滤条件：payload 字段 -> 条件，多字段 AND
	Filter map[string]FilterClause
}

// VectorSearchItem 单个向量搜索结果项。
type VectorSearchItem struct {
	// ID 物品 ID
	ID int64

	// Score 相似度分数（余弦，向量归一化后等价于点积）
	Score float64

	// Payload 写入时附带的物品字段（genres/release_year/popularity 等）
	Payload map[string]any
}

// VectorSearchResult 向量搜索结果。
type VectorSearchResult struct {
	// Items 搜索结果项列表（按相似度降序）
	Items []VectorSearchItem
}

// VectorRecord 是一条向量记录：物品 ID、稠密向量、payload。
type VectorRecord struct {
	ID      int64
	Vector  []float32
	Payload map[string]any
}

// VectorDatabaseService 是完整的向量数据库服务接口。
//
// 设计原则：
//   - 嵌入 VectorService（召回场景接口），符合接口组合原则
//   - 提供完整的向量数据库操作（CRUD + 集合管理）
//
// 实现：
//   - vector.QdrantService 实现此接口
//   - store.MemoryVectorService 实现此接口（内存实现）
type VectorDatabaseService interface {
	VectorService

	// EnsureCollection 幂等地确保集合存在且向量维度正确；
	// 维度不一致时删除重建（配置正确性优先于保留脏索引）
	EnsureCollection(ctx context.Context, collection string, dim int) error

	// Upsert 写入/覆盖一批向量记录
	Upsert(ctx context.Context, collection string, records []*VectorRecord) error

	// Delete 删除指定 ID 的记录
	Delete(ctx context.Context, collection string, ids []int64) error

	// DropCollection 删除整个集合
	DropCollection(ctx context.Context, collection string) error
}
