package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - 训练错误：EMPTY_DATASET
//   - 模型缓存错误：NO_PRODUCTION_MODEL
//   - 向量检索错误：INVALID_QUERY
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "EMPTY_DATASET"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "vector", "trainer"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*DomainError)
	return ok
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐引擎专用错误代码
	ErrorCodeEmptyDataset      = "EMPTY_DATASET"       // 训练数据为空
	ErrorCodeNoProductionModel = "NO_PRODUCTION_MODEL" // 没有 production 模型
	ErrorCodeInvalidQuery      = "INVALID_QUERY"       // 检索请求缺少向量和文本
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleVector   = "vector"   // 向量模块
	ModuleDataset  = "dataset"  // 数据集模块
	ModuleTrainer  = "trainer"  // 训练模块
	ModuleRegistry = "registry" // 模型注册表模块
	ModuleCache    = "cache"    // 模型缓存模块
	ModuleService  = "service"  // 服务模块
)

// 领域错误定义（跨包共享的哨兵错误）
var (
	// ErrEmptyDataset 表示过滤后没有任何可用的反馈行，禁止训练
	ErrEmptyDataset = NewDomainError(ModuleDataset, ErrorCodeEmptyDataset, "dataset: no usable feedback rows")

	// ErrNoProductionModel 表示注册表中没有 production 阶段的模型版本
	ErrNoProductionModel = NewDomainError(ModuleRegistry, ErrorCodeNoProductionModel, "registry: no production model version")

	// ErrInvalidQuery 表示向量检索请求既没有向量也没有查询文本
	ErrInvalidQuery = NewDomainError(ModuleVector, ErrorCodeInvalidQuery, "vector: either query text or vector must be provided")
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// IsEmptyDataset 检查错误是否为 EMPTY_DATASET
func IsEmptyDataset(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeEmptyDataset
	}
	return false
}

// IsNoProductionModel 检查错误是否为 NO_PRODUCTION_MODEL
func IsNoProductionModel(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNoProductionModel
	}
	return false
}

// IsInvalidQuery 检查错误是否为 INVALID_QUERY
func IsInvalidQuery(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidQuery
	}
	return false
}
