package core

import "github.com/filmy/reco/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、载荷、标签。
// ID 与 Movie.ID 一致（目录中的数字主键）；Score 用于排序决策；
// Meta 承载向量库返回的 payload（genres/release_year/popularity 等）；
// Labels 用于解释与策略驱动。
type Item struct {
	ID     int64
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id int64) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// MetaString 读取 Meta 中的字符串字段，不存在时返回空串。
func (it *Item) MetaString(key string) string {
	if it.Meta == nil {
		return ""
	}
	s, _ := it.Meta[key].(string)
	return s
}

// MetaFloat 读取 Meta 中的数值字段（float64/int/int64），不存在时返回 0。
func (it *Item) MetaFloat(key string) float64 {
	if it.Meta == nil {
		return 0
	}
	switch v := it.Meta[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// MetaStrings 读取 Meta 中的字符串列表字段（[]string 或 []any）。
func (it *Item) MetaStrings(key string) []string {
	if it.Meta == nil {
		return nil
	}
	switch v := it.Meta[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
