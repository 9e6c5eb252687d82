package core

import "github.com/filmy/reco/pkg/utils"

// RecommendContext 承载用户/场景/实时信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID int64  // 0 表示匿名（guest）请求
	Scene  string // cold_start / personalized / recent / search / similar

	// User 是用户档案（可选；冷启动依赖其 GenrePreferences）
	User *User

	// Watched 是用户生命周期内交互过的物品集合，用于过滤已看内容
	Watched map[int64]struct{}

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数：query 文本、limit、过滤条件等
	Params map[string]any
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// HasWatched 判断用户是否交互过该物品。
func (rctx *RecommendContext) HasWatched(itemID int64) bool {
	if rctx.Watched == nil {
		return false
	}
	_, ok := rctx.Watched[itemID]
	return ok
}
