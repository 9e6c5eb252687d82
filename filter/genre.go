package filter

import (
	"context"
	"strings"

	"github.com/filmy/reco/core"
)

// GenreFilter 只保留与指定类型集合有交集的电影（冷启动场景：
// 语义召回的候选必须落在用户自选的偏好类型内）。
// 类型比较不区分大小写；候选缺失 genres 字段时被过滤。
type GenreFilter struct {
	Genres []string
}

func (f *GenreFilter) Name() string {
	return "filter.genre"
}

func (f *GenreFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if len(f.Genres) == 0 {
		return false, nil
	}
	for _, g := range item.MetaStrings("genres") {
		for _, want := range f.Genres {
			if strings.EqualFold(strings.TrimSpace(g), strings.TrimSpace(want)) {
				return false, nil
			}
		}
	}
	return true, nil
}
