package core

import (
	"context"
	"time"
)

// 目录（catalog）协作方接口：电影/用户/反馈由外部关系型存储负责，
// 推荐引擎只通过这些窄接口读取。实现方可以是任意数据库的 DAO。

// Movie 是目录中的物品。文本字段用于生成向量；popularity 用于兜底排序。
type Movie struct {
	ID          int64
	Title       string
	Overview    string
	Genres      []string
	Tagline     string
	Keywords    string
	Language    string
	Popularity  float64
	ReleaseYear int
}

// User 是目录中的用户。GenrePreferences 来自注册时的自选偏好，
// 是冷启动唯一可用的个性化信号。
type User struct {
	ID               int64
	GenrePreferences []string
}

// FeedbackStatus 是反馈的状态标签（自由文本，训练只识别 watched）。
const (
	FeedbackStatusWatched   = "watched"
	FeedbackStatusWatchlist = "watchlist"
)

// Feedback 是一条用户-物品交互。Rating 可空（nil 表示仅有状态标签）；
// 同一 (user, item) 出现多行时以最新一行为准。
type Feedback struct {
	UserID    int64
	MovieID   int64
	Rating    *float64
	Status    string
	CreatedAt time.Time
}

// RatingValue 返回训练可用的评分：显式评分优先；
// 仅有 watched 状态时按 1.0 处理；否则返回 (0, false) 表示该行无训练信号。
func (f *Feedback) RatingValue() (float64, bool) {
	if f.Rating != nil {
		return *f.Rating, true
	}
	if f.Status == FeedbackStatusWatched {
		return 1.0, true
	}
	return 0, false
}

// MovieStore 是电影目录的读取接口。
type MovieStore interface {
	// GetMovie 按 ID 读取电影，不存在时返回 ErrStoreNotFound
	GetMovie(ctx context.Context, id int64) (*Movie, error)

	// GetMovieByTitle 按标题精确匹配，不存在时返回 ErrStoreNotFound
	GetMovieByTitle(ctx context.Context, title string) (*Movie, error)

	// ListMovies 按 popularity 降序分页列出电影
	ListMovies(ctx context.Context, offset, limit int) ([]*Movie, error)
}

// UserStore 是用户档案的读取接口。
type UserStore interface {
	// GetUser 按 ID 读取用户，不存在时返回 ErrStoreNotFound
	GetUser(ctx context.Context, id int64) (*User, error)
}

// FeedbackStore 是反馈的读取接口。
type FeedbackStore interface {
	// ListUserFeedback 返回某用户的全部反馈，按 CreatedAt 升序
	ListUserFeedback(ctx context.Context, userID int64) ([]*Feedback, error)

	// ListAllFeedback 返回全量反馈（训练用），按 CreatedAt 升序
	ListAllFeedback(ctx context.Context) ([]*Feedback, error)

	// CountFeedbackSince 返回某时间点之后新增的反馈条数（重训触发判断用）
	CountFeedbackSince(ctx context.Context, since time.Time) (int64, error)
}
