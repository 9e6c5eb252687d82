package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/filmy/reco/core"
)

// MemoryCatalog 是内存实现的目录存储（电影/用户/反馈三个读取接口
// 加上简单的写入方法），用于测试/开发/示例。
// 生产环境由业务侧数据库的 DAO 实现同样的接口。
type MemoryCatalog struct {
	mu        sync.RWMutex
	movies    map[int64]*core.Movie
	users     map[int64]*core.User
	feedbacks []*core.Feedback
}

var (
	_ core.MovieStore    = (*MemoryCatalog)(nil)
	_ core.UserStore     = (*MemoryCatalog)(nil)
	_ core.FeedbackStore = (*MemoryCatalog)(nil)
)

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		movies: make(map[int64]*core.Movie),
		users:  make(map[int64]*core.User),
	}
}

// PutMovie 写入/覆盖一部电影。
func (c *MemoryCatalog) PutMovie(m *core.Movie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.movies[m.ID] = m
}

// PutUser 写入/覆盖一个用户。
func (c *MemoryCatalog) PutUser(u *core.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

// AddFeedback 追加一条反馈。
func (c *MemoryCatalog) AddFeedback(fb *core.Feedback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feedbacks = append(c.feedbacks, fb)
}

func (c *MemoryCatalog) GetMovie(ctx context.Context, id int64) (*core.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.movies[id]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return m, nil
}

func (c *MemoryCatalog) GetMovieByTitle(ctx context.Context, title string) (*core.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.movies {
		if m.Title == title {
			return m, nil
		}
	}
	return nil, core.ErrStoreNotFound
}

func (c *MemoryCatalog) ListMovies(ctx context.Context, offset, limit int) ([]*core.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make([]*core.Movie, 0, len(c.movies))
	for _, m := range c.movies {
		all = append(all, m)
	}
	// popularity 降序，ID 升序打破平局保证分页稳定
	sort.Slice(all, func(i, j int) bool {
		if all[i].Popularity != all[j].Popularity {
			return all[i].Popularity > all[j].Popularity
		}
		return all[i].ID < all[j].ID
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (c *MemoryCatalog) GetUser(ctx context.Context, id int64) (*core.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return u, nil
}

func (c *MemoryCatalog) ListUserFeedback(ctx context.Context, userID int64) ([]*core.Feedback, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*core.Feedback, 0)
	for _, fb := range c.feedbacks {
		if fb.UserID == userID {
			out = append(out, fb)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (c *MemoryCatalog) ListAllFeedback(ctx context.Context) ([]*core.Feedback, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*core.Feedback, len(c.feedbacks))
	copy(out, c.feedbacks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (c *MemoryCatalog) CountFeedbackSince(ctx context.Context, since time.Time) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, fb := range c.feedbacks {
		if fb.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}
