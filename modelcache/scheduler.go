package modelcache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler 每天在固定时刻触发一次 CheckAndReload。
// 默认每天 04:00（Europe/Paris），赶在夜间训练任务完成之后。
//
// 单次刷新失败只记日志，不中断调度：下一个触发点照常重试。
type Scheduler struct {
	cache  *Cache
	hour   int
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// SchedulerOption 配置 Scheduler。
type SchedulerOption func(*Scheduler)

// At 设置每日触发的小时（0-23）与时区。
func At(hour int, loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		s.hour = hour
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithSchedulerLogger 注入日志器。
func WithSchedulerLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

func NewScheduler(cache *Cache, opts ...SchedulerOption) *Scheduler {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cache:  cache,
		hour:   4,
		loc:    loc,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nextFire 返回 now 之后最近的一个每日触发时刻。
// 今天的触发点已过（含恰好相等）则顺延到明天。
func (s *Scheduler) nextFire(now time.Time) time.Time {
	local := now.In(s.loc)
	fire := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.loc)
	if !fire.After(local) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// Run 启动调度循环，阻塞直到 ctx 取消。
// 启动时先尝试一次初始加载，让服务不必等到触发点才有模型可用。
func (s *Scheduler) Run(ctx context.Context) {
	if _, err := s.cache.CheckAndReload(ctx); err != nil {
		s.logger.Warn("initial model load failed", zap.Error(err))
	}

	for {
		now := s.now()
		fire := s.nextFire(now)
		s.logger.Info("next model refresh scheduled", zap.Time("at", fire))

		timer := time.NewTimer(fire.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		reloaded, err := s.cache.CheckAndReload(ctx)
		if err != nil {
			s.logger.Warn("scheduled model refresh failed", zap.Error(err))
			continue
		}
		if reloaded {
			s.logger.Info("model refreshed",
				zap.Int64("version", s.cache.CurrentVersion()))
		} else {
			s.logger.Info("model unchanged, refresh skipped",
				zap.Int64("version", s.cache.CurrentVersion()))
		}
	}
}
