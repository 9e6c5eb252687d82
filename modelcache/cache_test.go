package modelcache

import (
	"context"
	"testing"
	"time"

	"github.com/filmy/reco/core"
	"github.com/filmy/reco/dataset"
	"github.com/filmy/reco/mf"
	"github.com/filmy/reco/registry"
	"github.com/filmy/reco/store"
)

const testModel = "implicit_als"

func trainArtifact(t *testing.T) []byte {
	t.Helper()
	t0 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	rating := func(v float64) *float64 { return &v }
	var rows []*core.Feedback
	for _, uid := range []int64{1, 2, 3} {
		for _, mid := range []int64{10, 11, 12} {
			rows = append(rows, &core.Feedback{UserID: uid, MovieID: mid, Rating: rating(4), CreatedAt: t0})
			t0 = t0.Add(time.Minute)
		}
	}
	dm, m, err := dataset.Build(rows, 10)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	model, err := mf.Fit(m, dm, mf.Options{Factors: 4, Epochs: 3})
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	data, err := model.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return data
}

func newTestRegistry(t *testing.T) *registry.KVRegistry {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	return registry.NewKVRegistry(kv)
}

func promoteNew(t *testing.T, reg *registry.KVRegistry, artifact []byte, p float64) int64 {
	t.Helper()
	ctx := context.Background()
	mv, err := reg.CreateVersion(ctx, testModel, core.EvalMetrics{PrecisionAt10: p, RecallAt10: p}, artifact)
	if err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}
	if _, err := reg.PromoteIfBetter(ctx, testModel, mv.Version); err != nil {
		t.Fatalf("PromoteIfBetter() error = %v", err)
	}
	return mv.Version
}

func TestCurrentBeforeLoad(t *testing.T) {
	c := New(newTestRegistry(t), testModel)
	if _, err := c.Current(); !core.IsNoProductionModel(err) {
		t.Errorf("Current() error = %v, want no production model", err)
	}
}

func TestCheckAndReloadOnlyOnVersionChange(t *testing.T) {
	reg := newTestRegistry(t)
	artifact := trainArtifact(t)
	ctx := context.Background()

	v1 := promoteNew(t, reg, artifact, 0.1)
	c := New(reg, testModel)

	reloaded, err := c.CheckAndReload(ctx)
	if err != nil || !reloaded {
		t.Fatalf("first CheckAndReload() = %v, %v, want reload", reloaded, err)
	}
	if c.CurrentVersion() != v1 {
		t.Errorf("CurrentVersion() = %d, want %d", c.CurrentVersion(), v1)
	}
	if _, err := c.Current(); err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	// 版本未变：跳过加载
	reloaded, err = c.CheckAndReload(ctx)
	if err != nil || reloaded {
		t.Errorf("unchanged CheckAndReload() = %v, %v, want skip", reloaded, err)
	}

	// 晋升新版本后：重新加载
	v2 := promoteNew(t, reg, artifact, 0.2)
	reloaded, err = c.CheckAndReload(ctx)
	if err != nil || !reloaded {
		t.Fatalf("CheckAndReload after promote = %v, %v, want reload", reloaded, err)
	}
	if c.CurrentVersion() != v2 {
		t.Errorf("CurrentVersion() = %d, want %d", c.CurrentVersion(), v2)
	}
}

func TestReloadFailureKeepsSnapshot(t *testing.T) {
	reg := newTestRegistry(t)
	artifact := trainArtifact(t)
	ctx := context.Background()

	v1 := promoteNew(t, reg, artifact, 0.1)
	c := New(reg, testModel)
	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	// 注册表指向损坏的 artifact：刷新失败但旧快照保持可用
	mv, err := reg.CreateVersion(ctx, testModel, core.EvalMetrics{PrecisionAt10: 0.9, RecallAt10: 0.9}, []byte("garbage"))
	if err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}
	if _, err := reg.PromoteIfBetter(ctx, testModel, mv.Version); err != nil {
		t.Fatalf("PromoteIfBetter() error = %v", err)
	}

	if _, err := c.CheckAndReload(ctx); err == nil {
		t.Fatal("expected decode failure on corrupt artifact")
	}
	if c.CurrentVersion() != v1 {
		t.Errorf("CurrentVersion() = %d, want previous %d", c.CurrentVersion(), v1)
	}
	if _, err := c.Current(); err != nil {
		t.Errorf("Current() after failed refresh error = %v", err)
	}
}

func TestSchedulerNextFire(t *testing.T) {
	c := New(newTestRegistry(t), testModel)
	s := NewScheduler(c, At(4, time.UTC))

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before fire hour fires today",
			now:  time.Date(2025, 6, 1, 2, 30, 0, 0, time.UTC),
			want: time.Date(2025, 6, 1, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "after fire hour fires tomorrow",
			now:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at fire hour defers to tomorrow",
			now:  time.Date(2025, 6, 1, 4, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.nextFire(tt.now); !got.Equal(tt.want) {
				t.Errorf("nextFire(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	reg := newTestRegistry(t)
	promoteNew(t, reg, trainArtifact(t), 0.1)
	c := New(reg, testModel)
	s := NewScheduler(c, At(4, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// 启动时的初始加载应已生效
	deadline := time.After(2 * time.Second)
	for c.CurrentVersion() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial load did not happen")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
