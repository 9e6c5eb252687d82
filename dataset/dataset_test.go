package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/filmy/reco/core"
)

func fb(user, movie int64, rating float64, status string, at time.Time) *core.Feedback {
	f := &core.Feedback{UserID: user, MovieID: movie, Status: status, CreatedAt: at}
	if rating > 0 {
		f.Rating = &rating
	}
	return f
}

func TestBuild(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		feedbacks []*core.Feedback
		alpha     float64
		wantNNZ   int
		wantUsers int
		wantItems int
		wantErr   bool
	}{
		{
			name: "rated and watched rows survive, others dropped",
			feedbacks: []*core.Feedback{
				fb(1, 10, 4.5, "", t0),
				fb(1, 11, 0, core.FeedbackStatusWatched, t0),
				fb(2, 10, 0, core.FeedbackStatusWatchlist, t0), // 无评分且非 watched
			},
			alpha:     10,
			wantNNZ:   2,
			wantUsers: 1,
			wantItems: 2,
		},
		{
			name: "duplicate pair keeps latest rating",
			feedbacks: []*core.Feedback{
				fb(1, 10, 2.0, "", t0),
				fb(1, 10, 5.0, "", t0.Add(time.Hour)),
			},
			alpha:     10,
			wantNNZ:   1,
			wantUsers: 1,
			wantItems: 1,
		},
		{
			name: "all rows filtered",
			feedbacks: []*core.Feedback{
				fb(1, 10, 0, core.FeedbackStatusWatchlist, t0),
			},
			alpha:   10,
			wantErr: true,
		},
		{
			name:      "no rows at all",
			feedbacks: nil,
			alpha:     10,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm, mat, err := Build(tt.feedbacks, tt.alpha)
			if tt.wantErr {
				if !core.IsEmptyDataset(err) {
					t.Fatalf("expected ErrEmptyDataset, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if mat.NNZ() != tt.wantNNZ {
				t.Errorf("NNZ = %d, want %d", mat.NNZ(), tt.wantNNZ)
			}
			if dm.NumUsers() != tt.wantUsers {
				t.Errorf("NumUsers = %d, want %d", dm.NumUsers(), tt.wantUsers)
			}
			if dm.NumItems() != tt.wantItems {
				t.Errorf("NumItems = %d, want %d", dm.NumItems(), tt.wantItems)
			}
		})
	}
}

func TestBuildConfidence(t *testing.T) {
	t0 := time.Now()
	alpha := 10.0
	rows := []*core.Feedback{
		fb(1, 10, 4.5, "", t0),
		fb(2, 10, 0, core.FeedbackStatusWatched, t0), // watched 视为 rating=1.0
	}
	_, mat, err := Build(rows, alpha)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := map[float64]bool{1 + alpha*4.5: false, 1 + alpha*1.0: false}
	for _, e := range mat.Entries {
		if _, ok := want[e.Confidence]; !ok {
			t.Errorf("unexpected confidence %v", e.Confidence)
			continue
		}
		want[e.Confidence] = true
	}
	for c, seen := range want {
		if !seen {
			t.Errorf("confidence %v missing", c)
		}
	}
}

func TestBuildDeterministicOrder(t *testing.T) {
	t0 := time.Now()
	// 乱序输入，下标仍按外部 ID 升序分配
	rows := []*core.Feedback{
		fb(9, 300, 3, "", t0),
		fb(2, 100, 3, "", t0),
		fb(5, 200, 3, "", t0),
	}
	dm, _, err := Build(rows, 1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	wantUsers := []int64{2, 5, 9}
	wantItems := []int64{100, 200, 300}
	for i, uid := range wantUsers {
		if dm.Users[i] != uid {
			t.Errorf("Users[%d] = %d, want %d", i, dm.Users[i], uid)
		}
		if dm.UserIndex[uid] != i {
			t.Errorf("UserIndex[%d] = %d, want %d", uid, dm.UserIndex[uid], i)
		}
	}
	for i, mid := range wantItems {
		if dm.Items[i] != mid {
			t.Errorf("Items[%d] = %d, want %d", i, dm.Items[i], mid)
		}
	}
}

func TestBuildSkipsNonFiniteRating(t *testing.T) {
	t0 := time.Now()
	bad := math.NaN()
	rows := []*core.Feedback{
		{UserID: 1, MovieID: 10, Rating: &bad, CreatedAt: t0},
		fb(1, 11, 3, "", t0),
	}
	_, mat, err := Build(rows, 1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if mat.NNZ() != 1 {
		t.Errorf("NNZ = %d, want 1", mat.NNZ())
	}
}
