package store

import (
	"context"
	"testing"

	"github.com/filmy/reco/core"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) error = %v, want store not found", err)
	}

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get() = %q, %v", got, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after delete error = %v, want store not found", err)
	}
}

func TestMemoryStoreBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	kvs := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if err := s.BatchSet(ctx, kvs); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}
	got, err := s.BatchGet(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet() = %v", got)
	}
}

func TestMemoryStoreZSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	for member, score := range map[string]float64{"m1": 1, "m3": 3, "m2": 2} {
		if err := s.ZAdd(ctx, "rank", score, member); err != nil {
			t.Fatalf("ZAdd() error = %v", err)
		}
	}

	got, err := s.ZRange(ctx, "rank", 0, -1)
	if err != nil {
		t.Fatalf("ZRange() error = %v", err)
	}
	want := []string{"m3", "m2", "m1"}
	if len(got) != len(want) {
		t.Fatalf("ZRange() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ZRange()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	score, err := s.ZScore(ctx, "rank", "m2")
	if err != nil || score != 2 {
		t.Errorf("ZScore() = %v, %v", score, err)
	}

	if err := s.ZRem(ctx, "rank", "m3"); err != nil {
		t.Fatalf("ZRem() error = %v", err)
	}
	got, _ = s.ZRange(ctx, "rank", 0, 0)
	if len(got) != 1 || got[0] != "m2" {
		t.Errorf("ZRange after ZRem = %v, want [m2]", got)
	}
}

func TestMemoryStoreHash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if err := s.HSet(ctx, "h", "f1", []byte("x")); err != nil {
		t.Fatalf("HSet() error = %v", err)
	}
	if err := s.HSet(ctx, "h", "f2", []byte("y")); err != nil {
		t.Fatalf("HSet() error = %v", err)
	}

	got, err := s.HGet(ctx, "h", "f1")
	if err != nil || string(got) != "x" {
		t.Errorf("HGet() = %q, %v", got, err)
	}
	all, err := s.HGetAll(ctx, "h")
	if err != nil || len(all) != 2 {
		t.Errorf("HGetAll() = %v, %v", all, err)
	}
	if _, err := s.HGet(ctx, "h", "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("HGet(missing) error = %v, want store not found", err)
	}
}
