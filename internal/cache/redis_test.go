//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"bookrec/internal/testinfra"
)

type payload struct {
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

func TestRedisJSON(t *testing.T) {
	addr := testinfra.StartRedis(t)
	ctx := context.Background()

	r, err := NewRedis(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	var got []payload
	hit, err := r.GetJSON(ctx, "missing", &got)
	if err != nil || hit {
		t.Fatalf("GetJSON(missing) = %v, %v", hit, err)
	}

	want := []payload{{"Emma", 4.5}, {"Persuasion", 4.1}}
	if err := r.SetJSON(ctx, "k", want, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	hit, err = r.GetJSON(ctx, "k", &got)
	if err != nil || !hit {
		t.Fatalf("GetJSON(k) = %v, %v", hit, err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("GetJSON(k) = %+v, want %+v", got, want)
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	if _, err := NewRedis(context.Background(), "127.0.0.1:1", "", 0); err == nil {
		t.Error("NewRedis() to a closed port succeeded")
	}
}
