// Copyright 2024-2026 Aiku AI

package proxy

import (
	"context"
	"testing"
	"time"
)

func TestCandidateCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cc := NewCandidateCache(env.db, time.Minute)

	env.addMember(t, "Alex", "[", "]")
	got, err := cc.Get(ctx, "user1")
	if err != nil || len(got) != 1 {
		t.Fatalf("Get: %d candidates, err=%v", len(got), err)
	}
	env.addMember(t, "Blake", "{", "}")
	if got, _ = cc.Get(ctx, "user1"); len(got) != 1 {
		t.Errorf("cached entry wasn't used: got %d candidates", len(got))
	}
	cc.Invalidate("user1")
	if got, _ = cc.Get(ctx, "user1"); len(got) != 2 {
		t.Errorf("after invalidation: got %d candidates, want 2", len(got))
	}
	if cc.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cc.Len())
	}
}

func TestCandidateCacheDisabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cc := NewCandidateCache(env.db, 0)

	if _, err := cc.Get(ctx, "user1"); err != nil {
		t.Fatal(err)
	}
	env.addMember(t, "Alex", "[", "]")
	if got, _ := cc.Get(ctx, "user1"); len(got) != 1 {
		t.Errorf("got %d candidates, want 1", len(got))
	}
	if cc.Len() != 0 {
		t.Errorf("Len: got %d, want 0", cc.Len())
	}
}
