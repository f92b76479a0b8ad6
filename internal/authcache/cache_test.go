package authcache

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// ----- Fake lister -----

type fakeLister struct {
	ids []int64
	err error

	calls int
}

func (f *fakeLister) ListAuthorizedGroupIDs(ctx context.Context) ([]int64, error) {
	f.calls++
	return f.ids, f.err
}

// ----- Tests -----

func TestHasAdd_Idempotent(t *testing.T) {
	c := New(zerolog.Nop())

	if c.Has(-100) {
		t.Fatalf("empty cache reported membership")
	}

	c.Add(-100)
	c.Add(-100)

	if !c.Has(-100) {
		t.Fatalf("Add did not register membership")
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1 (Add must be idempotent)", got)
	}
}

func TestReload_ReplacesMembership(t *testing.T) {
	c := New(zerolog.Nop())
	c.Add(-1)

	l := &fakeLister{ids: []int64{-100, -200}}
	if err := c.Reload(context.Background(), l); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if c.Has(-1) {
		t.Fatalf("stale entry survived reload")
	}
	for _, id := range []int64{-100, -200} {
		if !c.Has(id) {
			t.Fatalf("Has(%d) = false after reload", id)
		}
	}
}

func TestReload_FailureKeepsPreviousMembership(t *testing.T) {
	c := New(zerolog.Nop())
	c.Add(-100)

	l := &fakeLister{err: errors.New("boom")}
	if err := c.Reload(context.Background(), l); err == nil {
		t.Fatalf("expected reload error")
	}

	if !c.Has(-100) {
		t.Fatalf("failed reload emptied the cache")
	}
}

func TestReload_Idempotent(t *testing.T) {
	c := New(zerolog.Nop())
	l := &fakeLister{ids: []int64{-100, -200, -300}}

	if err := c.Reload(context.Background(), l); err != nil {
		t.Fatalf("first reload: %v", err)
	}
	first := c.Len()

	if err := c.Reload(context.Background(), l); err != nil {
		t.Fatalf("second reload: %v", err)
	}

	if c.Len() != first {
		t.Fatalf("membership changed across idempotent reloads: %d vs %d", first, c.Len())
	}
	if l.calls != 2 {
		t.Fatalf("lister calls = %d, want 2", l.calls)
	}
}
