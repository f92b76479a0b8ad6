package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/authcache"
)

// ----- Fakes -----

type fakePruneStore struct {
	mu        sync.Mutex
	connected bool
	deleted   int64
	calls     int
	done      chan struct{}
}

func (f *fakePruneStore) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePruneStore) DeleteInactiveUsers(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.done != nil && f.calls == 1 {
		close(f.done)
	}
	return f.deleted, nil
}

type fakeReloadStore struct {
	mu        sync.Mutex
	connected bool
	ids       []int64
	calls     int
	done      chan struct{}
}

func (f *fakeReloadStore) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeReloadStore) ListAuthorizedGroupIDs(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.done != nil && f.calls == 1 {
		close(f.done)
	}
	return f.ids, nil
}

func TestRunPruning_SweepsAfterInitialDelay(t *testing.T) {
	st := &fakePruneStore{connected: true, deleted: 3, done: make(chan struct{})}
	s := New(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunPruning(ctx, st, time.Millisecond, time.Hour, 90*24*time.Hour)

	select {
	case <-st.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("initial pruning sweep never ran")
	}
}

func TestRunPruning_SkipsWhileDisconnected(t *testing.T) {
	st := &fakePruneStore{connected: false}
	s := New(zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.RunPruning(ctx, st, time.Millisecond, 5*time.Millisecond, time.Hour)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.calls != 0 {
		t.Fatalf("delete attempted %d times against a disconnected store", st.calls)
	}
}

func TestRunPruning_StopsOnContextDone(t *testing.T) {
	st := &fakePruneStore{connected: true}
	s := New(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finished := make(chan struct{})
	go func() {
		s.RunPruning(ctx, st, time.Hour, time.Hour, time.Hour)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("pruning job did not stop on context cancellation")
	}
}

func TestRunCacheReload_RefreshesMembership(t *testing.T) {
	cache := authcache.New(zerolog.Nop())
	st := &fakeReloadStore{connected: true, ids: []int64{-100, -200}, done: make(chan struct{})}
	s := New(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunCacheReload(ctx, cache, st, 5*time.Millisecond)

	select {
	case <-st.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("reload never ran")
	}

	// The reload is asynchronous to the signal; poll briefly.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cache.Has(-100) && cache.Has(-200) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("cache membership not refreshed")
}

func TestRunCacheReload_SkipsWhileDisconnected(t *testing.T) {
	cache := authcache.New(zerolog.Nop())
	st := &fakeReloadStore{connected: false, ids: []int64{-100}}
	s := New(zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.RunCacheReload(ctx, cache, st, 5*time.Millisecond)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.calls != 0 {
		t.Fatalf("reload attempted %d times against a disconnected store", st.calls)
	}
}
