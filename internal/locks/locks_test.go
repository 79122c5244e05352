package locks

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestTryAcquire(t *testing.T) {
	m := NewManager()
	id := uuid.New()

	release, ok := m.TryAcquire(id)
	if !ok {
		t.Fatal("first acquire must succeed")
	}
	if !m.IsLocked(id) {
		t.Error("workflow must be locked after acquire")
	}

	if _, ok := m.TryAcquire(id); ok {
		t.Fatal("second acquire must fail while locked")
	}

	release()
	if m.IsLocked(id) {
		t.Error("workflow must be unlocked after release")
	}

	if _, ok := m.TryAcquire(id); !ok {
		t.Fatal("acquire after release must succeed")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	m := NewManager()
	id := uuid.New()

	release, _ := m.TryAcquire(id)
	release()

	// Чужая блокировка не должна пострадать от повторного release
	other, _ := m.TryAcquire(id)
	release()
	if !m.IsLocked(id) {
		t.Error("stale release must not unlock a new acquisition")
	}
	other()
}

func TestIndependentWorkflows(t *testing.T) {
	m := NewManager()
	a, b := uuid.New(), uuid.New()

	releaseA, okA := m.TryAcquire(a)
	_, okB := m.TryAcquire(b)
	if !okA || !okB {
		t.Fatal("locks of different workflows must be independent")
	}
	if m.Active() != 2 {
		t.Errorf("Active() = %d, want 2", m.Active())
	}

	releaseA()
	if m.Active() != 1 {
		t.Errorf("Active() = %d, want 1", m.Active())
	}
}

func TestConcurrentAcquire(t *testing.T) {
	m := NewManager()
	id := uuid.New()

	const goroutines = 50
	var wg sync.WaitGroup
	acquired := make(chan func(), goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if release, ok := m.TryAcquire(id); ok {
				acquired <- release
			}
		}()
	}
	wg.Wait()
	close(acquired)

	var releases []func()
	for r := range acquired {
		releases = append(releases, r)
	}
	if len(releases) != 1 {
		t.Fatalf("%d goroutines acquired the lock, want exactly 1", len(releases))
	}
	releases[0]()
}
