package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcherIngestOnWrite(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	var ingested []string
	onIngest := func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}

	w := NewWatcher([]string{dir}, []string{".txt"}, true, onIngest, nil, zap.NewNop(),
		WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("first revision"), 0644); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ingested) > 0
	})
	if !ok {
		t.Fatal("write event never triggered ingest callback")
	}
	mu.Lock()
	got := ingested[0]
	mu.Unlock()
	if filepath.Clean(got) != filepath.Clean(path) {
		t.Errorf("ingested %s, want %s", got, path)
	}
}

func TestWatcherExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	var ingested []string
	onIngest := func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}

	w := NewWatcher([]string{dir}, []string{".txt"}, false, onIngest, nil, zap.NewNop(),
		WithDebounce(30*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "ignored.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	n := len(ingested)
	mu.Unlock()
	if n != 0 {
		t.Errorf("non-matching extension triggered ingest: %v", ingested)
	}
}

func TestWatcherDebounceCollapsesWrites(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	count := 0
	onIngest := func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	w := NewWatcher([]string{dir}, nil, false, onIngest, nil, zap.NewNop(),
		WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "burst.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("revision"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	ok := waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	})
	if !ok {
		t.Fatal("burst never triggered ingest callback")
	}
	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	final := count
	mu.Unlock()
	if final > 2 {
		t.Errorf("expected the burst to collapse into at most 2 callbacks, got %d", final)
	}
}

func TestWatcherRemoveCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doomed.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var removed []string
	onRemove := func(p string) {
		mu.Lock()
		removed = append(removed, p)
		mu.Unlock()
	}

	w := NewWatcher([]string{dir}, []string{".txt"}, false, nil, onRemove, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(removed) > 0
	})
	if !ok {
		t.Fatal("remove event never triggered callback")
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	w := NewWatcher([]string{t.TempDir()}, nil, false, nil, nil, zap.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
