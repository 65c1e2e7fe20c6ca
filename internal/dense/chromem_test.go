package dense

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicore/medsearch/internal/models"
)

func TestChromemIndex_AddSearch(t *testing.T) {
	idx, err := NewChromemIndex(t.TempDir(), 2)
	if err != nil {
		t.Fatalf("NewChromemIndex error: %v", err)
	}
	ctx := context.Background()
	err = idx.Add(ctx, []Entry{
		{ID: "a", Offset: 0, Vector: unit(1, 0)},
		{ID: "b", Offset: 100, Vector: unit(0, 1)},
	})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if idx.Size() != 2 {
		t.Fatalf("Size = %d, want 2", idx.Size())
	}
	results, err := idx.Search(ctx, unit(1, 0), 2)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 || results[0].ID != "a" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestChromemIndex_EmptyNotReady(t *testing.T) {
	idx, err := NewChromemIndex(t.TempDir(), 2)
	if err != nil {
		t.Fatal(err)
	}
	_, err = idx.Search(context.Background(), unit(1, 0), 1)
	if !errors.Is(err, models.ErrIndexNotReady) {
		t.Errorf("expected ErrIndexNotReady, got %v", err)
	}
}

func TestChromemIndex_PersistReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := NewChromemIndex(dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, []Entry{{ID: "a", Offset: 0, Vector: unit(1, 0)}}); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewChromemIndex(dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Size() != 1 {
		t.Fatalf("reopened Size = %d, want 1", reopened.Size())
	}
	results, err := reopened.Search(ctx, unit(1, 0), 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "a" {
		t.Errorf("unexpected result: %+v", results[0])
	}
}
