package index

import (
	"path/filepath"
	"testing"

	"github.com/yourusername/unilib/pkg/store"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "books.bleve"))
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestIndexAndSearch(t *testing.T) {
	m := setupManager(t)

	books := []store.Book{
		{ID: "1", Title: "Dune", Author: "Frank Herbert", Genre: []string{"Sci-Fi"}, PublishYear: 1965},
		{ID: "2", Title: "The Hobbit", Author: "J.R.R. Tolkien", Genre: []string{"Fantasy"}, PublishYear: 1937},
	}
	for _, b := range books {
		if err := m.IndexBook(b); err != nil {
			t.Fatalf("IndexBook failed: %v", err)
		}
	}

	hits, err := m.Search("dune")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "1" {
		t.Errorf("unexpected hits: %+v", hits)
	}

	count, err := m.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count=%d, want 2", count)
	}
}

func TestDeleteBookRemovesFromResults(t *testing.T) {
	m := setupManager(t)

	if err := m.IndexBook(store.Book{ID: "1", Title: "Dune", Author: "Frank Herbert"}); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteBook("1"); err != nil {
		t.Fatalf("DeleteBook failed: %v", err)
	}

	hits, err := m.Search("dune")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits after delete, got %+v", hits)
	}
}

func TestRebuildIndexesWholeCatalog(t *testing.T) {
	m := setupManager(t)

	err := m.Rebuild([]store.Book{
		{ID: "1", Title: "Dune"},
		{ID: "2", Title: "1984"},
		{ID: "3", Title: "Emma"},
	})
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	count, err := m.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count=%d, want 3", count)
	}
}
