package search

import (
	"testing"
	"time"

	"github.com/yourusername/unilib/pkg/store"
)

func TestSearchIsDeterministic(t *testing.T) {
	s := New(store.NewCollections(store.NewMemoryKV()))

	first, err := s.Search("dune", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(first.Items) != 5 {
		t.Fatalf("len=%d, want 5", len(first.Items))
	}
	if first.Items[0].Title != "dune Book 1" {
		t.Errorf("title=%q", first.Items[0].Title)
	}

	second, err := s.Search("dune", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Items) != len(first.Items) || second.Items[0].ID != first.Items[0].ID {
		t.Error("repeated search returned different results")
	}
}

func TestSearchCapsPageSize(t *testing.T) {
	s := New(store.NewCollections(store.NewMemoryKV()))
	res, err := s.Search("go", 40)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 10 {
		t.Errorf("len=%d, want 10", len(res.Items))
	}
}

func TestSearchUsesPersistedCache(t *testing.T) {
	col := store.NewCollections(store.NewMemoryKV())

	canned := Results{Items: []Volume{{ID: "canned", Title: "From Cache"}}}
	payload, err := json.Marshal(canned)
	if err != nil {
		t.Fatal(err)
	}
	if err := col.UpdateSearchCache(func(cache map[string]store.CachedSearch) map[string]store.CachedSearch {
		cache[cacheKey("dune", 3)] = store.CachedSearch{Key: cacheKey("dune", 3), Payload: payload, Timestamp: time.Now()}
		return cache
	}); err != nil {
		t.Fatal(err)
	}

	res, err := New(col).Search("dune", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 1 || res.Items[0].ID != "canned" {
		t.Errorf("expected cached payload to win, got %+v", res.Items)
	}
}

func TestSearchIgnoresExpiredCacheEntry(t *testing.T) {
	col := store.NewCollections(store.NewMemoryKV())

	canned := Results{Items: []Volume{{ID: "stale"}}}
	payload, _ := json.Marshal(canned)
	if err := col.UpdateSearchCache(func(cache map[string]store.CachedSearch) map[string]store.CachedSearch {
		cache[cacheKey("dune", 3)] = store.CachedSearch{
			Key:       cacheKey("dune", 3),
			Payload:   payload,
			Timestamp: time.Now().Add(-2 * time.Hour),
		}
		return cache
	}); err != nil {
		t.Fatal(err)
	}

	res, err := New(col).Search("dune", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 3 {
		t.Errorf("expected fresh mock results, got %+v", res.Items)
	}
}
