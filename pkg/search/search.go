package search

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	jsoniter "github.com/json-iterator/go"

	"github.com/yourusername/unilib/pkg/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CacheTTL is how long a cached result set stays valid.
const CacheTTL = time.Hour

const defaultMaxResults = 40

// Volume mimics the shape of an external book-search result.
type Volume struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	Thumbnail     string   `json:"thumbnail"`
	PageCount     int      `json:"page_count"`
	PublishedDate string   `json:"published_date"`
	Categories    []string `json:"categories"`
}

type Results struct {
	Items []Volume `json:"items"`
}

// Service answers catalog-discovery searches. There is no real upstream:
// results are generated deterministically from the query, cached in memory
// behind an expirable LRU and persisted in the search-cache collection so
// they survive restarts.
type Service struct {
	col *store.Collections
	lru *expirable.LRU[string, Results]
}

func New(col *store.Collections) *Service {
	return &Service{
		col: col,
		lru: expirable.NewLRU[string, Results](256, nil, CacheTTL),
	}
}

func cacheKey(query string, maxResults int) string {
	return fmt.Sprintf("%s-%d", query, maxResults)
}

func (s *Service) Search(query string, maxResults int) (Results, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	key := cacheKey(query, maxResults)

	if res, ok := s.lru.Get(key); ok {
		return res, nil
	}

	if entry, ok := s.col.SearchCache()[key]; ok && time.Since(entry.Timestamp) < CacheTTL {
		var res Results
		if err := json.Unmarshal(entry.Payload, &res); err == nil {
			s.lru.Add(key, res)
			return res, nil
		}
		slog.Warn("dropping malformed search cache entry", "key", key)
	}

	res := mockResults(query, maxResults)

	payload, err := json.Marshal(res)
	if err != nil {
		return Results{}, err
	}
	if err := s.col.UpdateSearchCache(func(cache map[string]store.CachedSearch) map[string]store.CachedSearch {
		cache[key] = store.CachedSearch{Key: key, Payload: payload, Timestamp: time.Now().UTC()}
		return cache
	}); err != nil {
		return Results{}, err
	}
	s.lru.Add(key, res)
	return res, nil
}

// mockResults fabricates a stable result page for the query.
func mockResults(query string, maxResults int) Results {
	n := maxResults
	if n > 10 {
		n = 10
	}
	items := make([]Volume, 0, n)
	for i := 0; i < n; i++ {
		categories := []string{"Fiction", "Sci-Fi"}
		if i%2 != 0 {
			categories = []string{"Non-Fiction", "History"}
		}
		items = append(items, Volume{
			ID:            fmt.Sprintf("mock-%d", i),
			Title:         fmt.Sprintf("%s Book %d", query, i+1),
			Authors:       []string{fmt.Sprintf("Author %d", i+1)},
			Description:   fmt.Sprintf("Description for %s book %d", query, i+1),
			Thumbnail:     fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", 8226455+i),
			PageCount:     200 + i*20,
			PublishedDate: fmt.Sprintf("%d", 2000+i),
			Categories:    categories,
		})
	}
	return Results{Items: items}
}
