package index

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/yourusername/unilib/pkg/store"
)

// BookDocument is the searchable projection of a catalog book.
type BookDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	Year        string `json:"year"`
}

type Manager struct {
	index bleve.Index
	path  string
}

// NewManager opens or creates a Bleve index at the specified path.
func NewManager(path string) (*Manager, error) {
	var index bleve.Index
	var err error

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		mapping := bleve.NewIndexMapping()
		// Standard analyzer removes stopwords and lowercases terms.
		mapping.DefaultAnalyzer = standard.Name

		index, err = bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
		slog.Info("created new bleve index", "path", path)
	} else {
		index, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		slog.Info("opened existing bleve index", "path", path)
	}

	return &Manager{
		index: index,
		path:  path,
	}, nil
}

func (m *Manager) Close() error {
	return m.index.Close()
}

// IndexBook adds or updates a book in the index.
func (m *Manager) IndexBook(book store.Book) error {
	doc := BookDocument{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		ISBN:        book.ISBN,
		Genre:       strings.Join(book.Genre, " "),
		Description: book.Description,
		Year:        strconv.Itoa(book.PublishYear),
	}
	slog.Info("indexing book", "id", doc.ID, "title", doc.Title)
	return m.index.Index(doc.ID, doc)
}

// DeleteBook removes a book from the index.
func (m *Manager) DeleteBook(id string) error {
	return m.index.Delete(id)
}

// SearchHit is one matching book ID with its relevance score.
type SearchHit struct {
	ID    string
	Score float64
}

// Search runs a query-string search ("title:dune" syntax works) and returns
// matching IDs with scores.
func (m *Manager) Search(queryStr string) ([]SearchHit, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	searchRequest := bleve.NewSearchRequest(query)
	searchRequest.Size = 50

	searchResult, err := m.index.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for _, hit := range searchResult.Hits {
		hits = append(hits, SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		})
	}

	slog.Info("search executed", "query", queryStr, "hits", searchResult.Total, "took", searchResult.Took)
	return hits, nil
}

// Count returns the total number of indexed documents.
func (m *Manager) Count() (uint64, error) {
	return m.index.DocCount()
}

// Rebuild reindexes the whole catalog, used at startup to pick up books
// added while the index was unavailable.
func (m *Manager) Rebuild(books []store.Book) error {
	batch := m.index.NewBatch()
	for _, b := range books {
		doc := BookDocument{
			ID:          b.ID,
			Title:       b.Title,
			Author:      b.Author,
			ISBN:        b.ISBN,
			Genre:       strings.Join(b.Genre, " "),
			Description: b.Description,
			Year:        strconv.Itoa(b.PublishYear),
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return err
		}
	}
	if err := m.index.Batch(batch); err != nil {
		return err
	}
	slog.Info("rebuilt book index", "count", len(books))
	return nil
}
