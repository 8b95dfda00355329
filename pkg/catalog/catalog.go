package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourusername/unilib/pkg/store"
)

var ErrNotFound = errors.New("book not found")

// ValidationError reports rejected input on create/update.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Indexer receives catalog mutations so a search index can follow along.
// Nil is fine; indexing is best-effort and never fails a catalog operation.
type Indexer interface {
	IndexBook(b store.Book) error
	DeleteBook(id string) error
}

// Catalog owns the books collection. The loan engine is the only other
// writer of Book records, and it touches AvailableCopies/BorrowedCount only.
type Catalog struct {
	col *store.Collections
	idx Indexer
}

func New(col *store.Collections, idx Indexer) *Catalog {
	return &Catalog{col: col, idx: idx}
}

// List returns books in insertion order (newest first, since Add prepends).
func (c *Catalog) List() []store.Book {
	return c.col.Books()
}

func (c *Catalog) Get(id string) (store.Book, error) {
	for _, b := range c.col.Books() {
		if b.ID == id {
			return b, nil
		}
	}
	return store.Book{}, ErrNotFound
}

type BookInput struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Genre       []string `json:"genre"`
	Description string   `json:"description"`
	Cover       string   `json:"cover"`
	ISBN        string   `json:"isbn"`
	TotalCopies int      `json:"total_copies"`
	PublishYear int      `json:"publish_year"`
	PageCount   int      `json:"page_count"`
}

// Add creates a book with a fresh time-based id, availableCopies equal to
// totalCopies, and a creation stamp, prepended to the list.
func (c *Catalog) Add(in BookInput) (store.Book, error) {
	if in.Title == "" {
		return store.Book{}, &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if in.TotalCopies <= 0 {
		return store.Book{}, &ValidationError{Field: "total_copies", Message: "must be a positive number"}
	}

	book := store.Book{
		ID:              store.NewID(),
		Title:           in.Title,
		Author:          in.Author,
		Genre:           in.Genre,
		Description:     in.Description,
		Cover:           in.Cover,
		ISBN:            in.ISBN,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		PublishYear:     in.PublishYear,
		PageCount:       in.PageCount,
		CreatedAt:       time.Now().UTC(),
	}

	err := c.col.UpdateBooks(func(books []store.Book) ([]store.Book, error) {
		return append([]store.Book{book}, books...), nil
	})
	if err != nil {
		return store.Book{}, err
	}

	if c.idx != nil {
		if err := c.idx.IndexBook(book); err != nil {
			slog.Warn("failed to index new book", "id", book.ID, "error", err)
		}
	}
	return book, nil
}

// BookUpdate is a partial merge; nil fields are left untouched.
type BookUpdate struct {
	Title       *string   `json:"title"`
	Author      *string   `json:"author"`
	Genre       *[]string `json:"genre"`
	Description *string   `json:"description"`
	Cover       *string   `json:"cover"`
	ISBN        *string   `json:"isbn"`
	TotalCopies *int      `json:"total_copies"`
	PublishYear *int      `json:"publish_year"`
	PageCount   *int      `json:"page_count"`
}

// Update merges the given fields into the matching record. When totalCopies
// changes, availableCopies is recomputed as newTotal - loanedOut, where
// loanedOut is oldTotal - oldAvailable, so copies currently on loan are
// preserved.
func (c *Catalog) Update(id string, upd BookUpdate) (store.Book, error) {
	var updated store.Book

	err := c.col.UpdateBooks(func(books []store.Book) ([]store.Book, error) {
		for i := range books {
			if books[i].ID != id {
				continue
			}
			b := &books[i]
			if upd.Title != nil {
				b.Title = *upd.Title
			}
			if upd.Author != nil {
				b.Author = *upd.Author
			}
			if upd.Genre != nil {
				b.Genre = *upd.Genre
			}
			if upd.Description != nil {
				b.Description = *upd.Description
			}
			if upd.Cover != nil {
				b.Cover = *upd.Cover
			}
			if upd.ISBN != nil {
				b.ISBN = *upd.ISBN
			}
			if upd.PublishYear != nil {
				b.PublishYear = *upd.PublishYear
			}
			if upd.PageCount != nil {
				b.PageCount = *upd.PageCount
			}
			if upd.TotalCopies != nil {
				newTotal := *upd.TotalCopies
				if newTotal <= 0 {
					return nil, &ValidationError{Field: "total_copies", Message: "must be a positive number"}
				}
				loanedOut := b.TotalCopies - b.AvailableCopies
				if newTotal < loanedOut {
					return nil, &ValidationError{Field: "total_copies", Message: fmt.Sprintf("cannot be below the %d copies currently on loan", loanedOut)}
				}
				b.TotalCopies = newTotal
				b.AvailableCopies = newTotal - loanedOut
			}
			updated = *b
			return books, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return store.Book{}, err
	}

	if c.idx != nil {
		if err := c.idx.IndexBook(updated); err != nil {
			slog.Warn("failed to reindex book", "id", id, "error", err)
		}
	}
	return updated, nil
}

// Delete removes the record. Loan requests referencing it are left in place;
// there is no cascading delete.
func (c *Catalog) Delete(id string) error {
	err := c.col.UpdateBooks(func(books []store.Book) ([]store.Book, error) {
		for i := range books {
			if books[i].ID == id {
				return append(books[:i], books[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return err
	}

	if c.idx != nil {
		if err := c.idx.DeleteBook(id); err != nil {
			slog.Warn("failed to remove book from index", "id", id, "error", err)
		}
	}
	return nil
}
