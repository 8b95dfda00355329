package store

import (
	"log/slog"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Collections is the typed layer over a KV backend. Reads are total: an
// absent or malformed blob decodes to an empty collection and is never
// surfaced as an error. Every mutation goes through an Update* method that
// holds the store lock across the whole read-modify-write cycle, so two
// concurrent transitions cannot lose each other's writes.
type Collections struct {
	mu sync.Mutex
	kv KV
}

func NewCollections(kv KV) *Collections {
	return &Collections{kv: kv}
}

func (c *Collections) Close() error { return c.kv.Close() }

// readList decodes the JSON array under key into out. Fails soft: corrupt
// or missing content leaves out at its zero value.
func (c *Collections) readList(key string, out any) {
	data, ok, err := c.kv.Get(key)
	if err != nil {
		slog.Warn("store read failed, treating collection as empty", "key", key, "error", err)
		return
	}
	if !ok || len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("malformed collection, treating as empty", "key", key, "error", err)
	}
}

func (c *Collections) writeList(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.kv.Put(key, data)
}

// --- Books ---

func (c *Collections) Books() []Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.booksLocked()
}

func (c *Collections) booksLocked() []Book {
	books := []Book{}
	c.readList(KeyBooks, &books)
	return books
}

func (c *Collections) SaveBooks(books []Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeList(KeyBooks, books)
}

// UpdateBooks applies fn to the current book list and persists the result.
// The lock is held for the full cycle.
func (c *Collections) UpdateBooks(fn func([]Book) ([]Book, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	books, err := fn(c.booksLocked())
	if err != nil {
		return err
	}
	return c.writeList(KeyBooks, books)
}

// --- Loan requests ---

func (c *Collections) Loans() []LoanRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loansLocked()
}

func (c *Collections) loansLocked() []LoanRequest {
	loans := []LoanRequest{}
	c.readList(KeyLoans, &loans)
	return loans
}

func (c *Collections) UpdateLoans(fn func([]LoanRequest) ([]LoanRequest, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	loans, err := fn(c.loansLocked())
	if err != nil {
		return err
	}
	return c.writeList(KeyLoans, loans)
}

// UpdateLoansAndBooks mutates both collections under one critical section.
// Loan transitions use it so the status change and the availability
// bookkeeping land together or not at all.
func (c *Collections) UpdateLoansAndBooks(fn func([]LoanRequest, []Book) ([]LoanRequest, []Book, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	loans, books, err := fn(c.loansLocked(), c.booksLocked())
	if err != nil {
		return err
	}
	if err := c.writeList(KeyLoans, loans); err != nil {
		return err
	}
	return c.writeList(KeyBooks, books)
}

// --- Users ---

func (c *Collections) Users() []User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usersLocked()
}

func (c *Collections) usersLocked() []User {
	users := []User{}
	c.readList(KeyUsers, &users)
	return users
}

func (c *Collections) UpdateUsers(fn func([]User) ([]User, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	users, err := fn(c.usersLocked())
	if err != nil {
		return err
	}
	return c.writeList(KeyUsers, users)
}

// --- Search cache ---

func (c *Collections) SearchCache() map[string]CachedSearch {
	c.mu.Lock()
	defer c.mu.Unlock()
	cache := map[string]CachedSearch{}
	c.readList(KeySearchCache, &cache)
	return cache
}

func (c *Collections) UpdateSearchCache(fn func(map[string]CachedSearch) map[string]CachedSearch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cache := map[string]CachedSearch{}
	c.readList(KeySearchCache, &cache)
	return c.writeList(KeySearchCache, fn(cache))
}

// --- Chat history ---

func (c *Collections) ChatHistory() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := []ChatMessage{}
	c.readList(KeyChatHistory, &msgs)
	return msgs
}

func (c *Collections) AppendChat(msgs ...ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := []ChatMessage{}
	c.readList(KeyChatHistory, &history)
	history = append(history, msgs...)
	return c.writeList(KeyChatHistory, history)
}

// --- Theme preference ---

func (c *Collections) Theme() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok, err := c.kv.Get(KeyTheme)
	if err != nil || !ok || len(data) == 0 {
		return "dark"
	}
	var theme string
	if err := json.Unmarshal(data, &theme); err != nil {
		return "dark"
	}
	return theme
}

func (c *Collections) SetTheme(theme string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(theme)
	if err != nil {
		return err
	}
	return c.kv.Put(KeyTheme, data)
}
