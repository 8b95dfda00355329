package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestCollectionsRoundTrip(t *testing.T) {
	c := NewCollections(NewMemoryKV())

	books := []Book{
		{ID: "10", Title: "B", Author: "X", TotalCopies: 2, AvailableCopies: 2, CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{ID: "11", Title: "A", Author: "Y", TotalCopies: 1, AvailableCopies: 0, CreatedAt: time.Date(2025, 2, 2, 3, 4, 5, 0, time.UTC)},
	}
	if err := c.SaveBooks(books); err != nil {
		t.Fatalf("SaveBooks failed: %v", err)
	}

	got := c.Books()
	if !reflect.DeepEqual(got, books) {
		t.Errorf("round trip mismatch.\n got: %+v\nwant: %+v", got, books)
	}
}

func TestReadFailsSoftOnMalformedBlob(t *testing.T) {
	kv := NewMemoryKV()
	if err := kv.Put(KeyBooks, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	c := NewCollections(kv)

	books := c.Books()
	if len(books) != 0 {
		t.Errorf("expected empty collection for malformed blob, got %d records", len(books))
	}
}

func TestReadFailsSoftOnAbsentKey(t *testing.T) {
	c := NewCollections(NewMemoryKV())
	if loans := c.Loans(); len(loans) != 0 {
		t.Errorf("expected empty collection for absent key, got %d", len(loans))
	}
	if users := c.Users(); len(users) != 0 {
		t.Errorf("expected empty collection for absent key, got %d", len(users))
	}
}

func TestUpdateLoansAndBooksAbortsOnError(t *testing.T) {
	c := NewCollections(NewMemoryKV())
	if err := c.SaveBooks([]Book{{ID: "1", Title: "T", TotalCopies: 1, AvailableCopies: 1}}); err != nil {
		t.Fatal(err)
	}

	wantErr := os.ErrInvalid
	err := c.UpdateLoansAndBooks(func(loans []LoanRequest, books []Book) ([]LoanRequest, []Book, error) {
		books[0].AvailableCopies = 99
		return loans, books, wantErr
	})
	if err != wantErr {
		t.Fatalf("expected error to propagate, got %v", err)
	}

	if got := c.Books()[0].AvailableCopies; got != 1 {
		t.Errorf("mutation persisted despite error: available=%d", got)
	}
}

func TestThemeDefaultsToDark(t *testing.T) {
	c := NewCollections(NewMemoryKV())
	if theme := c.Theme(); theme != "dark" {
		t.Errorf("expected default theme dark, got %q", theme)
	}
	if err := c.SetTheme("light"); err != nil {
		t.Fatal(err)
	}
	if theme := c.Theme(); theme != "light" {
		t.Errorf("expected light after SetTheme, got %q", theme)
	}
}

func TestFileKVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}

	if _, ok, err := kv.Get("books"); ok || err != nil {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	payload := []byte(`[{"id":"1"}]`)
	if err := kv.Put("books", payload); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := kv.Get("books")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}

	if _, err := os.Stat(filepath.Join(dir, "books.json")); err != nil {
		t.Errorf("expected books.json on disk: %v", err)
	}
}

// setupSQLite creates a temporary database for testing and returns a cleanup
// function to be called with defer.
func setupSQLite(t *testing.T) (*SQLiteKV, func()) {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "unilib_test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file for test database: %v", err)
	}
	path := tmpfile.Name()
	if err := tmpfile.Close(); err != nil {
		t.Fatalf("Failed to close temp file: %v", err)
	}

	kv, err := NewSQLiteKV(path)
	if err != nil {
		os.Remove(path)
		t.Fatalf("Failed to create SQLiteKV for test: %v", err)
	}

	return kv, func() {
		kv.Close()
		os.Remove(path)
	}
}

func TestSQLiteKVOverwrite(t *testing.T) {
	kv, cleanup := setupSQLite(t)
	defer cleanup()

	if err := kv.Put("users", []byte(`["a"]`)); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := kv.Put("users", []byte(`["a","b"]`)); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, ok, err := kv.Get("users")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(got) != `["a","b"]` {
		t.Errorf("expected overwrite to win, got %q", got)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	c := NewCollections(NewMemoryKV())
	if err := c.Seed(); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	users := c.Users()
	if len(users) != 7 {
		t.Fatalf("expected 7 seeded users, got %d", len(users))
	}
	if users[0].Role != RoleAdmin {
		t.Errorf("expected first seeded user to be admin, got %q", users[0].Role)
	}

	// A second seed must not clobber live data.
	if err := c.SaveBooks([]Book{{ID: "42", Title: "Kept"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Seed(); err != nil {
		t.Fatalf("second Seed failed: %v", err)
	}
	books := c.Books()
	if len(books) != 1 || books[0].ID != "42" {
		t.Errorf("second seed overwrote books: %+v", books)
	}
}
