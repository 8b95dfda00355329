package ai

import (
	"context"
	"testing"

	"github.com/yourusername/unilib/pkg/store"
)

func TestMockChatRecommendsFromCatalog(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	col := store.NewCollections(store.NewMemoryKV())
	if err := col.SaveBooks([]store.Book{
		{ID: "1", Title: "Dune", Author: "Frank Herbert", Genre: []string{"Sci-Fi"}},
		{ID: "2", Title: "The Hobbit", Author: "J.R.R. Tolkien", Genre: []string{"Fantasy"}},
	}); err != nil {
		t.Fatal(err)
	}

	l := NewLibrarian(context.Background(), col)
	reply, err := l.Chat(context.Background(), "u1", "any good sci-fi?")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(reply.Books) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(reply.Books))
	}
	if reply.Books[0].Title != "Dune" {
		t.Errorf("first recommendation %q", reply.Books[0].Title)
	}
}

func TestChatPersistsHistoryPerUser(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	col := store.NewCollections(store.NewMemoryKV())
	l := NewLibrarian(context.Background(), col)

	if _, err := l.Chat(context.Background(), "u1", "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Chat(context.Background(), "u2", "hi"); err != nil {
		t.Fatal(err)
	}

	history := l.History("u1")
	if len(history) != 2 {
		t.Fatalf("got %d messages for u1, want 2 (question + reply)", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "librarian" {
		t.Errorf("unexpected roles: %q, %q", history[0].Role, history[1].Role)
	}
	if history[0].Text != "hello" {
		t.Errorf("question text %q", history[0].Text)
	}
}
