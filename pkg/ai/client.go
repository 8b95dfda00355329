package ai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/yourusername/unilib/pkg/store"
)

// Recommendation is one suggested title in a librarian reply.
type Recommendation struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Reason string `json:"reason"`
	Cover  string `json:"cover,omitempty"`
}

type Reply struct {
	Response string           `json:"response"`
	Books    []Recommendation `json:"books,omitempty"`
}

// Librarian answers recommendation chats. With GEMINI_API_KEY set it talks
// to the Gemini API; without it, replies are generated from the local
// catalog so the feature works offline. Either way the exchange is appended
// to the persisted chat history.
type Librarian struct {
	col    *store.Collections
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewLibrarian(ctx context.Context, col *store.Collections) *Librarian {
	l := &Librarian{col: col}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		slog.Info("GEMINI_API_KEY not set, AI librarian running in mock mode")
		return l
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		slog.Warn("failed to create Gemini client, falling back to mock mode", "error", err)
		return l
	}
	l.client = client
	l.model = client.GenerativeModel("gemini-3-pro")
	return l
}

// Chat records the user's message, produces a reply, records it, and
// returns it.
func (l *Librarian) Chat(ctx context.Context, userID, query string) (Reply, error) {
	userMsg := store.ChatMessage{
		ID:        store.NewID(),
		UserID:    userID,
		Role:      "user",
		Text:      query,
		Timestamp: time.Now().UTC(),
	}

	var reply Reply
	if l.model != nil {
		text, err := l.generate(ctx, query)
		if err != nil {
			return Reply{}, err
		}
		reply = Reply{Response: text}
	} else {
		reply = l.mockReply(query)
	}

	librarianMsg := store.ChatMessage{
		ID:        store.NewID(),
		UserID:    userID,
		Role:      "librarian",
		Text:      reply.Response,
		Timestamp: time.Now().UTC(),
	}
	if err := l.col.AppendChat(userMsg, librarianMsg); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func (l *Librarian) generate(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(`You are a witty university librarian. A student asks: %q
Recommend up to 3 books from a general university library, each with a one-sentence reason.
Keep it concise and friendly.`, query)

	resp, err := l.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "I couldn't come up with a recommendation for that, try rephrasing?", nil
	}

	// Extract text from parts
	var result string
	for _, part := range resp.Candidates[0].Content.Parts {
		result += fmt.Sprintf("%v", part)
	}
	return result, nil
}

// mockReply recommends the first three catalog books, with a reason keyed
// off the query.
func (l *Librarian) mockReply(query string) Reply {
	books := l.col.Books()
	if len(books) > 3 {
		books = books[:3]
	}

	interest := "classic literature"
	lower := strings.ToLower(query)
	for _, b := range books {
		for _, g := range b.Genre {
			if strings.Contains(lower, strings.ToLower(g)) {
				interest = g + " picks"
				break
			}
		}
	}

	recs := make([]Recommendation, 0, len(books))
	for _, b := range books {
		recs = append(recs, Recommendation{
			Title:  b.Title,
			Author: b.Author,
			Reason: fmt.Sprintf("Because you showed interest in %s", interest),
			Cover:  b.Cover,
		})
	}
	return Reply{
		Response: fmt.Sprintf("As your witty librarian, I recommend these %d books based on %q:", len(recs), query),
		Books:    recs,
	}
}

// History returns the stored exchange for one user.
func (l *Librarian) History(userID string) []store.ChatMessage {
	out := []store.ChatMessage{}
	for _, m := range l.col.ChatHistory() {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

func (l *Librarian) Close() {
	if l.client != nil {
		l.client.Close()
	}
}
