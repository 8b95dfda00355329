package store

import "time"

// Loan request lifecycle. Rejected and returned are terminal; requests are
// never deleted, only transitioned.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusReturned = "returned"
)

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

const (
	UserActive  = "active"
	UserBlocked = "blocked"
)

type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Genre           []string  `json:"genre,omitempty"`
	Description     string    `json:"description,omitempty"`
	Cover           string    `json:"cover,omitempty"`
	ISBN            string    `json:"isbn,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	PublishYear     int       `json:"publish_year,omitempty"`
	PageCount       int       `json:"page_count,omitempty"`
	BorrowedCount   int       `json:"borrowed_count"`
	CreatedAt       time.Time `json:"created_at"`
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Never export password hash
	Role         string `json:"role"`   // "admin", "student"
	Status       string `json:"status"` // "active", "blocked"
}

// LoanRequest carries a denormalized snapshot of the book (title, author,
// cover) so listings render without a join against the books collection.
type LoanRequest struct {
	ID              string     `json:"id"`
	BookID          string     `json:"book_id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	RequestDate     time.Time  `json:"request_date"`
	ApprovedDate    *time.Time `json:"approved_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ReturnedDate    *time.Time `json:"returned_date,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Cover           string     `json:"cover,omitempty"`
}

// CachedSearch is one entry of the search-result cache, keyed by query+limit.
type CachedSearch struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"` // "user", "librarian"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
