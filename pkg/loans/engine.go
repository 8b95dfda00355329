package loans

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/yourusername/unilib/pkg/store"
)

var (
	// ErrNotFound means the loan id does not resolve to any request.
	ErrNotFound = errors.New("loan request not found")
	// ErrBookNotFound means the referenced book no longer exists.
	ErrBookNotFound = errors.New("book not found")
	// ErrNotPending is returned when approve/reject hits a request that
	// already left the pending state.
	ErrNotPending = errors.New("request is not pending")
	// ErrNotApproved is returned when a return is filed against a request
	// that is not currently approved.
	ErrNotApproved = errors.New("request is not approved")
	// ErrNoCopies blocks approval when every copy is already out.
	ErrNoCopies = errors.New("no copies available")
	// ErrEmptyReason rejects a rejection without a stated reason.
	ErrEmptyReason = errors.New("rejection reason must not be empty")
	// ErrInventoryFull blocks a return that would push available copies
	// past the total, which would mean the inventory count has drifted.
	ErrInventoryFull = errors.New("all copies already in inventory")
)

// Engine drives the loan request lifecycle:
//
//	pending -> approved -> returned
//	pending -> rejected
//
// rejected and returned are terminal. Requests are never deleted. The engine
// is the only writer of loan records and additionally adjusts
// Book.AvailableCopies and Book.BorrowedCount as transition side effects,
// holding the inventory invariant 0 <= available <= total on every mutation.
type Engine struct {
	col *store.Collections
}

func New(col *store.Collections) *Engine {
	return &Engine{col: col}
}

// statusIs compares loan statuses case-insensitively; historical records may
// have been written with inconsistent casing.
func statusIs(status string, candidates ...string) bool {
	for _, c := range candidates {
		if strings.EqualFold(status, c) {
			return true
		}
	}
	return false
}

// Request files a pending loan request. Availability is deliberately not
// checked here: a student may queue up for a book with zero free copies and
// wait for an approval once one comes back. The book must exist, though,
// so the request can snapshot its display fields.
func (e *Engine) Request(bookID, userID, reason string) (store.LoanRequest, error) {
	var created store.LoanRequest

	err := e.col.UpdateLoansAndBooks(func(loans []store.LoanRequest, books []store.Book) ([]store.LoanRequest, []store.Book, error) {
		var book *store.Book
		for i := range books {
			if books[i].ID == bookID {
				book = &books[i]
				break
			}
		}
		if book == nil {
			return nil, nil, ErrBookNotFound
		}

		created = store.LoanRequest{
			ID:          store.NewID(),
			BookID:      bookID,
			UserID:      userID,
			Status:      store.StatusPending,
			Reason:      reason,
			RequestDate: time.Now().UTC(),
			Title:       book.Title,
			Author:      book.Author,
			Cover:       book.Cover,
		}
		return append(loans, created), books, nil
	})
	if err != nil {
		return store.LoanRequest{}, err
	}

	slog.Info("loan requested", "loan_id", created.ID, "book_id", bookID, "user_id", userID)
	return created, nil
}

// Approve moves a pending request to approved, stamps the approval time and
// due date, takes one copy out of inventory and bumps the book's cumulative
// borrow count. Approval fails with ErrNoCopies when nothing is available;
// the guard lives here, not in any UI.
func (e *Engine) Approve(id string, dueDate time.Time) (store.LoanRequest, error) {
	var approved store.LoanRequest

	err := e.col.UpdateLoansAndBooks(func(loans []store.LoanRequest, books []store.Book) ([]store.LoanRequest, []store.Book, error) {
		li := findLoan(loans, id)
		if li < 0 {
			return nil, nil, ErrNotFound
		}
		if !statusIs(loans[li].Status, store.StatusPending) {
			return nil, nil, ErrNotPending
		}

		bi := findBook(books, loans[li].BookID)
		if bi < 0 {
			return nil, nil, ErrBookNotFound
		}
		if books[bi].AvailableCopies <= 0 {
			return nil, nil, ErrNoCopies
		}

		now := time.Now().UTC()
		due := dueDate.UTC()
		loans[li].Status = store.StatusApproved
		loans[li].ApprovedDate = &now
		loans[li].DueDate = &due

		books[bi].AvailableCopies--
		books[bi].BorrowedCount++

		approved = loans[li]
		return loans, books, nil
	})
	if err != nil {
		return store.LoanRequest{}, err
	}

	slog.Info("loan approved", "loan_id", id, "due", approved.DueDate)
	return approved, nil
}

// Reject moves a pending request to its terminal rejected state. A reason is
// required. Inventory is untouched.
func (e *Engine) Reject(id, reason string) (store.LoanRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return store.LoanRequest{}, ErrEmptyReason
	}

	var rejected store.LoanRequest
	err := e.col.UpdateLoans(func(loans []store.LoanRequest) ([]store.LoanRequest, error) {
		li := findLoan(loans, id)
		if li < 0 {
			return nil, ErrNotFound
		}
		if !statusIs(loans[li].Status, store.StatusPending) {
			return nil, ErrNotPending
		}
		loans[li].Status = store.StatusRejected
		loans[li].RejectionReason = reason
		rejected = loans[li]
		return loans, nil
	})
	if err != nil {
		return store.LoanRequest{}, err
	}

	slog.Info("loan rejected", "loan_id", id, "reason", reason)
	return rejected, nil
}

// Return moves an approved request to returned and puts the copy back.
// If the book was deleted while the loan was out, the transition still
// completes; there is no inventory left to adjust. A return that would
// lift available copies past the total is refused instead of silently
// desynchronizing the counts.
func (e *Engine) Return(id string) (store.LoanRequest, error) {
	var returned store.LoanRequest

	err := e.col.UpdateLoansAndBooks(func(loans []store.LoanRequest, books []store.Book) ([]store.LoanRequest, []store.Book, error) {
		li := findLoan(loans, id)
		if li < 0 {
			return nil, nil, ErrNotFound
		}
		if !statusIs(loans[li].Status, store.StatusApproved) {
			return nil, nil, ErrNotApproved
		}

		bi := findBook(books, loans[li].BookID)
		if bi >= 0 {
			if books[bi].AvailableCopies >= books[bi].TotalCopies {
				return nil, nil, ErrInventoryFull
			}
			books[bi].AvailableCopies++
		} else {
			slog.Warn("returning loan for deleted book, skipping inventory update", "loan_id", id, "book_id", loans[li].BookID)
		}

		now := time.Now().UTC()
		loans[li].Status = store.StatusReturned
		loans[li].ReturnedDate = &now
		returned = loans[li]
		return loans, books, nil
	})
	if err != nil {
		return store.LoanRequest{}, err
	}

	slog.Info("loan returned", "loan_id", id)
	return returned, nil
}

// --- Queries ---

func (e *Engine) All() []store.LoanRequest {
	return e.col.Loans()
}

func (e *Engine) Get(id string) (store.LoanRequest, error) {
	for _, l := range e.col.Loans() {
		if l.ID == id {
			return l, nil
		}
	}
	return store.LoanRequest{}, ErrNotFound
}

// CurrentForUser returns the user's live requests: pending and approved.
func (e *Engine) CurrentForUser(userID string) []store.LoanRequest {
	return e.filterForUser(userID, store.StatusPending, store.StatusApproved)
}

// HistoryForUser returns the user's settled requests: rejected and returned.
func (e *Engine) HistoryForUser(userID string) []store.LoanRequest {
	return e.filterForUser(userID, store.StatusRejected, store.StatusReturned)
}

func (e *Engine) filterForUser(userID string, statuses ...string) []store.LoanRequest {
	out := []store.LoanRequest{}
	for _, l := range e.col.Loans() {
		if l.UserID == userID && statusIs(l.Status, statuses...) {
			out = append(out, l)
		}
	}
	return out
}

func findLoan(loans []store.LoanRequest, id string) int {
	for i := range loans {
		if loans[i].ID == id {
			return i
		}
	}
	return -1
}

func findBook(books []store.Book, id string) int {
	for i := range books {
		if books[i].ID == id {
			return i
		}
	}
	return -1
}
