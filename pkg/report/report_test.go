package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/unilib/pkg/store"
)

func seedCollections(t *testing.T, books []store.Book, loans []store.LoanRequest, users []store.User) *store.Collections {
	t.Helper()
	col := store.NewCollections(store.NewMemoryKV())
	if err := col.SaveBooks(books); err != nil {
		t.Fatal(err)
	}
	if err := col.UpdateLoans(func([]store.LoanRequest) ([]store.LoanRequest, error) { return loans, nil }); err != nil {
		t.Fatal(err)
	}
	if err := col.UpdateUsers(func([]store.User) ([]store.User, error) { return users, nil }); err != nil {
		t.Fatal(err)
	}
	return col
}

func ptr(t time.Time) *time.Time { return &t }

func TestDashboardCounts(t *testing.T) {
	past := ptr(time.Now().Add(-48 * time.Hour))
	future := ptr(time.Now().Add(48 * time.Hour))

	col := seedCollections(t,
		[]store.Book{{ID: "b1"}, {ID: "b2"}},
		[]store.LoanRequest{
			{ID: "1", UserID: "u1", Status: "approved", DueDate: past},   // overdue
			{ID: "2", UserID: "u1", Status: "Approved", DueDate: future}, // active, legacy casing
			{ID: "3", UserID: "u2", Status: "pending"},
			{ID: "4", UserID: "u2", Status: "rejected"},
		},
		[]store.User{
			{ID: "u1", Role: store.RoleStudent},
			{ID: "u2", Role: store.RoleStudent},
			{ID: "u3", Role: store.RoleAdmin},
		},
	)

	stats := New(col).Dashboard()
	if stats.TotalBooks != 2 {
		t.Errorf("TotalBooks=%d, want 2", stats.TotalBooks)
	}
	if stats.ActiveLoans != 2 {
		t.Errorf("ActiveLoans=%d, want 2", stats.ActiveLoans)
	}
	if stats.Overdue != 1 {
		t.Errorf("Overdue=%d, want 1", stats.Overdue)
	}
	if stats.Pending != 1 {
		t.Errorf("Pending=%d, want 1", stats.Pending)
	}
	if stats.TotalUsers != 3 || stats.ActiveMembers != 2 {
		t.Errorf("users: total=%d members=%d, want 3/2", stats.TotalUsers, stats.ActiveMembers)
	}
	if stats.RevenueToday != 1*FineRate {
		t.Errorf("RevenueToday=%v, want %v", stats.RevenueToday, FineRate)
	}
}

func TestTopBorrowedRanksAndLimits(t *testing.T) {
	books := make([]store.Book, 12)
	for i := range books {
		books[i] = store.Book{ID: string(rune('a' + i)), BorrowedCount: i}
	}
	col := seedCollections(t, books, nil, nil)

	top := New(col).TopBorrowed()
	if len(top) != 10 {
		t.Fatalf("len=%d, want 10", len(top))
	}
	if top[0].BorrowedCount != 11 {
		t.Errorf("top book count=%d, want 11", top[0].BorrowedCount)
	}
	for i := 1; i < len(top); i++ {
		if top[i].BorrowedCount > top[i-1].BorrowedCount {
			t.Fatalf("not sorted descending at %d", i)
		}
	}
}

func TestOverdueSelectsOnlyPastDueApproved(t *testing.T) {
	past := ptr(time.Now().Add(-time.Hour))
	future := ptr(time.Now().Add(time.Hour))
	col := seedCollections(t, nil, []store.LoanRequest{
		{ID: "1", Status: "approved", DueDate: past},
		{ID: "2", Status: "Approved", DueDate: past},
		{ID: "3", Status: "approved", DueDate: future},
		{ID: "4", Status: "pending", DueDate: past},
		{ID: "5", Status: "returned", DueDate: past},
		{ID: "6", Status: "approved"}, // no due date stamped
	}, nil)

	overdue := New(col).Overdue()
	if len(overdue) != 2 {
		t.Fatalf("len=%d, want 2: %+v", len(overdue), overdue)
	}
}

func TestActiveUsersAnnotatesLoanCounts(t *testing.T) {
	col := seedCollections(t, nil,
		[]store.LoanRequest{
			{ID: "1", UserID: "u1", Status: "approved"},
			{ID: "2", UserID: "u1", Status: "approved"},
			{ID: "3", UserID: "u2", Status: "pending"},
		},
		[]store.User{{ID: "u1", Name: "A"}, {ID: "u2", Name: "B"}},
	)

	active := New(col).ActiveUsers()
	if len(active) != 1 {
		t.Fatalf("len=%d, want 1", len(active))
	}
	if active[0].ID != "u1" || active[0].ActiveLoansCount != 2 {
		t.Errorf("got %+v", active[0])
	}
}

func TestInsightsTrendingGenre(t *testing.T) {
	col := seedCollections(t,
		[]store.Book{
			{ID: "b1", Genre: []string{"Sci-Fi"}},
			{ID: "b2", Genre: []string{"Romance"}},
		},
		[]store.LoanRequest{
			{ID: "1", BookID: "b1", Status: "approved", RequestDate: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)},
			{ID: "2", BookID: "b1", Status: "returned", RequestDate: time.Date(2025, 3, 2, 14, 30, 0, 0, time.UTC)},
			{ID: "3", BookID: "b2", Status: "pending", RequestDate: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		},
		nil,
	)

	ins := New(col).Insights()
	if ins.TrendingGenre != "Sci-Fi" {
		t.Errorf("TrendingGenre=%q, want Sci-Fi", ins.TrendingGenre)
	}
	if ins.PeakTime != "2 PM - 5 PM" {
		t.Errorf("PeakTime=%q, want \"2 PM - 5 PM\"", ins.PeakTime)
	}
}

func TestRecentActivityResolvesUserNames(t *testing.T) {
	col := seedCollections(t, nil,
		[]store.LoanRequest{
			{ID: "1", UserID: "u1", Status: "pending", RequestDate: time.Now().Add(-2 * time.Hour)},
			{ID: "2", UserID: "ghost", Status: "approved", RequestDate: time.Now().Add(-1 * time.Hour)},
		},
		[]store.User{{ID: "u1", Name: "Alex Johnson"}},
	)

	feed := New(col).RecentActivity()
	if len(feed) != 2 {
		t.Fatalf("len=%d, want 2", len(feed))
	}
	// Newest first.
	if feed[0].ID != "2" || feed[0].Type != "borrow" || feed[0].User != "Unknown User" {
		t.Errorf("feed[0]=%+v", feed[0])
	}
	if feed[1].User != "Alex Johnson" || feed[1].Type != "request" {
		t.Errorf("feed[1]=%+v", feed[1])
	}
}

func TestExportCSV(t *testing.T) {
	var sb strings.Builder
	rows := [][]Cell{{{"a", 1}, {"b", 2}}}
	if err := ExportCSV(&sb, rows); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	want := "a,b\n1,2"
	if sb.String() != want {
		t.Errorf("got %q, want %q", sb.String(), want)
	}
}

func TestExportCSVQuotesStrings(t *testing.T) {
	var sb strings.Builder
	rows := [][]Cell{{{"title", `He said "go", then left`}, {"n", 3}}}
	if err := ExportCSV(&sb, rows); err != nil {
		t.Fatal(err)
	}
	want := "title,n\n" + `"He said \"go\", then left",3`
	if sb.String() != want {
		t.Errorf("got %q, want %q", sb.String(), want)
	}
}

func TestExportCSVEmptyInput(t *testing.T) {
	var sb strings.Builder
	if err := ExportCSV(&sb, nil); !errors.Is(err, ErrNoRecords) {
		t.Errorf("expected ErrNoRecords, got %v", err)
	}
}
