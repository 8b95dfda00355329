package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/unilib/pkg/store"
)

// FineRate is the flat daily fine used for the mock revenue figures.
const FineRate = 5.0

// Reports computes read-only aggregations over the live collections. Every
// call recomputes from scratch; nothing here caches or maintains state.
type Reports struct {
	col *store.Collections
}

func New(col *store.Collections) *Reports {
	return &Reports{col: col}
}

type DashboardStats struct {
	TotalBooks    int     `json:"total_books"`
	ActiveLoans   int     `json:"active_loans"`
	Overdue       int     `json:"overdue"`
	Pending       int     `json:"pending"`
	TotalUsers    int     `json:"total_users"`
	ActiveMembers int     `json:"active_members"`
	RevenueToday  float64 `json:"revenue_today"`
}

func statusEquals(status, want string) bool {
	return strings.EqualFold(status, want)
}

func isOverdue(l store.LoanRequest, now time.Time) bool {
	return statusEquals(l.Status, store.StatusApproved) && l.DueDate != nil && l.DueDate.Before(now)
}

func (r *Reports) Dashboard() DashboardStats {
	books := r.col.Books()
	loans := r.col.Loans()
	users := r.col.Users()
	now := time.Now()

	stats := DashboardStats{
		TotalBooks: len(books),
		TotalUsers: len(users),
	}
	for _, l := range loans {
		switch {
		case statusEquals(l.Status, store.StatusApproved):
			stats.ActiveLoans++
			if isOverdue(l, now) {
				stats.Overdue++
			}
		case statusEquals(l.Status, store.StatusPending):
			stats.Pending++
		}
	}
	for _, u := range users {
		if u.Role == store.RoleStudent {
			stats.ActiveMembers++
		}
	}
	stats.RevenueToday = float64(stats.Overdue) * FineRate
	return stats
}

// TopBorrowed returns up to ten books ranked by cumulative borrow count.
func (r *Reports) TopBorrowed() []store.Book {
	books := r.col.Books()
	ranked := make([]store.Book, len(books))
	copy(ranked, books)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].BorrowedCount > ranked[j].BorrowedCount
	})
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}
	return ranked
}

// Overdue returns approved loans whose due date has passed.
func (r *Reports) Overdue() []store.LoanRequest {
	now := time.Now()
	out := []store.LoanRequest{}
	for _, l := range r.col.Loans() {
		if isOverdue(l, now) {
			out = append(out, l)
		}
	}
	return out
}

// ActiveUser is a user annotated with their count of approved loans.
type ActiveUser struct {
	store.User
	ActiveLoansCount int `json:"active_loans_count"`
}

// ActiveUsers returns every user holding at least one approved loan.
func (r *Reports) ActiveUsers() []ActiveUser {
	loans := r.col.Loans()
	out := []ActiveUser{}
	for _, u := range r.col.Users() {
		count := 0
		for _, l := range loans {
			if l.UserID == u.ID && statusEquals(l.Status, store.StatusApproved) {
				count++
			}
		}
		if count > 0 {
			out = append(out, ActiveUser{User: u, ActiveLoansCount: count})
		}
	}
	return out
}

type Insights struct {
	TrendingGenre    string  `json:"trending_genre"`
	TrendPercentage  int     `json:"trend_percentage"`
	PeakTime         string  `json:"peak_time"`
	OverdueCount     int     `json:"overdue_count"`
	ProjectedRevenue float64 `json:"projected_revenue"`
}

// Insights derives a handful of heuristics for the admin dashboard: the
// dominant genre across the last 50 requests, the busiest request hour, and
// a fine projection assuming half the overdue stock stays out a while longer.
func (r *Reports) Insights() Insights {
	loans := r.col.Loans()
	books := r.col.Books()

	byID := make(map[string]store.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	recent := loans
	if len(recent) > 50 {
		recent = recent[len(recent)-50:]
	}

	genreCounts := map[string]int{}
	for _, l := range recent {
		if b, ok := byID[l.BookID]; ok {
			for _, g := range b.Genre {
				genreCounts[g]++
			}
		}
	}
	topGenre, topCount := "Fiction", 0
	for g, n := range genreCounts {
		if n > topCount || (n == topCount && g < topGenre) {
			topGenre, topCount = g, n
		}
	}
	trendPct := 0
	if len(recent) > 0 {
		trendPct = int(float64(topCount)/float64(len(recent))*100 + 0.5)
	}

	hourCounts := map[int]int{}
	for _, l := range loans {
		hourCounts[l.RequestDate.Hour()]++
	}
	peakHour, maxActivity := 12, 0
	for h, n := range hourCounts {
		if n > maxActivity || (n == maxActivity && h < peakHour) {
			peakHour, maxActivity = h, n
		}
	}

	overdue := len(r.Overdue())
	return Insights{
		TrendingGenre:    topGenre,
		TrendPercentage:  trendPct,
		PeakTime:         fmt.Sprintf("%s - %s", hourLabel(peakHour), hourLabel(peakHour+3)),
		OverdueCount:     overdue,
		ProjectedRevenue: float64(overdue) * FineRate * 1.5,
	}
}

func hourLabel(h int) string {
	h = h % 24
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}

type Activity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentActivity turns the last 20 loan records, newest first, into a feed
// for the dashboard. User ids are resolved to display names.
func (r *Reports) RecentActivity() []Activity {
	loans := r.col.Loans()
	users := r.col.Users()

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	if len(loans) > 20 {
		loans = loans[len(loans)-20:]
	}

	out := make([]Activity, 0, len(loans))
	for i := len(loans) - 1; i >= 0; i-- {
		l := loans[i]
		kind, action := "return", "Returned book"
		switch {
		case statusEquals(l.Status, store.StatusPending):
			kind, action = "request", "Requested book"
		case statusEquals(l.Status, store.StatusApproved):
			kind, action = "borrow", "Borrowed book"
		}
		name := names[l.UserID]
		if name == "" {
			name = "Unknown User"
		}
		out = append(out, Activity{
			ID:        l.ID,
			Type:      kind,
			Action:    action,
			User:      name,
			Timestamp: l.RequestDate,
		})
	}
	return out
}
